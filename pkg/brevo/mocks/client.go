// Package mocks provides test doubles for the brevo client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	brevo "github.com/leadline-labs/mailscout-cli/pkg/brevo"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a new mock and registers cleanup assertions.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GetOrCreateList provides a mock function with given fields: ctx, name, folderID
func (_m *MockClient) GetOrCreateList(ctx context.Context, name string, folderID int) (int64, error) {
	ret := _m.Called(ctx, name, folderID)

	if len(ret) == 0 {
		panic("no return value specified for GetOrCreateList")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (int64, error)); ok {
		return rf(ctx, name, folderID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) int64); ok {
		r0 = rf(ctx, name, folderID)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, name, folderID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpsertContact provides a mock function with given fields: ctx, contact
func (_m *MockClient) UpsertContact(ctx context.Context, contact brevo.Contact) error {
	ret := _m.Called(ctx, contact)

	if len(ret) == 0 {
		panic("no return value specified for UpsertContact")
	}

	if rf, ok := ret.Get(0).(func(context.Context, brevo.Contact) error); ok {
		return rf(ctx, contact)
	}
	return ret.Error(0)
}
