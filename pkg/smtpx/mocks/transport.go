// Package mocks provides test doubles for the smtpx transport.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	smtpx "github.com/leadline-labs/mailscout-cli/pkg/smtpx"
)

// MockTransport is a mock type for the Transport interface.
type MockTransport struct {
	mock.Mock
}

// NewMockTransport creates a new mock and registers cleanup assertions.
func NewMockTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTransport {
	m := &MockTransport{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Probe provides a mock function with given fields: ctx, host, from, to
func (_m *MockTransport) Probe(ctx context.Context, host string, from string, to string) (smtpx.Result, error) {
	ret := _m.Called(ctx, host, from, to)

	if len(ret) == 0 {
		panic("no return value specified for Probe")
	}

	var r0 smtpx.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) (smtpx.Result, error)); ok {
		return rf(ctx, host, from, to)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) smtpx.Result); ok {
		r0 = rf(ctx, host, from, to)
	} else {
		r0 = ret.Get(0).(smtpx.Result)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string, string) error); ok {
		r1 = rf(ctx, host, from, to)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
