// Package brevo is a minimal client for the Brevo contacts API, used to push
// discovered emails into a campaign list.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.brevo.com/v3"

// APIError is a non-2xx reply from the Brevo API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from a failed API call, 0 if the
// error did not come from an API reply. Callers use it to tell rate
// limiting apart from permanent rejections.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Contact is a contact to create or update.
type Contact struct {
	Email      string         `json:"email"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ListIDs    []int64        `json:"listIds,omitempty"`
}

// Client performs Brevo contact operations.
type Client interface {
	// GetOrCreateList returns the ID of the named list, creating it if absent.
	GetOrCreateList(ctx context.Context, name string, folderID int) (int64, error)

	// UpsertContact creates the contact or updates it if the email exists.
	UpsertContact(ctx context.Context, contact Contact) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Brevo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type listsResponse struct {
	Lists []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"lists"`
}

type createListRequest struct {
	Name     string `json:"name"`
	FolderID int    `json:"folderId"`
}

type createListResponse struct {
	ID int64 `json:"id"`
}

func (c *httpClient) GetOrCreateList(ctx context.Context, name string, folderID int) (int64, error) {
	var lists listsResponse
	if err := c.do(ctx, http.MethodGet, "/contacts/lists?limit=50", nil, &lists); err != nil {
		return 0, eris.Wrap(err, "brevo: get lists")
	}
	for _, l := range lists.Lists {
		if l.Name == name {
			return l.ID, nil
		}
	}

	var created createListResponse
	req := createListRequest{Name: name, FolderID: folderID}
	if err := c.do(ctx, http.MethodPost, "/contacts/lists", req, &created); err != nil {
		return 0, eris.Wrapf(err, "brevo: create list %q", name)
	}
	return created.ID, nil
}

type upsertContactRequest struct {
	Email         string         `json:"email"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	ListIDs       []int64        `json:"listIds,omitempty"`
	UpdateEnabled bool           `json:"updateEnabled"`
}

func (c *httpClient) UpsertContact(ctx context.Context, contact Contact) error {
	req := upsertContactRequest{
		Email:         contact.Email,
		Attributes:    contact.Attributes,
		ListIDs:       contact.ListIDs,
		UpdateEnabled: true,
	}
	if err := c.do(ctx, http.MethodPost, "/contacts", req, nil); err != nil {
		return eris.Wrapf(err, "brevo: upsert contact %s", contact.Email)
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if respBody != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil && err != io.EOF {
			return eris.Wrap(err, "decode response")
		}
	}
	return nil
}
