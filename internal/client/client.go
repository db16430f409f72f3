// Package client is a small HTTP client for the event API,
// used by the kiosk to load event descriptors when running as host.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/export"
)

var ErrEventNotFound = errors.New("event not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetEvent fetches an event descriptor by room code.
func (c *Client) GetEvent(ctx context.Context, code string) (domain.Event, error) {
	endpoint := c.baseURL + "/api/v1/events/" + url.PathEscape(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Event{}, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Event{}, fmt.Errorf("c.http.Do -> %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Event{}, ErrEventNotFound
	default:
		return domain.Event{}, fmt.Errorf("unexpected status %v", resp.Status)
	}

	var event domain.Event
	if err = json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return domain.Event{}, fmt.Errorf("json.Decode -> %w", err)
	}

	return event, nil
}

// RegisterEvent stores a new event from an export document and returns the
// created descriptor with its room code assigned. The document is posted
// as-is; the server accepts the export shape unchanged.
func (c *Client) RegisterEvent(ctx context.Context, doc export.Document) (domain.Event, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return domain.Event{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return domain.Event{}, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Event{}, fmt.Errorf("c.http.Do -> %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return domain.Event{}, fmt.Errorf("unexpected status %v", resp.Status)
	}

	var event domain.Event
	if err = json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return domain.Event{}, fmt.Errorf("json.Decode -> %w", err)
	}

	return event, nil
}
