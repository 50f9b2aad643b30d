// Package client talks to the record endpoints of the admin service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"

	"github.com/google/uuid"
)

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type RecordClient struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a bearer token when set.
	Token string
}

func New(baseURL string) *RecordClient {
	return &RecordClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Data any    `json:"data"`
	UUID string `json:"uuid"`
}

type reply struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// List fetches the page described by q from path.
func (c *RecordClient) List(ctx context.Context, path string, q tablequery.QueryDescriptor) (store.Page, error) {
	var page store.Page
	err := c.do(ctx, http.MethodGet, path+"?"+q.Values().Encode(), nil, &page)
	if page.Item == nil {
		page.Item = []map[string]any{}
	}
	return page, err
}

func (c *RecordClient) Add(ctx context.Context, path string, record map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, path, record, &out)
	return out, err
}

func (c *RecordClient) Update(ctx context.Context, path string, record map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPut, path, record, &out)
	return out, err
}

func (c *RecordClient) Delete(ctx context.Context, path, id string) error {
	return c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

func (c *RecordClient) do(ctx context.Context, method, target string, data any, out any) error {
	var body io.Reader
	if data != nil {
		raw, err := json.Marshal(envelope{Data: data, UUID: uuid.NewString()})
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+target, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var r reply
	decodeErr := json.Unmarshal(raw, &r)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := r.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		logger.Warn("api_error", map[string]any{"method": method, "url": target, "status": resp.StatusCode})
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
