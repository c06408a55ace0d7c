package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/stockout/internal/inference"
	"github.com/wonny/stockout/pkg/httputil"
)

// Client calls a running prediction service
type Client struct {
	http    *httputil.Client
	baseURL string
}

// NewClient creates a client for the service at baseURL (e.g. http://localhost:8080)
func NewClient(baseURL string, hc *httputil.Client) *Client {
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// StatusError is a non-2xx answer from the service
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.Status, e.Message)
}

// Predict posts one request to /predict
func (c *Client) Predict(ctx context.Context, req inference.Request) (*inference.Response, error) {
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/predict", req)
	if err != nil {
		return nil, err
	}
	var out inference.Response
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Model fetches /model
func (c *Client) Model(ctx context.Context) (*inference.ModelInfo, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/model")
	if err != nil {
		return nil, err
	}
	var out inference.ModelInfo
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeResponse(resp *http.Response, dest interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Status: resp.StatusCode, Message: body.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
