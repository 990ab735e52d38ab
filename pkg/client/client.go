package client

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/models"
)

// Client talks to the banditd API
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// New creates a new client
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewWithTLS creates a new client with a custom TLS configuration
func NewWithTLS(baseURL string, timeout time.Duration, tlsConfig *tls.Config) *Client {
	c := New(baseURL, timeout)
	c.httpClient.Transport = &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	return c
}

// SetAPIKey sets the API key for authentication
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

func (c *Client) newRequest(method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(method, path string, body, out interface{}, wantStatus int) error {
	req, err := c.newRequest(method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Status fetches the tracker snapshot
func (c *Client) Status() (*bandit.Snapshot, error) {
	var snap bandit.Snapshot
	if err := c.do("GET", "/api/bandit/status", nil, &snap, http.StatusOK); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetEnabled toggles the strategy selector
func (c *Client) SetEnabled(enabled bool) (*bandit.Snapshot, error) {
	var snap bandit.Snapshot
	err := c.do("POST", "/api/bandit/enabled", models.EnabledRequest{Enabled: enabled}, &snap, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetColdStart flips the cold-start flag
func (c *Client) SetColdStart(coldStart bool) (*bandit.Snapshot, error) {
	var snap bandit.Snapshot
	err := c.do("POST", "/api/bandit/cold-start", models.ColdStartRequest{ColdStart: coldStart}, &snap, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// StartTraining begins a training cycle
func (c *Client) StartTraining(totalUnits int) (*models.Run, error) {
	var run models.Run
	err := c.do("POST", "/api/bandit/train", models.TrainRequest{TotalUnits: totalUnits}, &run, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CancelTraining cancels the active training cycle
func (c *Client) CancelTraining() error {
	return c.do("POST", "/api/bandit/train/cancel", nil, nil, http.StatusNoContent)
}

// ListRuns fetches run history, optionally filtered by status
func (c *Client) ListRuns(status string) ([]models.Run, error) {
	path := "/api/bandit/runs"
	if status != "" {
		path += "?status=" + status
	}
	var runs []models.Run
	if err := c.do("GET", path, nil, &runs, http.StatusOK); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun fetches a single run by ID
func (c *Client) GetRun(id string) (*models.Run, error) {
	var run models.Run
	if err := c.do("GET", "/api/bandit/runs/"+id, nil, &run, http.StatusOK); err != nil {
		return nil, err
	}
	return &run, nil
}

// Health checks daemon liveness
func (c *Client) Health() error {
	return c.do("GET", "/health", nil, nil, http.StatusOK)
}
