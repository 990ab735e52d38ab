package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SmokeResult is the outcome of probing one backend endpoint
type SmokeResult struct {
	Endpoint   string        `json:"endpoint"`
	OK         bool          `json:"ok"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// SmokeEndpoints are the RAG backend endpoints the smoke check probes.
// Their response bodies are opaque to us; the check only reports
// reachability, status and latency.
var SmokeEndpoints = []string{
	"/api/rag/ask-smart",
	"/api/rag/ask-smart-stream",
	"/api/code/generate",
}

// SmokeChecker probes the RAG backend endpoints
type SmokeChecker struct {
	backendURL string
	httpClient *http.Client
}

// NewSmokeChecker creates a smoke checker against backendURL with the
// given per-request timeout
func NewSmokeChecker(backendURL string, timeout time.Duration) *SmokeChecker {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SmokeChecker{
		backendURL: backendURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe issues one POST against an endpoint and records the outcome
func (s *SmokeChecker) Probe(endpoint, question string) SmokeResult {
	result := SmokeResult{Endpoint: endpoint}

	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := s.httpClient.Post(s.backendURL+endpoint, "application/json", bytes.NewBuffer(payload))
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	// Drain the body so streamed responses are timed end to end
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		result.Error = fmt.Sprintf("reading response: %v", err)
		result.Latency = time.Since(start)
		return result
	}
	result.Latency = time.Since(start)

	result.StatusCode = resp.StatusCode
	result.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.OK {
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return result
}

// Run probes every smoke endpoint with the same question
func (s *SmokeChecker) Run(question string) []SmokeResult {
	results := make([]SmokeResult, 0, len(SmokeEndpoints))
	for _, endpoint := range SmokeEndpoints {
		results = append(results, s.Probe(endpoint, question))
	}
	return results
}
