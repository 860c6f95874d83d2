package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProbeError is a non-2xx answer from the studio backend.
type ProbeError struct {
	StatusCode int
	Body       string
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("studio backend probe failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// Device is one compute device reported by the backend.
type Device struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	VRAMTotal uint64 `json:"vram_total"`
	VRAMFree  uint64 `json:"vram_free"`
}

// SystemStats is the subset of the backend's /system_stats payload we surface.
type SystemStats struct {
	System struct {
		OS             string `json:"os"`
		PythonVersion  string `json:"python_version"`
		ComfyUIVersion string `json:"comfyui_version"`
	} `json:"system"`
	Devices []Device `json:"devices"`
}

type Prober interface {
	Probe(ctx context.Context) (*SystemStats, time.Duration, error)
}

// HTTPProber checks a ComfyUI-style backend over HTTP.
type HTTPProber struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProber(baseURL string) *HTTPProber {
	return &HTTPProber{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) (*SystemStats, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/system_stats", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("probe %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, latency, &ProbeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var stats SystemStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, latency, fmt.Errorf("decode system stats: %w", err)
	}
	return &stats, latency, nil
}
