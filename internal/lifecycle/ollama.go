// Package lifecycle manages the Ollama sidecar that backs semantic
// search: detection, health checks, and model pulls. The embedding
// client itself lives in internal/embed; this package only answers
// "is Ollama usable" and fixes it when asked.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	"github.com/docdex/docdex/internal/embed"
)

// PullProgress reports the state of a streaming model pull.
type PullProgress struct {
	Status    string
	Completed int64
	Total     int64
}

// Percent returns pull completion in [0, 100], or 0 when unknown.
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// Manager talks to a single Ollama instance.
type Manager struct {
	host   string
	client *http.Client
}

// NewManager returns a Manager for the given host, falling back to
// the default local endpoint when host is empty.
func NewManager(host string) *Manager {
	if host == "" {
		host = embed.DefaultOllamaHost
	}
	return &Manager{
		host:   host,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Host returns the API endpoint this manager targets.
func (m *Manager) Host() string {
	return m.host
}

// Installed reports whether the ollama binary is on PATH and where.
func (m *Manager) Installed() (bool, string) {
	path, err := exec.LookPath("ollama")
	if err != nil {
		return false, ""
	}
	return true, path
}

// Running reports whether the Ollama server answers on the API port.
func (m *Manager) Running(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of locally available models.
func (m *Manager) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s: %w", m.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, 0, len(payload.Models))
	for _, model := range payload.Models {
		names = append(names, model.Name)
	}
	return names, nil
}

// HasModel reports whether the named model is available locally.
// Matches with and without the ":latest" suffix.
func (m *Manager) HasModel(ctx context.Context, model string) (bool, error) {
	names, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == model || name == model+":latest" {
			return true, nil
		}
	}
	return false, nil
}

// PullModel downloads a model, streaming progress to progressFn when
// non-nil. Blocks until the pull completes or ctx is cancelled.
func (m *Manager) PullModel(ctx context.Context, model string, progressFn func(PullProgress)) error {
	body, err := json.Marshal(map[string]string{"name": model})
	if err != nil {
		return fmt.Errorf("failed to encode pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls stream for minutes; no client timeout.
	pullClient := &http.Client{}
	resp, err := pullClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var update struct {
			Status    string `json:"status"`
			Error     string `json:"error"`
			Completed int64  `json:"completed"`
			Total     int64  `json:"total"`
		}
		if err := json.Unmarshal(line, &update); err != nil {
			continue
		}
		if update.Error != "" {
			return fmt.Errorf("pull failed: %s", update.Error)
		}
		if progressFn != nil {
			progressFn(PullProgress{
				Status:    update.Status,
				Completed: update.Completed,
				Total:     update.Total,
			})
		}
	}
	return scanner.Err()
}

// WaitForReady polls until the server answers or the timeout expires.
func (m *Manager) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if m.Running(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("ollama did not become ready at %s within %s", m.host, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
