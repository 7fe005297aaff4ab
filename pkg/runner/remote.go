package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AConteh33/go-marcus/internal/httpc"
)

// Remote forwards commands to a command-bridge service over HTTP, for
// deployments where the assistant core runs away from the user's machine.
type Remote struct {
	baseURL string
}

// NewRemote creates a bridge runner targeting the given base URL.
func NewRemote(baseURL string) *Remote {
	return &Remote{baseURL: strings.TrimRight(baseURL, "/")}
}

type bridgeRequest struct {
	Command string `json:"command"`
}

type bridgeResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Run posts the command to the bridge's /exec endpoint.
func (r *Remote) Run(ctx context.Context, command string) (string, error) {
	body, err := json.Marshal(bridgeRequest{Command: command})
	if err != nil {
		return "", fmt.Errorf("runner: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/exec", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("runner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("runner: bridge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("runner: bridge status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out bridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("runner: decode response: %w", err)
	}
	if out.Error != "" {
		return out.Output, fmt.Errorf("runner: %s", out.Error)
	}
	return out.Output, nil
}

// Available reports true; bridge reachability is discovered on use.
func (r *Remote) Available() bool { return true }
