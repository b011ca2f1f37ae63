package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vam876/lllmscanner/internal/model"
)

// InvocationError — команда движка отклонена или недоступна.
type InvocationError struct {
	Command string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Command, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Client — HTTP-клиент команд движка.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(ctx context.Context, command string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, &InvocationError{Command: command, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+command, bytes.NewReader(b))
	if err != nil {
		return nil, &InvocationError{Command: command, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &InvocationError{Command: command, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InvocationError{Command: command, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &InvocationError{Command: command, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	return data, nil
}

// ValidateIP — validate_ip_command(ip) -> bool
func (c *Client) ValidateIP(ctx context.Context, ip string) (bool, error) {
	data, err := c.post(ctx, "validate_ip_command", map[string]string{"ip": ip})
	if err != nil {
		return false, err
	}
	var valid bool
	if err := json.Unmarshal(data, &valid); err != nil {
		return false, &InvocationError{Command: "validate_ip_command", Err: err}
	}
	return valid, nil
}

// BatchScan — batch_scan(target, targetType) -> string | {"Err": string}.
// Старые сборки движка возвращают объект с Err вместо HTTP-ошибки.
func (c *Client) BatchScan(ctx context.Context, target string, kind model.TargetType) (string, error) {
	data, err := c.post(ctx, "batch_scan", map[string]string{
		"target":     target,
		"targetType": string(kind),
	})
	if err != nil {
		return "", err
	}

	var started string
	if json.Unmarshal(data, &started) == nil {
		return started, nil
	}

	var legacy struct {
		Err string `json:"Err"`
	}
	if json.Unmarshal(data, &legacy) == nil && legacy.Err != "" {
		return "", &InvocationError{Command: "batch_scan", Err: fmt.Errorf("%s", legacy.Err)}
	}

	return "", &InvocationError{Command: "batch_scan", Err: fmt.Errorf("unexpected response: %s", data)}
}

// ScanResults — get_scan_results() -> []ScanResult
func (c *Client) ScanResults(ctx context.Context) ([]model.ScanResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_scan_results", nil)
	if err != nil {
		return nil, &InvocationError{Command: "get_scan_results", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &InvocationError{Command: "get_scan_results", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &InvocationError{Command: "get_scan_results", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var out []model.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &InvocationError{Command: "get_scan_results", Err: err}
	}
	return out, nil
}
