package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/vam876/lllmscanner/internal/model"
)

// Разбор сырых нагрузок. Обязательные поля проверяются через указатели:
// отсутствие поля и поле с нулевым значением — разные случаи.

func missing(field string) error {
	return fmt.Errorf("missing required field %q", field)
}

func parseProgress(raw json.RawMessage) (model.ProgressEvent, error) {
	var p struct {
		Progress *float64 `json:"progress"`
		IP       *string  `json:"ip"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.ProgressEvent{}, err
	}
	if p.Progress == nil {
		return model.ProgressEvent{}, missing("progress")
	}
	if p.IP == nil {
		return model.ProgressEvent{}, missing("ip")
	}
	return model.ProgressEvent{Progress: *p.Progress, IP: *p.IP}, nil
}

func parseProgressUpdate(raw json.RawMessage) (model.ProgressUpdateEvent, error) {
	var p struct {
		IP        *string `json:"ip"`
		HasResult bool    `json:"has_result"`
		Timestamp int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.ProgressUpdateEvent{}, err
	}
	if p.IP == nil {
		return model.ProgressUpdateEvent{}, missing("ip")
	}
	return model.ProgressUpdateEvent{IP: *p.IP, HasResult: p.HasResult, Timestamp: p.Timestamp}, nil
}

func parseResult(raw json.RawMessage) (model.ScanResult, error) {
	var p struct {
		IP            *string `json:"ip"`
		Port          *int    `json:"port"`
		Service       string  `json:"service"`
		Status        string  `json:"status"`
		Vulnerability string  `json:"vulnerability"`
		Timestamp     string  `json:"timestamp"`
		Details       string  `json:"details"`
		Response      string  `json:"response"`
		URL           string  `json:"url"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.ScanResult{}, err
	}
	if p.IP == nil {
		return model.ScanResult{}, missing("ip")
	}
	if p.Port == nil {
		return model.ScanResult{}, missing("port")
	}
	if *p.Port < 0 || *p.Port > 65535 {
		return model.ScanResult{}, fmt.Errorf("port %d out of range", *p.Port)
	}
	return model.ScanResult{
		IP:            *p.IP,
		Port:          *p.Port,
		Service:       p.Service,
		Status:        p.Status,
		Vulnerability: p.Vulnerability,
		Timestamp:     p.Timestamp,
		Details:       p.Details,
		Response:      p.Response,
		URL:           p.URL,
	}, nil
}

func parseLog(raw json.RawMessage) (model.LogEvent, error) {
	var p struct {
		Message *string        `json:"message"`
		Type    model.LogLevel `json:"type_"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.LogEvent{}, err
	}
	if p.Message == nil {
		return model.LogEvent{}, missing("message")
	}
	level := p.Type
	if !model.ValidLevel(level) {
		level = model.LevelInfo
	}
	return model.LogEvent{Message: *p.Message, Type: level}, nil
}

func parseComplete(raw json.RawMessage) (model.CompleteEvent, error) {
	var p struct {
		Total *int `json:"total_vulnerabilities"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.CompleteEvent{}, err
	}
	if p.Total == nil {
		return model.CompleteEvent{}, missing("total_vulnerabilities")
	}
	return model.CompleteEvent{TotalVulnerabilities: *p.Total}, nil
}
