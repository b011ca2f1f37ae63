package model

// Полезные нагрузки событий движка.

type ProgressEvent struct {
	Progress float64 `json:"progress"`
	IP       string  `json:"ip"`
}

type ProgressUpdateEvent struct {
	IP        string `json:"ip"`
	HasResult bool   `json:"has_result"`
	Timestamp int64  `json:"timestamp"`
}

type LogEvent struct {
	Message string   `json:"message"`
	Type    LogLevel `json:"type_"`
}

type CompleteEvent struct {
	TotalVulnerabilities int `json:"total_vulnerabilities"`
}
