package model

import "fmt"

// TargetType — форма пользовательского ввода цели.
type TargetType string

const (
	TargetSingle TargetType = "single"
	TargetRange  TargetType = "range"
	TargetCIDR   TargetType = "cidr"
)

// LogLevel соответствует type_ в событии scan_log движка.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// ValidLevel: движок может прислать мусор в type_, проверяем явно.
func ValidLevel(l LogLevel) bool {
	switch l {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return true
	}
	return false
}

// ScanResult — одна находка движка. Неизменяемая после получения.
// Timestamp храним строкой как пришёл (ISO-8601), чтобы не ломать
// сериализацию при round-trip через хранилище.
type ScanResult struct {
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	Service       string `json:"service"`
	Status        string `json:"status"`
	Vulnerability string `json:"vulnerability"`
	Timestamp     string `json:"timestamp"`
	Details       string `json:"details"`
	Response      string `json:"response"`
	URL           string `json:"url"`
}

// Key — ключ дедупликации внутри живого скана.
func (r *ScanResult) Key() string {
	return fmt.Sprintf("%s:%d", r.IP, r.Port)
}

// HistoryKey — ключ дедупликации внутри одной сессии истории.
func (r *ScanResult) HistoryKey() string {
	return fmt.Sprintf("%d:%s", r.Port, r.Vulnerability)
}

type LogEntry struct {
	Message   string   `json:"message"`
	Type      LogLevel `json:"type"`
	Timestamp string   `json:"timestamp"`
}

// ScanSession — запись истории. JSON-теги совпадают с легаси-форматом
// хранилища: старые записи могут не иметь sessionId/target/targetType/expanded,
// их доводит до актуальной схемы history.Migrate.
type ScanSession struct {
	SessionID  string       `json:"sessionId"`
	IP         string       `json:"ip,omitempty"`
	Target     string       `json:"target"`
	TargetType TargetType   `json:"targetType"`
	CreatedAt  string       `json:"timestamp"`
	Results    []ScanResult `json:"results"`
	Expanded   bool         `json:"expanded"`
}

// HasResult: есть ли в сессии результат с тем же (port, vulnerability).
func (s *ScanSession) HasResult(r *ScanResult) bool {
	want := r.HistoryKey()
	for i := range s.Results {
		if s.Results[i].HistoryKey() == want {
			return true
		}
	}
	return false
}
