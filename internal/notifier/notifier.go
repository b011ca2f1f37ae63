package notifier

import "github.com/vam876/lllmscanner/internal/model"

// Notifier — внешний канал оповещения о находках завершившегося скана.
type Notifier interface {
	NotifyFindings(target string, results []model.ScanResult) error
}
