package scan

import (
	"context"
	"fmt"

	"github.com/vam876/lllmscanner/internal/ingest"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
)

// Handlers — fan-out событий движка по компонентам ядра.
func (c *Controller) Handlers() ingest.Handlers {
	return ingest.Handlers{
		Progress:       c.onProgress,
		ProgressUpdate: c.onProgressUpdate,
		Result:         c.onResult,
		Log:            c.onLog,
		Complete:       c.onComplete,
	}
}

func (c *Controller) onProgress(ev model.ProgressEvent) {
	c.agg.OnProgress(ev.Progress, ev.IP)
	c.feed.Append(fmt.Sprintf("Scanning %s: %.0f%%", ev.IP, ev.Progress), model.LevelInfo)
}

// onProgressUpdate: нагрузка без результата, только сигнал обновиться.
// Если живой список пуст — подтягиваем результаты командой движка.
func (c *Controller) onProgressUpdate(ev model.ProgressUpdateEvent) {
	if !ev.HasResult {
		return
	}
	if len(c.agg.Snapshot().Results) == 0 {
		go func() {
			results, err := c.eng.ScanResults(context.Background())
			if err != nil {
				logger.Errorf("get_scan_results failed: %v", err)
				return
			}
			for i := range results {
				c.onResult(results[i])
			}
		}()
	}
	c.feed.Append(fmt.Sprintf("Updated scan results for %s", ev.IP), model.LevelInfo)
}

func (c *Controller) onResult(r model.ScanResult) {
	c.agg.OnResult(r) // дубликаты (ip, port) гасятся внутри

	c.feed.Append(fmt.Sprintf("[vulnerability] %s:%d - %s: %s",
		r.IP, r.Port, r.Service, r.Vulnerability), model.LevelError)
	c.feed.Notify(fmt.Sprintf("Vulnerability found: %s at %s:%d",
		r.Service, r.IP, r.Port), model.LevelError)

	// сессия создаётся в истории лениво, первым результатом
	snap := c.agg.Snapshot()
	sessionID := snap.SessionID
	tgt := snap.Target
	kind := snap.TargetType
	if sessionID == "" {
		// результат без открытой сессии (рестарт посреди скана): ведём
		// его как одиночную легаси-сессию по IP, как делало и хранилище
		sessionID = "legacy-" + r.IP + "-" + r.Timestamp
	}
	if tgt == "" {
		tgt = r.IP
	}
	if kind == "" {
		kind = model.TargetSingle
	}

	if err := c.hist.RecordResult(sessionID, tgt, kind, r); err != nil {
		logger.Errorf("history record failed: %v", err)
	}
}

func (c *Controller) onLog(ev model.LogEvent) {
	c.feed.Append(ev.Message, ev.Type)
}

func (c *Controller) onComplete(ev model.CompleteEvent) {
	total := ev.TotalVulnerabilities
	hasFindings := c.agg.OnComplete(total)

	if !hasFindings {
		c.feed.Append("Scan complete, no vulnerabilities found", model.LevelSuccess)
		c.feed.Notify("Scan complete. No vulnerabilities found.", model.LevelSuccess)
		return
	}

	c.feed.Append(fmt.Sprintf("Scan complete, %d vulnerabilities found", total), model.LevelError)
	c.feed.Notify(fmt.Sprintf("Scan complete, %d vulnerabilities found!", total), model.LevelError)

	if c.notif != nil {
		snap := c.agg.Snapshot()
		go func() {
			if err := c.notif.NotifyFindings(snap.Target, snap.Results); err != nil {
				logger.Errorf("findings notification failed: %v", err)
			}
		}()
	}
}
