package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vam876/lllmscanner/internal/config"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
)

type TelegramNotifier struct {
	cfg *config.Config
}

func NewTelegramNotifier(cfg *config.Config) *TelegramNotifier {
	return &TelegramNotifier{cfg: cfg}
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *TelegramNotifier) NotifyFindings(target string, results []model.ScanResult) error {
	if !t.cfg.Telegram.Enabled || len(results) == 0 {
		return nil
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s — scan of %s finished, %d vulnerabilities:\n\n",
		t.cfg.ScanName, target, len(results)))

	for i := range results {
		r := &results[i]
		builder.WriteString(fmt.Sprintf(
			"- %s:%d (%s)\n  %s\n",
			r.IP, r.Port, r.Service, r.Vulnerability,
		))
		if r.URL != "" {
			builder.WriteString(fmt.Sprintf("  %s\n", r.URL))
		}
		builder.WriteString("\n")
	}

	msg := telegramMessage{
		ChatID: t.cfg.Telegram.ChatID,
		Text:   builder.String(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.cfg.Telegram.BotToken)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Errorf("telegram returned non-2xx status: %s", resp.Status)
	}

	return nil
}
