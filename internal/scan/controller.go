package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vam876/lllmscanner/internal/aggregate"
	"github.com/vam876/lllmscanner/internal/feed"
	"github.com/vam876/lllmscanner/internal/history"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
	"github.com/vam876/lllmscanner/internal/notifier"
	"github.com/vam876/lllmscanner/internal/target"
)

var (
	// ErrBusy — скан уже идёт; перекрытие не поддерживается.
	ErrBusy = errors.New("scan already running")

	ErrInvalidTarget = errors.New("invalid scan target")
)

// Engine — команды внешнего движка (см. engine.Client).
type Engine interface {
	ValidateIP(ctx context.Context, ip string) (bool, error)
	BatchScan(ctx context.Context, tgt string, kind model.TargetType) (string, error)
	ScanResults(ctx context.Context) ([]model.ScanResult, error)
}

// Controller — пользовательские действия (старт/отмена) и реакция на
// события движка. Сам ничего не сканирует.
type Controller struct {
	eng   Engine
	agg   *aggregate.Aggregator
	hist  *history.Store
	feed  *feed.Feed
	notif notifier.Notifier // может быть nil
}

func NewController(eng Engine, agg *aggregate.Aggregator, hist *history.Store, f *feed.Feed, n notifier.Notifier) *Controller {
	return &Controller{eng: eng, agg: agg, hist: hist, feed: f, notif: n}
}

// StartScan валидирует цель, открывает сессию и асинхронно дергает
// batch_scan. Сбой вызова движка снимает running и показывает уведомление —
// UI не должен застрять в состоянии "scanning". Ретраев нет: неудачный
// запуск пользователь повторяет сам.
func (c *Controller) StartScan(ctx context.Context, rawTarget string, kind model.TargetType) (string, error) {
	tgt := strings.TrimSpace(rawTarget)
	if tgt == "" {
		c.feed.Notify("Please enter a scan target", model.LevelError)
		return "", ErrInvalidTarget
	}

	if kind == "" {
		detected, err := target.DetectKind(tgt)
		if err != nil {
			c.feed.Notify("Invalid scan target", model.LevelError)
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		kind = detected
	}

	if err := c.validate(ctx, tgt, kind); err != nil {
		return "", err
	}

	sessionID, ok := c.agg.StartSession(tgt, kind)
	if !ok {
		c.feed.Notify("A scan is already in progress", model.LevelWarning)
		return "", ErrBusy
	}

	// лог прошлого скана сбрасывается, история остаётся
	c.feed.Clear()
	c.feed.Append(fmt.Sprintf("Starting scan of %s...", tgt), model.LevelInfo)
	switch kind {
	case model.TargetRange:
		c.feed.Append(fmt.Sprintf("Scanning IP range: %s", tgt), model.LevelInfo)
	case model.TargetCIDR:
		c.feed.Append(fmt.Sprintf("Scanning CIDR block: %s", tgt), model.LevelInfo)
	}

	// вызывающий (HTTP-обработчик) отвечает сразу после возврата, и его
	// контекст отменяется; вызов движка живёт на своём контексте
	callCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := c.eng.BatchScan(callCtx, tgt, kind); err != nil {
			logger.Errorf("batch_scan failed: %v", err)
			c.agg.Cancel() // снимаем running, иначе UI завис бы в "scanning"
			c.feed.Append(fmt.Sprintf("Failed to start scan: %v", err), model.LevelError)
			c.feed.Notify("Failed to start scan", model.LevelError)
			return
		}
		c.feed.Notify("Scan started, running in background...", model.LevelSuccess)
	}()

	return sessionID, nil
}

func (c *Controller) validate(ctx context.Context, tgt string, kind model.TargetType) error {
	if kind == model.TargetSingle {
		// одиночный IP подтверждает движок
		valid, err := c.eng.ValidateIP(ctx, tgt)
		if err != nil {
			logger.Errorf("validate_ip_command failed: %v", err)
			c.feed.Notify("Target validation failed", model.LevelError)
			return err
		}
		if !valid {
			c.feed.Notify("Please enter a valid IP address", model.LevelError)
			return ErrInvalidTarget
		}
		return nil
	}

	if err := target.Validate(kind, tgt); err != nil {
		c.feed.Notify("Invalid scan target", model.LevelError)
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return nil
}

// CancelScan — локальная отмена. До движка не доходит: уже запущенные
// пробы могут ещё присылать результаты, и они будут приняты.
func (c *Controller) CancelScan() bool {
	if !c.agg.Cancel() {
		return false
	}
	c.feed.Append("Scan cancelled", model.LevelWarning)
	c.feed.Notify("Scan cancelled", model.LevelWarning)
	return true
}
