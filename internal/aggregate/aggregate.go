package aggregate

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/xid"

	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
	"github.com/vam876/lllmscanner/internal/storage"
)

// Ключи текущего скана в KV. Историей владеет history.Store,
// этими ключами — только агрегатор.
const (
	keyResults    = "currentScanResults"
	keyScanID     = "currentScanId"
	keyTarget     = "currentTarget"
	keyTargetType = "currentTargetType"
)

// Aggregator — состояние текущего (или последнего) скана.
// Мутации выполняются до конца под mutex, реентерабельность не нужна.
type Aggregator struct {
	mu sync.Mutex
	kv storage.KV

	running  bool
	progress float64
	results  []model.ScanResult
	seen     map[string]struct{} // ip:port

	sessionID  string
	target     string
	targetType model.TargetType
}

// Snapshot — копия состояния для HTTP-слоя.
type Snapshot struct {
	Running         bool               `json:"running"`
	ProgressPercent float64            `json:"progressPercent"`
	Results         []model.ScanResult `json:"results"`
	SessionID       string             `json:"currentSessionId"`
	Target          string             `json:"currentTarget"`
	TargetType      model.TargetType   `json:"currentTargetType"`
}

func New(kv storage.KV) *Aggregator {
	return &Aggregator{
		kv:   kv,
		seen: make(map[string]struct{}),
	}
}

// Restore поднимает результаты последнего скана и скаляры сессии после
// рестарта. Любой сбой чтения/разбора откатывает на пустое состояние.
func (a *Aggregator) Restore() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if raw, err := a.kv.Get(keyResults); err == nil {
		var results []model.ScanResult
		if uerr := json.Unmarshal([]byte(raw), &results); uerr != nil {
			return &storage.PersistenceError{Op: "parse " + keyResults, Err: uerr}
		}
		a.results = results
		for i := range results {
			a.seen[results[i].Key()] = struct{}{}
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	a.sessionID = a.getScalar(keyScanID)
	a.target = a.getScalar(keyTarget)
	a.targetType = model.TargetType(a.getScalar(keyTargetType))
	return nil
}

func (a *Aggregator) getScalar(key string) string {
	raw, err := a.kv.Get(key)
	if err != nil {
		return ""
	}
	var s string
	if json.Unmarshal([]byte(raw), &s) != nil {
		return ""
	}
	return s
}

func (a *Aggregator) setScalar(key, val string) {
	b, _ := json.Marshal(val)
	if err := a.kv.Set(key, string(b)); err != nil {
		logger.Errorf("aggregate: persist %s: %v", key, err)
	}
}

// StartSession начинает новую сессию. Если скан уже идёт — no-op
// (перекрывающиеся сканы не поддерживаются, политику навязывает вызывающий).
// ID получается из xid: монотонный по времени и уникальный даже для
// одинаковых целей в пределах одной миллисекунды.
func (a *Aggregator) StartSession(target string, kind model.TargetType) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return "", false
	}

	a.sessionID = xid.New().String()
	a.target = target
	a.targetType = kind
	a.running = true
	a.progress = 0
	a.results = nil
	a.seen = make(map[string]struct{})

	a.setScalar(keyScanID, a.sessionID)
	a.setScalar(keyTarget, target)
	a.setScalar(keyTargetType, string(kind))

	return a.sessionID, true
}

// OnProgress: percent зажимается в [0,100]; >=100 — терминальный сигнал,
// независимый от scan_complete (кто пришёл первым, тот и снял running).
func (a *Aggregator) OnProgress(percent float64, ip string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	a.progress = percent

	if percent >= 100 {
		a.running = false
	}
	_ = ip // ip нужен только потребителям лога
}

// OnResult: первый пришедший (ip, port) выигрывает, повторы движка
// отбрасываются. Возвращает true, если результат новый.
func (a *Aggregator) OnResult(r model.ScanResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := r.Key()
	if _, dup := a.seen[key]; dup {
		return false
	}
	a.seen[key] = struct{}{}
	a.results = append(a.results, r)
	return true
}

// OnComplete фиксирует завершение. Возвращает наличие находок, чтобы
// вызывающий выбрал вид по умолчанию (история при нуле, иначе результаты).
func (a *Aggregator) OnComplete(totalVulnerabilities int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.progress = 100
	a.running = false

	if totalVulnerabilities > 0 {
		b, err := json.Marshal(a.results)
		if err == nil {
			if serr := a.kv.Set(keyResults, string(b)); serr != nil {
				logger.Errorf("aggregate: persist %s: %v", keyResults, serr)
			}
		}
		return true
	}

	a.results = nil
	a.seen = make(map[string]struct{})
	if err := a.kv.Remove(keyResults); err != nil {
		logger.Errorf("aggregate: remove %s: %v", keyResults, err)
	}
	return false
}

// Cancel снимает running локально. Движок об этом не узнаёт: поздние
// результаты продолжают приниматься и дедуплицироваться.
func (a *Aggregator) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	was := a.running
	a.running = false
	return was
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([]model.ScanResult, len(a.results))
	copy(results, a.results)

	return Snapshot{
		Running:         a.running,
		ProgressPercent: a.progress,
		Results:         results,
		SessionID:       a.sessionID,
		Target:          a.target,
		TargetType:      a.targetType,
	}
}
