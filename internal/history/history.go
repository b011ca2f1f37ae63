package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vam876/lllmscanner/internal/model"
	"github.com/vam876/lllmscanner/internal/storage"
)

const keyHistory = "scanHistory"

// DefaultLimit — сколько последних сессий храним.
const DefaultLimit = 20

// Store — ограниченная история сессий, порядок most-recent-first.
// Единственный писатель ключа scanHistory; сохраняет коллекцию целиком
// после каждой мутации (отложенного flush нет: крэш между операциями
// теряет максимум одну мутацию).
type Store struct {
	mu       sync.Mutex
	kv       storage.KV
	limit    int
	sessions []model.ScanSession
}

func New(kv storage.KV, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{kv: kv, limit: limit}
}

// Load читает сохранённую историю и прогоняет миграцию схемы.
// Отсутствующий blob — пустая история без ошибки; битый blob — пустая
// история плюс PersistenceError вызывающему (наружу не паникуем).
func (s *Store) Load() ([]model.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(keyHistory)
	if errors.Is(err, storage.ErrNotFound) {
		s.sessions = nil
		return nil, nil
	}
	if err != nil {
		s.sessions = nil
		return nil, err
	}

	var sessions []model.ScanSession
	if uerr := json.Unmarshal([]byte(raw), &sessions); uerr != nil {
		s.sessions = nil
		return nil, &storage.PersistenceError{Op: "parse " + keyHistory, Err: uerr}
	}

	s.sessions = Migrate(sessions)
	return s.snapshotLocked(), nil
}

// Migrate доводит легаси-записи до актуальной схемы. Идемпотентна:
// повторный прогон по своему же выводу ничего не меняет.
func Migrate(in []model.ScanSession) []model.ScanSession {
	out := make([]model.ScanSession, len(in))
	for i, entry := range in {
		if entry.SessionID == "" {
			entry.SessionID = "legacy-" + entry.IP + "-" + entry.CreatedAt
		}
		if entry.Target == "" {
			entry.Target = entry.IP
		}
		if entry.TargetType == "" {
			entry.TargetType = model.TargetSingle
		}
		// expanded: отсутствие поля в JSON даёт false — это и есть дефолт
		out[i] = entry
	}
	return out
}

// RecordResult дописывает результат в сессию sessionID, создавая её при
// первом результате (ленивое создание: сессии без находок в историю не
// попадают). Внутри сессии действует дедуп по (port, vulnerability).
// Новые сессии встают в голову, коллекция обрезается до лимита.
func (s *Store) RecordResult(sessionID, target string, kind model.TargetType, r model.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].SessionID != sessionID {
			continue
		}
		if s.sessions[i].HasResult(&r) {
			return nil // дубль — сохранять нечего
		}
		s.sessions[i].Results = append(s.sessions[i].Results, r)
		return s.saveLocked()
	}

	entry := model.ScanSession{
		SessionID:  sessionID,
		IP:         r.IP,
		Target:     target,
		TargetType: kind,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Results:    []model.ScanResult{r},
		Expanded:   true, // свежая сессия раскрыта по умолчанию
	}
	s.sessions = append([]model.ScanSession{entry}, s.sessions...)
	if len(s.sessions) > s.limit {
		s.sessions = s.sessions[:s.limit]
	}
	return s.saveLocked()
}

// ToggleExpanded переключает fold-состояние ровно одной сессии
// и сохраняет коллекцию. Возвращает новое состояние.
func (s *Store) ToggleExpanded(sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].SessionID == sessionID {
			s.sessions[i].Expanded = !s.sessions[i].Expanded
			if err := s.saveLocked(); err != nil {
				return s.sessions[i].Expanded, err
			}
			return s.sessions[i].Expanded, nil
		}
	}
	return false, fmt.Errorf("history: unknown session %q", sessionID)
}

// Clear опустошает коллекцию и удаляет blob.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	if err := s.kv.Remove(keyHistory); err != nil {
		return err
	}
	return nil
}

func (s *Store) Sessions() []model.ScanSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []model.ScanSession {
	out := make([]model.ScanSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// saveLocked сериализует коллекцию целиком, включая expanded.
func (s *Store) saveLocked() error {
	b, err := json.Marshal(s.sessions)
	if err != nil {
		return &storage.PersistenceError{Op: "marshal " + keyHistory, Err: err}
	}
	return s.kv.Set(keyHistory, string(b))
}
