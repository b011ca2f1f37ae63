package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound — ключа нет. Для вызывающих это не сбой, а пустое состояние.
var ErrNotFound = errors.New("storage: key not found")

// KV — порт персистентности: строковые blob'ы по строковому ключу.
// История и агрегатор работают только через этот интерфейс.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// PersistenceError — сбой чтения/разбора/записи хранилища.
// Вызывающий откатывается на пустое состояние, процесс не падает.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
