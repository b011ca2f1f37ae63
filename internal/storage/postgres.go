package storage

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// DB returns underlying *sql.DB (for migrations etc.)
func (p *Postgres) DB() *sql.DB {
	return p.db
}

func (p *Postgres) Migrate(dir string) error {
	return RunMigrations(p.db, dir)
}

func (p *Postgres) Get(key string) (string, error) {
	var val string
	err := p.db.QueryRow(`SELECT value FROM kv WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &PersistenceError{Op: "get " + key, Err: err}
	}
	return val, nil
}

func (p *Postgres) Set(key, value string) error {
	_, err := p.db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return &PersistenceError{Op: "set " + key, Err: err}
	}
	return nil
}

func (p *Postgres) Remove(key string) error {
	_, err := p.db.Exec(`DELETE FROM kv WHERE key = $1`, key)
	if err != nil {
		return &PersistenceError{Op: "remove " + key, Err: err}
	}
	return nil
}
