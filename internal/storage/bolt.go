package storage

import (
	"errors"

	"go.etcd.io/bbolt"
)

const bucketState = "state"

type Bolt struct {
	db *bbolt.DB
}

func NewBolt(dbPath string) (*Bolt, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists([]byte(bucketState))
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Bolt) Get(key string) (string, error) {
	var val []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return errors.New("bucket not found")
		}
		if v := b.Get([]byte(key)); v != nil {
			val = append([]byte(nil), v...) // копия: значение живёт только внутри tx
		}
		return nil
	})
	if err != nil {
		return "", &PersistenceError{Op: "get " + key, Err: err}
	}
	if val == nil {
		return "", ErrNotFound
	}
	return string(val), nil
}

func (s *Bolt) Set(key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return errors.New("bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return &PersistenceError{Op: "set " + key, Err: err}
	}
	return nil
}

func (s *Bolt) Remove(key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketState))
		if b == nil {
			return errors.New("bucket not found")
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return &PersistenceError{Op: "remove " + key, Err: err}
	}
	return nil
}
