package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/sod/internal/database"
	"github.com/go-sod/sod/internal/report/model"
)

const runsBucket = "runs"

var ErrRunNotFound = errors.New("run not found")

type FilterFn func(run model.Run) bool

// ByAlgorithm keeps the runs of one detector.
func ByAlgorithm(algorithm string) FilterFn {
	return func(run model.Run) bool {
		return run.Algorithm == algorithm
	}
}

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Store(_ context.Context, run model.Run) error {
	bytes, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("unable marshal run: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if err := b.Put([]byte(run.ID.String()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Find(_ context.Context, id uuid.UUID) (model.Run, error) {
	var run model.Run
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return ErrRunNotFound
		}
		v := b.Get([]byte(id.String()))
		if v == nil {
			return ErrRunNotFound
		}
		return json.Unmarshal(v, &run)
	})
	if err != nil {
		return model.Run{}, fmt.Errorf("unable find run %s: %w", id, err)
	}

	return run, nil
}

// FindAll returns the runs accepted by every filter, oldest first.
func (db *DB) FindAll(_ context.Context, filters ...FilterFn) ([]model.Run, error) {
	var runs []model.Run
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var run model.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unable unmarshal run: %w", err)
			}
			for _, f := range filters {
				if !f(run) {
					return nil
				}
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

func (db *DB) Delete(_ context.Context, id uuid.UUID) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id.String()))
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}
