// Package schema persists pipeline schemas so a rebuilt pipeline can be
// compared with the one built last time for the same inputs.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"dairos.szuro.net/internal/logger"
	"dairos.szuro.net/pkg/dai"
)

const keyPrefix = "schema/"

// Store keeps zstd compressed schema JSON in BadgerDB.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	ttl time.Duration
}

// Open opens the store in dir. An empty dir keeps everything in memory.
// A ttl of zero keeps entries forever.
func Open(dir string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(logger.Default())
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema store %q: %w", dir, err)
	}
	logger.Debug("Initialized BadgerDB for pipeline schemas", slog.String("path", dir))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec, ttl: ttl}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		logger.Warn("Failed to close zstd encoder", slog.Any("error", err))
	}
	return s.db.Close()
}

// Put stores sc under key, replacing any previous value.
func (s *Store) Put(key string, sc dai.Schema) error {
	raw, err := sc.JSON()
	if err != nil {
		return err
	}
	e := badger.NewEntry([]byte(keyPrefix+key), s.enc.EncodeAll(raw, nil))
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// Get returns the schema stored under key. found is false when there is none.
func (s *Store) Get(key string) (sc dai.Schema, found bool, err error) {
	var compressed []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return sc, false, nil
	}
	if err != nil {
		return sc, false, err
	}

	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return sc, false, fmt.Errorf("corrupt schema %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sc, false, fmt.Errorf("corrupt schema %s: %w", key, err)
	}
	return sc, true, nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
}

// Keys lists the stored keys in byte order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	return keys, err
}

// Key derives the store key for a build: the pipeline type, the device and a
// digest of the remaining factory inputs.
func Key(pipelineType string, dev dai.Device, inputs any) (string, error) {
	raw, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("cannot fingerprint pipeline inputs: %w", err)
	}
	sum := sha256.Sum256(raw)
	mxID := ""
	if dev != nil {
		mxID = dev.MxID()
	}
	return fmt.Sprintf("%s/%s/%s", mxID, pipelineType, hex.EncodeToString(sum[:8])), nil
}
