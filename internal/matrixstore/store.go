// Package matrixstore persists per-(shell, timeslot) latency matrices in
// BadgerDB and serves them as a topology.Source.
package matrixstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"

	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
)

const keyPrefix = "matrix/"

// Config controls how the store is opened.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Intended for tests.
	InMemory bool

	SyncWrites bool

	// Logger receives badger's internal logs. Nil silences them.
	Logger logging.Logger
}

// InMemoryConfig returns a configuration suitable for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a badger-backed matrix store. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

var _ topology.Source = (*Store)(nil)

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("matrixstore: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("matrixstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("matrixstore: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put validates and stores the matrix for (shell, timeslot), replacing any
// previous one.
func (s *Store) Put(ctx context.Context, shell string, timeslot int, m topology.Matrix) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkShell(shell); err != nil {
		return err
	}
	if timeslot < 1 {
		return fmt.Errorf("matrixstore: timeslot must be >= 1, got %d", timeslot)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("matrixstore: shell %q timeslot %d: %w", shell, timeslot, err)
	}
	val := snappy.Encode(nil, encodeMatrix(m))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(matrixKey(shell, timeslot), val)
	})
}

// Matrix implements topology.Source. Missing slots return an error
// wrapping topology.ErrDataUnavailable.
func (s *Store) Matrix(ctx context.Context, shell string, timeslot int) (topology.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m topology.Matrix
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(matrixKey(shell, timeslot))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw, err := snappy.Decode(nil, val)
			if err != nil {
				return fmt.Errorf("decompress: %w", err)
			}
			m, err = decodeMatrix(raw)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: shell %q timeslot %d", topology.ErrDataUnavailable, shell, timeslot)
	}
	if err != nil {
		return nil, fmt.Errorf("matrixstore: read shell %q timeslot %d: %w", shell, timeslot, err)
	}
	return m, nil
}

// Slots lists the stored timeslots of shell in ascending order.
func (s *Store) Slots(ctx context.Context, shell string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := shellPrefix(shell)
	var slots []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != len(prefix)+8 {
				continue
			}
			slots = append(slots, int(binary.BigEndian.Uint64(key[len(prefix):])))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("matrixstore: list shell %q: %w", shell, err)
	}
	return slots, nil
}

// Delete removes the matrix for (shell, timeslot). Deleting a missing slot
// is not an error.
func (s *Store) Delete(ctx context.Context, shell string, timeslot int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(matrixKey(shell, timeslot))
	})
}

func checkShell(shell string) error {
	if shell == "" || strings.Contains(shell, "/") {
		return fmt.Errorf("matrixstore: invalid shell name %q", shell)
	}
	return nil
}

func shellPrefix(shell string) []byte {
	return []byte(keyPrefix + shell + "/")
}

// Slots are big-endian so iteration order equals numeric order.
func matrixKey(shell string, timeslot int) []byte {
	prefix := shellPrefix(shell)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(timeslot))
	return key
}

// encodeMatrix lays out the dimension followed by the cells row-major as
// little-endian float64 bits.
func encodeMatrix(m topology.Matrix) []byte {
	n := len(m)
	buf := make([]byte, 4+8*n*n)
	binary.LittleEndian.PutUint32(buf, uint32(n))
	off := 4
	for _, row := range m {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}
	return buf
}

func decodeMatrix(buf []byte) (topology.Matrix, error) {
	if len(buf) < 4 {
		return nil, errors.New("matrixstore: truncated header")
	}
	n := int(binary.LittleEndian.Uint32(buf))
	if len(buf) != 4+8*n*n {
		return nil, fmt.Errorf("matrixstore: payload of %d bytes does not hold a %dx%d matrix", len(buf), n, n)
	}
	if n == 0 {
		return topology.Matrix{}, nil
	}
	m := topology.NewMatrix(n - 1)
	off := 4
	for i := range m {
		for j := range m[i] {
			m[i][j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
			off += 8
		}
	}
	return m, nil
}

type badgerLogger struct {
	l logging.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}
