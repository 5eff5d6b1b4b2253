package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log"
	"net"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"seating-backend/internal/apperr"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// runTx executes fn in one transaction. Serialization failures are retried
// up to RetryAttempts times before being surfaced as transient.
func (s *gormStore) runTx(ctx context.Context, op string, fn func(tx *gorm.DB, lk *txLocks) error) error {
	for attempt := 0; ; attempt++ {
		lk := &txLocks{store: s}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			lk.tx = tx
			return fn(tx, lk)
		}, s.txOptions())
		lk.release()

		if err == nil {
			s.metrics.ObserveOp(op, "ok")
			return nil
		}
		err = classify(err, op)
		if apperr.KindOf(err) == apperr.KindTransient && attempt < s.opts.RetryAttempts {
			log.Printf("store: %s aborted by a concurrent write, retrying: %v", op, err)
			s.metrics.TxRetry()
			continue
		}
		s.metrics.ObserveOp(op, string(apperr.KindOf(err)))
		return err
	}
}

// observe records the outcome of a read-only operation and classifies err.
func (s *gormStore) observe(op string, err error) error {
	if err == nil {
		s.metrics.ObserveOp(op, "ok")
		return nil
	}
	err = classify(err, op)
	s.metrics.ObserveOp(op, string(apperr.KindOf(err)))
	return err
}

func (s *gormStore) txOptions() *sql.TxOptions {
	if s.dialect == "postgres" && !s.opts.ReadCommitted {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// classify turns a driver or gorm error into a typed failure. Errors that are
// already typed pass through.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return apperr.Wrap(apperr.ErrSerializationFailure, err, "%s: transaction aborted", op)
		case pgUniqueViolation:
			// A concurrent writer inserted the same natural key first; a retry
			// observes it through the regular lookup.
			return apperr.Wrap(apperr.ErrSerializationFailure, err, "%s: concurrent insert", op)
		}
		return apperr.Wrap(apperr.ErrInternal, err, "%s failed", op)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return apperr.Wrap(apperr.ErrSerializationFailure, err, "%s: database is locked", op)
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique, liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return apperr.Wrap(apperr.ErrSerializationFailure, err, "%s: concurrent insert", op)
		}
		return apperr.Wrap(apperr.ErrInternal, err, "%s failed", op)
	}

	if isUnavailable(err) {
		return apperr.Wrap(apperr.ErrStoreUnavailable, err, "%s: store unreachable", op)
	}
	return apperr.Wrap(apperr.ErrInternal, err, "%s failed", op)
}

func isUnavailable(err error) bool {
	var netErr net.Error
	var connErr *pgconn.ConnectError
	switch {
	case errors.As(err, &netErr), errors.As(err, &connErr):
		return true
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// txLocks serialises check-and-write sequences per table when the
// transaction isolation alone does not.
type txLocks struct {
	store    *gormStore
	tx       *gorm.DB
	held     []*sync.Mutex
	acquired map[int64]bool
}

// Tables locks the given tables for the rest of the transaction. On postgres
// at SERIALIZABLE it is a no-op; at read committed it takes transaction-scoped
// advisory locks; elsewhere it takes in-process locks. Locks are taken in
// ascending id order.
func (l *txLocks) Tables(ids ...int64) error {
	s := l.store
	if s.dialect == "postgres" && !s.opts.ReadCommitted {
		return nil
	}
	if l.acquired == nil {
		l.acquired = make(map[int64]bool)
	}
	pending := make([]int64, 0, len(ids))
	for _, id := range uniqueSorted(ids) {
		if !l.acquired[id] {
			pending = append(pending, id)
		}
	}
	for _, id := range pending {
		if s.dialect == "postgres" {
			if err := l.tx.Exec("SELECT pg_advisory_xact_lock(?)", id).Error; err != nil {
				return err
			}
		} else {
			mu := s.locks.get(id)
			mu.Lock()
			l.held = append(l.held, mu)
		}
		l.acquired[id] = true
	}
	return nil
}

func (l *txLocks) release() {
	for i := len(l.held) - 1; i >= 0; i-- {
		l.held[i].Unlock()
	}
	l.held = nil
}

type tableLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newTableLocks() *tableLocks {
	return &tableLocks{m: make(map[int64]*sync.Mutex)}
}

func (t *tableLocks) get(id int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	mu, ok := t.m[id]
	if !ok {
		mu = &sync.Mutex{}
		t.m[id] = mu
	}
	return mu
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
