// Package memory is an in-process implementation of the repository interfaces.
// It reproduces the locking behaviour the booking engine relies on: row locks
// taken inside WithinTx block other transactions until the owner finishes, and
// a failed transaction is rolled back through an undo log.
//
// Writes become visible to other readers before commit. Callers that need a
// consistent decision must hold the relevant row lock, as they must with Postgres.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

type txKey struct{}

type memTx struct {
	held map[string]struct{}
	undo []func()
}

type Store struct {
	mu       sync.RWMutex
	rooms    map[int64]*entity.Room
	users    map[int64]*entity.User
	emails   map[string]int64
	bookings map[string]*entity.Booking
	nextRoom int64
	nextUser int64

	locksMu  sync.Mutex
	locks    map[string]chan struct{}
	lockWait time.Duration
}

// NewStore creates an empty store. lockWait bounds how long a transaction waits
// for a row lock; zero waits until the context is done.
func NewStore(lockWait time.Duration) *Store {
	return &Store{
		rooms:    make(map[int64]*entity.Room),
		users:    make(map[int64]*entity.User),
		emails:   make(map[string]int64),
		bookings: make(map[string]*entity.Booking),
		locks:    make(map[string]chan struct{}),
		lockWait: lockWait,
	}
}

func (s *Store) Rooms() repository.RoomRepository       { return &roomStore{s} }
func (s *Store) Users() repository.UserRepository       { return &userStore{s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingStore{s} }

var _ repository.TxManager = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}

	tx := &memTx{held: make(map[string]struct{})}
	defer s.release(tx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.rollback(tx)
		return err
	}
	return nil
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// onRollback registers an undo step for the transaction in ctx. Must be called
// with s.mu held.
func onRollback(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *Store) rollback(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (s *Store) lockChan(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

// lock acquires the row lock named key for the transaction in ctx. It is
// reentrant within a transaction and must be called inside WithinTx.
func (s *Store) lock(ctx context.Context, key string) error {
	tx := txFrom(ctx)
	if tx == nil {
		return entity.NewSystemError("row lock requested outside a transaction", nil)
	}
	if _, ok := tx.held[key]; ok {
		return nil
	}

	var timeout <-chan time.Time
	if s.lockWait > 0 {
		timer := time.NewTimer(s.lockWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.lockChan(key) <- struct{}{}:
		tx.held[key] = struct{}{}
		return nil
	case <-ctx.Done():
		return entity.ErrLockTimeout.WithCause(ctx.Err())
	case <-timeout:
		return entity.ErrLockTimeout
	}
}

func (s *Store) release(tx *memTx) {
	for key := range tx.held {
		<-s.lockChan(key)
	}
	tx.held = nil
}

func roomKey(id int64) string      { return "room:" + strconv.FormatInt(id, 10) }
func bookingKey(code string) string { return "booking:" + code }
