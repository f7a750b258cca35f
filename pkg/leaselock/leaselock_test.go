package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB emulates the edit_locks table for a single process.
type fakeDB struct {
	mu       sync.Mutex
	holders  map[string]string
	released int
}

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.val
	return nil
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: map[string]string{}}
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	holder, held := db.holders[key]

	switch sql {
	case tryAcquireSQL:
		if held && holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		db.holders[key] = token
		return fakeRow{val: key}
	case renewSQL:
		if !held || holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if sql == releaseSQL && db.holders[args[0].(string)] == args[1].(string) {
		delete(db.holders, args[0].(string))
		db.released++
	}
	return pgconn.CommandTag{}, nil
}

func TestAcquireBusyWithoutWait(t *testing.T) {
	c := New(newFakeDB())
	ctx := context.Background()

	first, err := c.Acquire(ctx, DocumentKey("a"), Options{})
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release(ctx)

	if _, err := c.Acquire(ctx, DocumentKey("a"), Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second acquire err = %v, want ErrBusy", err)
	}
	other, err := c.Acquire(ctx, DocumentKey("b"), Options{})
	if err != nil {
		t.Fatalf("other key: %v", err)
	}
	other.Release(ctx)
}

func TestWithLeaseSerializes(t *testing.T) {
	db := newFakeDB()
	c := New(db)
	opts := Options{Wait: true, WaitInterval: 5 * time.Millisecond}

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLease(context.Background(), DocumentKey("doc"), opts, func(ctx context.Context) error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLease: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
	if db.released != 4 {
		t.Fatalf("released = %d, want 4", db.released)
	}
}

func TestAcquireWaitHonorsContext(t *testing.T) {
	c := New(newFakeDB())
	held, err := c.Acquire(context.Background(), "k", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx, "k", Options{Wait: true, WaitInterval: 5 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestReleaseCancelsLeaseContext(t *testing.T) {
	c := New(newFakeDB())
	l, err := c.Acquire(context.Background(), "k", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-l.Context.Done():
	default:
		t.Fatal("lease context still active after release")
	}
	if _, err := c.Acquire(context.Background(), "", Options{}); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty key err = %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{TTL: 10 * time.Second, RenewEvery: time.Minute}.withDefaults()
	if o.RenewEvery != 5*time.Second {
		t.Fatalf("RenewEvery = %v", o.RenewEvery)
	}
	if d := (Options{}).withDefaults(); d.TTL != 30*time.Second || d.WaitInterval <= 0 {
		t.Fatalf("defaults = %+v", d)
	}
}
