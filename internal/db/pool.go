package db

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAcquireTimeout = errors.New("pool: acquire timed out")
	ErrPoolClosed     = errors.New("pool: closed")
)

// Conn is the subset of *pgx.Conn the repositories use. Ownership of a Conn
// belongs to the caller between Acquire and Release and to the pool otherwise;
// a Conn must never be shared by two goroutines or released twice.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Dialer func(ctx context.Context) (Conn, error)

type PoolConfig struct {
	MaxConns int32
	Dial     Dialer
}

// Pool hands out a bounded number of store connections. All connections are
// dialed eagerly at construction, so in_use + idle == max for the pool's whole
// lifetime and Acquire never dials. Waiters are served in arrival order.
type Pool struct {
	mu      sync.Mutex
	idle    []Conn
	waiters *list.List // of chan Conn
	max     int32
	closed  bool
}

func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.MaxConns < 1 {
		return nil, fmt.Errorf("pool: max conns must be at least 1, got %d", cfg.MaxConns)
	}
	if cfg.Dial == nil {
		return nil, errors.New("pool: dialer is required")
	}

	p := &Pool{
		idle:    make([]Conn, 0, cfg.MaxConns),
		waiters: list.New(),
		max:     cfg.MaxConns,
	}
	for i := int32(0); i < cfg.MaxConns; i++ {
		conn, err := cfg.Dial(ctx)
		if err != nil {
			for _, c := range p.idle {
				_ = c.Close(ctx)
			}
			return nil, fmt.Errorf("pool: dial connection %d: %w", i+1, err)
		}
		p.idle = append(p.idle, conn)
	}
	return p, nil
}

// Acquire returns a connection, blocking while all of them are checked out.
// The context deadline bounds the wait; an expired or cancelled context yields
// ErrAcquireTimeout.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if len(p.idle) > 0 {
		conn := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()
		return conn, nil
	}

	ready := make(chan Conn, 1)
	elem := p.waiters.PushBack(ready)
	p.mu.Unlock()

	select {
	case conn, ok := <-ready:
		if !ok {
			return nil, ErrPoolClosed
		}
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		p.waiters.Remove(elem)
		select {
		case conn := <-ready:
			// Release raced the cancellation and already handed us the
			// connection. Pass it on so no waiter is starved.
			p.handOffLocked(conn)
		default:
		}
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
	}
}

// Release returns a connection to the pool and wakes exactly one waiter, if
// any. It never blocks. Calling it more than once per Acquire is a caller bug
// the pool does not detect.
func (p *Pool) Release(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = conn.Close(context.Background())
		return
	}
	p.handOffLocked(conn)
}

func (p *Pool) handOffLocked(conn Conn) {
	if front := p.waiters.Front(); front != nil {
		p.waiters.Remove(front)
		front.Value.(chan Conn) <- conn
		return
	}
	p.idle = append(p.idle, conn)
}

// Ping checks out a connection and probes the store with it.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return conn.Ping(ctx)
}

// Close closes idle connections and fails pending and future Acquires.
// Connections still checked out are closed as they come back.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	for front := p.waiters.Front(); front != nil; front = p.waiters.Front() {
		p.waiters.Remove(front)
		close(front.Value.(chan Conn))
	}
	p.mu.Unlock()

	for _, conn := range idle {
		_ = conn.Close(ctx)
	}
}

type PoolStats struct {
	Idle    int
	InUse   int
	Waiting int
	Max     int32
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Idle:    len(p.idle),
		InUse:   int(p.max) - len(p.idle),
		Waiting: p.waiters.Len(),
		Max:     p.max,
	}
}
