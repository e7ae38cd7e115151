// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package session implements the TCP acceptor and per-connection state
// machine: one independent session per accepted connection, sharing
// only the product catalog, the activation store, and the config.
// Admission control and structured concurrency are layered on top of
// that acceptor.
package session

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/bo3bdo/kms-server/internal/catalog"
	"github.com/bo3bdo/kms-server/internal/kms"
	"github.com/bo3bdo/kms-server/internal/kmsconfig"
)

// defaultMaxConcurrentSessions is the bounded worker-pool size; this
// engine must sustain at least 256 concurrent connections.
const defaultMaxConcurrentSessions = 256

// shutdownGrace is the default bounded grace period a draining Engine
// gives in-flight sessions to finish their current exchange before
// force-closing.
const shutdownGrace = 5 * time.Second

// Engine accepts TCP connections and runs one session per connection.
// It shares the catalog, store and config by reference across all
// sessions.
type Engine struct {
	cfg     *kmsconfig.Config
	catalog *catalog.Catalog
	store   kms.RecordStore
	log     *slog.Logger

	limiter *rate.Limiter
	pool    *pool.Pool
	active  atomic.Int64

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// New builds an Engine. store may be nil (persistence disabled).
func New(cfg *kmsconfig.Config, cat *catalog.Catalog, store kms.RecordStore, log *slog.Logger) *Engine {
	rps := cfg.AdmissionRatePerSec
	if rps <= 0 {
		rps = 500
	}
	burst := cfg.AdmissionBurst
	if burst <= 0 {
		burst = 64
	}
	return &Engine{
		cfg:     cfg,
		catalog: cat,
		store:   store,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		pool:    pool.New().WithMaxGoroutines(defaultMaxConcurrentSessions),
		conns:   make(map[net.Conn]struct{}),
	}
}

// ActiveSessions returns the current number of in-flight connections.
func (e *Engine) ActiveSessions() int64 {
	return e.active.Load()
}

// Serve accepts connections on ln until ctx is cancelled, running each
// on the bounded worker pool. It returns nil on a clean shutdown via
// ctx, or the Accept error that ended the loop.
//
// Every accepted connection first waits on the token-bucket limiter
// before being handed to a session; this bounds the rate of newly
// accepted sessions without ever closing a socket outright. A
// throttled accept simply waits.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	stopAccepting := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stopAccepting)
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stopAccepting:
				e.drain()
				return nil
			default:
				return err
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			conn.Close()
			continue
		}

		e.trackConn(conn)
		e.pool.Go(func() {
			defer e.untrackConn(conn)
			e.active.Inc()
			defer e.active.Dec()
			runSession(ctx, conn, e.cfg, e.catalog, e.store, e.log)
		})
	}
}

func (e *Engine) trackConn(conn net.Conn) {
	e.connsMu.Lock()
	e.conns[conn] = struct{}{}
	e.connsMu.Unlock()
}

func (e *Engine) untrackConn(conn net.Conn) {
	e.connsMu.Lock()
	delete(e.conns, conn)
	e.connsMu.Unlock()
}

// drain waits up to shutdownGrace for in-flight sessions to finish
// their current exchange, then force-closes whatever remains.
func (e *Engine) drain() {
	done := make(chan struct{})
	go func() {
		e.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(shutdownGrace):
	}

	e.connsMu.Lock()
	for conn := range e.conns {
		conn.Close()
	}
	e.connsMu.Unlock()
	<-done
}
