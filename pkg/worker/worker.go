// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/github-org-settings/pkg/reconcile"
)

var (
	// ErrQueueFull is returned by Submit when no buffer space is left.
	ErrQueueFull = errors.New("reconciliation queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("reconciliation queue is closed")
)

// Reconciler is the work a Pool runs for each job.
type Reconciler interface {
	Reconcile(ctx context.Context, repo reconcile.Repository) reconcile.Result
}

// Job is one accepted event awaiting reconciliation.
type Job struct {
	DeliveryID string
	Repository reconcile.Repository
}

// Ticket tracks a submitted job to completion.
type Ticket struct {
	Job Job

	done   chan struct{}
	result reconcile.Result
}

// Done is closed once the job has finished.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the job finishes or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (reconcile.Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return reconcile.Result{}, ctx.Err()
	}
}

type item struct {
	ctx    context.Context
	ticket *Ticket
}

// Pool runs jobs on a fixed set of goroutines, decoupled from the requests
// that submitted them.
type Pool struct {
	r     Reconciler
	queue chan item

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts workers goroutines reading from a queue of the given size.
func New(r Reconciler, workers, size int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		r:     r,
		queue: make(chan item, size),
	}
	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p
}

// Submit queues job. The context's values (logger, trace) are kept but its
// cancellation is not: the job outlives the request that submitted it.
func (p *Pool) Submit(ctx context.Context, job Job) (*Ticket, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	t := &Ticket{Job: job, done: make(chan struct{})}
	select {
	case p.queue <- item{ctx: context.WithoutCancel(ctx), ticket: t}:
		return t, nil
	default:
		return nil, ErrQueueFull
	}
}

// Close stops accepting jobs, lets queued ones finish and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for it := range p.queue {
		p.do(it)
	}
}

func (p *Pool) do(it item) {
	defer close(it.ticket.done)

	log := clog.FromContext(it.ctx).With("delivery", it.ticket.Job.DeliveryID)
	ctx := clog.WithLogger(it.ctx, log)

	res := p.r.Reconcile(ctx, it.ticket.Job.Repository)
	if res.Err != nil {
		log.Errorf("reconciliation finished with errors: %v", res.Err)
	}
	it.ticket.result = res
}
