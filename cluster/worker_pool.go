package cluster

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

//go:generate mockgen -package mocks -destination mocks/mocks_api.go github.com/dravaio/drava/cluster/proto JobQueue_JobStreamServer

// pooledWorker couples an idle worker connection with the signalling channels
// for its health monitor.
type pooledWorker struct {
	id     string
	stream *remoteWorkerStream

	stopCh  chan struct{} // closed to detach the monitor ahead of a handoff
	stopped chan struct{} // closed by the monitor once it has exited
}

// workerPool parks idle worker connections until they get reserved for a job
// or a recovery attempt. Reservations are partition-aware: the caller caps
// the number of workers it can put to use so that surplus connections stay in
// the pool instead of being handed an empty partition assignment.
type workerPool struct {
	poolCtx        context.Context
	poolShutdownFn func()

	healthCheckWg        sync.WaitGroup
	poolMembersChangedCh chan struct{}

	mu          sync.Mutex
	idleWorkers map[string]*pooledWorker
}

// newWorkerPool creates a new worker pool instance.
func newWorkerPool() *workerPool {
	poolCtx, poolShutdownFn := context.WithCancel(context.Background())

	return &workerPool{
		poolCtx:              poolCtx,
		poolShutdownFn:       poolShutdownFn,
		poolMembersChangedCh: make(chan struct{}, 1),
		idleWorkers:          make(map[string]*pooledWorker),
	}
}

// Close shuts down the pool and disconnects all idle workers.
func (p *workerPool) Close() error {
	p.poolShutdownFn()
	p.healthCheckWg.Wait()
	p.mu.Lock()
	p.idleWorkers = make(map[string]*pooledWorker)
	p.mu.Unlock()
	return nil
}

// AddWorker adds a new worker to the pool.
func (p *workerPool) AddWorker(stream *remoteWorkerStream) {
	worker := &pooledWorker{
		id:      uuid.New().String(),
		stream:  stream,
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	p.mu.Lock()
	p.idleWorkers[worker.id] = worker
	p.mu.Unlock()

	// Start a health-checking go-routine to detect if the worker
	// disconnects while waiting in the pool.
	p.healthCheckWg.Add(1)
	go p.monitorWorkerHealth(worker)
	p.notifyOfPoolMembershipChange()
}

// monitorWorkerHealth detects worker disconnects while the worker is waiting
// in the pool.
func (p *workerPool) monitorWorkerHealth(worker *pooledWorker) {
	defer func() {
		close(worker.stopped)
		p.healthCheckWg.Done()
	}()
	select {
	case <-worker.stream.stream.Context().Done():
		p.removeWorker(worker.id)
	case <-p.poolCtx.Done():
		worker.stream.Close(errMasterShuttingDown)
	case <-worker.stopCh:
		// The worker has been reserved for a job; the caller takes over
		// the stream from here on.
	}
}

func (p *workerPool) notifyOfPoolMembershipChange() {
	select {
	case p.poolMembersChangedCh <- struct{}{}:
	default: // another change has already been enqueued
	}
}

func (p *workerPool) removeWorker(workerID string) {
	p.mu.Lock()
	delete(p.idleWorkers, workerID)
	p.notifyOfPoolMembershipChange()
	p.mu.Unlock()
}

// Reserve blocks until either the context gets cancelled or at least
// minWorkers are available in the pool. In the latter case, up to maxWorkers
// workers are removed from the pool and returned back to the caller; the rest
// remain parked for future reservations. A non-positive maxWorkers leaves the
// reservation uncapped. A minWorkers above the cap is satisfied by the cap,
// as the caller could not assign work to the surplus anyway.
func (p *workerPool) Reserve(ctx context.Context, minWorkers, maxWorkers int) ([]*remoteWorkerStream, error) {
	if maxWorkers > 0 && minWorkers > maxWorkers {
		minWorkers = maxWorkers
	}
	for {
		// Check for required number of workers
		p.mu.Lock()
		if numWorkers := len(p.idleWorkers); numWorkers > 0 && numWorkers >= minWorkers {
			break // retain the lock to avoid changes in the pool
		}
		p.mu.Unlock()
		select {
		case <-p.poolMembersChangedCh: // re-check the required worker count
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.poolCtx.Done():
			return nil, errMasterShuttingDown
		}
	}

	// Extract the reservation from the pool while still holding the lock.
	reserved := make([]*pooledWorker, 0, len(p.idleWorkers))
	for id, worker := range p.idleWorkers {
		if maxWorkers > 0 && len(reserved) == maxWorkers {
			break
		}
		delete(p.idleWorkers, id)
		reserved = append(reserved, worker)
	}
	p.mu.Unlock()

	// Detach the health monitors and wait for each one to exit before
	// handing off the worker list to the caller. This avoids the problem of
	// having multiple readers accessing the worker channels.
	workers := make([]*remoteWorkerStream, len(reserved))
	for i, worker := range reserved {
		close(worker.stopCh)
		<-worker.stopped
		workers[i] = worker.stream
	}

	return workers, nil
}
