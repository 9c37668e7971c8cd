package pool

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// Task represents a unit of work to be executed by the pool
type Task func(ctx context.Context) error

// KeyedPool runs a fixed number of workers, each owning its own queue. Tasks
// submitted under the same key always hash to the same worker, so evaluations
// for one (rule, device-sensor) key run strictly in submission order while
// different keys proceed in parallel.
type KeyedPool struct {
	workerCount int
	queues      []chan Task
	stopChan    chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	stopped     bool
}

// NewKeyedPool creates a pool with workerCount workers, each with a queue of
// queueSize tasks.
func NewKeyedPool(workerCount int, queueSize int) *KeyedPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	queues := make([]chan Task, workerCount)
	for i := range queues {
		queues[i] = make(chan Task, queueSize)
	}

	return &KeyedPool{
		workerCount: workerCount,
		queues:      queues,
		stopChan:    make(chan struct{}),
	}
}

// Start launches all worker goroutines.
func (kp *KeyedPool) Start(ctx context.Context) {
	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(ctx, i)
	}
}

func (kp *KeyedPool) worker(ctx context.Context, id int) {
	defer kp.wg.Done()

	for {
		select {
		case task, ok := <-kp.queues[id]:
			if !ok {
				return
			}
			if err := task(ctx); err != nil {
				// Errors are handled and logged by the task itself; a failed
				// task must not take the worker down.
				_ = err
			}

		case <-kp.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a task on the worker owning the key. Returns an error if the
// pool is stopped or that worker's queue is full.
func (kp *KeyedPool) Submit(key string, task Task) error {
	kp.mu.RLock()
	if kp.stopped {
		kp.mu.RUnlock()
		return fmt.Errorf("keyed pool is stopped")
	}
	kp.mu.RUnlock()

	h := fnv.New32a()
	h.Write([]byte(key))
	idx := int(h.Sum32()) % kp.workerCount
	if idx < 0 {
		idx = -idx
	}

	select {
	case kp.queues[idx] <- task:
		return nil
	default:
		return fmt.Errorf("task queue for key %q is full", key)
	}
}

// Stop gracefully shuts down the pool, waiting for in-flight tasks.
func (kp *KeyedPool) Stop() {
	kp.mu.Lock()
	if kp.stopped {
		kp.mu.Unlock()
		return
	}
	kp.stopped = true
	kp.mu.Unlock()

	close(kp.stopChan)
	kp.wg.Wait()

	for _, q := range kp.queues {
		close(q)
	}
}

// GetWorkerCount returns the number of workers in the pool
func (kp *KeyedPool) GetWorkerCount() int {
	return kp.workerCount
}

// QueueDepth returns the total number of queued tasks across workers.
func (kp *KeyedPool) QueueDepth() int {
	depth := 0
	for _, q := range kp.queues {
		depth += len(q)
	}
	return depth
}

// IsStopped returns whether the pool has been stopped
func (kp *KeyedPool) IsStopped() bool {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.stopped
}
