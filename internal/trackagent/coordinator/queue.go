package coordinator

import (
	"sync"
)

// serialQueue runs submitted jobs one at a time on its own goroutine.
type serialQueue struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{jobs: make(chan func(), 16)}
	go q.run()
	return q
}

func (q *serialQueue) run() {
	for job := range q.jobs {
		job()
		q.wg.Done()
	}
}

// Submit queues job behind every job submitted before it.
func (q *serialQueue) Submit(job func()) {
	q.wg.Add(1)
	q.jobs <- job
}

// Wait blocks until every submitted job has run.
func (q *serialQueue) Wait() {
	q.wg.Wait()
}

// Close stops the worker once queued jobs have run.
func (q *serialQueue) Close() {
	q.once.Do(func() { close(q.jobs) })
}
