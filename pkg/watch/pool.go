// Package watch implements the write/read worker pools and the
// directory watcher that enqueues file loads.
package watch

import "sync"

// Job is a unit of work submitted to a Pool.
type Job func()

// Pool is a fixed-size goroutine worker pool draining a job queue. The
// write pool (default size 1, see config.DefaultWritePoolSize) serializes
// ingest per database; the read pool (default size
// config.DefaultReadPoolSize) runs queries concurrently.
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup
	size int
}

// NewPool starts a pool of size workers, each draining jobs until Close.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan Job, 256), size: size}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Submit enqueues a job without waiting for it to run. Used by the
// watcher, which fires-and-forgets a discovered file's load.
func (p *Pool) Submit(job Job) { p.jobs <- job }

// Run enqueues job and blocks until it has executed, so that a caller
// waiting on the result (e.g. an explicit Load call) still serializes
// behind any in-flight writes on the same pool.
func (p *Pool) Run(job Job) {
	done := make(chan struct{})
	p.jobs <- func() {
		job()
		close(done)
	}
	<-done
}

// Size returns the pool's worker count, surfaced by the "show workers"
// query.
func (p *Pool) Size() int { return p.size }

// Close stops accepting new jobs and waits for queued jobs to drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// Pools bundles a database's write and read pools.
type Pools struct {
	Write *Pool
	Read  *Pool
}

// NewPools builds a database's write/read pools from configured sizes.
func NewPools(writeSize, readSize int) *Pools {
	return &Pools{Write: NewPool(writeSize), Read: NewPool(readSize)}
}

// Close shuts down both pools.
func (p *Pools) Close() {
	p.Write.Close()
	p.Read.Close()
}
