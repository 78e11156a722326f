// Package monitor brackets scan workers with wall-clock and thread CPU time
// measurements and summarizes them once all workers are done.
//
// A Monitor follows a fixed lifecycle: New, then Start and Stop once per
// worker (each on the worker's own goroutine, locked to its OS thread for
// meaningful CPU times), then Report, then Close.
package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("monitor: closed")
	// ErrState is returned when Start, Stop or Report is called out of order.
	ErrState = errors.New("monitor: invalid state")
)

type phase uint8

const (
	idle phase = iota
	running
	stopped
)

type worker struct {
	phase     phase
	wallStart time.Time
	cpuStart  time.Duration
	wall      time.Duration
	cpu       time.Duration
}

// Monitor records per-worker timings. It is safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	closed  bool
	workers []worker
	now     func() time.Time
	cpuNow  func() (time.Duration, bool)
}

// New returns a monitor for the given number of workers.
func New(workers int) *Monitor {
	if workers < 1 {
		workers = 1
	}
	return &Monitor{
		workers: make([]worker, workers),
		now:     time.Now,
		cpuNow:  threadCPUTime,
	}
}

// Workers returns the number of workers the monitor tracks.
func (m *Monitor) Workers() int {
	return len(m.workers)
}

// Start begins measuring worker w on the calling thread.
func (m *Monitor) Start(w int) error {
	cpu, _ := m.cpuNow()
	m.mu.Lock()
	defer m.mu.Unlock()
	wk, err := m.worker(w)
	if err != nil {
		return err
	}
	if wk.phase != idle {
		return fmt.Errorf("%w: worker %d already started", ErrState, w)
	}
	wk.phase = running
	wk.cpuStart = cpu
	wk.wallStart = m.now()
	return nil
}

// Stop ends measuring worker w. It must run on the thread that called Start.
func (m *Monitor) Stop(w int) error {
	end := m.now()
	cpu, ok := m.cpuNow()
	m.mu.Lock()
	defer m.mu.Unlock()
	wk, err := m.worker(w)
	if err != nil {
		return err
	}
	if wk.phase != running {
		return fmt.Errorf("%w: worker %d not running", ErrState, w)
	}
	wk.phase = stopped
	wk.wall = end.Sub(wk.wallStart)
	if ok {
		wk.cpu = cpu - wk.cpuStart
	}
	return nil
}

func (m *Monitor) worker(w int) (*worker, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if w < 0 || w >= len(m.workers) {
		return nil, fmt.Errorf("%w: worker %d out of range [0,%d)", ErrState, w, len(m.workers))
	}
	return &m.workers[w], nil
}

// WorkerReport holds the measurements of one worker.
type WorkerReport struct {
	Worker int
	Wall   time.Duration
	CPU    time.Duration
}

// Report summarizes a completed measurement.
type Report struct {
	Workers []WorkerReport
	// MeanWall and MaxWall aggregate the per-worker wall times.
	MeanWall time.Duration
	MaxWall  time.Duration
	// TotalCPU is the sum of thread CPU times; zero where unavailable.
	TotalCPU time.Duration
}

// CodesPerNs returns tuples processed per nanosecond of the slowest worker.
func (r Report) CodesPerNs(tuples int) float64 {
	if r.MaxWall <= 0 {
		return 0
	}
	return float64(tuples) / float64(r.MaxWall.Nanoseconds())
}

// Report returns the measurements. Every worker must have been stopped.
func (m *Monitor) Report() (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Report{}, ErrClosed
	}
	r := Report{Workers: make([]WorkerReport, len(m.workers))}
	var sum time.Duration
	for i, wk := range m.workers {
		if wk.phase != stopped {
			return Report{}, fmt.Errorf("%w: worker %d not stopped", ErrState, i)
		}
		r.Workers[i] = WorkerReport{Worker: i, Wall: wk.wall, CPU: wk.cpu}
		sum += wk.wall
		r.MaxWall = max(r.MaxWall, wk.wall)
		r.TotalCPU += wk.cpu
	}
	r.MeanWall = sum / time.Duration(len(m.workers))
	return r, nil
}

// Close releases the monitor. Closing twice is a no-op.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.workers = nil
	return nil
}
