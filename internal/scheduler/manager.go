// Package scheduler coordinates the worker pool: it owns the task backlog and
// the live worker registry, and splits the overall bandwidth across workers.
package scheduler

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tanq16/trickle/internal/utils"
)

var (
	ErrAlreadyStarted = errors.New("manager already started")
	ErrCompleted      = errors.New("manager already completed")
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Options tunes the per-task retry policy and carries observers.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	OnFileDone func(utils.FileStats)
	OnComplete func(Summary)
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = utils.DefaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = utils.DefaultRetryDelay
	}
	return o
}

// Summary counts task outcomes for one batch.
type Summary struct {
	Completed int
	Abandoned int
	Bytes     int64
	Elapsed   time.Duration
}

type tally struct {
	completed atomic.Int64
	abandoned atomic.Int64
	bytes     atomic.Int64
}

func (t *tally) recordCompleted(bytes int64) {
	t.completed.Add(1)
	t.bytes.Add(bytes)
}

func (t *tally) recordAbandoned() {
	t.abandoned.Add(1)
}

// Manager runs one batch. Backlog, registry and bandwidth are guarded by mu.
type Manager struct {
	mu        sync.Mutex
	fetcher   utils.Fetcher
	opts      Options
	state     State
	backlog   []utils.DownloadTask
	workers   map[int]*Worker
	nextID    int
	directory string
	overall   int64
	perWorker int64
	started   time.Time
	tally     tally
	done      chan struct{}
	runID     string
	log       zerolog.Logger
}

func NewManager(fetcher utils.Fetcher, opts Options) *Manager {
	runID := uuid.New().String()
	return &Manager{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		workers: make(map[int]*Worker),
		done:    make(chan struct{}),
		runID:   runID,
		log:     utils.GetLogger("manager").With().Str("run", runID).Logger(),
	}
}

// Start creates directory, seeds min(workerCount, len(tasks)) workers with
// one task each and returns without waiting. Completion is signalled on Done.
func (m *Manager) Start(tasks []utils.DownloadTask, directory string, workerCount int, bandwidth int64) error {
	if workerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}
	m.mu.Lock()
	switch m.state {
	case StateRunning:
		m.mu.Unlock()
		return ErrAlreadyStarted
	case StateCompleted:
		m.mu.Unlock()
		return ErrCompleted
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("error creating download directory: %w", err)
	}
	m.backlog = append([]utils.DownloadTask(nil), tasks...)
	m.directory = directory
	m.overall = bandwidth
	m.started = time.Now()

	count := min(workerCount, len(m.backlog))
	if count == 0 {
		m.state = StateCompleted
		m.mu.Unlock()
		m.log.Warn().Msg("Nothing to download")
		m.finish()
		return nil
	}
	m.perWorker = allocate(bandwidth, count)
	if bandwidth > utils.Unlimited && bandwidth < int64(count) {
		m.log.Warn().
			Int64("bandwidth", bandwidth).
			Int("workers", count).
			Msgf("Bandwidth below 1 B/s per worker, combined rate will be %d B/s", int64(count)*m.perWorker)
	}
	m.state = StateRunning
	for range count {
		m.spawn(m.popLocked())
	}
	m.log.Info().
		Int("workers", count).
		Int("queued", len(m.backlog)).
		Str("bandwidth", utils.FormatBandwidth(bandwidth)).
		Str("perWorker", utils.FormatBandwidth(m.perWorker)).
		Msg("Download started")
	m.mu.Unlock()
	return nil
}

// spawn registers and launches a worker; callers hold mu.
func (m *Manager) spawn(task utils.DownloadTask) {
	w := newWorker(workerConfig{
		id:        m.nextID,
		task:      task,
		directory: m.directory,
		bandwidth: m.perWorker,
		fetcher:   m.fetcher,
		coord:     m,
		tally:     &m.tally,
		opts:      m.opts,
	})
	m.nextID++
	m.workers[w.ID()] = w
	go w.run()
}

// NextTask removes and returns the front of the backlog. The boolean is
// false once the backlog is empty.
func (m *Manager) NextTask() (utils.DownloadTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.backlog) == 0 {
		return utils.DownloadTask{}, false
	}
	return m.popLocked(), true
}

func (m *Manager) popLocked() utils.DownloadTask {
	task := m.backlog[0]
	m.backlog[0] = utils.DownloadTask{}
	m.backlog = m.backlog[1:]
	return task
}

func (m *Manager) WorkerBandwidth() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perWorker
}

// OnWorkerExit deregisters a worker. Survivors get the recomputed share;
// the last exit completes the batch.
func (m *Manager) OnWorkerExit(id int) {
	m.mu.Lock()
	if _, ok := m.workers[id]; !ok {
		m.mu.Unlock()
		m.log.Warn().Int("worker", id).Msg("Exit from unknown worker ignored")
		return
	}
	delete(m.workers, id)
	if live := len(m.workers); live > 0 {
		m.perWorker = allocate(m.overall, live)
		for _, w := range m.workers {
			w.SetBandwidth(m.perWorker)
		}
		m.log.Debug().
			Int("exited", id).
			Int("live", live).
			Str("perWorker", utils.FormatBandwidth(m.perWorker)).
			Msg("Bandwidth rebalanced")
		m.mu.Unlock()
		return
	}
	m.state = StateCompleted
	m.mu.Unlock()
	m.finish()
}

// finish fires the completion signal. Callers have just moved the manager to
// StateCompleted, which happens once.
func (m *Manager) finish() {
	summary := m.Summary()
	m.log.Info().
		Int("completed", summary.Completed).
		Int("abandoned", summary.Abandoned).
		Str("downloaded", utils.FormatBytes(uint64(summary.Bytes))).
		Dur("elapsed", summary.Elapsed).
		Msg("All downloads finished")
	if m.opts.OnComplete != nil {
		m.opts.OnComplete(summary)
	}
	close(m.done)
}

// Done is closed once every worker has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	return Summary{
		Completed: int(m.tally.completed.Load()),
		Abandoned: int(m.tally.abandoned.Load()),
		Bytes:     m.tally.bytes.Load(),
		Elapsed:   time.Since(started),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) LiveWorkers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

func (m *Manager) RunID() string {
	return m.runID
}

// allocate splits overall evenly across live workers. A single worker gets
// overall untouched; a finite split never drops below 1 B/s.
func allocate(overall int64, live int) int64 {
	if overall <= utils.Unlimited || live <= 1 {
		return overall
	}
	return max(overall/int64(live), 1)
}
