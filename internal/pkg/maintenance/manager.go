// Package maintenance runs the periodic background work of the API server.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultCleanupInterval      = time.Hour
	DefaultCounterFlushInterval = 5 * time.Second
)

// Task is a unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// CacheCleaner removes expired conversion cache entries.
type CacheCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CounterFlusher drains buffered counters into the database.
type CounterFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// CacheCleanupTask sweeps expired cache entries.
func CacheCleanupTask(cleaner CacheCleaner, interval time.Duration) Task {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return Task{
		Name:     "cache cleanup",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := cleaner.CleanupExpired(ctx)
			return err
		},
	}
}

// CounterFlushTask moves buffered cache hit counts from Redis to the database.
func CounterFlushTask(flusher CounterFlusher, interval time.Duration) Task {
	if interval <= 0 {
		interval = DefaultCounterFlushInterval
	}
	return Task{
		Name:     "counter flush",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := flusher.Flush(ctx)
			return err
		},
	}
}

// Manager runs tasks on their own tickers until stopped.
type Manager struct {
	tasks   []Task
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewManager(tasks ...Task) *Manager {
	return &Manager{tasks: tasks}
}

// Start launches one worker per task. Starting a running manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Info("[Maintenance] Starting background tasks")

	for _, task := range m.tasks {
		m.wg.Add(1)
		go m.worker(ctx, task, m.stopCh)
	}
}

// Stop signals every worker and waits for in-flight runs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Maintenance] Stopping background tasks...")
	close(m.stopCh)
	m.cancel()
	m.stopCh = nil
	m.running = false

	m.wg.Wait()
	log.Info("[Maintenance] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce runs every task once, in order, and returns the first error.
func (m *Manager) RunOnce(ctx context.Context) error {
	for _, task := range m.tasks {
		if err := task.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) worker(ctx context.Context, task Task, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log.Infof("[Maintenance] Started %s worker (interval: %s)", task.Name, task.Interval)

	for {
		select {
		case <-stopCh:
			log.Infof("[Maintenance] %s worker stopping", task.Name)
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				log.Errorf("[Maintenance] %s error: %v", task.Name, err)
			}
		}
	}
}
