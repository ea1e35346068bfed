package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 100
	defaultMaxWorkers   = 4
)

// Source is the part of Service the dispatcher drives.
type Source interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Reminder, error)
	Notify(ctx context.Context, rem *Reminder) error
}

type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxWorkers   int
}

type Worker struct {
	ID         int
	WorkerPool chan chan *Reminder
	JobChannel chan *Reminder
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan *Reminder, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan *Reminder),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(*Reminder)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case rem := <-w.JobChannel:
				w.Logger.Debug("worker notifying reminder", "worker_id", w.ID, "reminder_id", rem.ID)
				processFunc(rem)
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher polls for due reminders and hands each claimed one to a pool
// of workers that publish the notification.
type Dispatcher struct {
	source   Source
	logger   *slog.Logger
	interval time.Duration
	batch    int
	now      func() time.Time

	jobQueue   chan *Reminder
	workerPool chan chan *Reminder
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewDispatcher(source Source, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	interval := config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	return &Dispatcher{
		source:     source,
		logger:     logger,
		interval:   interval,
		batch:      batch,
		now:        time.Now,
		jobQueue:   make(chan *Reminder, batch),
		workerPool: make(chan chan *Reminder, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers, the dispatch loop and the poller. It is safe to call more than once.
func (d *Dispatcher) Start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(2)
		go d.dispatch()
		go d.poll()

		d.logger.Info("reminder dispatcher started",
			"max_workers", d.maxWorkers,
			"poll_interval", d.interval,
			"batch_size", d.batch)
	})
}

func (d *Dispatcher) process(rem *Reminder) {
	if err := d.source.Notify(d.ctx, rem); err != nil {
		d.logger.Error("failed to notify reminder", "error", err, "reminder_id", rem.ID, "user_id", rem.UserID)
	}
}

func (d *Dispatcher) poll() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick()
	for {
		select {
		case <-ticker.C:
			d.tick()
		case <-d.ctx.Done():
			return
		}
	}
}

// tick claims one batch and queues it. A full batch is followed by another
// claim straight away so a backlog drains without waiting for the ticker.
func (d *Dispatcher) tick() {
	for {
		claimed, err := d.source.ClaimDue(d.ctx, d.now(), d.batch)
		if err != nil && d.ctx.Err() == nil {
			d.logger.Error("failed to claim due reminders", "error", err)
		}
		for _, rem := range claimed {
			select {
			case d.jobQueue <- rem:
			case <-d.ctx.Done():
				return
			}
		}
		if err != nil || len(claimed) < d.batch {
			return
		}
	}
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case rem := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- rem:
				case <-d.ctx.Done():
					d.logger.Info("reminder dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("reminder dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("reminder dispatcher shutting down")
			return
		}
	}
}

// Shutdown stops polling and waits for every goroutine to return.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down reminder dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("reminder dispatcher shutdown complete")
	})
}
