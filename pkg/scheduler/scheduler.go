package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one recurring unit of background work. Run is invoked once per
// tick; returned errors are logged and never cancel future ticks.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type CoordinatorConfig struct {
	Interval time.Duration
}

// Coordinator runs registered jobs on a fixed interval in its own goroutine,
// so a slow or failing job never delays command handling. Jobs are isolated
// from one another: a panic or error in one does not suppress the rest.
type Coordinator struct {
	config CoordinatorConfig
	jobs   []Job

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func NewWithConfig(config CoordinatorConfig) *Coordinator {
	if config.Interval == 0 {
		config.Interval = 60 * time.Second
	}
	return &Coordinator{
		config: config,
		done:   make(chan struct{}),
	}
}

// Register adds a job. Not safe to call after Start.
func (c *Coordinator) Register(job Job) {
	c.jobs = append(c.jobs, job)
}

// Start launches the tick loop. It returns immediately; the loop stops when
// ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	go c.loop(ctx)
}

// Done is closed once the loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runTick(ctx)
		}
	}
}

func (c *Coordinator) runTick(ctx context.Context) {
	for _, job := range c.jobs {
		if ctx.Err() != nil {
			return
		}
		c.runJob(ctx, job)
	}
}

func (c *Coordinator) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: job %s panicked: %v", job.Name, r)
		}
	}()

	if err := job.Run(ctx); err != nil {
		log.Printf("scheduler: job %s failed: %v", job.Name, err)
	}
}
