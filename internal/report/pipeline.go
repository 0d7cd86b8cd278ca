// Package report implements the idle → processing → complete report
// generation state machine.
package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptySubmission is returned when no slot holds a complete attachment.
	ErrEmptySubmission = errors.New("no completed documents to process")
	// ErrInvalidState is returned when an operation is not valid in the current state.
	ErrInvalidState = errors.New("operation not valid in current pipeline state")
)

// Config controls the simulated processing cadence.
type Config struct {
	Step         int           // Progress added per tick
	TickInterval time.Duration // Time between ticks
}

// DefaultConfig returns the standard cadence: +5 every 100ms.
func DefaultConfig() Config {
	return Config{Step: 5, TickInterval: 100 * time.Millisecond}
}

// Readiness is the precondition source for StartProcessing.
type Readiness interface {
	AnyComplete() bool
}

// Listener is told about pipeline progress. It is called with the owner's
// lock held and must not block.
type Listener interface {
	ReportProgressed(p models.Pipeline)
	ReportReady(p models.Pipeline, artifact models.Artifact)
}

// Controller owns the pipeline state of one session.
//
// Methods must be called with lock held; the tick callback acquires it.
type Controller struct {
	cfg       Config
	sched     scheduler.Scheduler
	lock      sync.Locker
	readiness Readiness
	listener  Listener
	log       *zap.Logger
	now       func() time.Time

	state    models.PipelineState
	progress int
	artifact *models.Artifact
	run      uint64
	ticker   scheduler.Handle
}

// NewController creates a controller in the idle state.
func NewController(cfg Config, sched scheduler.Scheduler, lock sync.Locker, readiness Readiness, listener Listener, log *zap.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		sched:     sched,
		lock:      lock,
		readiness: readiness,
		listener:  listener,
		log:       log,
		now:       time.Now,
		state:     models.PipelineIdle,
	}
}

// Pipeline returns the current state and progress.
func (c *Controller) Pipeline() models.Pipeline {
	return models.Pipeline{State: c.state, Progress: c.progress}
}

// Artifact returns the generated report, if any.
func (c *Controller) Artifact() *models.Artifact {
	if c.artifact == nil {
		return nil
	}
	a := *c.artifact
	return &a
}

// StartProcessing moves idle → processing and starts the progress timer.
// With nothing ready it returns ErrEmptySubmission and changes nothing.
func (c *Controller) StartProcessing() error {
	if c.state != models.PipelineIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, c.state)
	}
	if !c.readiness.AnyComplete() {
		return ErrEmptySubmission
	}

	c.state = models.PipelineProcessing
	c.progress = 0
	c.run++
	gen := c.run
	c.ticker = c.sched.Every(c.cfg.TickInterval, func() { c.tick(gen) })

	c.log.Info("report processing started")
	return nil
}

func (c *Controller) tick(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if gen != c.run || c.state != models.PipelineProcessing {
		c.log.Debug("stale report tick ignored", zap.Uint64("run", gen))
		return
	}

	c.progress = min(c.progress+c.cfg.Step, 100)
	if c.progress < 100 {
		c.listener.ReportProgressed(c.Pipeline())
		return
	}

	c.stopTicker()
	c.state = models.PipelineComplete
	now := c.now()
	c.artifact = &models.Artifact{
		ID:        uuid.New().String(),
		FileName:  fmt.Sprintf("comparable-report-%s.pdf", now.Format("20060102-150405")),
		CreatedAt: now,
	}
	c.log.Info("report ready", zap.String("artifact", c.artifact.FileName))
	c.listener.ReportReady(c.Pipeline(), *c.artifact)
}

// Download returns the generated artifact. It is only valid once complete
// and does not change state.
func (c *Controller) Download() (models.Artifact, error) {
	if c.state != models.PipelineComplete || c.artifact == nil {
		return models.Artifact{}, fmt.Errorf("%w: download from %s", ErrInvalidState, c.state)
	}
	return *c.artifact, nil
}

// Reset returns a complete pipeline to idle with zero progress.
func (c *Controller) Reset() error {
	if c.state != models.PipelineComplete {
		return fmt.Errorf("%w: reset from %s", ErrInvalidState, c.state)
	}
	c.Stop()
	c.state = models.PipelineIdle
	c.progress = 0
	c.artifact = nil
	return nil
}

// Stop cancels the progress timer. Ticks already queued become stale.
func (c *Controller) Stop() {
	c.run++
	c.stopTicker()
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Cancel()
		c.ticker = nil
	}
}
