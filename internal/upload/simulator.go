// Package upload drives simulated transfers for slot attachments.
package upload

import (
	"errors"
	"sync"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/comp-report/intake/internal/slots"
	"go.uber.org/zap"
)

// ErrNotUploading is returned by Begin when the slot holds no uploading attachment.
var ErrNotUploading = errors.New("slot has no uploading attachment")

// Config controls the simulated transfer cadence.
type Config struct {
	Step         int           // Progress added per tick
	TickInterval time.Duration // Time between ticks
	NotifyDelay  time.Duration // Delay from Begin to the completion notice
}

// DefaultConfig returns the standard cadence: +10 every 200ms, notice at 2s.
func DefaultConfig() Config {
	return Config{
		Step:         10,
		TickInterval: 200 * time.Millisecond,
		NotifyDelay:  2 * time.Second,
	}
}

// Listener is told about simulator progress. It is called with the owner's
// lock held and must not block.
type Listener interface {
	UploadProgressed(slot models.SlotID, att models.Attachment)
	UploadNoticeDue(slot models.SlotID, att models.Attachment)
}

// Simulator advances uploading attachments on a timer. There is at most one
// run per slot.
//
// Begin, Cancel and CancelAll must be called with lock held. Timer callbacks
// acquire lock themselves.
type Simulator struct {
	cfg      Config
	sched    scheduler.Scheduler
	lock     sync.Locker
	registry *slots.Registry
	listener Listener
	runs     map[models.SlotID]*run
	log      *zap.Logger
}

// run is the pair of timers started for one attachment.
type run struct {
	attachmentID string
	ticker       scheduler.Handle
	notice       scheduler.Handle
	startedAt    time.Time
}

// NewSimulator creates a simulator over registry.
func NewSimulator(cfg Config, sched scheduler.Scheduler, lock sync.Locker, registry *slots.Registry, listener Listener, log *zap.Logger) *Simulator {
	return &Simulator{
		cfg:      cfg,
		sched:    sched,
		lock:     lock,
		registry: registry,
		listener: listener,
		runs:     make(map[models.SlotID]*run),
		log:      log,
	}
}

// Begin starts a simulated transfer for the slot's current attachment,
// cancelling any run already active for the slot.
func (s *Simulator) Begin(slot models.SlotID) error {
	att := s.registry.Attachment(slot)
	if att == nil || att.Status != models.AttachmentUploading {
		return ErrNotUploading
	}

	s.Cancel(slot)

	id := att.ID
	r := &run{attachmentID: id, startedAt: time.Now()}
	r.ticker = s.sched.Every(s.cfg.TickInterval, func() { s.tick(slot, id) })
	r.notice = s.sched.AfterFunc(s.cfg.NotifyDelay, func() { s.noticeDue(slot, id) })
	s.runs[slot] = r

	s.log.Debug("upload started",
		zap.String("slot", string(slot)),
		zap.String("attachment", id),
		zap.String("file", att.File.Name))
	return nil
}

// Cancel stops any run for the slot.
func (s *Simulator) Cancel(slot models.SlotID) {
	r, ok := s.runs[slot]
	if !ok {
		return
	}
	if r.ticker != nil {
		r.ticker.Cancel()
	}
	if r.notice != nil {
		r.notice.Cancel()
	}
	delete(s.runs, slot)
}

// CancelAll stops every run.
func (s *Simulator) CancelAll() {
	for slot := range s.runs {
		s.Cancel(slot)
	}
}

// Active reports whether the slot has a run with outstanding timers.
func (s *Simulator) Active(slot models.SlotID) bool {
	_, ok := s.runs[slot]
	return ok
}

// current returns the slot's run if it still belongs to attachmentID.
func (s *Simulator) current(slot models.SlotID, attachmentID string) *run {
	r, ok := s.runs[slot]
	if !ok || r.attachmentID != attachmentID {
		return nil
	}
	return r
}

func (s *Simulator) tick(slot models.SlotID, attachmentID string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	r := s.current(slot, attachmentID)
	if r == nil || r.ticker == nil {
		s.log.Debug("stale upload tick ignored",
			zap.String("slot", string(slot)),
			zap.String("attachment", attachmentID))
		return
	}

	att, ok := s.registry.Advance(slot, attachmentID, s.cfg.Step)
	if !ok {
		s.stopTicker(slot, r)
		return
	}

	s.listener.UploadProgressed(slot, att)

	if att.Status == models.AttachmentComplete {
		s.stopTicker(slot, r)
		s.log.Info("upload complete",
			zap.String("slot", string(slot)),
			zap.String("file", att.File.Name),
			zap.Duration("elapsed", time.Since(r.startedAt)))
	}
}

func (s *Simulator) noticeDue(slot models.SlotID, attachmentID string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	r := s.current(slot, attachmentID)
	if r == nil || r.notice == nil {
		s.log.Debug("stale upload notice ignored",
			zap.String("slot", string(slot)),
			zap.String("attachment", attachmentID))
		return
	}
	r.notice = nil
	if r.ticker == nil {
		delete(s.runs, slot)
	}

	att := s.registry.Attachment(slot)
	if att == nil || att.ID != attachmentID {
		return
	}
	s.listener.UploadNoticeDue(slot, *att)
}

func (s *Simulator) stopTicker(slot models.SlotID, r *run) {
	r.ticker.Cancel()
	r.ticker = nil
	if r.notice == nil {
		delete(s.runs, slot)
	}
}
