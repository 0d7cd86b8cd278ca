package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/notify"
	"github.com/comp-report/intake/internal/report"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/comp-report/intake/internal/slots"
	"github.com/comp-report/intake/internal/storage"
	"github.com/comp-report/intake/internal/upload"
	"github.com/comp-report/intake/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrInvalidResetToken is returned when a reset confirmation does not
	// match the pending request or the request expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Config is the fixed shape of every session.
type Config struct {
	Slots    []models.SlotDefinition
	Upload   upload.Config
	Report   report.Config
	ResetTTL time.Duration
}

// DefaultConfig returns the standard four slots and simulation cadence.
func DefaultConfig() Config {
	return Config{
		Slots:    DefaultSlots(),
		Upload:   upload.DefaultConfig(),
		Report:   report.DefaultConfig(),
		ResetTTL: 2 * time.Minute,
	}
}

// DefaultSlots returns the checklist slot followed by three comparables.
func DefaultSlots() []models.SlotDefinition {
	const mb = 1024 * 1024
	comparableTypes := []string{".pdf", ".jpeg", ".jpg", ".png"}
	return []models.SlotDefinition{
		{ID: models.SlotChecklist, Title: "Checklist", AcceptedExtensions: []string{".pdf", ".doc", ".docx"}, MaxSizeBytes: 10 * mb},
		{ID: models.SlotComparable1, Title: "Comparable 1", AcceptedExtensions: comparableTypes, MaxSizeBytes: 5 * mb},
		{ID: models.SlotComparable2, Title: "Comparable 2", AcceptedExtensions: comparableTypes, MaxSizeBytes: 5 * mb},
		{ID: models.SlotComparable3, Title: "Comparable 3", AcceptedExtensions: comparableTypes, MaxSizeBytes: 5 * mb},
	}
}

// Session is one report being assembled. It owns the slot registry, the
// upload simulator and the report pipeline, and serializes every operation
// and timer callback through a single mutex.
type Session struct {
	id  string
	cfg Config

	mu       sync.Mutex
	registry *slots.Registry
	uploads  *upload.Simulator
	pipeline *report.Controller
	previews storage.PreviewStore
	events   notify.Publisher
	pending  *models.ResetRequest
	closed   bool
	now      func() time.Time
	log      *zap.Logger
}

// New initializes a session with every slot empty and the pipeline idle.
func New(id string, cfg Config, sched scheduler.Scheduler, previews storage.PreviewStore, events notify.Publisher, log *zap.Logger) *Session {
	s := &Session{
		id:       id,
		cfg:      cfg,
		registry: slots.New(cfg.Slots),
		previews: previews,
		events:   events,
		now:      time.Now,
		log:      log.With(zap.String("session", shortID(id))),
	}
	l := listener{s}
	s.uploads = upload.NewSimulator(cfg.Upload, sched, &s.mu, s.registry, l, s.log.Named("upload"))
	s.pipeline = report.NewController(cfg.Report, sched, &s.mu, s.registry, l, s.log.Named("report"))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		SessionID:    s.id,
		Slots:        s.registry.Snapshot(),
		Pipeline:     s.pipeline.Pipeline(),
		Artifact:     s.pipeline.Artifact(),
		ResetPending: s.pending != nil,
		UpdatedAt:    s.now(),
	}
}

// SelectFile validates file against the slot's constraints and makes it the
// slot's attachment, replacing any previous one. A validation failure is not
// an error: the attachment is stored in the error state with a reason.
// preview holds renderable bytes for image files and may be nil.
func (s *Session) SelectFile(slot models.SlotID, file models.FileInfo, preview []byte) (models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.Attachment{}, ErrClosed
	}

	def, err := s.registry.Definition(slot)
	if err != nil {
		return models.Attachment{}, err
	}

	s.discardLocked(slot)

	att := models.Attachment{
		ID:        uuid.New().String(),
		File:      file,
		Status:    models.AttachmentUploading,
		CreatedAt: s.now(),
	}

	if res := validation.Validate(file, def.AcceptedExtensions, def.MaxSizeBytes); !res.OK() {
		att.Status = models.AttachmentError
		att.ErrorReason = res.Message
		if _, err := s.registry.Assign(slot, att); err != nil {
			return models.Attachment{}, err
		}
		s.log.Warn("file rejected",
			zap.String("slot", string(slot)),
			zap.String("file", file.Name),
			zap.String("code", string(res.Code)))
		s.publishSnapshotLocked()
		return att, nil
	}

	if file.IsImage() {
		handle, err := s.previews.Create(file, preview)
		if err != nil {
			s.log.Warn("preview not created", zap.String("file", file.Name), zap.Error(err))
		} else {
			att.PreviewHandle = handle
		}
	}

	if _, err := s.registry.Assign(slot, att); err != nil {
		s.releasePreview(att.PreviewHandle)
		return models.Attachment{}, err
	}
	if err := s.uploads.Begin(slot); err != nil {
		return models.Attachment{}, fmt.Errorf("starting upload: %w", err)
	}

	s.log.Info("file accepted",
		zap.String("slot", string(slot)),
		zap.String("file", file.Name),
		zap.Int64("size", file.Size))
	s.publishSnapshotLocked()
	return att, nil
}

// RemoveFile empties the slot, cancelling its upload and releasing its preview.
func (s *Session) RemoveFile(slot models.SlotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, err := s.registry.Definition(slot); err != nil {
		return err
	}

	s.discardLocked(slot)
	s.publishSnapshotLocked()
	return nil
}

// discardLocked cancels the slot's timers, releases its preview and clears it.
func (s *Session) discardLocked(slot models.SlotID) {
	s.uploads.Cancel(slot)
	prev, _ := s.registry.Clear(slot)
	if prev != nil {
		s.releasePreview(prev.PreviewHandle)
	}
}

// SetDragActive records whether a drag gesture hovers the slot.
func (s *Session) SetDragActive(slot models.SlotID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.registry.SetDragActive(slot, active); err != nil {
		return err
	}
	s.publishSnapshotLocked()
	return nil
}

// StartProcessing begins report generation. With no completed attachment it
// emits an empty-submission notice and returns report.ErrEmptySubmission.
func (s *Session) StartProcessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.pipeline.StartProcessing(); err != nil {
		if errors.Is(err, report.ErrEmptySubmission) {
			s.notifyLocked(models.NotifyEmptySubmission, "",
				"No documents uploaded",
				"Please upload at least one document before generating the report.")
		}
		return err
	}

	s.log.Info("report requested", zap.Int("documents", s.registry.CompleteCount()))
	s.publishSnapshotLocked()
	return nil
}

// Download returns the generated report reference.
func (s *Session) Download() (models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.Artifact{}, ErrClosed
	}

	a, err := s.pipeline.Download()
	if err != nil {
		return models.Artifact{}, err
	}
	s.notifyLocked(models.NotifyDownloadStarted, "",
		"Download started",
		fmt.Sprintf("%s is downloading.", a.FileName))
	return a, nil
}

// RequestReset opens a reset confirmation. Only valid once the report is
// complete; a new request replaces any pending one.
func (s *Session) RequestReset() (models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.ResetRequest{}, ErrClosed
	}
	if p := s.pipeline.Pipeline(); p.State != models.PipelineComplete {
		return models.ResetRequest{}, fmt.Errorf("%w: reset from %s", report.ErrInvalidState, p.State)
	}

	s.pending = &models.ResetRequest{
		Token:     uuid.New().String(),
		ExpiresAt: s.now().Add(s.cfg.ResetTTL),
	}
	s.publishSnapshotLocked()
	return *s.pending, nil
}

// CancelReset discards a pending reset request.
func (s *Session) CancelReset(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.Token != token {
		return ErrInvalidResetToken
	}
	s.pending = nil
	s.publishSnapshotLocked()
	return nil
}

// ConfirmReset performs a requested reset: every timer is cancelled, every
// preview released, all slots recreated empty and the pipeline returned to
// idle. Confirming when the report is not complete changes nothing.
func (s *Session) ConfirmReset(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if p := s.pipeline.Pipeline(); p.State != models.PipelineComplete {
		return fmt.Errorf("%w: reset from %s", report.ErrInvalidState, p.State)
	}
	if s.pending == nil || s.pending.Token != token {
		return ErrInvalidResetToken
	}
	if s.now().After(s.pending.ExpiresAt) {
		s.pending = nil
		return ErrInvalidResetToken
	}

	s.pending = nil
	s.clearAllLocked()
	if err := s.pipeline.Reset(); err != nil {
		return err
	}

	s.log.Info("session reset")
	s.notifyLocked(models.NotifyResetConfirmed, "",
		"New report started",
		"All documents have been cleared.")
	s.publishSnapshotLocked()
	return nil
}

func (s *Session) clearAllLocked() {
	s.uploads.CancelAll()
	for _, att := range s.registry.Reset() {
		s.releasePreview(att.PreviewHandle)
	}
}

// Close cancels every timer and releases every preview. The session rejects
// further operations.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	s.pipeline.Stop()
	s.clearAllLocked()
}

func (s *Session) releasePreview(handle string) {
	if handle == "" {
		return
	}
	if err := s.previews.Release(handle); err != nil {
		s.log.Warn("preview release failed", zap.String("handle", handle), zap.Error(err))
	}
}

func (s *Session) publishSnapshotLocked() {
	snap := s.snapshotLocked()
	s.events.Publish(notify.Event{Type: notify.EventSnapshot, Snapshot: &snap})
}

func (s *Session) notifyLocked(kind models.NotificationKind, slot models.SlotID, title, description string) {
	s.events.Publish(notify.Event{
		Type: notify.EventNotification,
		Notification: &models.Notification{
			Kind:        kind,
			Title:       title,
			Description: description,
			SlotID:      slot,
			At:          s.now(),
		},
	})
}

// listener receives simulator and pipeline callbacks, which already hold s.mu.
type listener struct {
	s *Session
}

func (l listener) UploadProgressed(models.SlotID, models.Attachment) {
	l.s.publishSnapshotLocked()
}

func (l listener) UploadNoticeDue(slot models.SlotID, att models.Attachment) {
	l.s.notifyLocked(models.NotifyUploadComplete, slot,
		"Upload complete",
		fmt.Sprintf("%s has been uploaded successfully.", att.File.Name))
}

func (l listener) ReportProgressed(models.Pipeline) {
	l.s.publishSnapshotLocked()
}

func (l listener) ReportReady(_ models.Pipeline, a models.Artifact) {
	l.s.notifyLocked(models.NotifyReportReady, "",
		"Report ready",
		fmt.Sprintf("%s is ready to download.", a.FileName))
	l.s.publishSnapshotLocked()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
