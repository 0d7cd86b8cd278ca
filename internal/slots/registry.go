// Package slots holds the fixed, ordered set of document upload slots.
//
// A Registry is not safe for concurrent use; its owner serializes access.
package slots

import (
	"errors"
	"fmt"

	"github.com/comp-report/intake/internal/models"
)

// ErrUnknownSlot is returned for slot ids outside the registry.
var ErrUnknownSlot = errors.New("unknown slot")

// Registry holds slots in creation order. Slot identity and order never
// change after New.
type Registry struct {
	defs  []models.SlotDefinition
	slots map[models.SlotID]*models.Slot
}

// New creates a registry with one empty slot per definition.
func New(defs []models.SlotDefinition) *Registry {
	r := &Registry{
		defs:  append([]models.SlotDefinition(nil), defs...),
		slots: make(map[models.SlotID]*models.Slot, len(defs)),
	}
	r.recreate()
	return r
}

func (r *Registry) recreate() {
	for _, def := range r.defs {
		def.AcceptedExtensions = append([]string(nil), def.AcceptedExtensions...)
		r.slots[def.ID] = &models.Slot{SlotDefinition: def}
	}
}

func (r *Registry) slot(id models.SlotID) (*models.Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, id)
	}
	return s, nil
}

// Definition returns the constraints of a slot.
func (r *Registry) Definition(id models.SlotID) (models.SlotDefinition, error) {
	s, err := r.slot(id)
	if err != nil {
		return models.SlotDefinition{}, err
	}
	return s.SlotDefinition, nil
}

// Attachment returns a copy of the slot's attachment, or nil if the slot is
// empty or unknown.
func (r *Registry) Attachment(id models.SlotID) *models.Attachment {
	s, ok := r.slots[id]
	if !ok || s.Attachment == nil {
		return nil
	}
	att := *s.Attachment
	return &att
}

// Assign places att in the slot and returns the attachment it replaced.
func (r *Registry) Assign(id models.SlotID, att models.Attachment) (*models.Attachment, error) {
	s, err := r.slot(id)
	if err != nil {
		return nil, err
	}
	prev := s.Attachment
	s.Attachment = &att
	return prev, nil
}

// Clear empties the slot and returns the removed attachment, if any.
func (r *Registry) Clear(id models.SlotID) (*models.Attachment, error) {
	s, err := r.slot(id)
	if err != nil {
		return nil, err
	}
	prev := s.Attachment
	s.Attachment = nil
	return prev, nil
}

// SetDragActive records whether a drag gesture hovers the slot.
func (r *Registry) SetDragActive(id models.SlotID, active bool) error {
	s, err := r.slot(id)
	if err != nil {
		return err
	}
	s.DragActive = active
	return nil
}

// Advance adds step to the progress of the slot's attachment, provided it is
// still attachmentID and still uploading. Reaching 100 marks it complete.
// ok is false when the attachment was superseded, removed or is no longer
// uploading; nothing is changed in that case.
func (r *Registry) Advance(id models.SlotID, attachmentID string, step int) (att models.Attachment, ok bool) {
	s, found := r.slots[id]
	if !found || s.Attachment == nil {
		return models.Attachment{}, false
	}
	a := s.Attachment
	if a.ID != attachmentID || a.Status != models.AttachmentUploading {
		return *a, false
	}

	a.Progress = min(a.Progress+step, 100)
	if a.Progress == 100 {
		a.Status = models.AttachmentComplete
	}
	return *a, true
}

// CompleteCount returns the number of slots holding a complete attachment.
func (r *Registry) CompleteCount() int {
	n := 0
	for _, s := range r.slots {
		if s.Attachment != nil && s.Attachment.Status == models.AttachmentComplete {
			n++
		}
	}
	return n
}

// AnyComplete reports whether at least one slot holds a complete attachment.
func (r *Registry) AnyComplete() bool {
	return r.CompleteCount() > 0
}

// Reset recreates every slot empty and returns the attachments it discarded.
func (r *Registry) Reset() []models.Attachment {
	var removed []models.Attachment
	for _, def := range r.defs {
		if att := r.slots[def.ID].Attachment; att != nil {
			removed = append(removed, *att)
		}
	}
	r.recreate()
	return removed
}

// Snapshot returns copies of all slots in creation order.
func (r *Registry) Snapshot() []models.Slot {
	out := make([]models.Slot, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, r.slots[def.ID].Clone())
	}
	return out
}
