package slots

import (
	"testing"

	"github.com/comp-report/intake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs() []models.SlotDefinition {
	return []models.SlotDefinition{
		{ID: models.SlotChecklist, Title: "Checklist", AcceptedExtensions: []string{".pdf"}, MaxSizeBytes: 10},
		{ID: models.SlotComparable1, Title: "Comparable 1", AcceptedExtensions: []string{".pdf", ".png"}, MaxSizeBytes: 10},
		{ID: models.SlotComparable2, Title: "Comparable 2", AcceptedExtensions: []string{".pdf", ".png"}, MaxSizeBytes: 10},
		{ID: models.SlotComparable3, Title: "Comparable 3", AcceptedExtensions: []string{".pdf", ".png"}, MaxSizeBytes: 10},
	}
}

func uploading(id string) models.Attachment {
	return models.Attachment{ID: id, Status: models.AttachmentUploading}
}

func TestRegistry_SnapshotKeepsOrder(t *testing.T) {
	r := New(testDefs())

	snap := r.Snapshot()
	require.Len(t, snap, 4)
	for i, id := range models.SlotIDs() {
		assert.Equal(t, id, snap[i].ID)
		assert.Nil(t, snap[i].Attachment)
	}
}

func TestRegistry_AssignReplacesAndClears(t *testing.T) {
	r := New(testDefs())

	prev, err := r.Assign(models.SlotComparable1, uploading("a"))
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = r.Assign(models.SlotComparable1, uploading("b"))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a", prev.ID)
	assert.Equal(t, "b", r.Attachment(models.SlotComparable1).ID)

	prev, err = r.Clear(models.SlotComparable1)
	require.NoError(t, err)
	assert.Equal(t, "b", prev.ID)
	assert.Nil(t, r.Attachment(models.SlotComparable1))
}

func TestRegistry_UnknownSlot(t *testing.T) {
	r := New(testDefs())

	_, err := r.Assign("comparable9", uploading("a"))
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = r.Clear("comparable9")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.ErrorIs(t, r.SetDragActive("comparable9", true), ErrUnknownSlot)
	_, err = r.Definition("comparable9")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Nil(t, r.Attachment("comparable9"))
}

func TestRegistry_AttachmentIsACopy(t *testing.T) {
	r := New(testDefs())
	r.Assign(models.SlotChecklist, uploading("a"))

	att := r.Attachment(models.SlotChecklist)
	att.Progress = 80

	assert.Equal(t, 0, r.Attachment(models.SlotChecklist).Progress)
}

func TestRegistry_Advance(t *testing.T) {
	r := New(testDefs())
	r.Assign(models.SlotComparable2, uploading("a"))

	last := 0
	for i := 0; i < 9; i++ {
		att, ok := r.Advance(models.SlotComparable2, "a", 10)
		require.True(t, ok)
		assert.GreaterOrEqual(t, att.Progress, last)
		assert.Equal(t, models.AttachmentUploading, att.Status)
		last = att.Progress
	}

	att, ok := r.Advance(models.SlotComparable2, "a", 10)
	require.True(t, ok)
	assert.Equal(t, 100, att.Progress)
	assert.Equal(t, models.AttachmentComplete, att.Status)

	_, ok = r.Advance(models.SlotComparable2, "a", 10)
	assert.False(t, ok, "complete attachments do not advance")
	assert.Equal(t, 100, r.Attachment(models.SlotComparable2).Progress)
}

func TestRegistry_AdvanceClampsAt100(t *testing.T) {
	r := New(testDefs())
	r.Assign(models.SlotChecklist, uploading("a"))

	att, ok := r.Advance(models.SlotChecklist, "a", 70)
	require.True(t, ok)
	att, ok = r.Advance(models.SlotChecklist, "a", 70)
	require.True(t, ok)

	assert.Equal(t, 100, att.Progress)
	assert.Equal(t, models.AttachmentComplete, att.Status)
}

func TestRegistry_AdvanceStale(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Registry)
	}{
		{"removed", func(r *Registry) { r.Clear(models.SlotChecklist) }},
		{"replaced", func(r *Registry) { r.Assign(models.SlotChecklist, uploading("b")) }},
		{"errored", func(r *Registry) {
			r.Assign(models.SlotChecklist, models.Attachment{ID: "a", Status: models.AttachmentError, ErrorReason: "bad"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testDefs())
			r.Assign(models.SlotChecklist, uploading("a"))
			tt.setup(r)

			_, ok := r.Advance(models.SlotChecklist, "a", 10)
			assert.False(t, ok)
			if att := r.Attachment(models.SlotChecklist); att != nil {
				assert.Equal(t, 0, att.Progress)
			}
		})
	}
}

func TestRegistry_CompleteCount(t *testing.T) {
	r := New(testDefs())
	assert.False(t, r.AnyComplete())

	r.Assign(models.SlotChecklist, uploading("a"))
	r.Assign(models.SlotComparable1, models.Attachment{ID: "b", Status: models.AttachmentError})
	assert.False(t, r.AnyComplete())

	r.Assign(models.SlotComparable2, models.Attachment{ID: "c", Status: models.AttachmentComplete, Progress: 100})
	assert.True(t, r.AnyComplete())
	assert.Equal(t, 1, r.CompleteCount())
}

func TestRegistry_DragStateDoesNotTouchAttachment(t *testing.T) {
	r := New(testDefs())
	r.Assign(models.SlotComparable3, uploading("a"))

	require.NoError(t, r.SetDragActive(models.SlotComparable3, true))
	assert.True(t, r.Snapshot()[3].DragActive)
	assert.Equal(t, "a", r.Attachment(models.SlotComparable3).ID)

	require.NoError(t, r.SetDragActive(models.SlotComparable3, false))
	assert.False(t, r.Snapshot()[3].DragActive)
}

func TestRegistry_Reset(t *testing.T) {
	r := New(testDefs())
	r.Assign(models.SlotChecklist, uploading("a"))
	r.Assign(models.SlotComparable3, uploading("b"))
	r.SetDragActive(models.SlotComparable1, true)

	removed := r.Reset()

	require.Len(t, removed, 2)
	assert.Equal(t, "a", removed[0].ID)
	assert.Equal(t, "b", removed[1].ID)
	for _, s := range r.Snapshot() {
		assert.Nil(t, s.Attachment)
		assert.False(t, s.DragActive)
	}
	assert.Len(t, r.Snapshot(), 4)
	assert.Empty(t, r.Reset())
}
