package session

import (
	"testing"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/notify"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/comp-report/intake/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Add(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(opts ManagerOptions) (*Manager, *scheduler.Manual, *testutil.MockPreviewStore, *fakeClock) {
	sched := scheduler.NewManual()
	previews := testutil.NewMockPreviewStore()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(DefaultConfig(), opts, sched, previews, zap.NewNop())
	m.now = clock.Now
	return m, sched, previews, clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _, _, _ := newTestManager(DefaultManagerOptions())

	state, err := m.Create()
	require.NoError(t, err)
	require.NotNil(t, state.Session)
	require.NotNil(t, state.Events)

	got, err := m.Get(state.Session.ID())
	require.NoError(t, err)
	assert.Same(t, state, got)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m, sched, _, _ := newTestManager(DefaultManagerOptions())

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	_, err = a.Session.SelectFile(models.SlotChecklist, models.FileInfo{Name: "a.pdf", Size: 10}, nil)
	require.NoError(t, err)
	sched.Advance(2 * time.Second)

	assert.NotNil(t, a.Session.Snapshot().Slots[0].Attachment)
	assert.Nil(t, b.Session.Snapshot().Slots[0].Attachment)
}

func TestManager_EventsReachSubscribers(t *testing.T) {
	m, sched, _, _ := newTestManager(DefaultManagerOptions())
	state, err := m.Create()
	require.NoError(t, err)

	events, cancel := state.Events.Subscribe()
	defer cancel()

	_, err = state.Session.SelectFile(models.SlotComparable1, models.FileInfo{Name: "c.pdf", Size: 10}, nil)
	require.NoError(t, err)
	sched.Advance(2 * time.Second)

	var sawNotice bool
	for len(events) > 0 {
		e := <-events
		if e.Type == notify.EventNotification && e.Notification.Kind == models.NotifyUploadComplete {
			sawNotice = true
		}
	}
	assert.True(t, sawNotice)
	require.Len(t, state.Events.Recent(), 1)
}

func TestManager_Delete(t *testing.T) {
	m, sched, previews, _ := newTestManager(DefaultManagerOptions())
	state, err := m.Create()
	require.NoError(t, err)

	_, err = state.Session.SelectFile(models.SlotComparable1, models.FileInfo{Name: "p.png", Size: 10, Type: "image/png"}, []byte("p"))
	require.NoError(t, err)
	require.Equal(t, 1, previews.Len())

	require.NoError(t, m.Delete(state.Session.ID()))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, previews.Len())
	assert.Equal(t, 0, sched.Pending())

	assert.ErrorIs(t, m.Delete(state.Session.ID()), ErrSessionNotFound)
}

func TestManager_CleanupIdle(t *testing.T) {
	m, _, _, clock := newTestManager(DefaultManagerOptions())

	stale, err := m.Create()
	require.NoError(t, err)
	clock.Add(20 * time.Minute)
	fresh, err := m.Create()
	require.NoError(t, err)
	clock.Add(15 * time.Minute)

	removed := m.CleanupIdle(30 * time.Minute)

	assert.Equal(t, 1, removed)
	_, err = m.Get(stale.Session.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.Session.ID())
	assert.NoError(t, err)
}

func TestManager_TouchKeepsSessionAlive(t *testing.T) {
	m, _, _, clock := newTestManager(DefaultManagerOptions())
	state, err := m.Create()
	require.NoError(t, err)

	clock.Add(25 * time.Minute)
	assert.True(t, m.Touch(state.Session.ID()))
	clock.Add(25 * time.Minute)

	assert.Equal(t, 0, m.CleanupIdle(30*time.Minute))
	assert.False(t, m.Touch("missing"))
}

func TestManager_SessionCap(t *testing.T) {
	opts := DefaultManagerOptions()
	opts.MaxSessions = 2
	opts.KeepAliveWindow = time.Minute

	t.Run("rejects when every session is recent", func(t *testing.T) {
		m, _, _, _ := newTestManager(opts)
		for i := 0; i < 2; i++ {
			_, err := m.Create()
			require.NoError(t, err)
		}

		_, err := m.Create()
		assert.ErrorIs(t, err, ErrTooManySessions)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("evicts least recently used idle session", func(t *testing.T) {
		m, _, _, clock := newTestManager(opts)
		oldest, err := m.Create()
		require.NoError(t, err)
		clock.Add(time.Minute)
		older, err := m.Create()
		require.NoError(t, err)
		clock.Add(2 * time.Minute)

		_, err = m.Create()
		require.NoError(t, err)

		assert.Equal(t, 2, m.Len())
		_, err = m.Get(oldest.Session.ID())
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = m.Get(older.Session.ID())
		assert.NoError(t, err)
	})
}

func TestManager_CloseAll(t *testing.T) {
	m, _, _, _ := newTestManager(DefaultManagerOptions())
	state, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	require.NoError(t, err)

	m.CloseAll()

	assert.Equal(t, 0, m.Len())
	_, err = state.Session.SelectFile(models.SlotChecklist, models.FileInfo{Name: "a.pdf", Size: 1}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
