package report

import (
	"sync"
	"testing"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticReadiness bool

func (r staticReadiness) AnyComplete() bool { return bool(r) }

type recordingListener struct {
	progress []int
	ready    []models.Artifact
}

func (l *recordingListener) ReportProgressed(p models.Pipeline) {
	l.progress = append(l.progress, p.Progress)
}

func (l *recordingListener) ReportReady(_ models.Pipeline, a models.Artifact) {
	l.ready = append(l.ready, a)
}

func newController(ready bool) (*Controller, *scheduler.Manual, *recordingListener, *sync.Mutex) {
	mu := &sync.Mutex{}
	sched := scheduler.NewManual()
	l := &recordingListener{}
	c := NewController(DefaultConfig(), sched, mu, staticReadiness(ready), l, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return c, sched, l, mu
}

func TestController_EmptySubmissionIsANoop(t *testing.T) {
	c, sched, l, _ := newController(false)

	err := c.StartProcessing()

	assert.ErrorIs(t, err, ErrEmptySubmission)
	assert.Equal(t, models.Pipeline{State: models.PipelineIdle}, c.Pipeline())
	assert.Equal(t, 0, sched.Pending(), "no timer started")
	sched.Advance(5 * time.Second)
	assert.Empty(t, l.progress)
}

func TestController_ProcessesToComplete(t *testing.T) {
	c, sched, l, mu := newController(true)

	mu.Lock()
	require.NoError(t, c.StartProcessing())
	mu.Unlock()
	assert.Equal(t, models.Pipeline{State: models.PipelineProcessing}, c.Pipeline())

	sched.Advance(1900 * time.Millisecond)
	assert.Equal(t, models.Pipeline{State: models.PipelineProcessing, Progress: 95}, c.Pipeline())

	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, models.Pipeline{State: models.PipelineComplete, Progress: 100}, c.Pipeline())
	assert.Equal(t, 0, sched.Pending(), "timer cancelled at completion")

	require.Len(t, l.ready, 1)
	assert.Equal(t, "comparable-report-20261016-093000.pdf", l.ready[0].FileName)
	assert.Len(t, l.progress, 19)
	for i := 1; i < len(l.progress); i++ {
		assert.Greater(t, l.progress[i], l.progress[i-1])
	}
}

func TestController_StartOnlyFromIdle(t *testing.T) {
	c, sched, _, _ := newController(true)

	require.NoError(t, c.StartProcessing())
	assert.ErrorIs(t, c.StartProcessing(), ErrInvalidState)
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(2 * time.Second)
	assert.ErrorIs(t, c.StartProcessing(), ErrInvalidState)
}

func TestController_Download(t *testing.T) {
	c, sched, _, _ := newController(true)

	_, err := c.Download()
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, c.StartProcessing())
	_, err = c.Download()
	assert.ErrorIs(t, err, ErrInvalidState)

	sched.Advance(2 * time.Second)
	a, err := c.Download()
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	again, err := c.Download()
	require.NoError(t, err)
	assert.Equal(t, a, again, "download does not change state")
	assert.Equal(t, models.PipelineComplete, c.Pipeline().State)
}

func TestController_Reset(t *testing.T) {
	c, sched, _, _ := newController(true)

	assert.ErrorIs(t, c.Reset(), ErrInvalidState)

	require.NoError(t, c.StartProcessing())
	assert.ErrorIs(t, c.Reset(), ErrInvalidState, "reset is only valid once complete")

	sched.Advance(2 * time.Second)
	require.NoError(t, c.Reset())
	assert.Equal(t, models.Pipeline{State: models.PipelineIdle}, c.Pipeline())
	assert.Nil(t, c.Artifact())

	assert.ErrorIs(t, c.Reset(), ErrInvalidState, "second reset is a no-op")
}

func TestController_StopMakesQueuedTicksStale(t *testing.T) {
	c, sched, l, _ := newController(true)
	require.NoError(t, c.StartProcessing())
	sched.Advance(300 * time.Millisecond)

	c.Stop()
	sched.Advance(5 * time.Second)

	assert.Equal(t, []int{5, 10, 15}, l.progress)
	assert.Empty(t, l.ready)
}
