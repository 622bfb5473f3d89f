package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSummarizer struct {
	summarizeErr error
	summarized   []string
	aborted      []string
	abortReasons []string
	hadDeadline  bool
	deadline     time.Time
}

func (f *fakeSummarizer) Summarize(ctx context.Context, meetingUUID string) error {
	f.summarized = append(f.summarized, meetingUUID)
	f.deadline, f.hadDeadline = ctx.Deadline()
	return f.summarizeErr
}

func (f *fakeSummarizer) Abort(ctx context.Context, meetingUUID, reason string) error {
	f.aborted = append(f.aborted, meetingUUID)
	f.abortReasons = append(f.abortReasons, reason)
	return nil
}

func newWorker(t *testing.T, s Summarizer) (*Worker, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&Job{}))

	return &Worker{
		ID:         "worker-test",
		Repo:       &Repo{DB: gdb},
		Summarizer: s,
		Log:        zerolog.Nop(),
	}, gdb
}

func seedJob(t *testing.T, gdb *gorm.DB, job Job) *Job {
	t.Helper()
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 8
	}
	require.NoError(t, gdb.Create(&job).Error)
	return &job
}

func reload(t *testing.T, gdb *gorm.DB, id uint64) Job {
	t.Helper()
	var job Job
	require.NoError(t, gdb.First(&job, id).Error)
	return job
}

func TestHandleSummarizeSuccess(t *testing.T) {
	s := &fakeSummarizer{}
	w, gdb := newWorker(t, s)
	job := seedJob(t, gdb, NewSummarizeDispatch(1, "m-1", time.Now()))

	w.Handle(context.Background(), job)

	assert.Equal(t, []string{"m-1"}, s.summarized)
	assert.Empty(t, s.aborted)
	assert.Equal(t, StatusDone, reload(t, gdb, job.ID).Status)
}

func TestHandleSummarizeTransientFailure(t *testing.T) {
	s := &fakeSummarizer{summarizeErr: errors.New("upstream timeout")}
	w, gdb := newWorker(t, s)
	job := seedJob(t, gdb, NewSummarizeDispatch(1, "m-2", time.Now()))

	before := time.Now()
	w.Handle(context.Background(), job)

	got := reload(t, gdb, job.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "upstream timeout", *got.LastError)
	// backoff pushed the next run into the future
	assert.True(t, got.RunAt.After(before))
	assert.Empty(t, s.aborted)
}

func TestHandleSummarizePermanentFailure(t *testing.T) {
	s := &fakeSummarizer{summarizeErr: Permanent(errors.New("meeting not found"))}
	w, gdb := newWorker(t, s)
	job := seedJob(t, gdb, NewSummarizeDispatch(1, "m-3", time.Now()))

	w.Handle(context.Background(), job)

	assert.Equal(t, []string{"m-3"}, s.aborted)
	got := reload(t, gdb, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 0, got.Attempts)
}

func TestHandleSummarizeRetriesExhausted(t *testing.T) {
	s := &fakeSummarizer{summarizeErr: errors.New("still broken")}
	w, gdb := newWorker(t, s)

	job := NewSummarizeDispatch(1, "m-4", time.Now())
	job.Attempts = 7
	job.MaxAttempts = 8
	seeded := seedJob(t, gdb, job)

	w.Handle(context.Background(), seeded)

	// the meeting is failed over before the job is buried
	assert.Equal(t, []string{"m-4"}, s.aborted)
	assert.Equal(t, []string{"still broken"}, s.abortReasons)
	assert.Equal(t, StatusFailed, reload(t, gdb, seeded.ID).Status)
}

func TestHandleBoundsJobDuration(t *testing.T) {
	s := &fakeSummarizer{}
	w, gdb := newWorker(t, s)
	w.JobTimeout = 10 * time.Second
	job := seedJob(t, gdb, NewSummarizeDispatch(1, "m-5", time.Now()))

	w.Handle(context.Background(), job)

	// a hung external call cannot pin the worker goroutine forever
	require.True(t, s.hadDeadline)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), s.deadline, time.Second)

	// the default bound applies when nothing is configured
	s.hadDeadline = false
	w.JobTimeout = 0
	job2 := seedJob(t, gdb, NewSummarizeDispatch(1, "m-6", time.Now()))
	w.Handle(context.Background(), job2)
	assert.True(t, s.hadDeadline)
}

func TestHandleBadPayload(t *testing.T) {
	s := &fakeSummarizer{}
	w, gdb := newWorker(t, s)

	job := seedJob(t, gdb, Job{
		UserID:  1,
		Type:    TypeSummarizeDispatch,
		Payload: []byte(`{"meeting_uuid":""}`),
		RunAt:   time.Now(),
		Status:  StatusPending,
	})

	w.Handle(context.Background(), job)

	assert.Empty(t, s.summarized)
	got := reload(t, gdb, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "bad payload", *got.LastError)
}

func TestHandleUnknownType(t *testing.T) {
	s := &fakeSummarizer{}
	w, gdb := newWorker(t, s)

	job := seedJob(t, gdb, Job{
		UserID:  1,
		Type:    "MYSTERY",
		Payload: []byte(`{}`),
		RunAt:   time.Now(),
		Status:  StatusPending,
	})

	w.Handle(context.Background(), job)
	assert.Equal(t, StatusFailed, reload(t, gdb, job.ID).Status)
}

func TestPermanentErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := Permanent(cause)

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermanent(cause))
	assert.NoError(t, Permanent(nil))
}
