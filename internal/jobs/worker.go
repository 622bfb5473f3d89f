package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Summarizer runs the delayed summarization step for one meeting.
type Summarizer interface {
	// Summarize produces and persists the meeting summary. A nil return
	// means the job is finished, including the case where the summarizer
	// itself moved the meeting to FAILED.
	Summarize(ctx context.Context, meetingUUID string) error
	// Abort moves a still-transcribed meeting to FAILED with the given
	// reason. Called when the job gives up, so summarization failure never
	// silently leaves the meeting in TRANSCRIBED.
	Abort(ctx context.Context, meetingUUID, reason string) error
}

type Worker struct {
	ID         string
	Repo       *Repo
	Summarizer Summarizer
	Log        zerolog.Logger

	// Tick defaults to 800ms when zero.
	Tick time.Duration
	// JobTimeout bounds one Handle invocation, external calls included.
	// Defaults to 2 minutes when zero. Must stay under the 5-minute
	// stuck-RUNNING requeue window or a slow job gets claimed twice.
	JobTimeout time.Duration
}

func (w *Worker) Run(ctx context.Context) {
	tick := w.Tick
	if tick == 0 {
		tick = 800 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error().Err(err).Msg("job claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.Handle(ctx, job)
		}
	}
}

func (w *Worker) Handle(ctx context.Context, job *Job) {
	timeout := w.JobTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch job.Type {
	case TypeSummarizeDispatch:
		w.handleSummarize(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleSummarize(ctx context.Context, job *Job) {
	var p SummarizePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.MeetingUUID == "" {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	err := w.Summarizer.Summarize(ctx, p.MeetingUUID)
	if err == nil {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	if IsPermanent(err) {
		w.Log.Error().Err(err).Str("meeting_uuid", p.MeetingUUID).Msg("summarize failed permanently")
		_ = w.Summarizer.Abort(ctx, p.MeetingUUID, err.Error())
		_ = w.Repo.MarkFailed(job.ID, err.Error())
		return
	}

	w.retry(ctx, job, p.MeetingUUID, err)
}

func (w *Worker) retry(ctx context.Context, job *Job, meetingUUID string, cause error) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.Log.Error().Err(cause).Str("meeting_uuid", meetingUUID).Msg("summarize retries exhausted")
		_ = w.Summarizer.Abort(ctx, meetingUUID, cause.Error())
		_ = w.Repo.MarkFailed(job.ID, cause.Error())
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	w.Log.Warn().Err(cause).Str("meeting_uuid", meetingUUID).Int("attempt", attempts).Msg("summarize failed, retrying")
	_ = w.Repo.RetryLater(job.ID, attempts, next, cause.Error())
}

// PermanentError marks a job error that must not be retried.
type PermanentError struct {
	Err error
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
