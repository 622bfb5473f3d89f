package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawankumargali/ff-clone/internal/jobs"
	"github.com/pawankumargali/ff-clone/internal/upload"
)

var (
	ErrNotFound              = errors.New("meeting not found")
	ErrDuplicateTitle        = errors.New("meeting with similar title exists")
	ErrUploadClosed          = errors.New("meeting audio already recorded")
	ErrNotTranscribed        = errors.New("meeting not yet transcribed")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
)

// errStaleStatus signals that the status read before a compare-and-swap went
// stale; the caller rereads and reclassifies.
var errStaleStatus = errors.New("stale status")

// UploadIssuer produces scoped write credentials for direct uploads.
type UploadIssuer interface {
	Issue(ctx context.Context, req upload.Request) (*upload.Grant, error)
}

// ArtifactReader fetches pipeline artifacts from object storage.
type ArtifactReader interface {
	ReadJSON(ctx context.Context, bucket, key string, v any) error
}

// Service owns the meeting entity and its status state machine. It is the
// only component that writes noteStatus and the pipeline artifact keys.
type Service struct {
	DB        *gorm.DB
	Uploads   UploadIssuer
	Artifacts ArtifactReader

	TranscriptBucket string
	SummarizeDelay   time.Duration
	Log              zerolog.Logger
}

type CreateMeetingInput struct {
	Title string
	Link  string
}

func (s *Service) CreateMeeting(ctx context.Context, userID uint64, in CreateMeetingInput) (*Meeting, error) {
	title := strings.TrimSpace(in.Title)
	normalized := slug.Make(title)

	m := Meeting{
		UUID:       uuid.NewString(),
		UserID:     userID,
		Title:      title,
		Link:       in.Link,
		Slug:       normalized,
		NoteStatus: StatusNone,
	}
	err := s.DB.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the unique index on (user_id, slug) is the arbiter, so a
		// concurrent duplicate cannot slip past a read-then-insert; the
		// read-back only recovers the conflicting title for the message
		var existing Meeting
		readErr := s.DB.WithContext(ctx).
			Where("user_id = ? AND slug = ?", userID, normalized).
			First(&existing).Error
		if readErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTitle, existing.Title)
		}
		return nil, ErrDuplicateTitle
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMeetings returns the owner's meetings newest first. FAILED meetings
// are filtered out unless includeFailed is set; they stay reachable through
// GetMeeting either way.
func (s *Service) ListMeetings(ctx context.Context, userID uint64, includeFailed bool) ([]Meeting, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if !includeFailed {
		q = q.Where("note_status <> ?", StatusFailed)
	}

	var rows []Meeting
	if err := q.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) GetMeeting(ctx context.Context, meetingUUID string, userID uint64) (*Meeting, error) {
	var m Meeting
	err := s.DB.WithContext(ctx).
		Where("uuid = ? AND user_id = ?", meetingUUID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByUUID looks a meeting up without owner scoping. Webhook ingestion and
// the summarizer act on behalf of trusted systems, not users.
func (s *Service) GetByUUID(ctx context.Context, meetingUUID string) (*Meeting, error) {
	var m Meeting
	err := s.DB.WithContext(ctx).Where("uuid = ?", meetingUUID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type AuthorizeUploadInput struct {
	ContentType string
	FileName    string
	FileSize    int64
}

// AuthorizeUpload issues a scoped upload credential and moves the meeting to
// RECORDING. Re-authorization is permitted only until the recording lands;
// once RECORDED or later the audio asset is fixed for the meeting's lifetime.
func (s *Service) AuthorizeUpload(ctx context.Context, meetingUUID string, userID uint64, in AuthorizeUploadInput) (*upload.Grant, *Meeting, error) {
	m, err := s.GetMeeting(ctx, meetingUUID, userID)
	if err != nil {
		return nil, nil, err
	}
	if m.NoteStatus != StatusNone && m.NoteStatus != StatusRecording {
		return nil, nil, fmt.Errorf("%w: status %s", ErrUploadClosed, m.NoteStatus)
	}

	grant, err := s.Uploads.Issue(ctx, upload.Request{
		MeetingUUID: meetingUUID,
		UserID:      userID,
		ContentType: in.ContentType,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
	})
	if err != nil {
		return nil, nil, err
	}

	audioURL := grant.URL + "/" + grant.Key
	res := s.DB.WithContext(ctx).Model(&Meeting{}).
		Where("uuid = ? AND note_status IN ?", meetingUUID, []NoteStatus{StatusNone, StatusRecording}).
		Updates(map[string]any{
			"note_status": StatusRecording,
			"audio_key":   grant.Key,
			"audio_url":   audioURL,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		// a pipeline callback advanced the meeting between read and write
		return nil, nil, fmt.Errorf("%w: recording already completed", ErrUploadClosed)
	}

	m, err = s.GetMeeting(ctx, meetingUUID, userID)
	if err != nil {
		return nil, nil, err
	}
	return grant, m, nil
}

// ApplyOutcome names what the engine did with a requested transition.
type ApplyOutcome string

const (
	OutcomeApplied   ApplyOutcome = "applied"
	OutcomeDuplicate ApplyOutcome = "duplicate"
	OutcomeIgnored   ApplyOutcome = "ignored"
)

type WebhookStatusInput struct {
	NoteStatus    NoteStatus
	AudioKey      *string
	AudioURL      *string
	TranscriptKey *string
	TranscriptURL *string
}

// ApplyWebhookStatus merges an external worker's progress report into the
// meeting. The current-status check and the write happen as one conditional
// UPDATE keyed by uuid, so concurrent or duplicate deliveries cannot apply
// the same transition twice. Invalid transitions are reported, not errored:
// external callers cannot tell "already applied" from "invalid" and must not
// retry-storm.
func (s *Service) ApplyWebhookStatus(ctx context.Context, meetingUUID string, in WebhookStatusInput) (ApplyOutcome, error) {
	for attempt := 0; attempt < 3; attempt++ {
		m, err := s.GetByUUID(ctx, meetingUUID)
		if err != nil {
			return "", err
		}

		switch Classify(m.NoteStatus, in.NoteStatus) {
		case TransitionInvalid:
			s.Log.Warn().
				Str("meeting_uuid", meetingUUID).
				Str("current", string(m.NoteStatus)).
				Str("requested", string(in.NoteStatus)).
				Msg("webhook transition ignored")
			s.recordWebhookEvent(ctx, m, in, OutcomeIgnored)
			return OutcomeIgnored, nil

		case TransitionNoop:
			s.recordWebhookEvent(ctx, m, in, OutcomeDuplicate)
			return OutcomeDuplicate, nil
		}

		err = s.advance(ctx, m, in)
		if errors.Is(err, errStaleStatus) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.recordWebhookEvent(ctx, m, in, OutcomeApplied)
		return OutcomeApplied, nil
	}
	return "", fmt.Errorf("meeting %s: concurrent status updates, giving up", meetingUUID)
}

// advance commits one forward transition, its artifact writes, and the
// summarize-job enqueue as a single transaction conditioned on the status m
// was read with.
func (s *Service) advance(ctx context.Context, m *Meeting, in WebhookStatusInput) error {
	updates := map[string]any{
		"note_status": in.NoteStatus,
		"updated_at":  time.Now(),
	}
	// artifact keys are write-once
	if in.AudioKey != nil && m.AudioKey == nil {
		updates["audio_key"] = *in.AudioKey
	}
	if in.AudioURL != nil && m.AudioURL == nil {
		updates["audio_url"] = *in.AudioURL
	}
	if in.TranscriptKey != nil && m.TranscriptKey == nil {
		updates["transcript_key"] = *in.TranscriptKey
	}
	if in.TranscriptURL != nil && m.TranscriptURL == nil {
		updates["transcript_url"] = *in.TranscriptURL
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Meeting{}).
			Where("uuid = ? AND note_status = ?", m.UUID, m.NoteStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleStatus
		}

		// Schedule summarization exactly once, on the transition that made
		// the transcript available. Duplicate callbacks classify as noop
		// and never reach this point.
		if in.NoteStatus == StatusTranscribed {
			job := jobs.NewSummarizeDispatch(m.UserID, m.UUID, time.Now().Add(s.SummarizeDelay))
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTranscript returns the parsed transcript body for a meeting that has
// completed transcription. A missing artifact key or a non-completed
// upstream job is a data-integrity fault, not a client error.
func (s *Service) GetTranscript(ctx context.Context, meetingUUID string, userID uint64) (*TranscriptResults, error) {
	m, err := s.GetMeeting(ctx, meetingUUID, userID)
	if err != nil {
		return nil, err
	}
	if m.NoteStatus != StatusTranscribed && m.NoteStatus != StatusSummarized {
		return nil, fmt.Errorf("%w: status %s", ErrNotTranscribed, m.NoteStatus)
	}
	if m.TranscriptKey == nil || *m.TranscriptKey == "" {
		return nil, fmt.Errorf("%w: no transcript key recorded", ErrTranscriptUnavailable)
	}

	var doc TranscriptDocument
	if err := s.Artifacts.ReadJSON(ctx, s.TranscriptBucket, *m.TranscriptKey, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
	}
	if doc.Status != transcriptJobCompleted {
		return nil, fmt.Errorf("%w: transcription job status %s", ErrTranscriptUnavailable, doc.Status)
	}
	return &doc.Results, nil
}

// CompleteSummary moves TRANSCRIBED to SUMMARIZED and stores the structured
// result. Returns false when the meeting was not in TRANSCRIBED anymore.
func (s *Service) CompleteSummary(ctx context.Context, meetingUUID string, summary json.RawMessage) (bool, error) {
	return s.casFromTranscribed(ctx, meetingUUID, map[string]any{
		"note_status":      StatusSummarized,
		"summary_json":     summary,
		"summary_raw_text": nil,
		"updated_at":       time.Now(),
	})
}

// FailSummary moves TRANSCRIBED to FAILED and keeps the raw model output (or
// failure reason) verbatim for diagnosis.
func (s *Service) FailSummary(ctx context.Context, meetingUUID string, rawText string) (bool, error) {
	return s.casFromTranscribed(ctx, meetingUUID, map[string]any{
		"note_status":      StatusFailed,
		"summary_json":     nil,
		"summary_raw_text": rawText,
		"updated_at":       time.Now(),
	})
}

func (s *Service) casFromTranscribed(ctx context.Context, meetingUUID string, updates map[string]any) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&Meeting{}).
		Where("uuid = ? AND note_status = ?", meetingUUID, StatusTranscribed).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// recordWebhookEvent appends to the callback log after the transition has
// settled. Best-effort: the log is diagnostic and must never fail a webhook.
func (s *Service) recordWebhookEvent(ctx context.Context, m *Meeting, in WebhookStatusInput, outcome ApplyOutcome) {
	var provided []string
	if in.AudioKey != nil {
		provided = append(provided, "audioKey")
	}
	if in.AudioURL != nil {
		provided = append(provided, "audioUrl")
	}
	if in.TranscriptKey != nil {
		provided = append(provided, "transcriptKey")
	}
	if in.TranscriptURL != nil {
		provided = append(provided, "transcriptUrl")
	}

	payload, _ := json.Marshal(map[string]any{
		"noteStatus":    in.NoteStatus,
		"audioKey":      in.AudioKey,
		"audioUrl":      in.AudioURL,
		"transcriptKey": in.TranscriptKey,
		"transcriptUrl": in.TranscriptURL,
	})

	ev := WebhookEvent{
		MeetingID:       m.ID,
		RequestedStatus: in.NoteStatus,
		Outcome:         string(outcome),
		Provided:        pq.StringArray(provided),
		Payload:         payload,
	}
	if err := s.DB.WithContext(ctx).Create(&ev).Error; err != nil {
		s.Log.Warn().Err(err).Str("meeting_uuid", m.UUID).Msg("webhook event log write failed")
	}
}
