// Package summarizer turns a finished transcript into structured meeting
// notes via an LLM call and writes the outcome back through the lifecycle
// engine.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pawankumargali/ff-clone/internal/jobs"
	"github.com/pawankumargali/ff-clone/internal/meeting"
)

const systemPrompt = "You are a precise meeting-notes generator. Given a raw meeting transcript extract meeting notes strictly as per the JSON schema. Use UTC for dates. No extra text."

// ChatClient is the slice of the OpenAI client the summarizer needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Summarizer struct {
	Meetings *meeting.Service
	Chat     ChatClient
	Model    string
	Log      zerolog.Logger
}

// Summarize runs the delayed summarization step for one meeting. A nil
// return means the job is settled: either the summary was stored, the
// meeting was already SUMMARIZED, or the failure was recorded on the meeting
// itself. A non-nil return asks the caller to retry, unless marked
// permanent.
func (s *Summarizer) Summarize(ctx context.Context, meetingUUID string) error {
	m, err := s.Meetings.GetByUUID(ctx, meetingUUID)
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}

	switch m.NoteStatus {
	case meeting.StatusSummarized:
		// duplicate trigger, nothing to do
		return nil
	case meeting.StatusTranscribed:
	default:
		// the trigger only ever fires after a TRANSCRIBED transition, so
		// any other status means the pipeline and the queue disagree
		return jobs.Permanent(fmt.Errorf("meeting %s is %s, expected %s", meetingUUID, m.NoteStatus, meeting.StatusTranscribed))
	}

	transcript, err := s.Meetings.GetTranscript(ctx, meetingUUID, m.UserID)
	if err != nil {
		return fmt.Errorf("fetch transcript: %w", err)
	}

	resp, err := s.Chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.Model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "meeting_notes",
				Strict: true,
				Schema: notesSchema,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: wrapTranscript(transcript)},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if content == "" {
		return s.settleFailure(ctx, meetingUUID, "summarizing failed because llm returned no content")
	}

	var notes Notes
	if err := json.Unmarshal([]byte(content), &notes); err != nil {
		s.Log.Warn().Err(err).Str("meeting_uuid", meetingUUID).Msg("summary output unparsable")
		return s.settleFailure(ctx, meetingUUID, content)
	}

	applied, err := s.Meetings.CompleteSummary(ctx, meetingUUID, json.RawMessage(content))
	if err != nil {
		return err
	}
	if !applied {
		// another writer settled the meeting first; their outcome stands
		s.Log.Warn().Str("meeting_uuid", meetingUUID).Msg("summary write lost the race, discarded")
		return nil
	}

	s.Log.Info().Str("meeting_uuid", meetingUUID).Msg("meeting summarized")
	return nil
}

// Abort records a terminal summarization failure on the meeting. Safe to
// call regardless of state: the write only lands if the meeting is still
// TRANSCRIBED.
func (s *Summarizer) Abort(ctx context.Context, meetingUUID, reason string) error {
	_, err := s.Meetings.FailSummary(ctx, meetingUUID, "summarizing failed: "+reason)
	return err
}

func (s *Summarizer) settleFailure(ctx context.Context, meetingUUID, rawText string) error {
	applied, err := s.Meetings.FailSummary(ctx, meetingUUID, rawText)
	if err != nil {
		return err
	}
	if applied {
		s.Log.Warn().Str("meeting_uuid", meetingUUID).Msg("meeting moved to FAILED, raw output kept")
	}
	return nil
}

func wrapTranscript(tr *meeting.TranscriptResults) string {
	body, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		body = []byte("{}")
	}
	return fmt.Sprintf("<TRANSCRIPT_START>\n%s\n<TRANSCRIPT_END>", body)
}
