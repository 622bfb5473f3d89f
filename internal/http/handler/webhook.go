package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pawankumargali/ff-clone/internal/meeting"
)

// WebhookHandler ingests pipeline progress callbacks. Authentication happens
// in middleware; this handler validates the payload and hands the transition
// to the lifecycle engine.
type WebhookHandler struct {
	Svc *meeting.Service
	Log zerolog.Logger
}

type webhookReq struct {
	NoteStatus string `json:"noteStatus"`
	// Message is diagnostic-only and dropped before anything is persisted.
	Message       *string `json:"message"`
	AudioKey      *string `json:"audioKey"`
	AudioURL      *string `json:"audioUrl"`
	TranscriptKey *string `json:"transcriptKey"`
	TranscriptURL *string `json:"transcriptUrl"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	meetingUUID := chi.URLParam(r, "meetingUuid")

	var req webhookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	status := meeting.NoteStatus(req.NoteStatus)
	if !status.Valid() {
		http.Error(w, "invalid noteStatus", http.StatusBadRequest)
		return
	}

	if req.Message != nil {
		h.Log.Debug().Str("meeting_uuid", meetingUUID).Str("message", *req.Message).Msg("webhook message")
	}

	outcome, err := h.Svc.ApplyWebhookStatus(r.Context(), meetingUUID, meeting.WebhookStatusInput{
		NoteStatus:    status,
		AudioKey:      req.AudioKey,
		AudioURL:      req.AudioURL,
		TranscriptKey: req.TranscriptKey,
		TranscriptURL: req.TranscriptURL,
	})
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Str("meeting_uuid", meetingUUID).Msg("webhook apply failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// Invalid transitions still answer 200: the caller cannot tell "already
	// applied" from "invalid" and must not retry-storm. The distinction
	// lives in the result field and the engine's logs.
	body := map[string]string{"result": "ok"}
	if outcome == meeting.OutcomeIgnored {
		body["result"] = "ignored"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
