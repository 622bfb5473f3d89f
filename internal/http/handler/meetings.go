package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawankumargali/ff-clone/internal/auth"
	"github.com/pawankumargali/ff-clone/internal/meeting"
	"github.com/pawankumargali/ff-clone/internal/upload"
)

type MeetingHandler struct {
	Svc *meeting.Service
}

type meetingDTO struct {
	UUID           string          `json:"uuid"`
	Title          string          `json:"title"`
	Link           string          `json:"link"`
	NoteStatus     string          `json:"noteStatus"`
	AudioKey       *string         `json:"audioKey"`
	AudioURL       *string         `json:"audioUrl"`
	TranscriptKey  *string         `json:"transcriptKey"`
	TranscriptURL  *string         `json:"transcriptUrl"`
	SummaryJSON    json.RawMessage `json:"summaryJson"`
	SummaryRawText *string         `json:"summaryRawText"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func toDTO(m *meeting.Meeting) meetingDTO {
	return meetingDTO{
		UUID:           m.UUID,
		Title:          m.Title,
		Link:           m.Link,
		NoteStatus:     string(m.NoteStatus),
		AudioKey:       m.AudioKey,
		AudioURL:       m.AudioURL,
		TranscriptKey:  m.TranscriptKey,
		TranscriptURL:  m.TranscriptURL,
		SummaryJSON:    m.SummaryJSON,
		SummaryRawText: m.SummaryRawText,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type createMeetingReq struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createMeetingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}

	m, err := h.Svc.CreateMeeting(r.Context(), uid, meeting.CreateMeetingInput{
		Title: req.Title,
		Link:  req.Link,
	})
	if err != nil {
		if errors.Is(err, meeting.ErrDuplicateTitle) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"uuid":       m.UUID,
		"title":      m.Title,
		"noteStatus": string(m.NoteStatus),
		"createdAt":  m.CreatedAt,
		"updatedAt":  m.UpdatedAt,
	})
}

// List hides FAILED meetings by default; pass include_failed=true to see
// them. Failed meetings always remain reachable by uuid.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	includeFailed := r.URL.Query().Get("include_failed") == "true"
	rows, err := h.Svc.ListMeetings(r.Context(), uid, includeFailed)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]meetingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	m, err := h.Svc.GetMeeting(r.Context(), chi.URLParam(r, "uuid"), uid)
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(m))
}

func (h *MeetingHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	m, err := h.Svc.GetMeeting(r.Context(), chi.URLParam(r, "uuid"), uid)
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(m.NoteStatus)})
}

func (h *MeetingHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	tr, err := h.Svc.GetTranscript(r.Context(), chi.URLParam(r, "uuid"), uid)
	if err != nil {
		switch {
		case errors.Is(err, meeting.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, meeting.ErrNotTranscribed):
			http.Error(w, "meeting not yet transcribed", http.StatusBadRequest)
		default:
			// artifact pointer present but unreadable, or upstream job not
			// completed: server fault, no internal detail leaked
			http.Error(w, "internal server error. please try again", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tr)
}

type presignReq struct {
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

func (h *MeetingHandler) Presign(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req presignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" || req.FileName == "" || req.FileSize <= 0 {
		http.Error(w, "contentType, fileName and fileSize required", http.StatusBadRequest)
		return
	}

	grant, m, err := h.Svc.AuthorizeUpload(r.Context(), chi.URLParam(r, "uuid"), uid, meeting.AuthorizeUploadInput{
		ContentType: req.ContentType,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
	})
	if err != nil {
		switch {
		case errors.Is(err, meeting.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, meeting.ErrUploadClosed),
			errors.Is(err, upload.ErrContentType),
			errors.Is(err, upload.ErrFileSize):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"meeting": map[string]any{
			"uuid":       m.UUID,
			"noteStatus": string(m.NoteStatus),
			"updatedAt":  m.UpdatedAt,
		},
		"uploadParams": grant,
	})
}
