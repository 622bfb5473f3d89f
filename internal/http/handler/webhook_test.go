package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pawankumargali/ff-clone/internal/http/middleware"
	"github.com/pawankumargali/ff-clone/internal/jobs"
	"github.com/pawankumargali/ff-clone/internal/meeting"
)

const testSecret = "hush"

func newWebhookServer(t *testing.T) (http.Handler, *meeting.Service) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&meeting.Meeting{}, &jobs.Job{}))

	svc := &meeting.Service{DB: gdb, SummarizeDelay: time.Minute, Log: zerolog.Nop()}

	r := chi.NewRouter()
	wh := &WebhookHandler{Svc: svc, Log: zerolog.Nop()}
	r.With(middleware.WebhookSecret(testSecret)).Post("/webhook/{meetingUuid}", wh.Handle)
	return r, svc
}

func postWebhook(t *testing.T, h http.Handler, uuid, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+uuid, strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedMeeting(t *testing.T, svc *meeting.Service, status meeting.NoteStatus) string {
	t.Helper()
	m, err := svc.CreateMeeting(context.Background(), 1, meeting.CreateMeetingInput{Title: "Webhook Target"})
	require.NoError(t, err)
	if status != meeting.StatusNone {
		require.NoError(t, svc.DB.Model(&meeting.Meeting{}).Where("uuid = ?", m.UUID).
			Update("note_status", status).Error)
	}
	return m.UUID
}

func TestWebhookRequiresSecret(t *testing.T) {
	h, svc := newWebhookServer(t)
	uuid := seedMeeting(t, svc, meeting.StatusRecording)

	rec := postWebhook(t, h, uuid, "", `{"noteStatus":"RECORDED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postWebhook(t, h, uuid, "wrong", `{"noteStatus":"RECORDED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	// the rejection leaks nothing about the meeting
	assert.Equal(t, "forbidden request\n", rec.Body.String())

	// nothing was applied
	m, err := svc.GetByUUID(context.Background(), uuid)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusRecording, m.NoteStatus)
}

func TestWebhookAppliesTransition(t *testing.T) {
	h, svc := newWebhookServer(t)
	uuid := seedMeeting(t, svc, meeting.StatusRecording)

	rec := postWebhook(t, h, uuid, testSecret,
		`{"noteStatus":"RECORDED","audioKey":"a/k.wav","transcriptKey":"a/t.json","message":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())

	m, err := svc.GetByUUID(context.Background(), uuid)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusRecorded, m.NoteStatus)
	require.NotNil(t, m.AudioKey)
	assert.Equal(t, "a/k.wav", *m.AudioKey)
	require.NotNil(t, m.TranscriptKey)
	assert.Equal(t, "a/t.json", *m.TranscriptKey)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	h, svc := newWebhookServer(t)
	uuid := seedMeeting(t, svc, meeting.StatusRecorded)

	rec := postWebhook(t, h, uuid, testSecret, `{"noteStatus":"RECORDED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())
}

func TestWebhookOutOfOrderIgnored(t *testing.T) {
	h, svc := newWebhookServer(t)
	uuid := seedMeeting(t, svc, meeting.StatusNone)

	rec := postWebhook(t, h, uuid, testSecret, `{"noteStatus":"TRANSCRIBED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"ignored"}`, rec.Body.String())

	m, err := svc.GetByUUID(context.Background(), uuid)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusNone, m.NoteStatus)
}

func TestWebhookUnknownMeeting(t *testing.T) {
	h, _ := newWebhookServer(t)

	rec := postWebhook(t, h, "ghost-uuid", testSecret, `{"noteStatus":"RECORDED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookBadPayload(t *testing.T) {
	h, svc := newWebhookServer(t)
	uuid := seedMeeting(t, svc, meeting.StatusRecording)

	rec := postWebhook(t, h, uuid, testSecret, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, h, uuid, testSecret, `{"noteStatus":"EXPLODED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, h, uuid, testSecret, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
