package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawankumargali/ff-clone/internal/auth"
	"github.com/pawankumargali/ff-clone/internal/config"
	"github.com/pawankumargali/ff-clone/internal/http/handler"
	mw "github.com/pawankumargali/ff-clone/internal/http/middleware"
	"github.com/pawankumargali/ff-clone/internal/meeting"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, meetings *meeting.Service, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	mh := &handler.MeetingHandler{Svc: meetings}
	r.Route("/meetings", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", mh.Create)
		r.Get("/", mh.List)

		r.Get("/{uuid}", mh.Get)
		r.Get("/{uuid}/status", mh.Status)
		r.Get("/{uuid}/transcript", mh.Transcript)
		r.Post("/{uuid}/upload/presign", mh.Presign)
	})

	wh := &handler.WebhookHandler{Svc: meetings, Log: log}
	r.With(mw.WebhookSecret(cfg.WebhookSecret)).Post("/webhook/{meetingUuid}", wh.Handle)

	return r
}
