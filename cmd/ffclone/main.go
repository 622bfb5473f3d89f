package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pawankumargali/ff-clone/internal/auth"
	"github.com/pawankumargali/ff-clone/internal/config"
	"github.com/pawankumargali/ff-clone/internal/db"
	httpx "github.com/pawankumargali/ff-clone/internal/http"
	"github.com/pawankumargali/ff-clone/internal/jobs"
	"github.com/pawankumargali/ff-clone/internal/logging"
	"github.com/pawankumargali/ff-clone/internal/meeting"
	"github.com/pawankumargali/ff-clone/internal/storage"
	"github.com/pawankumargali/ff-clone/internal/summarizer"
	"github.com/pawankumargali/ff-clone/internal/upload"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	// shared external clients, constructed once and passed explicitly
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal().Err(err).Msg("aws config load failed")
	}
	s3Client := s3.NewFromConfig(awsCfg)

	issuer := &upload.Issuer{
		Presigner: s3.NewPresignClient(s3Client),
		Bucket:    cfg.S3Bucket,
		Expires:   cfg.S3PresignExpire,
		MaxBytes:  cfg.S3MaxBytes,
	}

	meetings := &meeting.Service{
		DB:               gdb,
		Uploads:          issuer,
		Artifacts:        &storage.Reader{API: s3Client},
		TranscriptBucket: cfg.S3TranscriptBucket,
		SummarizeDelay:   cfg.SummarizeDelay,
		Log:              log,
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, meetings, log)

	// worker
	summ := &summarizer.Summarizer{
		Meetings: meetings,
		Chat:     openai.NewClient(cfg.OpenAIAPIKey),
		Model:    cfg.OpenAIModel,
		Log:      log,
	}
	worker := &jobs.Worker{
		ID:         "worker-1",
		Repo:       &jobs.Repo{DB: gdb},
		Summarizer: summ,
		Log:        log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
