package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pawankumargali/ff-clone/internal/auth"
	"github.com/pawankumargali/ff-clone/internal/jobs"
	"github.com/pawankumargali/ff-clone/internal/meeting"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which
	// the meeting service relies on for duplicate-title detection
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&meeting.Meeting{},
		&meeting.WebhookEvent{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// A slug is unique per owner: duplicate-title detection, not a key.
	if err := gdb.Exec(`create unique index if not exists uq_meetings_user_slug on meetings(user_id, slug);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_meetings_user_created on meetings(user_id, created_at desc);`,
		`create index if not exists idx_meetings_user_status on meetings(user_id, note_status);`,
		`create index if not exists idx_webhook_events_meeting on webhook_events(meeting_id, id);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
