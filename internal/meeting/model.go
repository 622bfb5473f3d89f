package meeting

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Meeting is the sole stateful entity of the pipeline. NoteStatus is the
// single source of truth for pipeline progress; artifact keys are written by
// the stage that produces them and never change afterward.
type Meeting struct {
	ID     uint64 `gorm:"primaryKey"`
	UUID   string `gorm:"uniqueIndex;not null"`
	UserID uint64 `gorm:"index;not null"`

	Title string `gorm:"not null"`
	Link  string `gorm:"not null;default:''"`
	Slug  string `gorm:"not null"`

	NoteStatus NoteStatus `gorm:"type:text;not null;default:'NONE'"`

	AudioKey      *string `gorm:"type:text"`
	AudioURL      *string `gorm:"type:text"`
	TranscriptKey *string `gorm:"type:text"`
	TranscriptURL *string `gorm:"type:text"`

	SummaryJSON    json.RawMessage `gorm:"type:jsonb"`
	SummaryRawText *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// WebhookEvent is an append-only log of inbound callbacks and what the
// lifecycle engine did with them. Diagnostic only; inserts are best-effort
// and nothing on the request path reads it back.
type WebhookEvent struct {
	ID        uint64 `gorm:"primaryKey"`
	MeetingID uint64 `gorm:"index;not null"`

	RequestedStatus NoteStatus `gorm:"type:text;not null"`
	Outcome         string     `gorm:"type:text;not null"`

	// Provided lists which artifact fields the callback carried.
	Provided pq.StringArray  `gorm:"type:text[]"`
	Payload  json.RawMessage `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
}
