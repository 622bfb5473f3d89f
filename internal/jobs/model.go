package jobs

import (
	"encoding/json"
	"time"
)

const TypeSummarizeDispatch = "SUMMARIZE_DISPATCH"

const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Type    string `gorm:"type:text;not null"`
	Payload []byte `gorm:"type:jsonb;not null"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type SummarizePayload struct {
	MeetingUUID string `json:"meeting_uuid"`
}

// NewSummarizeDispatch builds the delayed job row that triggers
// summarization for a meeting. It is persisted in the same transaction as
// the status transition that schedules it, so a restart cannot lose it.
func NewSummarizeDispatch(userID uint64, meetingUUID string, runAt time.Time) Job {
	payload, _ := json.Marshal(SummarizePayload{MeetingUUID: meetingUUID})
	return Job{
		UserID:  userID,
		Type:    TypeSummarizeDispatch,
		Payload: payload,
		RunAt:   runAt,
		Status:  StatusPending,
	}
}
