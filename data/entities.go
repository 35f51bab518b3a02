package data

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jobdeck/alerts.api/enums"
)

type User struct {
	ID                    uuid.UUID `db:"id"`
	Name                  string    `db:"name"`
	DisplayName           string    `db:"display_name"`
	Email                 string    `db:"email"`
	Avatar                string    `db:"avatar"`
	JobMatchNotifications bool      `db:"job_match_notifications"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

// JobAlert is a standing search subscription owned by a user. At least one
// criterion (search query, city, state, skills, job types, experience
// levels) must be present; validation happens at the handler boundary.
type JobAlert struct {
	ID               int64           `db:"id"`
	UserID           uuid.UUID       `db:"user_id"`
	Name             string          `db:"name"`
	Description      string          `db:"description"`
	SearchQuery      string          `db:"search_query"`
	City             string          `db:"city"`
	State            string          `db:"state"`
	JobTypes         pq.StringArray  `db:"job_types"`
	Skills           pq.StringArray  `db:"skills"`
	ExperienceLevels pq.StringArray  `db:"experience_levels"`
	IncludeRemote    bool            `db:"include_remote"`
	IsActive         bool            `db:"is_active"`
	IsPaused         bool            `db:"is_paused"`
	Frequency        enums.Frequency `db:"frequency"`
	LastSentAt       *time.Time      `db:"last_sent_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// JobAlertMatch is one row of the dedup ledger. The unique constraint on
// (alert_id, job_id) is the race-breaker that guarantees at-most-once
// notification per pair; was_sent flips true exactly once, at successful
// dispatch.
// The job title/company/location snapshot is denormalized onto the row at
// match time so notification emails render without reaching back into the
// job store.
type JobAlertMatch struct {
	ID         int64      `db:"id"`
	AlertID    int64      `db:"alert_id"`
	JobID      int64      `db:"job_id"`
	JobTitle   string     `db:"job_title"`
	Company    string     `db:"company"`
	Location   string     `db:"location"`
	MatchScore float64    `db:"match_score"`
	WasSent    bool       `db:"was_sent"`
	SentAt     *time.Time `db:"sent_at"`
	MatchedAt  time.Time  `db:"matched_at"`
}
