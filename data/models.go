package data

import "github.com/google/uuid"

// AlertOwner pairs an alert with the owning user's contact fields, loaded
// in one join when a notification is being assembled.
type AlertOwner struct {
	AlertID       int64     `db:"alert_id"`
	AlertName     string    `db:"alert_name"`
	UserID        uuid.UUID `db:"user_id"`
	Email         string    `db:"email"`
	DisplayName   string    `db:"display_name"`
	Notifications bool      `db:"job_match_notifications"`
}
