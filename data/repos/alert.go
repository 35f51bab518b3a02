package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/enums"
)

type AlertRepo struct {
	db *sqlx.DB
}

func NewAlertRepo(db *sqlx.DB) *AlertRepo {
	return &AlertRepo{db}
}

func (r *AlertRepo) CreateAlert(alert data.JobAlert) (int64, error) {
	query := `
		INSERT INTO job_alerts
			(user_id, name, description, search_query, city, state,
			 job_types, skills, experience_levels, include_remote, frequency)
		VALUES
			(:user_id, :name, :description, :search_query, :city, :state,
			 :job_types, :skills, :experience_levels, :include_remote, :frequency)
		RETURNING id`

	rows, err := r.db.NamedQuery(query, alert)
	if err != nil {
		return 0, fmt.Errorf("create alert: %w", err)
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err = rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan returned id: %w", err)
		}
	}

	return id, nil
}

func (r *AlertRepo) GetAlertByID(id int64, userID uuid.UUID) (*data.JobAlert, error) {
	var alert data.JobAlert
	query := "SELECT * FROM job_alerts WHERE id = $1 AND user_id = $2"

	err := r.db.Get(&alert, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}

	return &alert, nil
}

// GetAlert loads an alert without a user scope, for the background pipeline.
func (r *AlertRepo) GetAlert(id int64) (*data.JobAlert, error) {
	var alert data.JobAlert
	err := r.db.Get(&alert, "SELECT * FROM job_alerts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}

	return &alert, nil
}

func (r *AlertRepo) GetAlertsByUserID(userID uuid.UUID) ([]data.JobAlert, error) {
	var alerts []data.JobAlert
	query := `
		SELECT *
		FROM job_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC`

	err := r.db.Select(&alerts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get alerts by user id: %w", err)
	}

	return alerts, nil
}

// GetDueAlerts returns the active, unpaused alerts on the given cadence.
func (r *AlertRepo) GetDueAlerts(frequency enums.Frequency) ([]data.JobAlert, error) {
	var alerts []data.JobAlert
	query := `
		SELECT *
		FROM job_alerts
		WHERE frequency = $1 AND is_active = true AND is_paused = false
		ORDER BY id`

	err := r.db.Select(&alerts, query, frequency)
	if err != nil {
		return nil, fmt.Errorf("get due alerts: %w", err)
	}

	return alerts, nil
}

func (r *AlertRepo) UpdateAlert(alert data.JobAlert) error {
	query := `
		UPDATE job_alerts
		SET name = :name, description = :description, search_query = :search_query,
		    city = :city, state = :state, job_types = :job_types, skills = :skills,
		    experience_levels = :experience_levels, include_remote = :include_remote,
		    is_paused = :is_paused, frequency = :frequency, updated_at = now()
		WHERE id = :id AND user_id = :user_id`

	rows, err := r.db.NamedQuery(query, alert)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	defer rows.Close()

	return nil
}

// DeactivateAlert soft-deletes: the row and its match history survive.
func (r *AlertRepo) DeactivateAlert(id int64, userID uuid.UUID) error {
	query := "UPDATE job_alerts SET is_active = false, updated_at = now() WHERE id = $1 AND user_id = $2"
	_, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate alert: %w", err)
	}

	return nil
}

// AdvanceLastSent moves the watermark forward. The guard keeps it monotonic
// even if a stale delivery task lands after a newer scan already advanced it.
func (r *AlertRepo) AdvanceLastSent(id int64, ts time.Time) error {
	query := `
		UPDATE job_alerts
		SET last_sent_at = $2, updated_at = now()
		WHERE id = $1 AND (last_sent_at IS NULL OR last_sent_at < $2)`

	_, err := r.db.Exec(query, id, ts)
	if err != nil {
		return fmt.Errorf("advance last sent: %w", err)
	}

	return nil
}

func (r *AlertRepo) GetAlertOwner(alertID int64) (*data.AlertOwner, error) {
	var owner data.AlertOwner
	query := `
		SELECT a.id AS alert_id, a.name AS alert_name,
		       u.id AS user_id, u.email, u.display_name, u.job_match_notifications
		FROM job_alerts a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`

	err := r.db.Get(&owner, query, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert owner: %w", err)
	}

	return &owner, nil
}
