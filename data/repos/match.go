package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jobdeck/alerts.api/data"
)

// MatchRepo is the dedup ledger. The unique constraint on (alert_id, job_id)
// is the authoritative race-breaker; nothing at the scheduler level prevents
// two cycles from seeing the same job.
type MatchRepo struct {
	db *sqlx.DB
}

func NewMatchRepo(db *sqlx.DB) *MatchRepo {
	return &MatchRepo{db}
}

// UpsertMatch records a match if the pair is new and reports the row's
// delivery state. alreadySent=true means the pair was notified in a prior
// cycle and must be skipped; an existing unsent row is a retry candidate.
func (r *MatchRepo) UpsertMatch(match data.JobAlertMatch) (id int64, alreadySent bool, err error) {
	query := `
		INSERT INTO job_alert_matches
			(alert_id, job_id, job_title, company, location, match_score, matched_at)
		VALUES
			(:alert_id, :job_id, :job_title, :company, :location, :match_score, now())
		ON CONFLICT (alert_id, job_id) DO NOTHING
		RETURNING id`

	rows, err := r.db.NamedQuery(query, match)
	if err != nil {
		return 0, false, fmt.Errorf("upsert match: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err = rows.Scan(&id); err != nil {
			return 0, false, fmt.Errorf("scan returned id: %w", err)
		}
		return id, false, nil
	}

	// Conflict: the pair exists from an earlier cycle.
	var existing struct {
		ID      int64 `db:"id"`
		WasSent bool  `db:"was_sent"`
	}
	query = "SELECT id, was_sent FROM job_alert_matches WHERE alert_id = $1 AND job_id = $2"
	err = r.db.Get(&existing, query, match.AlertID, match.JobID)
	if err != nil {
		return 0, false, fmt.Errorf("get existing match: %w", err)
	}

	return existing.ID, existing.WasSent, nil
}

// GetUnsentByIDs reloads ledger rows for a delivery attempt, dropping any
// that were sent in the meantime.
func (r *MatchRepo) GetUnsentByIDs(ids []int64) ([]data.JobAlertMatch, error) {
	if len(ids) == 0 {
		return []data.JobAlertMatch{}, nil
	}

	var matches []data.JobAlertMatch
	query, args, err := sqlx.In(`
		SELECT id, alert_id, job_id, job_title, company, location, match_score, was_sent, sent_at, matched_at
		FROM job_alert_matches
		WHERE id IN (?) AND was_sent = false
		ORDER BY match_score DESC, matched_at ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build get unsent matches: %w", err)
	}
	query = r.db.Rebind(query)

	err = r.db.Select(&matches, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get unsent matches: %w", err)
	}

	return matches, nil
}

// MarkSent flips was_sent exactly once; rows already sent are untouched.
func (r *MatchRepo) MarkSent(ids []int64, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE job_alert_matches
		SET was_sent = true, sent_at = ?
		WHERE id IN (?) AND was_sent = false`, sentAt, ids)
	if err != nil {
		return fmt.Errorf("build mark sent: %w", err)
	}
	query = r.db.Rebind(query)

	_, err = r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	return nil
}

func (r *MatchRepo) GetMatchesByUserID(userID uuid.UUID, limit, offset int) ([]data.JobAlertMatch, int, error) {
	var matches []data.JobAlertMatch
	query := `
		SELECT m.id, m.alert_id, m.job_id, m.job_title, m.company, m.location,
		       m.match_score, m.was_sent, m.sent_at, m.matched_at
		FROM job_alert_matches m
		JOIN job_alerts a ON a.id = m.alert_id
		WHERE a.user_id = $1
		ORDER BY m.matched_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.Select(&matches, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get matches by user id: %w", err)
	}

	var total int
	query = `
		SELECT COUNT(*)
		FROM job_alert_matches m
		JOIN job_alerts a ON a.id = m.alert_id
		WHERE a.user_id = $1`
	err = r.db.Get(&total, query, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("count matches by user id: %w", err)
	}

	return matches, total, nil
}
