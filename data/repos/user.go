package repos

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jobdeck/alerts.api/data"
)

const EmailTypeJobMatchNotifications = "jobMatchNotifications"

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db}
}

func (r *UserRepo) UpsertUser(user data.User) (uuid.UUID, error) {
	query := `
		INSERT INTO users (id, name, display_name, email, avatar)
		VALUES (:id, :name, :display_name, :email, :avatar)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, display_name = EXCLUDED.display_name,
		    email = EXCLUDED.email, avatar = EXCLUDED.avatar, updated_at = now()
		RETURNING id`

	rows, err := r.db.NamedQuery(query, user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert user: %w", err)
	}
	defer rows.Close()

	var id uuid.UUID
	if rows.Next() {
		if err = rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("scan returned id: %w", err)
		}
	}

	return id, nil
}

func (r *UserRepo) GetUserByID(id uuid.UUID) (*data.User, error) {
	var user data.User
	err := r.db.Get(&user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// CanSendEmailType gates outbound email by the user's preference flags.
// Unknown types and unknown users are never sendable.
func (r *UserRepo) CanSendEmailType(userID uuid.UUID, emailType string) (bool, error) {
	if emailType != EmailTypeJobMatchNotifications {
		return false, nil
	}

	var enabled bool
	query := "SELECT job_match_notifications FROM users WHERE id = $1"
	err := r.db.Get(&enabled, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get email preference: %w", err)
	}

	return enabled, nil
}

func (r *UserRepo) SetJobMatchNotifications(userID uuid.UUID, enabled bool) error {
	query := "UPDATE users SET job_match_notifications = $2, updated_at = now() WHERE id = $1"
	_, err := r.db.Exec(query, userID, enabled)
	if err != nil {
		return fmt.Errorf("set email preference: %w", err)
	}

	return nil
}
