package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/models"
)

type UserHandler struct {
	userRepo *repos.UserRepo
}

func NewUserHandler(repo *repos.UserRepo) *UserHandler {
	return &UserHandler{
		userRepo: repo,
	}
}

// InitializeUser mirrors the identity token into the local users table so
// alerts and preferences have a row to hang off. Re-runs refresh the profile.
func (h UserHandler) InitializeUser(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	id, err := h.userRepo.UpsertUser(user)
	if err != nil {
		return InternalError(err, "initialize user: upsert user")
	}

	return Created(id)
}

func (h UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	var req models.UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	if err := h.userRepo.SetJobMatchNotifications(user.ID, req.JobMatchNotifications); err != nil {
		return InternalError(err, "update preferences: ")
	}

	return Ok(nil)
}
