package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/enums"
	"github.com/jobdeck/alerts.api/models"
)

type AlertHandler struct {
	repo *repos.AlertRepo
}

func NewAlertHandler(repo *repos.AlertRepo) *AlertHandler {
	return &AlertHandler{repo}
}

func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	var req models.CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	alert := data.JobAlert{
		UserID:           user.ID,
		Name:             strings.TrimSpace(req.Name),
		Description:      strings.TrimSpace(req.Description),
		SearchQuery:      strings.TrimSpace(req.SearchQuery),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		JobTypes:         normalizeList(req.JobTypes),
		Skills:           normalizeList(req.Skills),
		ExperienceLevels: normalizeList(req.ExperienceLevels),
		IncludeRemote:    req.IncludeRemote,
		Frequency:        enums.Frequency(req.Frequency),
	}

	if msg := validateAlert(alert); msg != "" {
		return BadRequest(msg)
	}

	id, err := h.repo.CreateAlert(alert)
	if err != nil {
		return InternalError(err, "create alert: ")
	}

	return Created(id)
}

func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	alerts, err := h.repo.GetAlertsByUserID(user.ID)
	if err != nil {
		return InternalError(err, "get alerts: ")
	}

	res := &models.GetAlertsResponse{Alerts: make([]models.Alert, 0)}
	for _, a := range alerts {
		res.Alerts = append(res.Alerts, toAlertModel(a))
	}

	return Ok(res)
}

func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid alert ID.")
	}

	alert, err := h.repo.GetAlertByID(id, user.ID)
	if err != nil {
		return InternalError(err, "get alert: ")
	}
	if alert == nil {
		return NotFound("Alert not found.")
	}

	return Ok(toAlertModel(*alert))
}

func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid alert ID.")
	}

	var req models.UpdateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	existing, err := h.repo.GetAlertByID(id, user.ID)
	if err != nil {
		return InternalError(err, "update alert: get alert: ")
	}
	if existing == nil {
		return NotFound("Alert not found.")
	}

	alert := data.JobAlert{
		ID:               id,
		UserID:           user.ID,
		Name:             strings.TrimSpace(req.Name),
		Description:      strings.TrimSpace(req.Description),
		SearchQuery:      strings.TrimSpace(req.SearchQuery),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		JobTypes:         normalizeList(req.JobTypes),
		Skills:           normalizeList(req.Skills),
		ExperienceLevels: normalizeList(req.ExperienceLevels),
		IncludeRemote:    req.IncludeRemote,
		IsPaused:         req.IsPaused,
		Frequency:        enums.Frequency(req.Frequency),
	}

	if msg := validateAlert(alert); msg != "" {
		return BadRequest(msg)
	}

	if err := h.repo.UpdateAlert(alert); err != nil {
		return InternalError(err, "update alert: ")
	}

	return Ok(nil)
}

func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return BadRequest("Invalid alert ID.")
	}

	if err := h.repo.DeactivateAlert(id, user.ID); err != nil {
		return InternalError(err, "delete alert: ")
	}

	return Ok(nil)
}

// validateAlert returns an empty string when the alert is acceptable. An
// alert with no criteria at all would match every job in the index, so at
// least one of search query, city, state, skills, job types, or experience
// levels must be set.
func validateAlert(alert data.JobAlert) string {
	if alert.Name == "" {
		return "Name is required."
	}
	if len(alert.Name) > 100 {
		return "Name must be at most 100 characters."
	}
	if !enums.ValidFrequency(string(alert.Frequency)) {
		return "Frequency must be daily, weekly, or monthly."
	}

	hasCriterion := alert.SearchQuery != "" ||
		alert.City != "" ||
		alert.State != "" ||
		len(alert.Skills) > 0 ||
		len(alert.JobTypes) > 0 ||
		len(alert.ExperienceLevels) > 0

	if !hasCriterion {
		return "At least one search criterion is required."
	}

	for _, jt := range alert.JobTypes {
		if !enums.ValidJobType(jt) {
			return "Invalid job type: " + jt
		}
	}
	for _, exp := range alert.ExperienceLevels {
		if !enums.ValidExperienceLevel(exp) {
			return "Invalid experience level: " + exp
		}
	}

	return ""
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func toAlertModel(a data.JobAlert) models.Alert {
	return models.Alert{
		ID:               a.ID,
		UserID:           a.UserID,
		Name:             a.Name,
		Description:      a.Description,
		SearchQuery:      a.SearchQuery,
		City:             a.City,
		State:            a.State,
		JobTypes:         a.JobTypes,
		Skills:           a.Skills,
		ExperienceLevels: a.ExperienceLevels,
		IncludeRemote:    a.IncludeRemote,
		IsActive:         a.IsActive,
		IsPaused:         a.IsPaused,
		Frequency:        string(a.Frequency),
		LastSentAt:       a.LastSentAt,
		CreatedAt:        a.CreatedAt,
	}
}
