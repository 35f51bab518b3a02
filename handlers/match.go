package handlers

import (
	"net/http"
	"strconv"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/models"
)

const (
	defaultMatchPageSize = 20
	maxMatchPageSize     = 100
)

type MatchHandler struct {
	repo *repos.MatchRepo
}

func NewMatchHandler(repo *repos.MatchRepo) *MatchHandler {
	return &MatchHandler{repo}
}

func (h *MatchHandler) GetMatches(w http.ResponseWriter, r *http.Request) Result {
	user := r.Context().Value("user").(data.User)

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultMatchPageSize)
	if limit > maxMatchPageSize {
		limit = maxMatchPageSize
	}
	offset := (page - 1) * limit

	matches, total, err := h.repo.GetMatchesByUserID(user.ID, limit, offset)
	if err != nil {
		return InternalError(err, "get matches: ")
	}

	res := &models.GetMatchesResponse{
		Matches: make([]models.Match, 0, len(matches)),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}
	for _, m := range matches {
		res.Matches = append(res.Matches, models.Match{
			ID:         m.ID,
			AlertID:    m.AlertID,
			JobID:      m.JobID,
			JobTitle:   m.JobTitle,
			Company:    m.Company,
			Location:   m.Location,
			MatchScore: m.MatchScore,
			WasSent:    m.WasSent,
			SentAt:     m.SentAt,
			MatchedAt:  m.MatchedAt,
		})
	}

	return Ok(res)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}
