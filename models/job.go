package models

import (
	"time"

	"github.com/jobdeck/alerts.api/search"
)

type IndexJobRequest struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Description string     `json:"description"`
	City        string     `json:"city"`
	State       string     `json:"state"`
	Country     string     `json:"country"`
	IsRemote    bool       `json:"isRemote"`
	IsActive    bool       `json:"isActive"`
	Experience  string     `json:"experience"`
	JobType     string     `json:"jobType"`
	Skills      []string   `json:"skills"`
	CreatedAt   *time.Time `json:"createdAt"`
}

type UpdateJobRequest struct {
	Fields map[string]any `json:"fields"`
}

func (r IndexJobRequest) ToJob() search.Job {
	createdAt := time.Now().UTC()
	if r.CreatedAt != nil {
		createdAt = *r.CreatedAt
	}

	return search.Job{
		ID:          r.ID,
		Title:       r.Title,
		Company:     r.Company,
		Description: r.Description,
		City:        r.City,
		State:       r.State,
		Country:     r.Country,
		IsRemote:    r.IsRemote,
		IsActive:    r.IsActive,
		Experience:  r.Experience,
		JobType:     r.JobType,
		Skills:      r.Skills,
		CreatedAt:   createdAt,
	}
}
