package models

import (
	"time"

	"github.com/google/uuid"
)

type CreateAlertRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	SearchQuery      string   `json:"searchQuery"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	JobTypes         []string `json:"jobTypes"`
	Skills           []string `json:"skills"`
	ExperienceLevels []string `json:"experienceLevels"`
	IncludeRemote    bool     `json:"includeRemote"`
	Frequency        string   `json:"frequency"`
}

type UpdateAlertRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	SearchQuery      string   `json:"searchQuery"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	JobTypes         []string `json:"jobTypes"`
	Skills           []string `json:"skills"`
	ExperienceLevels []string `json:"experienceLevels"`
	IncludeRemote    bool     `json:"includeRemote"`
	IsPaused         bool     `json:"isPaused"`
	Frequency        string   `json:"frequency"`
}

type Alert struct {
	ID               int64      `json:"id"`
	UserID           uuid.UUID  `json:"userId"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	SearchQuery      string     `json:"searchQuery"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	JobTypes         []string   `json:"jobTypes"`
	Skills           []string   `json:"skills"`
	ExperienceLevels []string   `json:"experienceLevels"`
	IncludeRemote    bool       `json:"includeRemote"`
	IsActive         bool       `json:"isActive"`
	IsPaused         bool       `json:"isPaused"`
	Frequency        string     `json:"frequency"`
	LastSentAt       *time.Time `json:"lastSentAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type GetAlertsResponse struct {
	Alerts []Alert `json:"alerts"`
}
