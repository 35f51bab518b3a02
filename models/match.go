package models

import "time"

type Match struct {
	ID         int64      `json:"id"`
	AlertID    int64      `json:"alertId"`
	JobID      int64      `json:"jobId"`
	JobTitle   string     `json:"jobTitle"`
	Company    string     `json:"company"`
	Location   string     `json:"location"`
	MatchScore float64    `json:"matchScore"`
	WasSent    bool       `json:"wasSent"`
	SentAt     *time.Time `json:"sentAt"`
	MatchedAt  time.Time  `json:"matchedAt"`
}

type GetMatchesResponse struct {
	Matches []Match `json:"matches"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
}
