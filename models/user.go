package models

type UpdatePreferencesRequest struct {
	JobMatchNotifications bool `json:"jobMatchNotifications"`
}
