package dto

import (
	"encoding/json"
	"time"
)

type UserSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
	MFAMethod  string `json:"mfa_method,omitempty"`
}

type UserProfile struct {
	UserSummary
	Status     string    `json:"status"`
	Invitation string    `json:"invitation,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ActivityEntry struct {
	Action    string          `json:"action"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	At        time.Time       `json:"at"`
}

type ActivityResponse struct {
	Count  int             `json:"count"`
	Events []ActivityEntry `json:"events"`
}
