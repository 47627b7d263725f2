package dto

// AuthResponse is returned whenever an authentication event completes.
type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *UserSummary `json:"user"`
}
