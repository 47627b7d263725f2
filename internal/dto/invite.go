package dto

type InviteRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type SetupPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChallengeResponse struct {
	Message     string `json:"message"`
	ChallengeID string `json:"challengeId"`
}
