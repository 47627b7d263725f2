package domain

import "time"

type User struct {
	ID           UserID        `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email        string        `gorm:"type:text;uniqueIndex:ux_users_email;not null" db:"email" json:"email"`
	Username     string        `gorm:"type:text;uniqueIndex:ux_users_username;not null" db:"username" json:"username"`
	Name         string        `gorm:"type:text;not null" db:"name" json:"name"`
	PasswordHash *string       `gorm:"type:text" db:"password_hash" json:"-"`
	Role         Role          `gorm:"type:text;not null;default:user" db:"role" json:"role"`
	Status       AccountStatus `gorm:"type:text;not null;default:pending" db:"status" json:"status"`

	Invitation        *InvitationState `gorm:"type:text" db:"invitation" json:"invitation,omitempty"`
	InviteToken       *string          `gorm:"type:text;uniqueIndex:ux_users_invite_token" db:"invite_token" json:"-"`
	InviteTokenExpiry *time.Time       `db:"invite_token_expiry" json:"-"`
	InvitedBy         *UserID          `gorm:"type:uuid" db:"invited_by" json:"invitedBy,omitempty"`

	MFAEnabled bool      `gorm:"not null;default:false" db:"mfa_enabled" json:"mfaEnabled"`
	MFAMethod  MFAMethod `gorm:"type:text;not null;default:NONE" db:"mfa_method" json:"mfaMethod"`
	MFASecret  *string   `gorm:"type:text" db:"mfa_secret" json:"-"`

	// Flow challenge correlating multi-step requests; at most one per user.
	ChallengeID *string `gorm:"type:text;uniqueIndex:ux_users_challenge_id" db:"challenge_id" json:"-"`
	// Serialized webauthn.SessionData for the in-flight passkey ceremony.
	WebAuthnSession *string `gorm:"type:text;column:webauthn_session" db:"webauthn_session" json:"-"`

	Passkeys []PasskeyCredential `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// InvitationAccepted reports whether the user already consumed an invitation.
func (u *User) InvitationAccepted() bool {
	return u.Invitation != nil && *u.Invitation == InvitationAccepted
}

func (u *User) InviteLive(now time.Time) bool {
	return u.InviteToken != nil && u.InviteTokenExpiry != nil && u.InviteTokenExpiry.After(now)
}
