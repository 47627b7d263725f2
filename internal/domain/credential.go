package domain

import "time"

// PasskeyCredential is one registered authenticator. CredentialID and PublicKey
// hold standard base64 text of the canonical bytes.
type PasskeyCredential struct {
	ID              CredentialID `gorm:"type:uuid;primaryKey" db:"id"`
	UserID          UserID       `gorm:"type:uuid;index;uniqueIndex:ux_passkey_user_credid" db:"user_id"`
	CredentialID    string       `gorm:"type:text;not null;uniqueIndex:ux_passkey_user_credid" db:"credential_id"`
	PublicKey       string       `gorm:"type:text;not null" db:"public_key"`
	SignCount       uint32       `gorm:"not null;default:0" db:"sign_count"`
	AAGUID          []byte       `gorm:"type:bytea" db:"aaguid"`
	AttestationType string       `gorm:"type:text" db:"attestation_type"`
	Transports      string       `gorm:"type:text" db:"transports"` // comma separated
	BackupEligible  bool         `gorm:"not null;default:false" db:"backup_eligible"`
	BackupState     bool         `gorm:"not null;default:false" db:"backup_state"`
	CreatedAt       time.Time    `gorm:"not null" db:"created_at"`
	LastUsedAt      *time.Time   `db:"last_used_at"`
}

func (PasskeyCredential) TableName() string { return "passkey_credentials" }
