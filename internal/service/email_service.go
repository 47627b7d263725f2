package service

import (
	"context"
	"time"
)

type Invitation struct {
	To        string
	Name      string
	Role      string
	Link      string
	ExpiresAt time.Time
	Resent    bool
}

type EmailService interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}
