package impl

import (
	"context"
	"encoding/json"
	"log/slog"

	"expense-auth/internal/domain"
	"expense-auth/internal/events"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/store"
)

// auditor appends to the audit trail. Recording is best effort: a failed write
// is logged and never fails the flow that produced the event.
type auditor struct {
	store *store.Store
}

func (a auditor) record(ctx context.Context, userID *domain.UserID, ev events.Event) {
	meta, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("audit marshal failed", "action", ev.Action(), "error", err)
		return
	}
	ip, ua := middleware.ClientFromContext(ctx)
	entry := &domain.AuditLog{
		UserID:    userID,
		Action:    ev.Action(),
		Metadata:  meta,
		IP:        ip,
		UserAgent: ua,
	}
	if err := a.store.Audit().Append(ctx, entry); err != nil {
		slog.Warn("audit append failed",
			"action", ev.Action(),
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}
}
