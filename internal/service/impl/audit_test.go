package impl

import (
	"context"
	"encoding/json"
	"testing"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
	"expense-auth/internal/observability/middleware"
)

func TestAuthServiceActivityRecordsAuthEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.WithValue(context.Background(), middleware.CtxKeyClientIP, "203.0.113.7")
	ctx = context.WithValue(ctx, middleware.CtxKeyUserAgent, "test-agent")
	u := f.seedUser(t, "admin@example.com", domain.RoleAdmin)

	if _, err := f.auth.Login(ctx, dto.LoginRequest{Email: "admin@example.com", Password: "wrong password"}); err == nil {
		t.Fatalf("expected login failure")
	}
	if _, err := f.auth.Login(ctx, dto.LoginRequest{Email: "admin@example.com", Password: testPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}

	act, err := f.auth.Activity(ctx, u.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if act.Count != 1 {
		t.Fatalf("expected one attributed event, got %+v", act)
	}
	ev := act.Events[0]
	if ev.Action != string(domain.AuditLoginSucceeded) || ev.IP != "203.0.113.7" || ev.UserAgent != "test-agent" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	var details struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(ev.Details, &details); err != nil || details.Method != "PASSWORD" {
		t.Fatalf("unexpected details %s: %v", ev.Details, err)
	}

	var failed []domain.AuditLog
	if err := f.store.DB.Where("action = ? AND user_id IS NULL", domain.AuditLoginFailed).Find(&failed).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected one unattributed failure, got %d", len(failed))
	}
}

func TestInvitationAuditRecordsDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.admin.InviteAdmin(ctx, f.seedUser(t, "root@example.com", domain.RoleSuperAdmin).ID, dto.InviteAdminRequest{Email: "a@example.com"}); err != nil {
		t.Fatalf("invite: %v", err)
	}
	invited, _ := f.store.Users().GetByEmail(ctx, "a@example.com")

	logs, err := f.store.Audit().ListByUser(ctx, invited.ID, 0)
	if err != nil || len(logs) != 1 || logs[0].Action != domain.AuditInvitationSent {
		t.Fatalf("unexpected audit: %v %+v", err, logs)
	}
	var meta struct {
		Role      string `json:"role"`
		Delivered bool   `json:"delivered"`
	}
	if err := json.Unmarshal(logs[0].Metadata, &meta); err != nil || meta.Role != "admin" || !meta.Delivered {
		t.Fatalf("unexpected metadata %s: %v", logs[0].Metadata, err)
	}
}
