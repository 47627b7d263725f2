package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"expense-auth/internal/authz"
	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
	"expense-auth/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type handler struct {
	auth  service.AuthService
	admin service.AdminService
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) invite(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req dto.InviteRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Invite(r.Context(), principal.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) setupPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.SetupPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.SetupPassword(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) selectMFAMethod(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectMFARequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.SelectMFAMethod(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) verifyMFASetup(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyMFASetupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.VerifyMFASetup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) verifyLoginMFA(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyLoginMFARequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.VerifyLoginMFA(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) passkeyAuthOptions(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyOptionsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.PasskeyAuthOptions(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) passkeyAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyVerifyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.PasskeyLogin(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.auth.Profile(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.auth.Activity(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) bootstrapCheck(w http.ResponseWriter, r *http.Request) {
	res, err := h.admin.BootstrapStatus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) bootstrapCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.BootstrapRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.admin.BootstrapSuperAdmin(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req dto.InviteAdminRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.admin.InviteAdmin(r.Context(), principal.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listPendingAdmins(w http.ResponseWriter, r *http.Request) {
	res, err := h.admin.ListPendingAdmins(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) getPendingAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.admin.GetPendingAdmin(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PendingAdminResponse{
		Message: "Pending admin invitation retrieved successfully",
		Admin:   res,
	})
}

func (h *handler) acceptPendingAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.admin.AcceptPendingAdmin(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) rejectPendingAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.admin.RejectPendingAdmin(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "userId")))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid userId")
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
