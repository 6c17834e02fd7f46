// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/taskroster/taskroster/internal/auth"
	"github.com/taskroster/taskroster/internal/invite"
	"github.com/taskroster/taskroster/internal/register"
	"github.com/taskroster/taskroster/internal/validation"
	"github.com/taskroster/taskroster/pkg/errutil"
)

// redirectPaths maps workflow redirect targets to URLs.
var redirectPaths = map[string]string{
	register.RedirectDashboard: "/dashboard",
}

var loginRules = validation.Rules{
	"email":    {validation.Required, validation.String, validation.Email},
	"password": {validation.Required, validation.String},
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{UserAgent: r.UserAgent(), IPAddress: RealIP(r)}
}

func parseForm(w http.ResponseWriter, r *http.Request) (validation.Input, bool) {
	if err := r.ParseForm(); err != nil {
		status(w, r, http.StatusBadRequest, "Malformed form body.")
		return nil, false
	}
	return validation.FromForm(r.PostForm), true
}

// handleHome hands a pending flash to the client.
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, takeFlash(w, r))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, ok := parseForm(w, r)
	if !ok {
		return
	}

	out, err := h.registrar.Register(r.Context(), register.Request{Input: in, Client: clientInfo(r)})
	if err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, "registration failed", err)
		serverError(w, r)
		return
	}
	if !out.Completed() {
		invalid(w, r, out.Errors, in)
		return
	}

	h.setSessionCookie(w, r, out.Session, out.Token)
	target, ok := redirectPaths[out.Redirect]
	if !ok {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, ok := parseForm(w, r)
	if !ok {
		return
	}
	if !h.validate(w, r, in, loginRules) {
		return
	}

	session, token, err := h.sessions.Authenticate(r.Context(), in.String("email"), in.String("password"), clientInfo(r))
	if err != nil {
		if errutil.Code(err) == "AUTH_INVALID_CREDENTIALS" {
			errs := validation.Errors{}
			errs.Add("email", "credentials", "These credentials do not match our records.")
			invalid(w, r, errs, in)
			return
		}
		errutil.LogErrorContext(r.Context(), h.logger, "login failed", err)
		serverError(w, r)
		return
	}

	h.setSessionCookie(w, r, session, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), identity.Session.ID); err != nil && !errors.Is(err, auth.ErrNotFound) {
		errutil.LogErrorContext(r.Context(), h.logger, "logout failed", err)
		serverError(w, r)
		return
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type inviteAck struct {
	Email        string `json:"email"`
	InvitationID string `json:"invitation_id"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	in, ok := parseForm(w, r)
	if !ok {
		return
	}
	errs, err := validation.Validate(r.Context(), in, invite.Rules())
	if err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, "invite validation failed", err)
		serverError(w, r)
		return
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, invalidBody{Message: errs.First(), Errors: errs.Messages()})
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	inviter := identity.User.ID
	inv, err := h.inviter.Invite(r.Context(), in.String("email"), &inviter)
	switch {
	case errors.Is(err, invite.ErrMailFailed):
		writeJSON(w, http.StatusBadGateway, messageBody{Message: "The invitation could not be sent."})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "Server Error"})
		return
	}

	writeJSON(w, http.StatusAccepted, inviteAck{Email: inv.Email, InvitationID: inv.ID.String()})
}

type profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	u := identity.User
	writeJSON(w, http.StatusOK, profile{ID: u.ID.String(), Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt})
}

// validate runs rules and answers the request itself when the input is
// rejected or cannot be checked. It reports whether the handler may go on.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request, in validation.Input, rules validation.Rules) bool {
	errs, err := validation.Validate(r.Context(), in, rules)
	if err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, "validation failed", err)
		serverError(w, r)
		return false
	}
	if len(errs) > 0 {
		invalid(w, r, errs, in)
		return false
	}
	return true
}
