// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package web

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/taskroster/taskroster/internal/validation"
)

type messageBody struct {
	Message string `json:"message"`
}

type invalidBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client may disconnect
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
			return true
		}
	}
	return false
}

// invalid answers a request whose input failed validation: 422 with the
// field errors for JSON clients, otherwise a redirect back with a flash.
func invalid(w http.ResponseWriter, r *http.Request, errs validation.Errors, in validation.Input) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusUnprocessableEntity, invalidBody{
			Message: errs.First(),
			Errors:  errs.Messages(),
		})
		return
	}
	setFlash(w, Flash{Errors: errs.Messages(), Old: oldInput(in)})
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

func serverError(w http.ResponseWriter, r *http.Request) {
	status(w, r, http.StatusInternalServerError, "Server Error")
}

func status(w http.ResponseWriter, r *http.Request, code int, message string) {
	if wantsJSON(r) {
		writeJSON(w, code, messageBody{Message: message})
		return
	}
	http.Error(w, message, code)
}

// backURL is the local part of the Referer, or "/" when there is none.
// Only path and query are kept so a forged Referer cannot redirect
// off-site.
func backURL(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// secretFields are never echoed back as old input.
var secretFields = []string{"password", "password_confirmation"}

func oldInput(in validation.Input) map[string]string {
	kept := in.Without(secretFields...)
	old := make(map[string]string, len(kept))
	for field := range kept {
		if v := kept.String(field); v != "" {
			old[field] = v
		}
	}
	return old
}
