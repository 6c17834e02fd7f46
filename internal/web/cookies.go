// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/taskroster/taskroster/internal/auth"
)

// Cookie names.
const (
	SessionCookieName = "taskroster_session"
	FlashCookieName   = "taskroster_flash"
)

// flashMaxAge bounds how long an unread flash survives.
const flashMaxAge = 5 * time.Minute

// Flash carries a rejected form's errors and input to the next request.
type Flash struct {
	Errors map[string][]string `json:"errors,omitempty"`
	Old    map[string]string   `json:"old,omitempty"`
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, session *auth.Session, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure || r.TLS != nil,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// maxFlashValue keeps the encoded flash, plus cookie name and attributes,
// under the 4096 bytes browsers accept for a single cookie.
const maxFlashValue = 3800

// maxOldRunes caps each echoed input value. Longer values cannot pass the
// length rules anyway.
const maxOldRunes = 255

func setFlash(w http.ResponseWriter, f Flash) {
	value, ok := encodeFlash(f)
	if !ok {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// encodeFlash fits f into maxFlashValue. Old input is truncated first, then
// dropped longest value first. Errors are always kept.
func encodeFlash(f Flash) (string, bool) {
	old := make(map[string]string, len(f.Old))
	for field, v := range f.Old {
		old[field] = truncateRunes(v, maxOldRunes)
	}

	fields := make([]string, 0, len(old))
	for field := range old {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		if len(old[fields[i]]) != len(old[fields[j]]) {
			return len(old[fields[i]]) > len(old[fields[j]])
		}
		return fields[i] < fields[j]
	})

	for {
		raw, err := json.Marshal(Flash{Errors: f.Errors, Old: old})
		if err != nil {
			return "", false
		}
		value := base64.RawURLEncoding.EncodeToString(raw)
		if len(value) <= maxFlashValue || len(fields) == 0 {
			return value, true
		}
		delete(old, fields[0])
		fields = fields[1:]
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// takeFlash reads and clears the flash cookie. A missing or unreadable
// flash yields the zero Flash.
func takeFlash(w http.ResponseWriter, r *http.Request) Flash {
	var f Flash
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return f
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Flash{}
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Flash{}
	}
	return f
}
