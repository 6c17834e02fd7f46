// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskroster/taskroster/internal/validation"
)

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"text/html", false},
		{"application/json", true},
		{"text/html, application/json;q=0.9", true},
		{"application/problem+json", true},
		{"*/*", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Accept", tt.accept)
		assert.Equal(t, tt.want, wantsJSON(r), "Accept: %q", tt.accept)
	}
}

func TestBackURL(t *testing.T) {
	tests := []struct {
		referer string
		want    string
	}{
		{"", "/"},
		{"http://localhost:8080/register", "/register"},
		{"https://evil.example/steal?x=1", "/steal?x=1"},
		{"//evil.example/path", "/path"},
		{"not a url at all", "/"},
		{"http://localhost:8080", "/"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/register", nil)
		if tt.referer != "" {
			r.Header.Set("Referer", tt.referer)
		}
		assert.Equal(t, tt.want, backURL(r), "Referer: %q", tt.referer)
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	assert.Equal(t, "198.51.100.4", RealIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", RealIP(r))

	r.Header.Set("X-Forwarded-For", " 203.0.113.10 ")
	assert.Equal(t, "203.0.113.10", RealIP(r))
}

func TestOldInputDropsSecrets(t *testing.T) {
	old := oldInput(validation.Input{
		"name":                  "Rafael",
		"password":              "uma senha Qualquer",
		"password_confirmation": "uma senha Qualquer",
		"tags":                  []string{"a", "b"},
		"empty":                 "",
	})
	assert.Equal(t, map[string]string{"name": "Rafael"}, old)
}

func TestTakeFlash_GarbageIsIgnored(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", FlashCookieName+"=%%%not-base64")
	rec := httptest.NewRecorder()
	assert.Equal(t, Flash{}, takeFlash(rec, r))
}

func TestInvalid_LongInputKeepsFlashUnderCookieLimit(t *testing.T) {
	long := strings.Repeat("a", 4000)
	errs := validation.Errors{}
	errs.Add("name", validation.CodeMax, "The name may not be greater than 255 characters.")

	r := httptest.NewRequest("POST", "/register", nil)
	rec := httptest.NewRecorder()
	invalid(rec, r, errs, validation.Input{"name": long, "email": "pinguim@dolaravel.com", "password": "segredo"})

	header := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, header)
	assert.Less(t, len(header), 4096)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	next := httptest.NewRequest("GET", "/", nil)
	next.AddCookie(cookies[0])
	f := takeFlash(httptest.NewRecorder(), next)

	assert.Equal(t, errs.Messages(), f.Errors)
	assert.Equal(t, strings.Repeat("a", 255), f.Old["name"])
	assert.Equal(t, "pinguim@dolaravel.com", f.Old["email"])
	assert.NotContains(t, f.Old, "password")
}

func TestEncodeFlash_DropsOldInputBeforeErrors(t *testing.T) {
	old := map[string]string{}
	for i := 0; i < 40; i++ {
		old[fmt.Sprintf("field_%02d", i)] = strings.Repeat("é", maxOldRunes)
	}
	errs := map[string][]string{"name": {"The name field is required."}}

	value, ok := encodeFlash(Flash{Errors: errs, Old: old})
	require.True(t, ok)
	assert.LessOrEqual(t, len(value), maxFlashValue)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	require.NoError(t, err)
	var f Flash
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, errs, f.Errors)
	assert.Less(t, len(f.Old), len(old))
}
