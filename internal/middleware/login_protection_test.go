// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginProtection_AccountLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	email := "clerk@baladroz.gov"

	if locked, _ := lp.RecordFailedAttempt(email); locked {
		t.Fatal("locked after first attempt")
	}
	if locked, _ := lp.RecordFailedAttempt(email); locked {
		t.Fatal("locked after second attempt")
	}

	locked, duration := lp.RecordFailedAttempt(email)
	if !locked {
		t.Fatal("not locked after reaching the limit")
	}
	if duration != time.Minute {
		t.Errorf("lock duration = %v; want 1m", duration)
	}

	if locked, remaining := lp.IsAccountLocked(email); !locked || remaining <= 0 {
		t.Errorf("IsAccountLocked = %v, %v", locked, remaining)
	}
}

func TestLoginProtection_SuccessClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(DefaultLoginProtectionConfig())

	email := "clerk@baladroz.gov"
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)

	if got := lp.GetRemainingAttempts(email); got != 3 {
		t.Errorf("remaining = %d; want 3", got)
	}

	lp.RecordSuccessfulLogin(email)

	if got := lp.GetRemainingAttempts(email); got != 5 {
		t.Errorf("remaining after success = %d; want 5", got)
	}
}

func TestLoginProtection_MiddlewareRateLimitsPosts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 0.001, // effectively one request per burst window
		IPBurst:     1,
	})

	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		r := httptest.NewRequest("POST", "/login", nil)
		r.RemoteAddr = "203.0.113.5:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := post(); code != http.StatusOK {
		t.Fatalf("first POST = %d; want 200", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("second POST = %d; want 429", code)
	}

	// GET requests bypass the limiter.
	r := httptest.NewRequest("GET", "/login", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("GET = %d; want 200", rec.Code)
	}
}
