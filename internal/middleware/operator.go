// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

const operatorKey contextKey = "operator"

// OperatorGate guards destructive endpoints (backup, restore, migration,
// cache clear) behind a shared operator token. The token arrives as
// "Authorization: Bearer <token>" or "X-Operator-Token: <token>" and is
// compared in constant time. An empty configured token means no operator
// access at all: the gate fails closed, never open.
func OperatorGate(token string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !tokenMatches(token, presentedToken(r)) {
				logging.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Operator endpoint refused: missing or invalid token")
				respondForbidden(w)
				return
			}
			ctx := context.WithValue(r.Context(), operatorKey, true)
			next(w, r.WithContext(ctx))
		}
	}
}

// IsOperator reports whether the request context passed the operator
// gate. Injected into components that need a capability check without
// knowing about HTTP.
func IsOperator(ctx context.Context) bool {
	ok, _ := ctx.Value(operatorKey).(bool)
	return ok
}

func presentedToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Operator-Token")
}

func tokenMatches(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}

func respondForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    "OPERATOR_REQUIRED",
			Message: "This operation requires a valid operator token",
		},
	})
}
