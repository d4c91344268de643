// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/diagnostics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// createBackupRequest is the body of POST /backups. Empty CollectionIDs
// means snapshot everything.
type createBackupRequest struct {
	CollectionIDs []string `json:"collection_ids" validate:"omitempty,dive,collection_id"`
	Notes         string   `json:"notes" validate:"max=500"`
}

// restoreRequest is the body of POST /backups/{id}/restore.
type restoreRequest struct {
	ValidateOnly           bool     `json:"validate_only"`
	CreatePreRestoreBackup bool     `json:"create_pre_restore_backup"`
	Collections            []string `json:"collections" validate:"omitempty,dive,collection_id"`
}

// handleCreateBackup snapshots remote collections into a new archive.
func (router *Router) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req createBackupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "malformed request body", err)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	b, err := router.deps.Diagnostics.Backup(r.Context(), req.CollectionIDs, req.Notes)
	if err != nil {
		respondBackupError(w, err)
		return
	}
	respondData(w, http.StatusCreated, b)
}

// handleListBackups returns all backup records, newest first.
func (router *Router) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := router.deps.Backups.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// handleGetBackup returns one backup record.
func (router *Router) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	b, err := router.deps.Backups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondBackupError(w, err)
		return
	}
	respondData(w, http.StatusOK, b)
}

// handleValidateBackup checks an archive without touching the remote.
func (router *Router) handleValidateBackup(w http.ResponseWriter, r *http.Request) {
	result, err := router.deps.Backups.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondBackupError(w, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

// handleRestoreBackup writes a backup back over the live collections.
// A mid-run failure returns the partial result alongside the error code
// so the operator can see exactly which collections were touched.
func (router *Router) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "malformed request body", err)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := router.deps.Diagnostics.Restore(r.Context(), chi.URLParam(r, "id"), backup.RestoreOptions{
		ValidateOnly:           req.ValidateOnly,
		CreatePreRestoreBackup: req.CreatePreRestoreBackup,
		Collections:            req.Collections,
	})
	if err != nil {
		if errors.Is(err, backup.ErrRestoreFailed) && result != nil {
			respondJSON(w, http.StatusInternalServerError, &models.APIResponse{
				Status:   "error",
				Data:     result,
				Metadata: models.Metadata{Timestamp: time.Now()},
				Error: &models.APIError{
					Code:    ErrCodeRestoreFailed,
					Message: result.Error,
				},
			})
			return
		}
		respondBackupError(w, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

// handleDeleteBackup removes a backup record and its archive.
func (router *Router) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := router.deps.Backups.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondBackupError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
	})
}

func respondBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrBackupNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "backup not found", err)
	case errors.Is(err, diagnostics.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, "OPERATOR_REQUIRED", "operator authorization required", err)
	case errors.Is(err, backup.ErrRestoreFailed):
		respondError(w, http.StatusInternalServerError, ErrCodeRestoreFailed, err.Error(), err)
	default:
		respondServiceError(w, err)
	}
}
