// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heary-aldy/lpmi40-sub009/internal/validation"
)

// handleListPersistent returns the pinned collection ids in pin order.
func (router *Router) handleListPersistent(w http.ResponseWriter, r *http.Request) {
	ids, err := router.deps.Registry.PersistentIDs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"persistent_ids": ids,
		"count":          len(ids),
	})
}

// handleAddPersistent pins a collection id. Idempotent.
func (router *Router) handleAddPersistent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsCollectionID(id) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "invalid collection id", nil)
		return
	}

	if err := router.deps.Service.MarkPersistent(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"collection_id": id,
		"persistent":    true,
	})
}

// handleRemovePersistent unpins a collection id.
func (router *Router) handleRemovePersistent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsCollectionID(id) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "invalid collection id", nil)
		return
	}

	if err := router.deps.Service.UnmarkPersistent(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"collection_id": id,
		"persistent":    false,
	})
}

// handleCandidates runs the synonym heuristic over the current listing
// and proposes ids worth pinning. Detection never mutates the pinned
// set; promoting a candidate is a separate, explicit POST.
func (router *Router) handleCandidates(w http.ResponseWriter, r *http.Request) {
	collections, _, err := router.deps.Service.GetAll(r.Context(), false)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	ids := make([]string, 0, len(collections))
	for _, c := range collections {
		ids = append(ids, c.CollectionID)
	}

	candidates := router.deps.Registry.DetectCandidates(ids)
	respondData(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}
