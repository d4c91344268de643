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

	"github.com/heary-aldy/lpmi40-sub009/internal/cache"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/remote"
	"github.com/heary-aldy/lpmi40-sub009/internal/validation"
)

// collectionsResponse is the listing payload: ordered collections plus
// omission markers for anything that failed in every source.
type collectionsResponse struct {
	Collections []models.CollectionData    `json:"collections"`
	Omitted     []models.OmittedCollection `json:"omitted,omitempty"`
	Count       int                        `json:"count"`
}

// handleListCollections returns the full ordered listing. Persistent
// collections come first; a persistent collection with data in any
// source appears even when the latest remote listing dropped it.
func (router *Router) handleListCollections(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	collections, omitted, err := router.deps.Service.GetAll(r.Context(), false)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: collectionsResponse{
			Collections: collections,
			Omitted:     omitted,
			Count:       len(collections),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// handleGetCollection returns one collection's songs.
func (router *Router) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsCollectionID(id) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "invalid collection id", nil)
		return
	}

	start := time.Now()
	songs, err := router.deps.Service.GetCollection(r.Context(), id, getBoolParam(r, "refresh", false))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"collection_id": id,
			"songs":         songs,
			"count":         len(songs),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// handleForceRefresh re-fetches every collection from the remote source.
func (router *Router) handleForceRefresh(w http.ResponseWriter, r *http.Request) {
	refreshed, err := router.deps.Service.ForceRefreshAll(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"refreshed": refreshed,
	})
}

// handleClearCache drops all cached entries and rebuilds from the
// remote. The persistent id set survives: clearing cache must never
// clear configuration.
func (router *Router) handleClearCache(w http.ResponseWriter, r *http.Request) {
	refreshed, err := router.deps.Service.ClearCacheAndRefresh(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"cleared":   true,
		"refreshed": refreshed,
	})
}

// respondServiceError maps engine errors onto HTTP statuses and stable
// error codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "collection not found in any source", err)
	case errors.Is(err, remote.ErrRemoteUnavailable):
		respondError(w, http.StatusServiceUnavailable, ErrCodeRemoteFail, "remote source unavailable and no fallback data", err)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
	}
}
