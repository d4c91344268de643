// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/service"
)

// searchRequest carries the validated query parameters of GET /search.
type searchRequest struct {
	Query       string   `validate:"required,min=1,max=200"`
	Limit       int      `validate:"min=0,max=500"`
	Collections []string `validate:"omitempty,dive,collection_id"`
	Fields      []string `validate:"omitempty,dive,oneof=title lyrics"`
}

// handleSearch matches songs by title and lyrics across cached
// collections, in listing order.
func (router *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{
		Query:       r.URL.Query().Get("q"),
		Limit:       getIntParam(r, "limit", 0),
		Collections: parseCommaSeparated(r.URL.Query().Get("collections")),
		Fields:      parseCommaSeparated(r.URL.Query().Get("fields")),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	fields := make([]models.SearchField, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, models.SearchField(f))
	}

	start := time.Now()
	results, err := router.deps.Service.Search(r.Context(), req.Query, service.SearchOptions{
		Collections: req.Collections,
		Fields:      fields,
		Limit:       req.Limit,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"query":   req.Query,
			"results": results,
			"count":   len(results),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      true,
		},
	})
}
