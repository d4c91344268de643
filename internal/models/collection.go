// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// AccessLevel controls who may read a collection.
type AccessLevel string

// Access levels, from least to most restricted.
const (
	AccessPublic  AccessLevel = "public"
	AccessPremium AccessLevel = "premium"
	AccessAdmin   AccessLevel = "admin"
)

// CollectionStatus is the publication state of a collection.
type CollectionStatus string

// Collection statuses.
const (
	StatusActive   CollectionStatus = "active"
	StatusHidden   CollectionStatus = "hidden"
	StatusArchived CollectionStatus = "archived"
)

// Collection is the metadata of a named, independently addressable set of
// songs (a hymnal or one of its subsections). Identity is ID, which is
// stable and case-sensitive.
//
// SongCount is cached for display only. It is derivable from the fetched
// song set and must never be trusted over len(songs); the two can disagree
// after partial remote updates.
type Collection struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	SongCount   int              `json:"song_count"`
	AccessLevel AccessLevel      `json:"access_level"`
	Status      CollectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CollectionData is one element of the ordered listing the service hands to
// consumers: a collection id with its full song set and cache provenance.
type CollectionData struct {
	CollectionID string    `json:"collection_id"`
	Songs        []Song    `json:"songs"`
	Source       Source    `json:"source"`
	FetchedAt    time.Time `json:"fetched_at"`
	Persistent   bool      `json:"persistent"`
}
