// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import (
	"sort"
	"strconv"
)

// CollectionExport is the wire shape of one collection as stored in the
// remote database and in bundled asset files: a metadata object plus a
// songs map keyed by song number.
type CollectionExport struct {
	Metadata CollectionMeta        `json:"metadata"`
	Songs    map[string]SongExport `json:"songs"`
}

// CollectionMeta is the collection metadata object on the wire.
type CollectionMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SongCount   int    `json:"song_count,omitempty"`
	AccessLevel string `json:"access_level,omitempty"`
	Status      string `json:"status,omitempty"`
}

// SongExport is one song on the wire. The song number is the map key, not
// a field, so re-keying a collection only rewrites keys.
type SongExport struct {
	Title    string        `json:"title"`
	Verses   []VerseExport `json:"verses"`
	AudioURL string        `json:"audio_url,omitempty"`
}

// VerseExport is one verse on the wire.
type VerseExport struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

// SongList converts the songs map into a slice in natural number order,
// stamping each song with the owning collection id.
func (e *CollectionExport) SongList(collectionID string) []Song {
	songs := make([]Song, 0, len(e.Songs))
	for number, se := range e.Songs {
		song := Song{
			Number:       number,
			Title:        se.Title,
			AudioRef:     se.AudioURL,
			CollectionID: collectionID,
		}
		for _, v := range se.Verses {
			song.Verses = append(song.Verses, Verse{Label: v.Label, Text: v.Text})
		}
		songs = append(songs, song)
	}
	SortSongs(songs)
	return songs
}

// ExportSongs converts a song slice back into the wire map keyed by number.
func ExportSongs(songs []Song) map[string]SongExport {
	out := make(map[string]SongExport, len(songs))
	for _, s := range songs {
		se := SongExport{
			Title:    s.Title,
			AudioURL: s.AudioRef,
		}
		for _, v := range s.Verses {
			se.Verses = append(se.Verses, VerseExport{Label: v.Label, Text: v.Text})
		}
		out[s.Number] = se
	}
	return out
}

// CompareSongNumbers orders song numbers naturally: numerically when both
// parse as integers (so "2" sorts before "10" and "002" equals-ranks "2"),
// lexicographically otherwise.
func CompareSongNumbers(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			// Same numeric value; fall back to string compare so
			// "2" and "002" keep a stable relative order.
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortSongs sorts a song slice in natural number order, in place.
func SortSongs(songs []Song) {
	sort.SliceStable(songs, func(i, j int) bool {
		return CompareSongNumbers(songs[i].Number, songs[j].Number) < 0
	})
}
