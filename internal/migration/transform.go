// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package migration

import (
	"fmt"
	"strconv"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// maxSongNumber returns the largest numeric song number across every
// collection. Non-numeric numbers ("A1", "Korus") are ignored; they are
// never re-keyed.
func maxSongNumber(collections map[string][]models.Song) int {
	max := 0
	for _, songs := range collections {
		for _, song := range songs {
			n, err := strconv.Atoi(song.Number)
			if err != nil || n <= 0 {
				continue
			}
			if n > max {
				max = n
			}
		}
	}
	return max
}

// padWidth derives the minimal fixed zero-padding width that fits the
// given maximum song number: 40 songs pad to width 2, 500 to width 3.
// Zero means no numeric songs exist and no re-keying is needed.
func padWidth(max int) int {
	if max <= 0 {
		return 0
	}
	return len(strconv.Itoa(max))
}

// rekeySongs pads every numeric song number to the given width,
// returning the transformed slice and how many keys actually changed.
// The input slice is not modified. Padding an already-padded number is
// a no-op, which is what makes wholesale migration retries safe.
func rekeySongs(songs []models.Song, width int) ([]models.Song, int) {
	out := make([]models.Song, len(songs))
	changed := 0
	for i, song := range songs {
		out[i] = song
		n, err := strconv.Atoi(song.Number)
		if err != nil || n <= 0 {
			continue
		}
		padded := fmt.Sprintf("%0*d", width, n)
		if padded != song.Number {
			out[i].Number = padded
			changed++
		}
	}
	models.SortSongs(out)
	return out, changed
}
