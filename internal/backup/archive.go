// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package backup

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// archiveDocument is the payload inside a .json.gz archive: every
// snapshotted collection in its remote wire shape, so a restore can
// write it back verbatim.
type archiveDocument struct {
	FormatVersion int                                 `json:"format_version"`
	CreatedAt     time.Time                           `json:"created_at"`
	Collections   map[string]*models.CollectionExport `json:"collections"`
}

// archiveFormatVersion guards against reading archives written by a
// future incompatible format.
const archiveFormatVersion = 1

// writeArchive writes the document as gzip JSON to path and returns the
// file size and SHA-256 checksum of the finished file. The write goes
// through a temp file and rename so a crash never leaves a truncated
// archive under the final name.
func writeArchive(path string, doc *archiveDocument) (int64, string, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, "", fmt.Errorf("creating archive: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, "", fmt.Errorf("encoding archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, "", fmt.Errorf("finishing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, "", fmt.Errorf("closing archive: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, "", fmt.Errorf("placing archive: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, "", fmt.Errorf("stat archive: %w", err)
	}
	checksum, err := fileChecksum(path)
	if err != nil {
		return 0, "", err
	}
	return info.Size(), checksum, nil
}

// readArchive decodes an archive file.
func readArchive(path string) (*archiveDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	defer gz.Close()

	var doc archiveDocument
	if err := json.NewDecoder(gz).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	if doc.FormatVersion != archiveFormatVersion {
		return nil, fmt.Errorf("unsupported archive format version %d", doc.FormatVersion)
	}
	return &doc, nil
}

// fileChecksum computes the SHA-256 of a file as a hex string.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
