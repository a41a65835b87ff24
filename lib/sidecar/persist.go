// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and validates the durability record at path. A nil key
// loads plaintext sidecars only; with a key, both sealed and
// plaintext sidecars load (sealing is per-file, decided at store
// time). A sealed sidecar without a key is [ErrSealed].
//
// A record is never guessed into existence: an unreadable file is
// [ErrIO], malformed contents are [ErrSerialization].
func Load(path string, key *SealKey) (*Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}

	if IsSealed(content) {
		if key == nil {
			return nil, fmt.Errorf("%w: %s requires a seal key", ErrSealed, path)
		}
		content, err = unseal(key, content)
		if err != nil {
			return nil, fmt.Errorf("unsealing %s: %w", path, err)
		}
	}

	var record Record
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrSerialization, path, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &record, nil
}

// Store writes the full record to path, creating missing parent
// directories. The write goes to a temp file in the target directory
// followed by a rename, so a crash mid-write leaves either the old
// sidecar or the new one, never a torn file. With a non-nil key the
// record is sealed before it touches disk.
func Store(path string, record *Record, key *SealKey) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid record: %w", err)
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding record: %v", ErrSerialization, err)
	}
	content = append(content, '\n')

	if key != nil {
		content, err = seal(key, content)
		if err != nil {
			return fmt.Errorf("sealing record: %w", err)
		}
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, directory, err)
	}

	temp, err := os.CreateTemp(directory, ".sidecar-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %w", ErrIO, directory, err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: writing %s: %w", ErrIO, tempPath, err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: closing %s: %w", ErrIO, tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: renaming %s to %s: %w", ErrIO, tempPath, path, err)
	}
	return nil
}
