package store

import (
	"time"
)

// FormatVersion is the document store layout version written to metadata.json.
const FormatVersion = "1.0"

// StorageStats records on-disk size figures computed at backup time.
type StorageStats struct {
	TotalSize      int64 `json:"total_size"`
	AvgProfileSize int64 `json:"avg_profile_size"`
}

// Metadata is the store-level bookkeeping kept in metadata.json.
type Metadata struct {
	Version       string       `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	TotalProfiles int          `json:"total_profiles"`
	LastBackup    *time.Time   `json:"last_backup"`
	StorageStats  StorageStats `json:"storage_stats"`
}

func newMetadata() *Metadata {
	return &Metadata{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
	}
}
