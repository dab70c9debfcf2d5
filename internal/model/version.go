package model

import "time"

// VersionRecord is one row of the version catalog: a single SCD2 version of a reference file.
// Dates are business dates at midnight UTC. EffectiveTo is nil while the version is current.
type VersionRecord struct {
	FileName      string     `json:"file_name"`
	VersionNumber int        `json:"version_number"`
	ContentDigest string     `json:"content_digest"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	IsCurrent     bool       `json:"is_current"`
	StoragePath   string     `json:"storage_path"`
	CreatedAt     time.Time  `json:"created_at"`
}
