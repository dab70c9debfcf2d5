package model

import "time"

// FetchResult is the transient outcome of fetching one file for one business date.
// Unavailable is the normal "not published for this date" signal; Data is nil in that case.
type FetchResult struct {
	Spec         FileSpec
	BusinessDate time.Time
	RemoteName   string
	Data         []byte
	Unavailable  bool
}

// Outcome is the per-file result of a pipeline run.
type Outcome string

const (
	OutcomeStoredNewVersion   Outcome = "stored-new-version"
	OutcomeStoredUnchanged    Outcome = "stored-unchanged"
	OutcomeStoredRaw          Outcome = "stored-raw"
	OutcomeSkippedUnavailable Outcome = "skipped-unavailable"
	OutcomeFailed             Outcome = "failed"
	// OutcomeOutOfOrder marks a retroactive run for a date that precedes the file's current version.
	OutcomeOutOfOrder Outcome = "out-of-order-retroactive"
)

// Error kinds recorded on failed or flagged files.
const (
	ErrorKindTransport  = "transport"
	ErrorKindOutOfOrder = "out_of_order"
	ErrorKindStorage    = "storage"
	ErrorKindCatalog    = "catalog"
	ErrorKindCanceled   = "canceled"
)

// FileResult is the report line for one FileSpec.
type FileResult struct {
	FileName   string   `json:"file_name"`
	Category   Category `json:"category"`
	Outcome    Outcome  `json:"outcome"`
	RemoteName string   `json:"remote_name,omitempty"`
	Version    int      `json:"version,omitempty"`
	Digest     string   `json:"digest,omitempty"`
	Size       int64    `json:"size"`
	Empty      bool     `json:"empty,omitempty"`
	Paths      []string `json:"paths,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Stored reports whether the file ended in one of the stored outcomes.
func (r FileResult) Stored() bool {
	switch r.Outcome {
	case OutcomeStoredNewVersion, OutcomeStoredUnchanged, OutcomeStoredRaw:
		return true
	}
	return false
}

// RunReport summarises one pipeline run.
type RunReport struct {
	RunID        string       `json:"run_id"`
	BusinessDate string       `json:"business_date"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Success      bool         `json:"success"`
	Files        []FileResult `json:"files"`
	Paths        []string     `json:"paths"`
}

// Finalize derives Success and the flattened path list from the file results.
// A run succeeds when at least one file reached a stored outcome.
func (r *RunReport) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.Success = false
	r.Paths = make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if f.Stored() {
			r.Success = true
		}
		r.Paths = append(r.Paths, f.Paths...)
	}
}

// Counts returns the number of files per outcome.
func (r *RunReport) Counts() map[Outcome]int {
	out := make(map[Outcome]int, len(r.Files))
	for _, f := range r.Files {
		out[f.Outcome]++
	}
	return out
}
