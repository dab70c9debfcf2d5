package model

// Category decides how a fetched file is persisted.
type Category string

const (
	// CategoryRaw files are archived per business date, unconditionally.
	CategoryRaw Category = "raw"
	// CategoryReference files are SCD2-versioned by content digest.
	CategoryReference Category = "reference"
)

// Kind describes the physical shape of a file.
type Kind string

const (
	KindArchive Kind = "archive"
	KindFlat    Kind = "flat"
)

// NamingRule maps a business date to the upstream filename.
// Pattern may contain the {date} placeholder, which is replaced by the business date
// shifted by BusinessDayOffset business days and formatted with DateFormat (Go layout).
type NamingRule struct {
	Pattern           string `json:"pattern" yaml:"pattern" toml:"pattern"`
	DateFormat        string `json:"date_format,omitempty" yaml:"date_format" toml:"date_format"`
	BusinessDayOffset int    `json:"business_day_offset,omitempty" yaml:"business_day_offset" toml:"business_day_offset"`
}

// FileSpec is the static descriptor of one file published by the feed.
// It is configured once at startup and never mutated.
type FileSpec struct {
	Name     string     `json:"name" yaml:"name" toml:"name"`
	Category Category   `json:"category" yaml:"category" toml:"category"`
	Kind     Kind       `json:"kind" yaml:"kind" toml:"kind"`
	Remote   NamingRule `json:"remote" yaml:"remote" toml:"remote"`
}

// IsReference reports whether the file is SCD2-versioned.
func (s FileSpec) IsReference() bool {
	return s.Category == CategoryReference
}

// IsArchive reports whether the file is a zip archive.
func (s FileSpec) IsArchive() bool {
	return s.Kind == KindArchive
}
