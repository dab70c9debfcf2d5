// Package source fetches daily files from the exchange's public download links.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
)

const (
	keyPlaceholder      = "{key}"
	filenamePlaceholder = "{filename}"
	datePlaceholder     = "{date}"
)

// Source is the RemoteFileSource port. A file that is not published for the date is not an error:
// it comes back with Unavailable set. Any other failure is a *TransportError.
type Source interface {
	Fetch(ctx context.Context, spec model.FileSpec, businessDate time.Time) (*model.FetchResult, error)
}

// TransportError covers timeouts, connection failures, unexpected statuses and malformed responses.
// The pipeline does not retry it within a run.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteName resolves a naming rule for businessDate. Patterns without {date} are returned as is.
func RemoteName(rule model.NamingRule, businessDate time.Time, cal calendar.Calendar) string {
	if !strings.Contains(rule.Pattern, datePlaceholder) {
		return rule.Pattern
	}
	d := cal.AddBusinessDays(calendar.Date(businessDate), rule.BusinessDayOffset)
	return strings.ReplaceAll(rule.Pattern, datePlaceholder, d.Format(rule.DateFormat))
}

// FileURL expands a download URL template with the index key and remote filename.
func FileURL(template, key, filename string) string {
	return strings.NewReplacer(
		keyPlaceholder, url.PathEscape(key),
		filenamePlaceholder, url.PathEscape(filename),
	).Replace(template)
}
