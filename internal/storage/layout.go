package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"sgxfeed/internal/calendar"
)

const (
	RawPrefix       = "raw/"
	ReferencePrefix = "derivative_reference/"
	DerivedPrefix   = "derivative_data/"
)

// RawKey is where a raw file received for businessDate is stored: raw/{date}/{remoteName}.
func RawKey(businessDate time.Time, remoteName string) string {
	return RawPrefix + calendar.Format(businessDate) + "/" + remoteName
}

// ReferenceKey is the immutable location of one version of a reference file:
// derivative_reference/{fileName}/v{version}/{remoteName}.
func ReferenceKey(fileName string, version int, remoteName string) string {
	return fmt.Sprintf("%s%s/v%d/%s", ReferencePrefix, fileName, version, remoteName)
}

// DerivedKey places an archive member under derivative_data/{date}/. Member names that
// escape the date directory are rejected.
func DerivedKey(businessDate time.Time, member string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(member, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("unsafe archive member name %q", member)
	}
	return DerivedPrefix + calendar.Format(businessDate) + "/" + clean, nil
}
