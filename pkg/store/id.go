package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	idTimeLayout  = "20060102-150405"
	slugSeparator = "--"
	maxSlugLen    = 50
	maxHostLen    = 24
)

var (
	idRe       = regexp.MustCompile(`^\d{8}-\d{6}-[a-z0-9]+(?:-[a-z0-9]+)*-[0-9a-f]{8}$`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// GenerateID returns a new task id of the form
// YYYYMMDD-HHMMSS-<host>-<hash8>. The hash mixes the timestamp, the host and
// a random UUID.
func GenerateID(now time.Time, host string) string {
	host = hostLabel(host)
	sum := sha256.Sum256([]byte(now.UTC().Format(time.RFC3339Nano) + host + uuid.NewString()))
	return now.UTC().Format(idTimeLayout) + "-" + host + "-" + hex.EncodeToString(sum[:])[:8]
}

// IsID reports whether s has the shape of a generated task id.
func IsID(s string) bool {
	return idRe.MatchString(s)
}

// IDFromFilename extracts the id part of a record filename such as
// "<id>.md" or "<id>--some-slug.md". It returns "" when the name does not
// start with an id.
func IDFromFilename(name string) string {
	base := strings.TrimSuffix(name, fileExt)
	if i := strings.Index(base, slugSeparator); i >= 0 {
		base = base[:i]
	}
	if !IsID(base) {
		return ""
	}
	return base
}

// Slugify lowercases s, collapses runs of non-alphanumerics into single
// hyphens and caps the result at 50 characters.
func Slugify(s string) string {
	slug := strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

func hostLabel(host string) string {
	if host == "" {
		host, _ = os.Hostname()
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	label := Slugify(host)
	if len(label) > maxHostLen {
		label = strings.TrimRight(label[:maxHostLen], "-")
	}
	if label == "" {
		return "local"
	}
	return label
}

func recordFilename(t *Task, withSlug bool) string {
	if withSlug {
		if slug := Slugify(t.Title); slug != "" {
			return t.ID + slugSeparator + slug + fileExt
		}
	}
	return t.ID + fileExt
}
