package migrate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	versionLayout   = "20060102150405"
	directiveUp     = "-- +goose Up"
	directiveDown   = "-- +goose Down"
	directiveBegin  = "-- +goose StatementBegin"
	directiveEnd    = "-- +goose StatementEnd"
	migrationSuffix = ".sql"
)

var (
	fileNameRe   = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nameUnsafeRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

// migrationFile is a parsed <version>_<slug>.sql name.
type migrationFile struct {
	Version string
	Slug    string
}

func (f migrationFile) Name() string {
	return f.Version + "_" + f.Slug + migrationSuffix
}

func parseFileName(name string) (migrationFile, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return migrationFile{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	if _, err := time.Parse(versionLayout, m[1]); err != nil {
		return migrationFile{}, fmt.Errorf("migration %q has an impossible timestamp", name)
	}
	return migrationFile{Version: m[1], Slug: m[2]}, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nameUnsafeRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// checkBody enforces the goose annotations every portal migration carries:
// an Up section before a Down section and balanced statement blocks.
func checkBody(name, body string) error {
	up := strings.Index(body, directiveUp)
	down := strings.Index(body, directiveDown)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, directiveUp)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, directiveDown)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}
	if b, e := strings.Count(body, directiveBegin), strings.Count(body, directiveEnd); b != e {
		return fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, b, e)
	}
	return nil
}
