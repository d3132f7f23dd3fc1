package downloads

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/mod/semver"

	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// Installer is one installer binary on disk.
type Installer struct {
	Platform enums.Platform
	Version  string
	FileName string
	Path     string
	Size     int64
	ModTime  time.Time
}

// Catalog indexes installers named {prefix}-{version}-{platform}{ext} in a
// single directory.
type Catalog struct {
	dir    string
	prefix string
}

func NewCatalog(dir, prefix string) *Catalog {
	return &Catalog{dir: dir, prefix: strings.TrimSpace(prefix)}
}

// FileName builds the expected installer name.
func (c *Catalog) FileName(platform enums.Platform, version string) string {
	return c.prefix + "-" + version + "-" + string(platform) + platform.InstallerExtension()
}

// List returns every installer for platform, newest version first.
func (c *Catalog) List(platform enums.Platform) ([]Installer, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	head := c.prefix + "-"
	tail := "-" + string(platform) + platform.InstallerExtension()
	var out []Installer
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, head) || !strings.HasSuffix(name, tail) {
			continue
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, head), tail)
		if version == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Installer{
			Platform: platform,
			Version:  version,
			FileName: name,
			Path:     filepath.Join(c.dir, name),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compareVersions(out[i].Version, out[j].Version) > 0
	})
	return out, nil
}

// Find returns the installer for version, or the newest one when version is
// empty. It returns nil when nothing matches.
func (c *Catalog) Find(platform enums.Platform, version string) (*Installer, error) {
	installers, err := c.List(platform)
	if err != nil {
		return nil, err
	}
	if len(installers) == 0 {
		return nil, nil
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return &installers[0], nil
	}
	want := canonical(version)
	for i := range installers {
		if installers[i].Version == version || (want != "" && canonical(installers[i].Version) == want) {
			return &installers[i], nil
		}
	}
	return nil, nil
}

// ContentType sniffs the installer's MIME type from its header bytes.
func ContentType(inst *Installer) string {
	mt, err := mimetype.DetectFile(inst.Path)
	if err != nil || mt == nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// compareVersions orders semantic versions; anything that is not semver sorts
// below every valid version and lexically among its peers.
func compareVersions(a, b string) int {
	ca, cb := canonical(a), canonical(b)
	switch {
	case ca != "" && cb != "":
		if cmp := semver.Compare(ca, cb); cmp != 0 {
			return cmp
		}
		return strings.Compare(a, b)
	case ca != "":
		return 1
	case cb != "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func canonical(version string) string {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}
