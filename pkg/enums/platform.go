package enums

import "fmt"

// Platform identifies an installer target.
type Platform string

const (
	PlatformWindows Platform = "win"
	PlatformMac     Platform = "mac"
	PlatformLinux   Platform = "linux"
)

var validPlatforms = []Platform{
	PlatformWindows,
	PlatformMac,
	PlatformLinux,
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Platform.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts raw input into a Platform.
func ParsePlatform(value string) (Platform, error) {
	for _, candidate := range validPlatforms {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}

// InstallerExtension returns the file extension shipped for the platform.
func (p Platform) InstallerExtension() string {
	switch p {
	case PlatformWindows:
		return ".exe"
	case PlatformMac:
		return ".dmg"
	case PlatformLinux:
		return ".AppImage"
	default:
		return ""
	}
}
