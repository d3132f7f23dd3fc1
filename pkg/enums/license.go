package enums

import "fmt"

// LicenseTier is the entitlement level a key resolves to.
type LicenseTier string

const (
	LicenseTierStandard LicenseTier = "standard"
	LicenseTierPremium  LicenseTier = "premium"
)

var validLicenseTiers = []LicenseTier{
	LicenseTierStandard,
	LicenseTierPremium,
}

// String implements fmt.Stringer.
func (l LicenseTier) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LicenseTier.
func (l LicenseTier) IsValid() bool {
	for _, candidate := range validLicenseTiers {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLicenseTier converts raw input into a LicenseTier.
func ParseLicenseTier(value string) (LicenseTier, error) {
	for _, candidate := range validLicenseTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license tier %q", value)
}
