// Package phone normalizes contact phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when the configured region is not a known ISO code.
const DefaultRegion = "MX"

// Region returns region upper-cased when phonenumbers knows it, else DefaultRegion.
func Region(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if phonenumbers.GetCountryCodeForRegion(region) == 0 {
		return DefaultRegion
	}
	return region
}

// NormalizeE164 formats input as E.164, reading national numbers in region.
// Anything that does not parse to a valid number comes back trimmed but otherwise untouched.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, Region(region))
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
