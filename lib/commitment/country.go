package commitment

import "strings"

// countryCodes maps ISO 3166-1 alpha-2 codes to the numeric codes absorbed by the
// commitment. Codes follow international dialing prefixes, so US and CA share 1.
var countryCodes = map[string]uint64{
	"US": 1,
	"GB": 44,
	"DE": 49,
	"FR": 33,
	"JP": 81,
	"AU": 61,
	"CA": 1,
	"SG": 65,
	"HK": 852,
	"CH": 41,
}

// CountryCode returns the numeric code of an alpha-2 country, 0 when unknown.
func CountryCode(iso string) uint64 {
	return countryCodes[strings.ToUpper(strings.TrimSpace(iso))]
}

// CountryCodes returns a copy of the supported country table.
func CountryCodes() map[string]uint64 {
	out := make(map[string]uint64, len(countryCodes))
	for k, v := range countryCodes {
		out[k] = v
	}
	return out
}
