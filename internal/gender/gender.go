// Package gender maps the heterogeneous gender representations returned by
// face analysis providers and document OCR onto a canonical two-value domain,
// so the two signals can be compared by the verification gate.
package gender

import "strings"

// Gender is the canonical gender domain. Unknown is a valid value, not an
// error: unrecognized inputs normalize to it rather than failing.
type Gender string

const (
	Female  Gender = "female"
	Male    Gender = "male"
	Unknown Gender = "unknown"
)

func (g Gender) String() string { return string(g) }

// tokens maps recognized raw representations (upper-cased) to canonical values.
// Covers single-letter abbreviations, Brazilian document wording, and the
// already-canonical values.
var tokens = map[string]Gender{
	"F":         Female,
	"M":         Male,
	"FEMININO":  Female,
	"MASCULINO": Male,
	"FEMALE":    Female,
	"MALE":      Male,
	"UNKNOWN":   Unknown,
}

// Normalize maps a raw gender representation to the canonical domain.
// Case-insensitive, whitespace-tolerant, pure, and idempotent:
// Normalize(Normalize(x).String()) == Normalize(x).
func Normalize(raw string) Gender {
	if g, ok := tokens[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return g
	}
	return Unknown
}

// Parse validates an already-canonical value. Unlike Normalize it does not
// accept abbreviations; use it for configuration, not provider output.
func Parse(s string) (Gender, bool) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case Female:
		return Female, true
	case Male:
		return Male, true
	case Unknown:
		return Unknown, true
	}
	return Unknown, false
}
