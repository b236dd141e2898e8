// Package account models the structured chart-of-accounts identifier.
// An account code encodes a 4-level hierarchy in four fixed-width,
// dash-separated segments (type / division / category / detail); there is no
// stored parent pointer, so levels, parents and family membership are all
// derived from the code string itself.
package account

import (
	"fmt"
	"regexp"
	"strings"
)

// Segment widths and zero fillers for the TTTT-DDDD-CCC-FFF code format
const (
	TypeWidth     = 4
	DivisionWidth = 4
	CategoryWidth = 3
	DetailWidth   = 3

	ZeroDivision = "0000"
	ZeroCategory = "000"
	ZeroDetail   = "000"
)

// codePattern enforces the fixed 4/4/3/3 alphanumeric segment layout
var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{4}-[A-Za-z0-9]{4}-[A-Za-z0-9]{3}-[A-Za-z0-9]{3}$`)

// ErrMalformedCode indicates an identifier that does not match the
// TTTT-DDDD-CCC-FFF format
type ErrMalformedCode struct {
	Code string
}

func (e ErrMalformedCode) Error() string {
	return "malformed account code: " + e.Code
}

// Is implements the errors.Is interface for ErrMalformedCode
func (e ErrMalformedCode) Is(target error) bool {
	t, ok := target.(ErrMalformedCode)
	if !ok {
		return false
	}
	// An empty target Code matches any malformed-code error
	if t.Code == "" {
		return true
	}
	return e.Code == t.Code
}

// Address is the parsed form of an account code. Immutable once parsed;
// all hierarchy computations are pure functions of its four segments.
type Address struct {
	Type     string
	Division string
	Category string
	Detail   string
}

// Parse converts a raw identifier into an Address.
// Returns ErrMalformedCode if the string does not match the fixed
// 4-segment, fixed-width pattern.
func Parse(code string) (Address, error) {
	if !codePattern.MatchString(code) {
		return Address{}, ErrMalformedCode{Code: code}
	}

	parts := strings.Split(code, "-")
	return Address{
		Type:     parts[0],
		Division: parts[1],
		Category: parts[2],
		Detail:   parts[3],
	}, nil
}

// MustParse parses a code and panics on failure. Intended for tests and
// static initialization only.
func MustParse(code string) Address {
	addr, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return addr
}

// String reassembles the canonical code form
func (a Address) String() string {
	return a.Type + "-" + a.Division + "-" + a.Category + "-" + a.Detail
}

// Level classifies the address into the 4-level hierarchy based on which
// trailing segments carry the zero filler:
//
//	Level 1: division, category and detail are all fillers (root)
//	Level 2: division set, category and detail are fillers
//	Level 3: category set, detail is filler
//	Level 4: detail set (leaf)
//
// Level is total: every well-formed address classifies. A code with a
// skipped segment (zero category under a non-zero detail) is dirty source
// data; it is treated as level 4 and flagged via HasSkippedSegment so the
// caller can log it without rejecting the row.
func (a Address) Level() int {
	if a.Detail != ZeroDetail {
		return 4
	}
	if a.Category != ZeroCategory {
		return 3
	}
	if a.Division != ZeroDivision {
		return 2
	}
	return 1
}

// HasSkippedSegment reports a structurally inconsistent code: a detail
// segment is set while its category segment is still the filler. Source
// ledgers occasionally contain such gaps, so this is a warning condition,
// never an error.
func (a Address) HasSkippedSegment() bool {
	return a.Detail != ZeroDetail && a.Category == ZeroCategory
}

// FamilyKey returns the type+division prefix shared by every account in the
// same family (the first nine characters of the code).
func (a Address) FamilyKey() string {
	return a.Type + "-" + a.Division
}

// Parent computes the direct parent address by zeroing the trailing
// segment(s) for the current level. It is a pure structural computation and
// never performs a lookup: the returned code may have no corresponding row
// in the source data. The second return value is false for level-1
// addresses, which have no parent.
func (a Address) Parent() (Address, bool) {
	switch a.Level() {
	case 4:
		return Address{Type: a.Type, Division: a.Division, Category: a.Category, Detail: ZeroDetail}, true
	case 3:
		return Address{Type: a.Type, Division: a.Division, Category: ZeroCategory, Detail: ZeroDetail}, true
	case 2:
		return Address{Type: a.Type, Division: ZeroDivision, Category: ZeroCategory, Detail: ZeroDetail}, true
	default:
		return Address{}, false
	}
}

// ParentCode is a convenience wrapper returning the parent's canonical code,
// or the empty string for a level-1 address.
func (a Address) ParentCode() string {
	parent, ok := a.Parent()
	if !ok {
		return ""
	}
	return parent.String()
}

// FamilyKeyOf derives the family key directly from a raw code without a
// full parse. Returns an error for codes shorter than the type+division
// prefix.
func FamilyKeyOf(code string) (string, error) {
	if !codePattern.MatchString(code) {
		return "", ErrMalformedCode{Code: code}
	}
	return code[:TypeWidth+1+DivisionWidth], nil
}

// Validate exposes the format check on its own for ingestion-boundary use
func Validate(code string) error {
	if !codePattern.MatchString(code) {
		return fmt.Errorf("account code %q does not match TTTT-DDDD-CCC-FFF: %w", code, ErrMalformedCode{Code: code})
	}
	return nil
}
