package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// BetaTokenVersion converts a display version carrying a "Beta N" suffix
// into the internal beta-encoded token: "1.2 (Beta 3)" becomes "1.2b3".
// Versions without the suffix are returned unchanged.
func BetaTokenVersion(version string) string {
	if !strings.Contains(version, "Beta") {
		return version
	}
	fields := strings.Split(version, " ")
	number := fields[0]
	beta := strings.TrimSuffix(fields[len(fields)-1], ")")
	return fmt.Sprintf("%sb%s", number, beta)
}

// Version is a parsed package version number. Beta == 0 means a final
// release; a beta sorts before the final release with the same number.
type Version struct {
	Parts []int
	Beta  int
}

// ParseVersion parses "1.2", "1.2.1", "1.2b3" or "1.2 (Beta 3)".
func ParseVersion(s string) (Version, error) {
	s = BetaTokenVersion(strings.TrimSpace(s))

	var v Version
	number := s
	if idx := strings.IndexByte(s, 'b'); idx >= 0 {
		number = s[:idx]
		beta, err := strconv.Atoi(s[idx+1:])
		if err != nil {
			return Version{}, fmt.Errorf("invalid beta number in version %q", s)
		}
		v.Beta = beta
	}

	for _, part := range strings.Split(number, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		v.Parts = append(v.Parts, n)
	}
	return v, nil
}

// Compare returns -1, 0 or 1 comparing v against other.
func (v Version) Compare(other Version) int {
	limit := len(v.Parts)
	if len(other.Parts) > limit {
		limit = len(other.Parts)
	}
	for i := 0; i < limit; i++ {
		a, b := 0, 0
		if i < len(v.Parts) {
			a = v.Parts[i]
		}
		if i < len(other.Parts) {
			b = other.Parts[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	// Same release number: a beta sorts before the final release, and
	// betas order by beta number.
	va, vb := v.Beta, other.Beta
	switch {
	case va == vb:
		return 0
	case va == 0:
		return 1
	case vb == 0:
		return -1
	case va < vb:
		return -1
	default:
		return 1
	}
}
