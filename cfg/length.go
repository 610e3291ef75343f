package cfg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LengthRange is an inclusive bound on the number of dialogue lines.
type LengthRange struct {
	Min int
	Max int
}

func (r LengthRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r LengthRange) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%d lines", r.Min)
	}
	return fmt.Sprintf("%d-%d lines", r.Min, r.Max)
}

var lengthRe = regexp.MustCompile(`^(?:about\s+|approximately\s+|around\s+)?(\d+)(?:\s*(?:-|–|to)\s*(\d+))?(?:\s+(?:lines?|exchanges?|turns?))?$`)

// ParseLengthRange accepts forms like "5", "10-12 lines" or "8 to 10 turns".
func ParseLengthRange(s string) (LengthRange, error) {
	m := lengthRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return LengthRange{}, fmt.Errorf("cannot parse %q, expected a line count such as \"10-12 lines\"", s)
	}

	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return LengthRange{}, fmt.Errorf("bad line count %q: %w", m[1], err)
	}

	hi := lo
	if m[2] != "" {
		if hi, err = strconv.Atoi(m[2]); err != nil {
			return LengthRange{}, fmt.Errorf("bad line count %q: %w", m[2], err)
		}
	}

	if lo <= 0 {
		return LengthRange{}, fmt.Errorf("line count must be positive, got %d", lo)
	}
	if lo > hi {
		return LengthRange{}, fmt.Errorf("minimum %d is greater than maximum %d", lo, hi)
	}

	return LengthRange{Min: lo, Max: hi}, nil
}
