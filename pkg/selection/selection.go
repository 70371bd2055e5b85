// Package selection parses user-entered index selections such as "1-3, 5, 8"
// and compresses index sets back into the same notation.
//
// Parsing is all-or-nothing: a selection with a single malformed or out of
// bounds token is rejected entirely so that a partially valid selection is
// never silently truncated.
package selection

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMalformedToken = errors.New("malformed range token")
	ErrOutOfBounds    = errors.New("selection out of bounds")
)

const (
	tokenSeparator = ","
	rangeSeparator = "-"
	hintPrefix     = "valid range: "

	// MaxSelection caps how many indices a single selection may expand to.
	MaxSelection = 1 << 20
)

// Parse returns the indices described by s. Every index must lie in
// [lower, upper]. The result keeps the order in which indices were written,
// duplicates included.
func Parse(s string, lower, upper int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.Wrap(ErrMalformedToken, "empty selection")
	}

	res := []int{}
	for _, token := range strings.Split(s, tokenSeparator) {
		start, end, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		if start < lower || end > upper {
			return nil, errors.Wrapf(ErrOutOfBounds, "%q not in [%d, %d]", strings.TrimSpace(token), lower, upper)
		}
		// start is never negative so end-start cannot overflow.
		if end-start >= MaxSelection-len(res) {
			return nil, errors.Wrapf(ErrOutOfBounds, "selection exceeds %d indices", MaxSelection)
		}
		for i := start; ; i++ {
			res = append(res, i)
			if i == end {
				break
			}
		}
	}

	return res, nil
}

func parseToken(token string) (int, int, error) {
	parts := strings.Split(token, rangeSeparator)
	switch len(parts) {
	case 1:
		value, err := parseNumber(parts[0])
		if err != nil {
			return 0, 0, errors.Wrapf(err, "token %q", strings.TrimSpace(token))
		}

		return value, value, nil
	case 2:
		start, err := parseNumber(parts[0])
		if err != nil {
			return 0, 0, errors.Wrapf(err, "range start in %q", strings.TrimSpace(token))
		}
		end, err := parseNumber(parts[1])
		if err != nil {
			return 0, 0, errors.Wrapf(err, "range end in %q", strings.TrimSpace(token))
		}
		if start > end {
			return 0, 0, errors.Wrapf(ErrMalformedToken, "descending range %q", strings.TrimSpace(token))
		}

		return start, end, nil
	default:
		return 0, 0, errors.Wrapf(ErrMalformedToken, "token %q", strings.TrimSpace(token))
	}
}

func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedToken
	}
	value, err := strconv.Atoi(s)
	if err != nil || value < 0 {
		return 0, ErrMalformedToken
	}

	return value, nil
}

// Canonical returns a sorted copy of values without duplicates.
func Canonical(values []int) []int {
	res := make([]int, 0, len(values))
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	sort.Ints(res)

	return res
}

// Compress renders values as the shortest selection string: runs of two or
// more consecutive indices collapse to "first-last" and the output is in
// ascending order.
func Compress(values []int) string {
	sorted := Canonical(values)
	parts := make([]string, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, strconv.Itoa(sorted[i])+rangeSeparator+strconv.Itoa(sorted[j]))
		} else {
			parts = append(parts, strconv.Itoa(sorted[i]))
		}
		i = j + 1
	}

	return strings.Join(parts, tokenSeparator+" ")
}

// Hint returns the placeholder text shown next to a selection box.
func Hint(values []int) string {
	return hintPrefix + Compress(values)
}
