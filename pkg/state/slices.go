package state

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrMalformedSlices = errors.New("malformed event slices")

// MaxEventSlices caps how many slices one event slice string may describe.
const MaxEventSlices = 10000

// stepTolerance absorbs rounding when the stepped span is a whole number of
// steps.
const stepTolerance = 1e-9

// SliceRange is a half-open time window [Start, Stop) in seconds.
type SliceRange struct {
	Start float64
	Stop  float64
}

// ParseEventSlices reads the event slice syntax used in the settings box and
// the override column. Tokens are comma separated and are either "a-b" (one
// slice), "start:step:stop" (consecutive slices of width step) or a bare
// boundary. Consecutive bare boundaries form slices between them.
func ParseEventSlices(s string) ([]SliceRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	res := []SliceRange{}
	var boundaries []float64
	flush := func() error {
		if len(boundaries) == 1 {
			return errors.Wrapf(ErrMalformedSlices, "lone boundary %v", boundaries[0])
		}
		for i := 1; i < len(boundaries); i++ {
			res = append(res, SliceRange{Start: boundaries[i-1], Stop: boundaries[i]})
		}
		boundaries = nil

		return nil
	}

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		switch {
		case strings.Contains(token, ":"):
			if err := flush(); err != nil {
				return nil, err
			}
			stepped, err := parseStepped(token)
			if err != nil {
				return nil, err
			}
			res = append(res, stepped...)
		case strings.Contains(token, "-"):
			if err := flush(); err != nil {
				return nil, err
			}
			r, err := parseRange(token)
			if err != nil {
				return nil, err
			}
			res = append(res, r)
		default:
			v, err := parseBoundary(token)
			if err != nil {
				return nil, err
			}
			if n := len(boundaries); n > 0 && v <= boundaries[n-1] {
				return nil, errors.Wrapf(ErrMalformedSlices, "boundaries not increasing at %q", token)
			}
			boundaries = append(boundaries, v)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(res) > MaxEventSlices {
		return nil, errors.Wrapf(ErrMalformedSlices, "%d slices, at most %d allowed", len(res), MaxEventSlices)
	}

	return res, nil
}

func parseBoundary(token string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || v < 0 {
		return 0, errors.Wrapf(ErrMalformedSlices, "boundary %q", token)
	}

	return v, nil
}

func parseRange(token string) (SliceRange, error) {
	start, stop, _ := strings.Cut(token, "-")
	a, err := parseBoundary(start)
	if err != nil {
		return SliceRange{}, err
	}
	b, err := parseBoundary(stop)
	if err != nil {
		return SliceRange{}, err
	}
	if b <= a {
		return SliceRange{}, errors.Wrapf(ErrMalformedSlices, "empty slice %q", token)
	}

	return SliceRange{Start: a, Stop: b}, nil
}

func parseStepped(token string) ([]SliceRange, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return nil, errors.Wrapf(ErrMalformedSlices, "stepped slice %q", token)
	}
	values := make([]float64, 3)
	for i, p := range parts {
		v, err := parseBoundary(p)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	start, step, stop := values[0], values[1], values[2]
	if step <= 0 || stop <= start {
		return nil, errors.Wrapf(ErrMalformedSlices, "stepped slice %q", token)
	}

	steps := (stop - start) / step
	if math.IsInf(steps, 0) || steps > MaxEventSlices {
		return nil, errors.Wrapf(ErrMalformedSlices, "stepped slice %q gives more than %d slices", token, MaxEventSlices)
	}
	n := int(math.Ceil(steps - stepTolerance))
	if n < 1 {
		n = 1
	}

	res := make([]SliceRange, 0, n)
	for i := range n {
		hi := start + float64(i+1)*step
		if i == n-1 || hi > stop {
			hi = stop
		}
		res = append(res, SliceRange{Start: start + float64(i)*step, Stop: hi})
	}

	return res, nil
}

// Ranges parses the configured event slices.
func (s SliceState) Ranges() ([]SliceRange, error) {
	return ParseEventSlices(s.EventSlices)
}
