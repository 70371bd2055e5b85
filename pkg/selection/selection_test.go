package selection_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/selection"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input        string
		lower, upper int
		want         []int
	}{
		"single number lower":   {input: "1", lower: 1, upper: 3, want: []int{1}},
		"single number middle":  {input: "2", lower: 1, upper: 3, want: []int{2}},
		"single number upper":   {input: "3", lower: 1, upper: 3, want: []int{3}},
		"single range":          {input: "1-3", lower: 1, upper: 3, want: []int{1, 2, 3}},
		"range inside bounds":   {input: "2-4", lower: 1, upper: 5, want: []int{2, 3, 4}},
		"range and number":      {input: "1-3, 5", lower: 1, upper: 5, want: []int{1, 2, 3, 5}},
		"spaces around hyphen":  {input: "15 -16, 16- 19", lower: 1, upper: 20, want: []int{15, 16, 16, 17, 18, 19}},
		"encounter order kept":  {input: "5, 1-2", lower: 0, upper: 10, want: []int{5, 1, 2}},
		"degenerate range":      {input: "4-4", lower: 0, upper: 10, want: []int{4}},
		"zero is a valid index": {input: "0", lower: 0, upper: 0, want: []int{0}},
		"largest int":           {input: "9223372036854775807", lower: 0, upper: math.MaxInt, want: []int{math.MaxInt}},
		"range ending at max":   {input: "9223372036854775806-9223372036854775807", lower: 0, upper: math.MaxInt, want: []int{math.MaxInt - 1, math.MaxInt}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := selection.Parse(tc.input, tc.lower, tc.upper)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseMixedSelectionCanonical(t *testing.T) {
	t.Parallel()

	got, err := selection.Parse("1-3, 5,8,10, 11 ,12-14 , 15 -16, 16- 19", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5, 8, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, selection.Canonical(got))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input        string
		lower, upper int
		want         error
	}{
		"negative number":         {input: "-1", lower: 1, upper: 1, want: selection.ErrMalformedToken},
		"below lower":             {input: "1", lower: 2, upper: 2, want: selection.ErrOutOfBounds},
		"below lower wide":        {input: "1", lower: 2, upper: 3, want: selection.ErrOutOfBounds},
		"range end above upper":   {input: "2-4", lower: 2, upper: 3, want: selection.ErrOutOfBounds},
		"range start below lower": {input: "2-4", lower: 3, upper: 5, want: selection.ErrOutOfBounds},
		"empty":                   {input: "  ", lower: 0, upper: 5, want: selection.ErrMalformedToken},
		"empty token":             {input: "1,,2", lower: 0, upper: 5, want: selection.ErrMalformedToken},
		"not a number":            {input: "1, a", lower: 0, upper: 5, want: selection.ErrMalformedToken},
		"double hyphen":           {input: "1-2-3", lower: 0, upper: 5, want: selection.ErrMalformedToken},
		"descending range":        {input: "3-1", lower: 0, upper: 5, want: selection.ErrMalformedToken},
		"one bad token of many":   {input: "1-3, 5, 99", lower: 0, upper: 10, want: selection.ErrOutOfBounds},
		"range too wide":          {input: "0-9000000000000", lower: 0, upper: math.MaxInt, want: selection.ErrOutOfBounds},
		"whole int range":         {input: "0-9223372036854775807", lower: 0, upper: math.MaxInt, want: selection.ErrOutOfBounds},
		"too many in total":       {input: "0-600000, 0-600000", lower: 0, upper: math.MaxInt, want: selection.ErrOutOfBounds},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := selection.Parse(tc.input, tc.lower, tc.upper)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, got)
		})
	}
}

func TestCompress(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input []int
		want  string
	}{
		"empty":         {input: nil, want: ""},
		"single":        {input: []int{4}, want: "4"},
		"mixed":         {input: []int{1, 2, 3, 5, 8}, want: "1-3, 5, 8"},
		"pair":          {input: []int{7, 8}, want: "7-8"},
		"unsorted dups": {input: []int{8, 3, 1, 2, 3, 5}, want: "1-3, 5, 8"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, selection.Compress(tc.input))
		})
	}
}

func TestHintWithGaps(t *testing.T) {
	t.Parallel()

	values := []int{}
	for i := 1; i <= 10; i++ {
		values = append(values, i)
	}
	for i := 17; i <= 21; i++ {
		values = append(values, i)
	}
	values = append(values, 23, 25, 27, 29, 31)
	for i := 71; i <= 100; i++ {
		values = append(values, i)
	}

	assert.Equal(t, "valid range: 1-10, 17-21, 23, 25, 27, 29, 31, 71-100", selection.Hint(values))
}

func TestCompressParseRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{"1-3, 5", "9, 2-4, 3", "10", "0-2, 4-6, 8"}
	for _, input := range inputs {
		parsed, err := selection.Parse(input, 0, 20)
		require.NoError(t, err)

		reparsed, err := selection.Parse(selection.Compress(parsed), 0, 20)
		require.NoError(t, err)
		assert.Equal(t, selection.Canonical(parsed), selection.Canonical(reparsed), input)
	}
}
