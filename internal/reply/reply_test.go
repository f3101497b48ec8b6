package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"none", "NONE", []int{}},
		{"none padded", "  NONE\n", []int{}},
		{"lowercase none is not the token", "none", []int{}},
		{"empty", "", []int{}},
		{"whitespace", " \t\n", []int{}},
		{"spaced list", "1, 5,12", []int{1, 5, 12}},
		{"junk and non-positive", "abc,3,-1,0", []int{3}},
		{"order preserved with duplicates", "9,2,9", []int{9, 2, 9}},
		{"trailing comma", "4,", []int{4}},
		{"sentence is dropped", "The answer is 4", []int{}},
		{"decimal keeps integer part", "1.5,2", []int{1, 2}},
		{"trailing period", "3, 7, 50.", []int{3, 7, 50}},
		{"prose after last number", "1,5,12\nThese are the matches", []int{1, 5, 12}},
		{"explicit plus sign", "+4,x9", []int{4}},
		{"newline separated tokens", "3\n,7", []int{3, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestParse_NeverPanics(t *testing.T) {
	for _, in := range []string{",,,", "99999999999999999999999", "\x00,1", "NONE,1"} {
		assert.NotPanics(t, func() { Parse(in) })
	}
	assert.Equal(t, []int{1}, Parse("NONE,1"))
}
