package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPages(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		pagenos string
		want    []int
	}{
		{"none", nil, "", nil},
		{"numbers", []int{3, 1}, "", []int{0, 2}},
		{"duplicates", []int{2, 2, 1}, "", []int{0, 1}},
		{"pagenos", nil, "1,3,5", []int{0, 2, 4}},
		{"pagenos wins", []int{9}, "2", []int{1}},
		{"range", nil, "2-4, 7", []int{1, 2, 3, 6}},
		{"single page range", nil, "3-3", []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectPages(tt.numbers, tt.pagenos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectPages_Errors(t *testing.T) {
	for _, tt := range []struct {
		numbers []int
		pagenos string
	}{
		{[]int{0}, ""},
		{nil, "a"},
		{nil, "5-2"},
		{nil, "1-x"},
		{nil, "0"},
		{nil, "1-2000000000"},
	} {
		_, err := selectPages(tt.numbers, tt.pagenos)
		assert.Error(t, err, "%v %q", tt.numbers, tt.pagenos)
	}
}

func TestParsePageList_LargestRange(t *testing.T) {
	pages, err := parsePageList("1-100000")
	require.NoError(t, err)
	assert.Len(t, pages, maxRangePages)

	_, err = parsePageList("1-100001")
	assert.ErrorContains(t, err, "more than 100000 pages")
}
