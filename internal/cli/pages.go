package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// selectPages turns 1-based page numbers into sorted 0-based indices.
// pagenos, when set, replaces numbers. nil selects every page.
func selectPages(numbers []int, pagenos string) ([]int, error) {
	if pagenos != "" {
		var err error
		if numbers, err = parsePageList(pagenos); err != nil {
			return nil, fmt.Errorf("invalid page list %q: %w", pagenos, err)
		}
	}
	if len(numbers) == 0 {
		return nil, nil
	}
	indices := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 {
			return nil, fmt.Errorf("page number %d: pages start at 1", n)
		}
		indices = append(indices, n-1)
	}
	slices.Sort(indices)
	return slices.Compact(indices), nil
}

// maxRangePages bounds the number of pages a single range may select.
const maxRangePages = 100_000

// parsePageList parses "1,3,5" and ranges such as "2-4".
func parsePageList(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			p, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", part)
			}
			pages = append(pages, p)
			continue
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", lo)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", hi)
		}
		if start > end {
			return nil, fmt.Errorf("invalid range: %s", part)
		}
		if end-start >= maxRangePages {
			return nil, fmt.Errorf("range %s selects more than %d pages", part, maxRangePages)
		}
		for p := start; p <= end; p++ {
			pages = append(pages, p)
		}
	}
	return pages, nil
}
