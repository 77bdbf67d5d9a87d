package inference

import (
	"regexp"
	"strings"
)

// gapPattern separates cells by a tab or a run of two or more spaces
var gapPattern = regexp.MustCompile(`\t|\s{2,}`)

// splitter splits a line into cells
type splitter func(line string) []string

// chooseSplitter returns the delimiter splitter when a delimiter is set, the
// gap splitter when any line has a gap, and plain whitespace splitting
// otherwise.
func chooseSplitter(lines []string, delimiter string) splitter {
	if delimiter != "" {
		return func(line string) []string {
			parts := strings.Split(line, delimiter)
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	for _, l := range lines {
		if gapPattern.MatchString(strings.TrimSpace(l)) {
			return func(line string) []string {
				return gapPattern.Split(strings.TrimSpace(line), -1)
			}
		}
	}
	return strings.Fields
}

// modeCount returns the most frequent cell count; ties go to the larger count
func modeCount(rows [][]string) int {
	freq := map[int]int{}
	best, bestFreq := 0, 0
	for _, r := range rows {
		n := len(r)
		freq[n]++
		if freq[n] > bestFreq || (freq[n] == bestFreq && n > best) {
			best, bestFreq = n, freq[n]
		}
	}
	return best
}

func maxCount(rows [][]string) int {
	m := 0
	for _, r := range rows {
		if len(r) > m {
			m = len(r)
		}
	}
	return m
}

// fit pads a row to n cells, or merges the trailing cells into the last one
func fit(row []string, n int) (out []string, merged bool) {
	switch {
	case len(row) == n:
		return row, false
	case len(row) < n:
		out = make([]string, n)
		copy(out, row)
		return out, false
	}
	if n == 0 {
		return nil, true
	}
	out = make([]string, n)
	copy(out, row[:n-1])
	out[n-1] = strings.Join(row[n-1:], " ")
	return out, true
}

// truncate pads a row to n cells or drops the extra ones
func truncate(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
