package statfile

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitLine tokenizes one raw line of a statistics file.
//
// Surrounding whitespace (including the trailing newline) is trimmed,
// embedded spaces are removed, and the result is split on ';'. An empty or
// all-whitespace line yields a single empty field.
func SplitLine(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.ReplaceAll(line, " ", "")
	return strings.Split(line, ";")
}

// field returns column i, or ErrMalformedRow if the row is too short.
func field(fields []string, i int) (string, error) {
	if i >= len(fields) {
		return "", fmt.Errorf("%w: column %d missing (row has %d)", ErrMalformedRow, i, len(fields))
	}
	return fields[i], nil
}

// fieldInt returns column i parsed as an integer. A present but non-numeric
// column parses as 0 (matching the tolerant numeric conversion of the file
// format); only a missing column is an error.
func fieldInt(fields []string, i int) (int, error) {
	s, err := field(fields, i)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(s)
	return n, nil
}

// fieldFloat is fieldInt for floating point columns.
func fieldFloat(fields []string, i int) (float64, error) {
	s, err := field(fields, i)
	if err != nil {
		return 0, err
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f, nil
}

// fieldByte returns column i clamped into a color channel.
func fieldByte(fields []string, i int) (uint8, error) {
	n, err := fieldInt(fields, i)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// isComment reports whether the first field marks a header/comment line.
func isComment(first string) bool {
	return strings.HasPrefix(first, "%")
}
