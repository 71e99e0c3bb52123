package importing

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ExtractCandidates reads CSV content and returns the deduplicated, validated
// ISBN candidates in first-seen order. The ordering is deterministic for a
// given input; the processor re-derives the sequence from the stored blob on
// every resume and relies on identical chunk boundaries.
//
// Rows that do not look like an ISBN (a header row included) are silently
// skipped. max caps the number of candidates; 0 means unlimited.
func ExtractCandidates(r io.Reader, max int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var candidates []string
	seen := make(map[string]struct{})

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}

		isbn, ok := normalizeISBN(record[0])
		if !ok {
			continue
		}
		if _, dup := seen[isbn]; dup {
			continue
		}

		seen[isbn] = struct{}{}
		candidates = append(candidates, isbn)

		if max > 0 && len(candidates) >= max {
			break
		}
	}

	return candidates, nil
}

// normalizeISBN strips whitespace and common separators and accepts 10 or 13
// digit identifiers. Anything else is not a candidate.
func normalizeISBN(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if len(cleaned) != 10 && len(cleaned) != 13 {
		return "", false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return cleaned, true
}
