package chapters

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SeriesIDLength is the length of the token that identifies a series at the
// end of a series URL, e.g. "https://site/manga-ab123456" -> "ab123456".
const SeriesIDLength = 8

var (
	ErrInvalidSeries = errors.New("invalid series reference")

	reSeriesID = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// SeriesID extracts the series token from a series URL or bare id. The token
// ends up in file names and object keys, so only word characters are allowed.
func SeriesID(ref string) (string, error) {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSeries)
	}

	id := ref
	if len(id) > SeriesIDLength {
		id = id[len(id)-SeriesIDLength:]
	}

	if !reSeriesID.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeries, id)
	}

	return id, nil
}

// DocumentName is the file name and storage key of an assembled document.
func DocumentName(seriesID string, r Range) string {
	return fmt.Sprintf("%s_%d-%d.pdf", seriesID, r.Min, r.Max)
}
