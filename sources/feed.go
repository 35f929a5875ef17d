package sources

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"immograph/models"
)

// FeedReader consumes RawListing feeds written by the site-specific
// extractors: one JSON object per line. Records must carry a supported
// source tag so the pipeline can route them to the right normalization
// rules.
type FeedReader struct {
	now func() time.Time
}

// NewFeedReader creates a FeedReader.
func NewFeedReader() *FeedReader {
	return &FeedReader{now: time.Now}
}

// ReadFile loads every record from the feed file at path.
func (f *FeedReader) ReadFile(path string) ([]models.RawListing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %q: %w", path, err)
	}
	defer file.Close()

	listings, err := f.Read(file)
	if err != nil {
		return nil, fmt.Errorf("feed: %q: %w", path, err)
	}
	return listings, nil
}

// Read decodes newline-delimited JSON records. Blank lines are skipped;
// a malformed line or an unknown source is an error, since a feed that
// cannot be trusted should not be half-ingested.
func (f *FeedReader) Read(r io.Reader) ([]models.RawListing, error) {
	var listings []models.RawListing

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw models.RawListing
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if raw.Source != models.SourceWillhaben && raw.Source != models.SourceImmoscout {
			return nil, fmt.Errorf("line %d: unsupported source %q", lineNo, raw.Source)
		}
		if raw.ScrapedAt.IsZero() {
			raw.ScrapedAt = f.now()
		}
		listings = append(listings, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return listings, nil
}
