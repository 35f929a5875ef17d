package services

import (
	"regexp"
	"strconv"
	"strings"

	"immograph/config"
	"immograph/models"
)

var (
	// priceCharsRegexp keeps only digits, dots and commas — drops
	// currency symbols and whitespace.
	priceCharsRegexp = regexp.MustCompile(`[^\d.,]`)
	// newlineRunRegexp matches runs of newline/carriage-return/tab.
	newlineRunRegexp = regexp.MustCompile(`[\n\r\t]+`)
	// wideSpaceRegexp matches 3+ consecutive spaces.
	wideSpaceRegexp = regexp.MustCompile(` {3,}`)
)

// Normalizer parses raw locale-formatted listing fields into typed
// values. It is pure: no I/O, no shared state; a value that cannot be
// parsed becomes absent, never an error.
type Normalizer struct {
	rules *config.Rules
}

// NewNormalizer creates a Normalizer using the given per-source rules.
func NewNormalizer(rules *config.Rules) *Normalizer {
	return &Normalizer{rules: rules}
}

// Normalize produces the parsed listing for a raw record. The raw
// record is embedded untouched; each parsed field is independent, so a
// bad price never costs us the size.
func (n *Normalizer) Normalize(raw models.RawListing) *models.Listing {
	sr := n.rules.ForSource(raw.Source)

	l := &models.Listing{RawListing: raw}
	l.SizeSqM = parseEuroFloat(stripTokens(raw.RawSize, sr.SizeTokens))
	l.Rooms = parseEuroFloat(stripTokens(raw.RawRooms, sr.RoomTokens))
	l.PriceEUR = parseEuroFloat(priceCharsRegexp.ReplaceAllString(raw.RawPrice, ""))
	l.Location = cleanLocation(raw.RawLocation, sr)

	if sr.CleanupTitles {
		l.Title = cleanTitle(raw.Title)
	}
	return l
}

// parseEuroFloat applies European locale number parsing: dots and
// spaces are thousands separators, comma is the decimal separator.
// "1.250,50" parses to 1250.50. Empty input or a parse failure yields
// absent.
func parseEuroFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func stripTokens(s string, tokens []string) string {
	for _, t := range tokens {
		s = strings.ReplaceAll(s, t, "")
	}
	return s
}

// cleanLocation trims whitespace and quotes, then applies the source's
// ordered substitutions once. An empty result is absent.
func cleanLocation(s string, sr config.SourceRules) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `"`, "")
	for i := range sr.LocationSubs {
		s = sr.LocationSubs[i].Apply(s)
	}
	return strings.TrimSpace(s)
}

// cleanTitle collapses newline runs and wide space runs into a double
// space, then trims.
func cleanTitle(s string) string {
	s = newlineRunRegexp.ReplaceAllString(s, "  ")
	s = wideSpaceRegexp.ReplaceAllString(s, "  ")
	return strings.TrimSpace(s)
}
