package models

import "time"

// Source identifies which site a listing was scraped from.
type Source string

const (
	SourceWillhaben Source = "willhaben"
	SourceImmoscout Source = "immoscout"
)

// RawListing holds unprocessed scraped data exactly as the extractors
// emitted it. Values are locale-formatted strings; parsing happens in
// the normalizer.
type RawListing struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	RawLocation string    `json:"location"`
	RawSize     string    `json:"raw_size"`
	RawRooms    string    `json:"raw_rooms"`
	RawPrice    string    `json:"price_raw"`
	ScrapedAt   time.Time `json:"scraped_at"`
	Source      Source    `json:"source"`
	MultiUnit   bool      `json:"multi_unit,omitempty"`
}

// Listing carries a record through the pipeline. The normalizer fills
// the parsed fields, the resolver fills the enrichment fields; a nil
// float or empty string means the value is absent.
type Listing struct {
	RawListing

	SizeSqM  *float64
	Rooms    *float64
	PriceEUR *float64
	Location string

	PlaceID string
	Lat     *float64
	Lon     *float64
}

// Enriched reports whether all three enrichment fields are already
// populated, in which case the resolver is skipped entirely.
func (l *Listing) Enriched() bool {
	return l.PlaceID != "" && l.Lat != nil && l.Lon != nil
}

// RejectReason classifies why a record was dropped.
type RejectReason string

const (
	ReasonMissingURL       RejectReason = "MISSING_URL"
	ReasonMissingTitle     RejectReason = "MISSING_TITLE"
	ReasonMissingLocation  RejectReason = "MISSING_LOCATION"
	ReasonMissingPrice     RejectReason = "MISSING_PRICE"
	ReasonMissingSize      RejectReason = "MISSING_SIZE"
	ReasonMissingRooms     RejectReason = "MISSING_ROOMS"
	ReasonPriceOutOfBounds RejectReason = "PRICE_OUT_OF_BOUNDS"
	ReasonSizeOutOfBounds  RejectReason = "SIZE_OUT_OF_BOUNDS"
	ReasonRoomsOutOfBounds RejectReason = "ROOMS_OUT_OF_BOUNDS"
	ReasonGeocodingFailed  RejectReason = "GEOCODING_FAILED"
)

// StageStatus tags the outcome of a pipeline stage for one record.
type StageStatus int

const (
	StatusAccepted StageStatus = iota
	StatusRejected
	StatusDuplicate
)

// StageResult is the explicit routed result of a stage, replacing
// drop-this-record exceptions.
type StageResult struct {
	Status StageStatus
	Reason RejectReason
}

func Accepted() StageResult { return StageResult{Status: StatusAccepted} }

func Rejected(r RejectReason) StageResult {
	return StageResult{Status: StatusRejected, Reason: r}
}

func Duplicate() StageResult { return StageResult{Status: StatusDuplicate} }

// RunReport summarizes one pipeline run: enough to audit data loss
// without inspecting individual records.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Consumed   int
	Accepted   int
	Duplicates int
	Rejections map[RejectReason]int

	GeocodeLookups   int
	GeocodeCacheHits int
	BatchesFlushed   int
}

// Float returns a pointer to v; shorthand for building optional fields.
func Float(v float64) *float64 { return &v }
