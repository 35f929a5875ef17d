package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"immograph/config"
	"immograph/models"
	"immograph/utils"
)

// unknownBucket is the bucket index for absent values. It is distinct
// from every real bucket so two records that both lack a price still
// have to match on location and title to collide.
const unknownBucket = -1

// Quantizer maps a continuous value into one of a fixed number of
// tolerance buckets over [min, max].
type Quantizer struct {
	min        float64
	max        float64
	bucketSize float64
	buckets    int
}

// NewQuantizer builds a Quantizer where each bucket spans pct percent
// of the range.
func NewQuantizer(t config.Tolerance) Quantizer {
	span := t.Bounds.Max - t.Bounds.Min
	size := span * t.Percent / 100
	return Quantizer{
		min:        t.Bounds.Min,
		max:        t.Bounds.Max,
		bucketSize: size,
		buckets:    int(math.Ceil(span / size)),
	}
}

// Bucket returns the bucket index for v. Values are clamped into the
// range first; the maximum boundary value lands in the last bucket,
// never one past it. Absent values map to the unknown bucket.
func (q Quantizer) Bucket(v *float64) int {
	if v == nil {
		return unknownBucket
	}

	clamped := *v
	if clamped < q.min {
		clamped = q.min
	}
	if clamped > q.max {
		clamped = q.max
	}

	idx := int(math.Floor((clamped - q.min) / q.bucketSize))
	if idx >= q.buckets {
		idx = q.buckets - 1
	}
	return idx
}

// Deduplicator rejects records whose tolerance-bucketed fingerprint was
// already seen in this run. The seen set is exclusively owned by this
// instance, created at run start, and never persisted; a listing
// re-scraped on a later run is accepted again and refreshed by the
// sink's coalesce upsert.
type Deduplicator struct {
	price  Quantizer
	size   Quantizer
	seen   *utils.Set
	logger *utils.Logger
}

// NewDeduplicator creates a Deduplicator with an empty seen set.
func NewDeduplicator(rules *config.Rules, logger *utils.Logger) *Deduplicator {
	return &Deduplicator{
		price:  NewQuantizer(rules.PriceTolerance),
		size:   NewQuantizer(rules.SizeTolerance),
		seen:   utils.NewSet(),
		logger: logger,
	}
}

// Check reports whether the listing is the first occurrence of its
// fingerprint in this run. First wins: the check-and-insert is atomic,
// so of two concurrent records with the same fingerprint exactly one is
// accepted.
func (d *Deduplicator) Check(l *models.Listing) models.StageResult {
	fp := d.Fingerprint(l)
	if d.seen.Add(fp) {
		return models.Accepted()
	}
	d.logger.Debug("[dedup] duplicate fingerprint for %s", l.URL)
	return models.Duplicate()
}

// Fingerprint digests the listing's identity dimensions. The URL is
// deliberately excluded: the same physical listing posted under two
// URLs still collides.
func (d *Deduplicator) Fingerprint(l *models.Listing) string {
	key := fmt.Sprintf("%s|%s|%d|%d",
		l.Location, l.Title, d.price.Bucket(l.PriceEUR), d.size.Bucket(l.SizeSqM))
	sum := sha256.Sum256([]byte(strings.ToLower(key)))
	return hex.EncodeToString(sum[:])
}

// SeenCount returns the number of distinct fingerprints accepted so far.
func (d *Deduplicator) SeenCount() int {
	return d.seen.Size()
}
