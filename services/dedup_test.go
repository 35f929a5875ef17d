package services

import (
	"testing"

	"immograph/config"
	"immograph/models"
)

func priceQuantizer() Quantizer {
	return NewQuantizer(config.DefaultRules().PriceTolerance)
}

func TestQuantizerIdempotent(t *testing.T) {
	q := priceQuantizer()

	for _, v := range []float64{100, 1000, 50000, 99999, 100000} {
		first := q.Bucket(&v)
		second := q.Bucket(&v)
		if first != second {
			t.Errorf("bucket(%g) not stable: %d then %d", v, first, second)
		}
	}
}

func TestQuantizerMonotonic(t *testing.T) {
	q := priceQuantizer()

	prev := -1
	for v := 100.0; v <= 100000; v += 500 {
		val := v
		b := q.Bucket(&val)
		if b < prev {
			t.Fatalf("bucket(%g) = %d < previous %d", v, b, prev)
		}
		prev = b
	}
}

func TestQuantizerMaxLandsInLastBucket(t *testing.T) {
	q := priceQuantizer()

	max := 100000.0
	if got := q.Bucket(&max); got != q.buckets-1 {
		t.Errorf("bucket(max) = %d; want last bucket %d", got, q.buckets-1)
	}
}

func TestQuantizerClampsOutOfRange(t *testing.T) {
	q := priceQuantizer()

	low, high := 1.0, 1e9
	if got := q.Bucket(&low); got != 0 {
		t.Errorf("bucket(below min) = %d; want 0", got)
	}
	if got := q.Bucket(&high); got != q.buckets-1 {
		t.Errorf("bucket(above max) = %d; want %d", got, q.buckets-1)
	}
}

func TestQuantizerAbsentValue(t *testing.T) {
	q := priceQuantizer()

	if got := q.Bucket(nil); got != unknownBucket {
		t.Errorf("bucket(absent) = %d; want %d", got, unknownBucket)
	}
}

func dedupListing(title, location string, price, size *float64) *models.Listing {
	return &models.Listing{
		RawListing: models.RawListing{Title: title},
		Location:   location,
		PriceEUR:   price,
		SizeSqM:    size,
	}
}

func TestFingerprintTolerantToSmallPriceShift(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))
	b := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1005), models.Float(45))
	c := dedupListing("Wohnung", "Neubaugasse 10", models.Float(50000), models.Float(45))

	if d.Fingerprint(a) != d.Fingerprint(b) {
		t.Error("prices 1000 and 1005 should land in the same bucket")
	}
	if d.Fingerprint(a) == d.Fingerprint(c) {
		t.Error("prices 1000 and 50000 must not collide")
	}
}

func TestFingerprintCaseInsensitive(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Helle Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))
	b := dedupListing("HELLE WOHNUNG", "NEUBAUGASSE 10", models.Float(1000), models.Float(45))

	if d.Fingerprint(a) != d.Fingerprint(b) {
		t.Error("fingerprint must be case-insensitive")
	}
}

func TestFingerprintIgnoresURL(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))
	a.URL = "https://willhaben.at/iad/1"
	b := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))
	b.URL = "https://immoscout24.at/expose/99"

	if d.Fingerprint(a) != d.Fingerprint(b) {
		t.Error("relisted listing under a second URL must still collide")
	}
}

func TestFingerprintAbsentPriceDoesNotCollideAcrossTitles(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Wohnung A", "Neubaugasse 10", nil, models.Float(45))
	b := dedupListing("Wohnung B", "Neubaugasse 10", nil, models.Float(45))

	if d.Fingerprint(a) == d.Fingerprint(b) {
		t.Error("two records both missing price must still differ on title")
	}
}

func TestDedupFirstWins(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))
	b := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1005), models.Float(45))

	if res := d.Check(a); res.Status != models.StatusAccepted {
		t.Fatal("first occurrence must be unique")
	}
	if res := d.Check(b); res.Status != models.StatusDuplicate {
		t.Fatal("second occurrence must be a duplicate")
	}
	if d.SeenCount() != 1 {
		t.Errorf("seen count = %d; want 1", d.SeenCount())
	}
}

func TestDedupSwappedArrivalOrder(t *testing.T) {
	d := NewDeduplicator(config.DefaultRules(), newTestLogger())

	a := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1005), models.Float(45))
	b := dedupListing("Wohnung", "Neubaugasse 10", models.Float(1000), models.Float(45))

	accepted := 0
	for _, l := range []*models.Listing{a, b} {
		if d.Check(l).Status == models.StatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("exactly one of a colliding pair must be accepted, got %d", accepted)
	}
}
