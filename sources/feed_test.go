package sources

import (
	"strings"
	"testing"

	"immograph/models"
)

func TestReadFeed(t *testing.T) {
	feed := `
{"url":"https://willhaben.at/iad/1","title":"Wohnung","location":"7. Bezirk, Neubaugasse 10","raw_size":"45 m²","raw_rooms":"2","price_raw":"€ 1.250","source":"willhaben","scraped_at":"2025-11-03T09:30:00Z"}

{"url":"https://immoscout24.at/expose/2","title":"Altbau","location":"Neubaugasse 10, 1070 Wien","raw_size":"62,5 m²","raw_rooms":"2,5 Zimmer","price_raw":"€ 1.100","source":"immoscout","multi_unit":true}
`

	listings, err := NewFeedReader().Read(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings; want 2 (blank lines skipped)", len(listings))
	}

	if listings[0].Source != models.SourceWillhaben {
		t.Errorf("source = %s; want willhaben", listings[0].Source)
	}
	if listings[0].ScrapedAt.IsZero() {
		t.Error("explicit scraped_at must be preserved")
	}
	if listings[1].Source != models.SourceImmoscout || !listings[1].MultiUnit {
		t.Errorf("second record wrong: %+v", listings[1])
	}
	if listings[1].ScrapedAt.IsZero() {
		t.Error("missing scraped_at must be defaulted")
	}
}

func TestReadFeedRejectsUnknownSource(t *testing.T) {
	feed := `{"url":"x","title":"y","source":"craigslist"}`

	if _, err := NewFeedReader().Read(strings.NewReader(feed)); err == nil {
		t.Error("unknown source must be an error")
	}
}

func TestReadFeedRejectsMalformedLine(t *testing.T) {
	feed := `{"url":"x","title":` // truncated

	if _, err := NewFeedReader().Read(strings.NewReader(feed)); err == nil {
		t.Error("malformed JSON must be an error")
	}
}
