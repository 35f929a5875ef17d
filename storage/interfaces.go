package storage

import (
	"context"

	"immograph/models"
)

// BatchSink accumulates accepted listings and commits them in batches.
// Implementations must flush the partial tail batch on Flush and fail
// fast at construction when the store is unreachable.
type BatchSink interface {
	Submit(ctx context.Context, l *models.Listing) error
	Flush(ctx context.Context) error
	Flushed() int
	Close(ctx context.Context) error
}

// RawListingWriter persists unprocessed scraped data for auditing.
type RawListingWriter interface {
	WriteRaw(listings []models.RawListing) error
	Close() error
}
