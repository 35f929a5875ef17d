package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"immograph/models"
	"immograph/utils"
)

// upsertCypher writes one batch of flattened rows in a single
// transaction. Every SET goes through coalesce so re-delivering a row
// refreshes newly non-null fields without erasing previously written
// values.
const upsertCypher = `
UNWIND $rows AS row

MERGE (re:` + "`Real Estate`" + ` {url: row.url})
SET
    re.title      = coalesce(row.title, re.title),
    re.livingArea = coalesce(row.size_m2, re.livingArea),
    re.area       = coalesce(row.size_m2, re.area),
    re.found      = coalesce(row.scraped_at, re.found),
    re.source     = coalesce(row.source, re.source),
    re.multiUnit  = coalesce(row.multi_unit, re.multiUnit)

MERGE (rent:Rental {url: row.url})
SET
    rent.priceInEur = coalesce(row.price_eur, rent.priceInEur),
    rent.priceAt    = coalesce(row.scraped_at, rent.priceAt)

MERGE (rm:Rooms {url: row.url})
SET
    rm.count = coalesce(row.rooms, rm.count)

MERGE (addr:Address {streetId: row.place_id})
SET
    addr.Street    = coalesce(row.location, addr.Street),
    addr.latitude  = coalesce(row.lat, addr.latitude),
    addr.longitude = coalesce(row.lon, addr.longitude)

MERGE (re)-[:HAS_ROOMS]->(rm)
MERGE (re)-[:HAS_TYPE]->(rent)
MERGE (re)-[:IS_IN]->(addr)
MERGE (addr)-[:HAS_REAL_ESTATE]->(re)
`

// rowCommitter commits one batch of rows as a single transaction.
// Extracted so the batching logic is testable without a server.
type rowCommitter interface {
	commit(ctx context.Context, rows []map[string]any) error
	close(ctx context.Context) error
}

// Neo4jSink batches flattened listing rows and upserts each batch in
// one write transaction. Appends and flush decisions happen under one
// mutex so concurrent submitters never flush overlapping batches.
type Neo4jSink struct {
	committer rowCommitter
	batchSize int
	logger    *utils.Logger

	mu      sync.Mutex
	batch   []map[string]any
	flushed int
}

// Neo4jConfig carries what the sink needs to reach the store.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// NewNeo4jSink connects to Neo4j and verifies connectivity before
// returning. An unreachable store or missing credentials is a startup
// error; the pipeline must not run against a sink that silently drops
// records.
func NewNeo4jSink(ctx context.Context, cfg Neo4jConfig, batchSize int, logger *utils.Logger) (*Neo4jSink, error) {
	if cfg.URI == "" || cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("neo4j: uri, user and password must be configured")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: cfg.Database})
	return newSink(&neo4jCommitter{driver: driver, session: session}, batchSize, logger), nil
}

func newSink(c rowCommitter, batchSize int, logger *utils.Logger) *Neo4jSink {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Neo4jSink{
		committer: c,
		batchSize: batchSize,
		logger:    logger,
		batch:     make([]map[string]any, 0, batchSize),
	}
}

// Submit appends the flattened listing to the current batch and commits
// synchronously once the batch threshold is reached.
func (s *Neo4jSink) Submit(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, flatten(l))
	if len(s.batch) >= s.batchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

// Flush commits any partial batch. Called at shutdown so accepted
// records buffered in the tail are not lost.
func (s *Neo4jSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Neo4jSink) flushLocked(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	rows := s.batch
	s.batch = make([]map[string]any, 0, s.batchSize)

	if err := s.committer.commit(ctx, rows); err != nil {
		return fmt.Errorf("neo4j: commit batch of %d: %w", len(rows), err)
	}
	s.flushed++
	s.logger.Debug("[sink] flushed batch of %d rows", len(rows))
	return nil
}

// Flushed returns the number of batches committed so far.
func (s *Neo4jSink) Flushed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed
}

// Close closes the underlying session and driver.
func (s *Neo4jSink) Close(ctx context.Context) error {
	return s.committer.close(ctx)
}

// flatten converts a listing to the scalar row shape the upsert
// consumes: ISO-8601 timestamps, plain floats, and explicit nils for
// absent fields so coalesce preserves previously written values.
func flatten(l *models.Listing) map[string]any {
	return map[string]any{
		"url":        l.URL,
		"title":      nullableString(l.Title),
		"size_m2":    nullableFloat(l.SizeSqM),
		"rooms":      nullableFloat(l.Rooms),
		"price_eur":  nullableFloat(l.PriceEUR),
		"location":   nullableString(l.Location),
		"place_id":   nullableString(l.PlaceID),
		"lat":        nullableFloat(l.Lat),
		"lon":        nullableFloat(l.Lon),
		"scraped_at": l.ScrapedAt.Format(time.RFC3339),
		"source":     string(l.Source),
		"multi_unit": l.MultiUnit,
	}
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// neo4jCommitter is the production committer backed by a driver session.
type neo4jCommitter struct {
	driver  neo4j.DriverWithContext
	session neo4j.SessionWithContext
}

func (c *neo4jCommitter) commit(ctx context.Context, rows []map[string]any) error {
	_, err := c.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, upsertCypher, map[string]any{"rows": rows})
	})
	return err
}

func (c *neo4jCommitter) close(ctx context.Context) error {
	if err := c.session.Close(ctx); err != nil {
		return err
	}
	return c.driver.Close(ctx)
}
