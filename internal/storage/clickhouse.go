package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Archive is an append-only ClickHouse log of raw ingest lines and their
// parse outcomes. It exists to study upstream format drift after the fact;
// the batch pipeline works fine without it.
type Archive struct {
	conn driver.Conn
}

// OpenArchive connects to ClickHouse and ensures the archive table exists.
func OpenArchive(ctx context.Context, cfg ClickHouseConfig) (*Archive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	a := &Archive{conn: conn}
	if err := a.CreateSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the ClickHouse connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

// CreateSchema creates the ingest_lines table.
func (a *Archive) CreateSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS ingest_lines (
		batch_id     String,
		service      LowCardinality(String),
		line_no      UInt32,
		raw_line     String,
		parsed_ok    UInt8,
		call_sign    LowCardinality(String),
		fetched_at   DateTime64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(fetched_at)
	ORDER BY (service, fetched_at, line_no)`

	if err := a.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

// LineOutcome records how one raw line fared in the parser.
type LineOutcome struct {
	LineNo   int
	RawLine  string
	ParsedOK bool
	CallSign string // empty when the line failed
}

// ArchiveBatch appends one fetch's raw lines and outcomes.
func (a *Archive) ArchiveBatch(ctx context.Context, batchID, service string, fetchedAt time.Time, lines []LineOutcome) error {
	if len(lines) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO ingest_lines (batch_id, service, line_no, raw_line, parsed_ok, call_sign, fetched_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare archive batch: %w", err)
	}

	for _, l := range lines {
		ok := uint8(0)
		if l.ParsedOK {
			ok = 1
		}
		if err := batch.Append(batchID, service, uint32(l.LineNo), l.RawLine, ok, l.CallSign, fetchedAt); err != nil {
			return fmt.Errorf("append archive row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send archive batch: %w", err)
	}
	return nil
}
