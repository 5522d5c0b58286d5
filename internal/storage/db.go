// Package storage persists parsed station records. SQLite is the default
// backend; Postgres is available for deployments that already run one.
// ClickHouse is a separate, optional archive of raw ingest lines.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"fcc_stations/internal/station"
)

// Config holds settings for all storage backends.
type Config struct {
	Backend    string // "sqlite" or "postgres"
	SQLitePath string
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
}

// DefaultConfig returns local development settings.
func DefaultConfig() Config {
	return Config{
		Backend:    "sqlite",
		SQLitePath: "radio_stations.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "radio_stations",
			User:     "radio",
			Password: "radio",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "radio",
			User:     "default",
			Password: "",
		},
	}
}

// StationStore is the persistence contract shared by the SQLite and
// Postgres backends.
type StationStore interface {
	// CreateSchema creates tables and indices, idempotently.
	CreateSchema(ctx context.Context) error

	// Upsert stores one record keyed on call sign, replacing any previous
	// row for the same station.
	Upsert(ctx context.Context, st *station.Station) error

	// Stats returns aggregate counts over the stored dataset.
	Stats(ctx context.Context) (Stats, error)

	// Search finds stations whose call sign or city contains query.
	Search(ctx context.Context, query string, limit int) ([]station.Station, error)

	// Get looks up a single station by exact call sign.
	Get(ctx context.Context, callSign string) (*station.Station, error)

	// Unclassified returns stations without a genre.
	Unclassified(ctx context.Context, limit int) ([]station.Station, error)

	// SetGenre records a classified genre for a station.
	SetGenre(ctx context.Context, callSign, genre string) error

	Close() error
}

// Open opens the configured station store.
func Open(ctx context.Context, cfg Config) (StationStore, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// UpsertAll stores a batch of records, isolating per-record failures the
// same way the parser isolates per-line failures: a record that cannot be
// stored is logged and skipped, the rest of the batch continues.
func UpsertAll(ctx context.Context, store StationStore, stations []station.Station) (stored, skipped int) {
	for i := range stations {
		if err := store.Upsert(ctx, &stations[i]); err != nil {
			log.Printf("warning: failed to store %s: %v", stations[i].CallSign, err)
			skipped++
			continue
		}
		stored++
	}
	return stored, skipped
}

// stationColumns is the SELECT list matching scanStations. Shared by both
// SQL backends.
const stationColumns = `call_sign, facility_id, service_type, frequency, city, state,
	latitude, longitude, power_watts, licensee, status, COALESCE(genre, '')`

// stationRows is the subset of database/sql and pgx row iteration both
// backends provide.
type stationRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanStations reads station rows produced by a stationColumns query.
func scanStations(rows stationRows) ([]station.Station, error) {
	var out []station.Station
	for rows.Next() {
		var st station.Station
		var svc string
		var facilityID, city, state, licensee, status sql.NullString
		var lat, lon, power sql.NullFloat64

		err := rows.Scan(&st.CallSign, &facilityID, &svc, &st.Frequency, &city, &state,
			&lat, &lon, &power, &licensee, &status, &st.Genre)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}

		st.Service = station.Service(svc)
		st.FacilityID = facilityID.String
		st.City = city.String
		st.State = state.String
		st.Licensee = licensee.String
		st.Status = status.String
		if lat.Valid {
			st.Latitude = &lat.Float64
		}
		if lon.Valid {
			st.Longitude = &lon.Float64
		}
		if power.Valid {
			st.PowerWatts = &power.Float64
		}

		out = append(out, st)
	}
	return out, rows.Err()
}

// LabelCount is one row of a grouped count, e.g. stations per state.
type LabelCount struct {
	Label string
	Count int
}

// Stats aggregates the stored dataset for the stats command and API.
type Stats struct {
	Total      int
	FMCount    int
	AMCount    int
	Classified int
	ByStatus   []LabelCount
	TopStates  []LabelCount
}
