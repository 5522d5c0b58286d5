package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fcc_stations/internal/station"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresStore is the station store backed by a PostgreSQL pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateSchema creates the stations table and indices.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS stations (
		call_sign    TEXT PRIMARY KEY,
		facility_id  TEXT,
		service_type TEXT NOT NULL,
		frequency    DOUBLE PRECISION NOT NULL,
		city         TEXT,
		state        TEXT,
		latitude     DOUBLE PRECISION,
		longitude    DOUBLE PRECISION,
		power_watts  DOUBLE PRECISION,
		licensee     TEXT,
		status       TEXT,
		genre        TEXT,
		data_source  TEXT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_stations_service ON stations(service_type);
	CREATE INDEX IF NOT EXISTS idx_stations_state ON stations(state);
	CREATE INDEX IF NOT EXISTS idx_stations_city ON stations(city);
	CREATE INDEX IF NOT EXISTS idx_stations_genre ON stations(genre);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Upsert stores one station keyed on call sign.
func (s *PostgresStore) Upsert(ctx context.Context, st *station.Station) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stations (call_sign, facility_id, service_type, frequency, city, state,
			latitude, longitude, power_watts, licensee, status, data_source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (call_sign) DO UPDATE SET
			facility_id = EXCLUDED.facility_id,
			service_type = EXCLUDED.service_type,
			frequency = EXCLUDED.frequency,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			power_watts = EXCLUDED.power_watts,
			licensee = EXCLUDED.licensee,
			status = EXCLUDED.status,
			data_source = EXCLUDED.data_source,
			updated_at = EXCLUDED.updated_at
	`, st.CallSign, st.FacilityID, string(st.Service), st.Frequency, st.City, st.State,
		st.Latitude, st.Longitude, st.PowerWatts, st.Licensee, st.Status, st.DataSource())
	if err != nil {
		return fmt.Errorf("upsert station: %w", err)
	}
	return nil
}

// Stats returns aggregate counts over the stored dataset.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE service_type = 'FM'),
			COUNT(*) FILTER (WHERE service_type = 'AM'),
			COUNT(*) FILTER (WHERE genre IS NOT NULL AND genre != '')
		FROM stations
	`).Scan(&stats.Total, &stats.FMCount, &stats.AMCount, &stats.Classified)
	if err != nil {
		return Stats{}, fmt.Errorf("count stations: %w", err)
	}

	stats.ByStatus, err = s.labelCounts(ctx, `
		SELECT COALESCE(status, ''), COUNT(*) FROM stations
		GROUP BY status ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return Stats{}, err
	}

	stats.TopStates, err = s.labelCounts(ctx, `
		SELECT COALESCE(state, ''), COUNT(*) FROM stations
		GROUP BY state ORDER BY COUNT(*) DESC LIMIT 10
	`)
	if err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func (s *PostgresStore) labelCounts(ctx context.Context, query string) ([]LabelCount, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grouped count: %w", err)
	}
	defer rows.Close()

	var out []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// Search finds stations whose call sign or city contains query.
func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]station.Station, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+stationColumns+`
		FROM stations
		WHERE call_sign ILIKE $1 OR city ILIKE $2
		ORDER BY call_sign
		LIMIT $3
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search stations: %w", err)
	}
	defer rows.Close()
	return scanStations(rows)
}

// Get looks up a single station by exact call sign.
func (s *PostgresStore) Get(ctx context.Context, callSign string) (*station.Station, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+stationColumns+` FROM stations WHERE call_sign = $1
	`, callSign)
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	defer rows.Close()

	stations, err := scanStations(rows)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, nil
	}
	return &stations[0], nil
}

// Unclassified returns stations without a genre.
func (s *PostgresStore) Unclassified(ctx context.Context, limit int) ([]station.Station, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+stationColumns+`
		FROM stations
		WHERE genre IS NULL OR genre = ''
		ORDER BY call_sign
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unclassified: %w", err)
	}
	defer rows.Close()
	return scanStations(rows)
}

// SetGenre records a classified genre for a station.
func (s *PostgresStore) SetGenre(ctx context.Context, callSign, genre string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE stations SET genre = $1 WHERE call_sign = $2
	`, genre, callSign)
	if err != nil {
		return fmt.Errorf("set genre: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set genre: no station %q", callSign)
	}
	return nil
}
