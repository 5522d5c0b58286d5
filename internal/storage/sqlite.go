package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"fcc_stations/internal/station"
)

// SQLiteStore is the default single-file station store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the SQLite database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps readers (stats/search/API) usable during a fetch batch.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.CreateSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSchema creates the stations table and indices.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS stations (
		call_sign    TEXT PRIMARY KEY,
		facility_id  TEXT,
		service_type TEXT NOT NULL,
		frequency    REAL NOT NULL,
		city         TEXT,
		state        TEXT,
		latitude     REAL,
		longitude    REAL,
		power_watts  REAL,
		licensee     TEXT,
		status       TEXT,
		genre        TEXT,
		data_source  TEXT NOT NULL,
		updated_at   TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_stations_service ON stations(service_type);
	CREATE INDEX IF NOT EXISTS idx_stations_state ON stations(state);
	CREATE INDEX IF NOT EXISTS idx_stations_city ON stations(city);
	CREATE INDEX IF NOT EXISTS idx_stations_genre ON stations(genre);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Upsert stores one station keyed on call sign. A refetch replaces the
// previous row but keeps an already-classified genre.
func (s *SQLiteStore) Upsert(ctx context.Context, st *station.Station) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stations (call_sign, facility_id, service_type, frequency, city, state,
			latitude, longitude, power_watts, licensee, status, data_source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(call_sign) DO UPDATE SET
			facility_id = excluded.facility_id,
			service_type = excluded.service_type,
			frequency = excluded.frequency,
			city = excluded.city,
			state = excluded.state,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			power_watts = excluded.power_watts,
			licensee = excluded.licensee,
			status = excluded.status,
			data_source = excluded.data_source,
			updated_at = excluded.updated_at
	`, st.CallSign, st.FacilityID, string(st.Service), st.Frequency, st.City, st.State,
		st.Latitude, st.Longitude, st.PowerWatts, st.Licensee, st.Status, st.DataSource())
	if err != nil {
		return fmt.Errorf("upsert station: %w", err)
	}
	return nil
}

// Stats returns aggregate counts over the stored dataset.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(service_type = 'FM'), 0),
			COALESCE(SUM(service_type = 'AM'), 0),
			COALESCE(SUM(genre IS NOT NULL AND genre != ''), 0)
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

func (s *SQLiteStore) labelCounts(ctx context.Context, query string) ([]LabelCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grouped count: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]station.Station, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stationColumns+`
		FROM stations
		WHERE call_sign LIKE ? OR city LIKE ?
		ORDER BY call_sign
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search stations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStations(rows)
}

// Get looks up a single station by exact call sign.
func (s *SQLiteStore) Get(ctx context.Context, callSign string) (*station.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stationColumns+` FROM stations WHERE call_sign = ?
	`, callSign)
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (s *SQLiteStore) Unclassified(ctx context.Context, limit int) ([]station.Station, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stationColumns+`
		FROM stations
		WHERE genre IS NULL OR genre = ''
		ORDER BY call_sign
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unclassified: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStations(rows)
}

// SetGenre records a classified genre for a station.
func (s *SQLiteStore) SetGenre(ctx context.Context, callSign, genre string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stations SET genre = ? WHERE call_sign = ?
	`, genre, callSign)
	if err != nil {
		return fmt.Errorf("set genre: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set genre: no station %q", callSign)
	}
	return nil
}

