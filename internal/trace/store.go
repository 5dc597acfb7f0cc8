package trace

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const maxConnections = 100

// Store persists trace data to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to a PostgreSQL trace database at connStr.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("trace open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConnection inserts a new connection record and prunes old ones.
func (s *Store) CreateConnection(id, metadata string) error {
	_, err := s.db.Exec(
		`INSERT INTO connections (id, metadata, started_at) VALUES ($1, $2, $3)`,
		id, metadata, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`DELETE FROM connections WHERE id NOT IN (SELECT id FROM connections ORDER BY started_at DESC LIMIT $1)`,
		maxConnections,
	)
	return err
}

// EndConnection sets the ended_at timestamp.
func (s *Store) EndConnection(id string) error {
	_, err := s.db.Exec(
		`UPDATE connections SET ended_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	return err
}

// CreateTurn inserts a new turn.
func (s *Store) CreateTurn(id, connectionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO turns (id, connection_id, started_at, status) VALUES ($1, $2, $3, 'running')`,
		id, connectionID, time.Now().UTC(),
	)
	return err
}

// UpdateTurn sets the turn's final fields.
func (s *Store) UpdateTurn(id string, durationMs float64, transcript, response, status string) error {
	_, err := s.db.Exec(
		`UPDATE turns SET duration_ms = $1, transcript = $2, response = $3, status = $4 WHERE id = $5`,
		durationMs, transcript, response, status, id,
	)
	return err
}

// CreateStage inserts a stage.
func (s *Store) CreateStage(st Stage) error {
	_, err := s.db.Exec(
		`INSERT INTO stages (id, turn_id, name, started_at, duration_ms, input, output, status, error_msg)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		st.ID, st.TurnID, st.Name, st.StartedAt.UTC(),
		st.DurationMs, st.Input, st.Output, st.Status, st.Error,
	)
	return err
}

// ListConnections returns connections ordered newest first, with turn counts.
func (s *Store) ListConnections(limit, offset int) ([]Connection, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM connections`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(`
		SELECT c.id, c.metadata, c.started_at, c.ended_at, COUNT(t.id) as turn_count
		FROM connections c
		LEFT JOIN turns t ON t.connection_id = c.id
		GROUP BY c.id
		ORDER BY c.started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var conn Connection
		var endedAt sql.NullTime
		if err = rows.Scan(&conn.ID, &conn.Metadata, &conn.StartedAt, &endedAt, &conn.TurnCount); err != nil {
			return nil, 0, err
		}
		if endedAt.Valid {
			conn.EndedAt = &endedAt.Time
		}
		conns = append(conns, conn)
	}
	return conns, total, rows.Err()
}

// GetConnection returns a single connection with its turns.
func (s *Store) GetConnection(id string) (*Connection, []Turn, error) {
	var conn Connection
	var endedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, metadata, started_at, ended_at FROM connections WHERE id = $1`, id,
	).Scan(&conn.ID, &conn.Metadata, &conn.StartedAt, &endedAt)
	if err != nil {
		return nil, nil, err
	}
	if endedAt.Valid {
		conn.EndedAt = &endedAt.Time
	}

	rows, err := s.db.Query(`
		SELECT t.id, t.connection_id, t.started_at, t.duration_ms, t.transcript, t.response, t.status,
		       COUNT(st.id) as stage_count
		FROM turns t
		LEFT JOIN stages st ON st.turn_id = t.id
		WHERE t.connection_id = $1
		GROUP BY t.id
		ORDER BY t.started_at ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err = rows.Scan(&t.ID, &t.ConnectionID, &t.StartedAt, &t.DurationMs, &t.Transcript, &t.Response, &t.Status, &t.StageCount); err != nil {
			return nil, nil, err
		}
		turns = append(turns, t)
	}
	return &conn, turns, rows.Err()
}

// GetTurn returns a single turn with its stages.
func (s *Store) GetTurn(connectionID, turnID string) (*Turn, []Stage, error) {
	var t Turn
	err := s.db.QueryRow(
		`SELECT id, connection_id, started_at, duration_ms, transcript, response, status FROM turns WHERE id = $1 AND connection_id = $2`,
		turnID, connectionID,
	).Scan(&t.ID, &t.ConnectionID, &t.StartedAt, &t.DurationMs, &t.Transcript, &t.Response, &t.Status)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(
		`SELECT id, turn_id, name, started_at, duration_ms, input, output, status, error_msg FROM stages WHERE turn_id = $1 ORDER BY started_at ASC`,
		turnID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var st Stage
		if err = rows.Scan(&st.ID, &st.TurnID, &st.Name, &st.StartedAt, &st.DurationMs, &st.Input, &st.Output, &st.Status, &st.Error); err != nil {
			return nil, nil, err
		}
		stages = append(stages, st)
	}
	return &t, stages, rows.Err()
}
