package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"soyeon/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS turns (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL
);`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS turns (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL
);`

// SQLStore keeps turns in a database/sql table; seq orders appends.
type SQLStore struct {
	db       *sql.DB
	dollar   bool
	speakers models.Speakers
}

func NewPostgresStore(ctx context.Context, dsn string, speakers models.Speakers) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	if !strings.Contains(dsn, "sslmode=") {
		if strings.Contains(dsn, "://") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=disable"
			} else {
				dsn += "?sslmode=disable"
			}
		} else {
			dsn += " sslmode=disable"
		}
	}
	return openSQLStore(ctx, "postgres", dsn, postgresSchema, true, speakers)
}

func NewSQLiteStore(ctx context.Context, path string, speakers models.Speakers) (*SQLStore, error) {
	return openSQLStore(ctx, "sqlite3", path, sqliteSchema, false, speakers)
}

func openSQLStore(ctx context.Context, driver, dsn, schema string, dollar bool, speakers models.Speakers) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLStore{db: db, dollar: dollar, speakers: speakers}, nil
}

func (s *SQLStore) Append(ctx context.Context, turn models.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO turns (id, created_at, role, content) VALUES (?, ?, ?, ?)`),
		turn.ID, turn.Timestamp, s.speakers.Label(turn.Role), turn.Content)
	if err != nil {
		return storeError("append", err)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		return []models.Turn{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, created_at, role, content FROM turns ORDER BY seq DESC LIMIT ?`),
		limit)
	if err != nil {
		return nil, storeError("recent", err)
	}
	defer rows.Close()

	turns := make([]models.Turn, 0, limit)
	for rows.Next() {
		var (
			turn  models.Turn
			label string
		)
		if err := rows.Scan(&turn.ID, &turn.Timestamp, &label, &turn.Content); err != nil {
			return nil, storeError("recent", err)
		}
		turn.Role = s.speakers.RoleOf(label)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("recent", err)
	}

	reverseTurns(turns)
	return turns, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
