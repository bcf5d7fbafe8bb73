package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for events and the key registry.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertEvent appends one event. There is no uniqueness on payload, so
// resubmitting the same event stores it twice.
func (p *PostgresStore) InsertEvent(ctx context.Context, e models.Event) error {
	var metadata []byte
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO events(id, app_id, event_type, url, referrer, device, ip_address, ts, metadata, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.ID, e.AppID, e.EventType, e.URL, nullString(e.Referrer), e.Device, e.IPAddress,
		e.Timestamp.UTC(), metadata, nullString(e.UserID))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FindEvents returns all events matching f ordered by insertion.
func (p *PostgresStore) FindEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	where := []string{"app_id = $1"}
	args := []any{f.AppID}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.EventType != "" {
		add("event_type = $%d", f.EventType)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.From != nil {
		add("ts >= $%d", f.From.UTC())
	}
	if f.To != nil {
		add("ts <= $%d", f.To.UTC())
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id::text, app_id, event_type, url, referrer, device, ip_address, ts, metadata, user_id
		FROM events
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e                models.Event
			referrer, userID *string
			metadata         []byte
		)
		if err := rows.Scan(&e.ID, &e.AppID, &e.EventType, &e.URL, &referrer, &e.Device,
			&e.IPAddress, &e.Timestamp, &metadata, &userID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if referrer != nil {
			e.Referrer = *referrer
		}
		if userID != nil {
			e.UserID = *userID
		}
		if len(metadata) > 0 {
			var md models.Metadata
			if err := json.Unmarshal(metadata, &md); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
			e.Metadata = &md
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

const applicationColumns = `app_id, owner_id, app_name, app_url, api_key, expires_at`

func (p *PostgresStore) FindByKey(ctx context.Context, apiKey string) (models.Application, error) {
	return p.findApplication(ctx, `SELECT `+applicationColumns+` FROM applications WHERE api_key = $1`, apiKey)
}

func (p *PostgresStore) FindByAppID(ctx context.Context, appID string) (models.Application, error) {
	return p.findApplication(ctx, `SELECT `+applicationColumns+` FROM applications WHERE app_id = $1`, appID)
}

func (p *PostgresStore) findApplication(ctx context.Context, query string, arg string) (models.Application, error) {
	var a models.Application
	err := p.pool.QueryRow(ctx, query, arg).Scan(&a.AppID, &a.OwnerID, &a.AppName, &a.AppURL, &a.APIKey, &a.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, ErrNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("query application: %w", err)
	}
	a.ExpiresAt = a.ExpiresAt.UTC()
	return a, nil
}

// UpsertApplication registers app or replaces its owner, key and expiry.
func (p *PostgresStore) UpsertApplication(ctx context.Context, app models.Application) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO applications(`+applicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (app_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			app_name = EXCLUDED.app_name,
			app_url = EXCLUDED.app_url,
			api_key = EXCLUDED.api_key,
			expires_at = EXCLUDED.expires_at
	`, app.AppID, app.OwnerID, app.AppName, app.AppURL, app.APIKey, app.ExpiresAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("upsert application: %w", err)
	}
	return nil
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
// The only unique column an upsert can collide on is api_key.
const uniqueViolation = "23505"

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
