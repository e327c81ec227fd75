package directory

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the users schema for goose.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	selectUserSQL  = `SELECT id, name, is_admin, COALESCE(fcm_token, '') FROM users WHERE id = $1`
	updateAdminSQL = `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1`
)

// Postgres reads profiles from the users table.
type Postgres struct {
	db Querier
}

// NewPostgres wraps db.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, id string) (Profile, error) {
	var prof Profile
	err := p.db.QueryRow(ctx, selectUserSQL, id).
		Scan(&prof.ID, &prof.DisplayName, &prof.IsAdmin, &prof.DeliveryToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("directory: postgres select user %q: %w", id, err)
	}
	return prof, nil
}

func (p *Postgres) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	tag, err := p.db.Exec(ctx, updateAdminSQL, id, isAdmin)
	if err != nil {
		return fmt.Errorf("directory: postgres update user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
