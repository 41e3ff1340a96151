package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const codeConstraint = "short_links_code_key"

// PostgresStore is a PostgreSQL implementation of shortener.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// AllocateID draws the next value of the link id sequence.
func (p *PostgresStore) AllocateID(ctx context.Context) (uint64, error) {
	var id int64

	if err := p.pool.QueryRow(ctx, `SELECT nextval('short_links_id_seq')`).Scan(&id); err != nil {
		return 0, err
	}

	if id < 0 {
		return 0, fmt.Errorf("negative sequence value %d", id)
	}

	return uint64(id), nil
}

func (p *PostgresStore) Create(ctx context.Context, link *shortener.ShortLink) error {
	query := `
		INSERT INTO short_links (id, code, original_url, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.pool.Exec(ctx, query,
		int64(link.ID),
		string(link.Code),
		link.OriginalURL,
		link.CreatedAt,
	)
	if isUniqueViolation(err, codeConstraint) {
		return shortener.ErrAliasConflict
	}

	return err
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	query := `
		SELECT id, code, original_url, created_at
		FROM short_links
		WHERE code = $1
	`

	var (
		link shortener.ShortLink
		id   int64
	)

	err := p.pool.QueryRow(ctx, query, string(code)).Scan(
		&id,
		&link.Code,
		&link.OriginalURL,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	link.ID = uint64(id)

	return &link, nil
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}

// Compile-time check.
var _ shortener.Store = (*PostgresStore)(nil)
