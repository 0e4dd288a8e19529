// Package postgres implements store.Store on PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open migrates the schema and connects a pool.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const userColumns = `id, name, email, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		name, email, passwordHash, s.now().UTC())
	u, err := scanUser(row)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return core.User{}, fmt.Errorf("user %q: %w", email, err)
	}
	return u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	return u, nil
}

const txColumns = `id, user_id, title, amount_cents, category, type, note, date, created_at`

func (s *Store) CreateTransaction(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (user_id, title, amount_cents, category, type, note, date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+txColumns,
		ownerID, in.Title, in.Amount.Cents, in.Category, string(in.Type), in.Note, in.DateOrNow(now), now.UTC())
	t, err := scanTransaction(row)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return core.Transaction{}, fmt.Errorf("owner %d: %w", ownerID, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	where := []string{"user_id = $1"}
	args := []any{ownerID}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Category != nil {
		args = append(args, *f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	args = append(args, f.Limit, f.Skip)

	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		txColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return s.queryTransactions(ctx, q, args...)
}

func (s *Store) AllTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY date DESC, id DESC`, ownerID)
}

func (s *Store) GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`UPDATE transactions
		 SET title = $1, amount_cents = $2, category = $3, type = $4, note = $5, date = $6
		 WHERE id = $7 AND user_id = $8
		 RETURNING `+txColumns,
		in.Title, in.Amount.Cents, in.Category, string(in.Type), in.Note, in.DateOrNow(s.now()), id, ownerID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id, ownerID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) queryTransactions(ctx context.Context, q string, args ...any) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t   core.Transaction
		typ string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Amount.Cents, &t.Category, &typ, &t.Note, &t.Date, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = t.Date.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
