// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Timestamps are stored as fixed-width UTC text so lexical order is
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open creates the database file if needed, applies migrations and returns
// a ready store.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := dsnFor(dbPath)

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func dsnFor(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	created := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, created.Format(timeLayout))
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed") {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	return core.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: created}, nil
}

const userColumns = `id, name, email, password_hash, created_at`

func (s *Store) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("user %q: %w", email, err)
	}
	return u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (core.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	return u, nil
}

func (s *Store) CreateTransaction(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	now := s.now()
	t := core.Transaction{
		OwnerID:   ownerID,
		Title:     in.Title,
		Amount:    in.Amount,
		Category:  in.Category,
		Type:      in.Type,
		Note:      in.Note,
		Date:      in.DateOrNow(now),
		CreatedAt: now.UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, title, amount_cents, category, type, note, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, t.Title, t.Amount.Cents, t.Category, string(t.Type), nullString(t.Note),
		t.Date.Format(timeLayout), t.CreatedAt.Format(timeLayout))
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed") {
			return core.Transaction{}, fmt.Errorf("owner %d: %w", ownerID, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	return t, nil
}

const txColumns = `id, user_id, title, amount_cents, category, type, note, date, created_at`

func (s *Store) ListTransactions(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	var (
		where = []string{"user_id = ?"}
		args  = []any{ownerID}
	)
	if f.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *f.Category)
	}
	args = append(args, f.Limit, f.Skip)

	q := `SELECT ` + txColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	return s.queryTransactions(ctx, q, args...)
}

func (s *Store) AllTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC`, ownerID)
}

func (s *Store) GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	date := in.DateOrNow(s.now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET title = ?, amount_cents = ?, category = ?, type = ?, note = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		in.Title, in.Amount.Cents, in.Category, string(in.Type), nullString(in.Note), date.Format(timeLayout),
		id, ownerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if err := expectOneRow(res, id); err != nil {
		return core.Transaction{}, err
	}
	return s.GetTransaction(ctx, id, ownerID)
}

func (s *Store) DeleteTransaction(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (s *Store) queryTransactions(ctx context.Context, q string, args ...any) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	var err error
	if u.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	return u, nil
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		typ           string
		note          sql.NullString
		date, created string
	)
	err := sc.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Amount.Cents, &t.Category, &typ, &note, &date, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	if note.Valid {
		v := note.String
		t.Note = &v
	}
	if t.Date, err = time.Parse(timeLayout, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// isConstraint matches the extended result code, falling back to the message
// when the connection reports only the primary code.
func isConstraint(err error, code int, msg string) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == code || strings.Contains(se.Error(), msg)
}
