package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/insightdelivered/slip-scanner/internal/models"

	_ "modernc.org/sqlite"
)

const transactionColumns = `id, amount, direction, category, date, note, reference_id, receiver_name`

// SQLite is a Repository backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) Save(ctx context.Context, txs ...models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			direction = excluded.direction,
			category = excluded.category,
			date = excluded.date,
			note = excluded.note,
			reference_id = excluded.reference_id,
			receiver_name = excluded.receiver_name`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Amount.String(), string(t.Direction), t.Category, t.Date,
			t.Note, t.ReferenceID, t.ReceiverName,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLite) List(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateCategory(ctx context.Context, id, category string) (models.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Transaction{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Preferences(ctx context.Context) (models.Preferences, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT receiver, category FROM category_preferences`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	prefs := models.Preferences{}
	for rows.Next() {
		var receiver, category string
		if err := rows.Scan(&receiver, &category); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[receiver] = category
	}
	return prefs, rows.Err()
}

// ReplacePreferences rewrites the table so it mirrors prefs exactly.
func (s *SQLite) ReplacePreferences(ctx context.Context, prefs models.Preferences) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_preferences`); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	for receiver, category := range prefs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_preferences (receiver, category) VALUES (?, ?)`,
			receiver, category,
		); err != nil {
			return fmt.Errorf("insert preference %q: %w", receiver, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (models.Transaction, error) {
	var (
		t         models.Transaction
		direction string
	)
	if err := r.Scan(&t.ID, &t.Amount, &direction, &t.Category, &t.Date, &t.Note, &t.ReferenceID, &t.ReceiverName); err != nil {
		return models.Transaction{}, err
	}
	t.Direction = models.Direction(direction)
	return t, nil
}
