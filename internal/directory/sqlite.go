// ABOUTME: Embedded SQLite identity directory using modernc.org/sqlite
// ABOUTME: Stores accounts with bcrypt password hashes and mints custom tokens locally

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// minPasswordLength is the shortest password the directory accepts.
const minPasswordLength = 6

// Account is a directory account as stored by SQLiteDirectory.
type Account struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SQLiteDirectory implements Client on an embedded SQLite database.
type SQLiteDirectory struct {
	db     *sql.DB
	tokens *TokenMinter
	logger *slog.Logger
}

// NewSQLiteDirectory opens (or creates) the directory database at path.
// Parent directories are created if needed.
func NewSQLiteDirectory(path string, tokens *TokenMinter, logger *slog.Logger) (*SQLiteDirectory, error) {
	if tokens == nil {
		return nil, errors.New("token minter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "directory", "driver", "sqlite")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	d := &SQLiteDirectory{db: db, tokens: tokens, logger: logger}
	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite directory initialized", "path", path)
	return d, nil
}

func (d *SQLiteDirectory) createSchema() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			uid           TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			display_name  TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
	`)
	return err
}

// Ping checks the database connection.
func (d *SQLiteDirectory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

// IssueToken mints a custom token. The account is not looked up.
func (d *SQLiteDirectory) IssueToken(ctx context.Context, userID string, claims map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.tokens.Mint(userID, claims)
}

// CreateAccount inserts a new account and returns its uid.
func (d *SQLiteDirectory) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	uid := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO accounts (uid, email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uid, email, displayName, string(hash), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("inserting account: %w", err)
	}

	d.logger.Debug("created account", "uid", uid)
	return uid, nil
}

// UpdateAccount applies the non-nil fields of update.
func (d *SQLiteDirectory) UpdateAccount(ctx context.Context, userID string, update AccountUpdate) error {
	if update.Empty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidAccount)
	}

	var sets []string
	var args []any
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return err
		}
		sets = append(sets, "email = ?")
		args = append(args, email)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), userID)

	res, err := d.db.ExecContext(ctx,
		"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE uid = ?", args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating account: %w", err)
	}
	return requireOneRow(res)
}

// DeleteAccount removes the account.
func (d *SQLiteDirectory) DeleteAccount(ctx context.Context, userID string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM accounts WHERE uid = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return requireOneRow(res)
}

// GetAccount returns the account with the given uid.
func (d *SQLiteDirectory) GetAccount(ctx context.Context, userID string) (*Account, error) {
	var a Account
	var createdAt, updatedAt string
	err := d.db.QueryRowContext(ctx, `
		SELECT uid, email, display_name, password_hash, created_at, updated_at
		FROM accounts WHERE uid = ?
	`, userID).Scan(&a.UID, &a.Email, &a.DisplayName, &a.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

// CheckPassword reports whether password matches the account's hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// normalizeEmail validates a bare address and lower-cases it.
func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: improperly formatted email", ErrInvalidAccount)
	}
	return strings.ToLower(email), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
