// ABOUTME: Contract tests for database schema to detect breaking schema changes.
// ABOUTME: Validates the audit log and embedded directory tables, columns, and indexes.

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/identity-gateway/internal/directory"
	"github.com/2389/identity-gateway/internal/store"
)

// expectedSchema defines the contract for our database schema, per database file.
// If a table or column is removed or renamed, these tests will fail,
// catching breaking changes before they reach production.
var expectedSchema = map[string][]string{
	"audit_log": {
		"audit_id", "actor_user_id", "action",
		"target_type", "target_id", "ts", "detail_json",
	},
	"accounts": {
		"uid", "email", "display_name",
		"password_hash", "created_at", "updated_at",
	},
}

// setupTestDB creates a temporary SQLite database holding both the audit log
// and the embedded directory schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	auditStore, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err, "failed to create SQLite store")

	minter, err := directory.NewTokenMinter([]byte("contract-test-secret-is-32-bytes"), "", 0)
	require.NoError(t, err, "failed to create token minter")
	dir, err := directory.NewSQLiteDirectory(dbPath, minter, nil)
	require.NoError(t, err, "failed to create SQLite directory")

	// Open a separate connection since the store and directory own theirs
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		dir.Close()
		auditStore.Close()
	})

	return db
}

// getTableColumns queries SQLite to get column names for a table.
func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		columns[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}

	return columns, nil
}

// TestSchemaSurface verifies that all expected tables and columns exist
// in the database schema. This acts as a contract test to prevent
// accidental breaking changes to the database structure.
func TestSchemaSurface(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for table, expectedCols := range expectedSchema {
		t.Run(table, func(t *testing.T) {
			actualCols, err := getTableColumns(ctx, db, table)
			if !assert.NoError(t, err, "failed to get columns for table %s", table) {
				return
			}

			// Table should have at least one column (means it exists)
			if !assert.NotEmpty(t, actualCols, "table %s should exist and have columns", table) {
				return
			}

			// Verify each expected column exists
			for _, col := range expectedCols {
				assert.True(t, actualCols[col],
					"column %s.%s should exist", table, col)
			}

			// Report any extra columns not in contract (informational, not failure)
			for col := range actualCols {
				found := slices.Contains(expectedCols, col)
				if !found {
					t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
				}
			}
		})
	}
}

// TestTablesExist is a quick sanity check that all expected tables exist.
func TestTablesExist(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Query SQLite master table for all tables
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	require.NoError(t, err, "failed to query tables")
	defer rows.Close()

	actualTables := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name), "failed to scan table name")
		actualTables[name] = true
	}
	require.NoError(t, rows.Err(), "error iterating tables")

	// Verify all expected tables exist
	for table := range expectedSchema {
		assert.True(t, actualTables[table], "table %s should exist", table)
	}
}

// TestSchemaHasIndexes verifies that critical indexes exist for performance.
func TestSchemaHasIndexes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Expected indexes that are critical for query performance
	expectedIndexes := []string{
		"idx_audit_ts",
		"idx_audit_actor",
		"idx_audit_target",
	}

	// Query SQLite master for all indexes
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='index' AND name NOT LIKE 'sqlite_%'")
	require.NoError(t, err, "failed to query indexes")
	defer rows.Close()

	actualIndexes := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name), "failed to scan index name")
		actualIndexes[name] = true
	}
	require.NoError(t, rows.Err(), "error iterating indexes")

	// Verify expected indexes exist
	for _, idx := range expectedIndexes {
		assert.True(t, actualIndexes[idx], "index %s should exist", idx)
	}
}
