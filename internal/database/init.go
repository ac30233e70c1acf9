package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Notifuse/mailblocks/internal/database/schema"
)

// InitializeDatabase applies the table definitions and then the upgrade
// statements in one transaction. A failure leaves the schema untouched.
func InitializeDatabase(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for i, query := range schema.TableDefinitions {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table (statement %d): %w", i, err)
		}
	}
	for i, query := range schema.GetMigrationStatements() {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to run migration (statement %d): %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}
