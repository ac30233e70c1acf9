// Package schema defines the database schema.
package schema

// TableDefinitions contains all the SQL statements to create the database tables
// Don't put REFERENCES and don't put CHECK constraints in the CREATE TABLE statements
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		content JSONB NOT NULL DEFAULT '[]'::jsonb,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_user_id ON templates(user_id, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_public ON templates(updated_at DESC) WHERE is_public`,
}

// MigrationStatements upgrade tables created by earlier releases. Each
// statement must be safe to run on every start.
var MigrationStatements = []string{
	`ALTER TABLE templates ADD COLUMN IF NOT EXISTS block_count INTEGER NOT NULL DEFAULT 0`,
	`UPDATE templates SET block_count = jsonb_array_length(content)
		WHERE block_count = 0 AND jsonb_typeof(content) = 'array' AND jsonb_array_length(content) > 0`,
}

// GetMigrationStatements returns the upgrade statements in execution order
func GetMigrationStatements() []string {
	return MigrationStatements
}

// TableNames returns a list of all table names in creation order
var TableNames = []string{
	"templates",
}
