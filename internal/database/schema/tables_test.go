package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableDefinitions(t *testing.T) {
	for _, query := range TableDefinitions {
		assert.Contains(t, query, "IF NOT EXISTS", "table definitions must be idempotent")
		assert.NotContains(t, strings.ToUpper(query), "REFERENCES")
	}

	for _, name := range TableNames {
		found := false
		for _, query := range TableDefinitions {
			if strings.Contains(query, "CREATE TABLE IF NOT EXISTS "+name+" ") {
				found = true
			}
		}
		assert.True(t, found, "table %s should have a definition", name)
	}
}

func TestGetMigrationStatements(t *testing.T) {
	statements := GetMigrationStatements()
	assert.NotEmpty(t, statements)
	assert.Contains(t, statements[0], "ADD COLUMN IF NOT EXISTS block_count")
}
