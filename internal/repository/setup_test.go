package repository

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metabridge/graph-connector/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	_, err = db.Exec(`TRUNCATE oauth_states, meta_accounts, account_profiles, webhook_events`)
	require.NoError(t, err)
	return db
}
