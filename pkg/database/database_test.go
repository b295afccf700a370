package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/pkg/database"
	"github.com/suteetoe/taskhub/pkg/database/dbtest"
)

func TestMigrateAndPing(t *testing.T) {
	db := dbtest.Open(t)

	require.NoError(t, database.Ping(context.Background(), db))
	for _, m := range model.Models() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}
