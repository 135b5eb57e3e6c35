package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestParseUUIDRoundTrip(t *testing.T) {
	id, err := ParseUUID("3f1c1d2e-8a8b-4c1e-9d3e-2b6a7f0e9c11")
	require.NoError(t, err)
	require.True(t, id.Valid)
	require.Equal(t, "3f1c1d2e-8a8b-4c1e-9d3e-2b6a7f0e9c11", UUIDString(id))

	_, err = ParseUUID("not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestConstraintHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	require.True(t, IsUniqueViolation(unique))
	require.False(t, IsForeignKeyViolation(unique))
	require.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	require.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/apotek", migrateURL("postgres://u:p@localhost:5432/apotek"))
	require.Equal(t, "pgx5://localhost/apotek", migrateURL("postgresql://localhost/apotek"))
	require.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{
		"000001_init.down.sql",
		"000001_init.up.sql",
		"000002_audit_logs.down.sql",
		"000002_audit_logs.up.sql",
		"000003_order_amount_precision.down.sql",
		"000003_order_amount_precision.up.sql",
		"000004_audit_user_agent.down.sql",
		"000004_audit_user_agent.up.sql",
	}, names)
}

func TestOrderAmountColumnsUnconstrained(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/000003_order_amount_precision.up.sql")
	require.NoError(t, err)
	sql := string(raw)
	for _, col := range []string{"subtotal", "total_discount", "subtotal_after_discount", "grand_total", "line_subtotal", "line_discount"} {
		require.Regexp(t, `ALTER COLUMN `+col+`\s+TYPE NUMERIC[,;]`, sql, col)
	}
}
