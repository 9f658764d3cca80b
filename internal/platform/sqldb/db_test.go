package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "pgx", want: DialectPostgres},
		{in: "postgres", want: DialectPostgres},
		{in: "PostgreSQL", want: DialectPostgres},
		{in: "sqlite3", want: DialectSQLite},
		{in: " sqlite ", want: DialectSQLite},
		{in: "mysql", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	query := "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"

	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)", DialectPostgres.Rebind(query))
	assert.Equal(t, query, DialectSQLite.Rebind(query))
	assert.Equal(t, "SELECT 1", DialectPostgres.Rebind("SELECT 1"))
}
