package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DBConfig{User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "cine"}
	assert.Equal(t,
		"app:secret@tcp(db:3306)/cine?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
		DSN(cfg))

	cfg.Pass = ""
	assert.Contains(t, DSN(cfg), "app@tcp(db:3306)/cine?")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
