// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		assert.True(t, pattern.MatchString(name), "file %s should match NNNNNN_name.(up|down).sql", name)
		if base, ok := strings.CutSuffix(name, ".up.sql"); ok {
			ups[base] = true
		}
		if base, ok := strings.CutSuffix(name, ".down.sql"); ok {
			downs[base] = true
		}
	}
	assert.True(t, ups["000001_initial"])
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrations_SortedAndContiguous(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i, mig := range all {
		assert.Equal(t, uint(i+1), mig.Version, "migration %s", mig.Name)
	}
}

func TestInitialMigration_AccountSchema(t *testing.T) {
	sql, err := migrationsFS.ReadFile("migrations/000001_initial.up.sql")
	require.NoError(t, err)
	body := string(sql)

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS roles",
		"CREATE TABLE IF NOT EXISTS accounts",
		"CREATE TABLE IF NOT EXISTS account_roles",
		"ON accounts (lower(email))",
		"version       BIGINT NOT NULL DEFAULT 0",
	} {
		assert.Contains(t, body, want)
	}
}
