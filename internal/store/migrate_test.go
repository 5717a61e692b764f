// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/pkg/errutil"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	steps          []int
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.stepsErr
}
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	_, err := NewMigrator("postgresql://127.0.0.1:1/testdb?connect_timeout=1")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

func TestDriverURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@h:5432/db", "pgx5://u:p@h:5432/db"},
		{"postgresql://u:p@h/db?sslmode=disable", "pgx5://u:p@h/db?sslmode=disable"},
		{"pgx5://h/db", "pgx5://h/db"},
		{"host=h dbname=db", "host=h dbname=db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, driverURL(tt.in), tt.in)
	}
}

func TestMigrator_NoChangeIsSuccess(t *testing.T) {
	m := &Migrator{m: &mockMigrate{
		upErr:    migrate.ErrNoChange,
		downErr:  migrate.ErrNoChange,
		stepsErr: migrate.ErrNoChange,
	}}
	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
	require.NoError(t, m.Steps(0))
}

func TestMigrator_Errors(t *testing.T) {
	boom := errors.New("database locked")
	tests := []struct {
		name string
		mock *mockMigrate
		call func(*Migrator) error
		code string
	}{
		{"up", &mockMigrate{upErr: boom}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down", &mockMigrate{downErr: boom}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps", &mockMigrate{stepsErr: boom}, func(m *Migrator) error { return m.Steps(2) }, "MIGRATION_STEPS_FAILED"},
		{"force", &mockMigrate{forceErr: boom}, func(m *Migrator) error { return m.Force(1) }, "MIGRATION_FORCE_FAILED"},
		{"negative force", &mockMigrate{}, func(m *Migrator) error { return m.Force(-1) }, "INVALID_VERSION"},
		{"close source", &mockMigrate{closeSourceErr: boom}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
		{"close database", &mockMigrate{closeDbErr: boom}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(&Migrator{m: tt.mock})
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestMigrator_CloseReportsBothErrors(t *testing.T) {
	m := &Migrator{m: &mockMigrate{
		closeSourceErr: errors.New("source gone"),
		closeDbErr:     errors.New("db gone"),
	}}
	err := m.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source gone")
	assert.Contains(t, err.Error(), "db gone")
}

func TestMigrator_Steps_PassesCount(t *testing.T) {
	mock := &mockMigrate{}
	m := &Migrator{m: mock}
	require.NoError(t, m.Steps(-1))
	require.NoError(t, m.Steps(2))
	assert.Equal(t, []int{-1, 2}, mock.steps)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("empty database", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("no connection")}}
		_, _, err := m.Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Status(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	latest := all[len(all)-1].Version

	t.Run("fresh database has everything pending", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
		status, err := m.Status()
		require.NoError(t, err)
		assert.Empty(t, status.Applied)
		assert.Equal(t, all, status.Pending)
	})

	t.Run("latest has nothing pending", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: latest}}
		status, err := m.Status()
		require.NoError(t, err)
		assert.Equal(t, all, status.Applied)
		assert.Empty(t, status.Pending)
	})

	t.Run("partial", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 1, dirty: true}}
		status, err := m.Status()
		require.NoError(t, err)
		assert.True(t, status.Dirty)
		require.Len(t, status.Applied, 1)
		assert.Equal(t, "000001_initial", status.Applied[0].Name)
		assert.Len(t, status.Pending, len(all)-1)
	})

	t.Run("version failure", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("no connection")}}
		_, err := m.Status()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}
