package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	forced  int
	version uint
	err     error
	closed  bool
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }
func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return f.err
}
func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.err }
func (f *fakeMigrator) Close() (error, error) {
	f.closed = true
	return nil, nil
}

func runCmd(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	var gotURL string
	cmd := newRootCmd(func(url string) (migrator, error) {
		gotURL = url
		return m, nil
	})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--database-url=postgres://test"}, args...))
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, "postgres://test", gotURL)
	}
	return out.String(), err
}

func TestUpAppliesAndTreatsNoChangeAsSuccess(t *testing.T) {
	m := &fakeMigrator{err: migrate.ErrNoChange}
	out, err := runCmd(t, m, "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.Contains(t, out, "migrations complete")
	assert.True(t, m.closed)
}

func TestUpReturnsMigrationError(t *testing.T) {
	m := &fakeMigrator{err: errors.New("dirty database")}
	_, err := runCmd(t, m, "up")
	assert.ErrorContains(t, err, "dirty database")
	assert.True(t, m.closed)
}

func TestDownWithSteps(t *testing.T) {
	m := &fakeMigrator{}
	_, err := runCmd(t, m, "down", "--steps", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"steps"}, m.calls)
	assert.Equal(t, -2, m.steps)

	m = &fakeMigrator{}
	_, err = runCmd(t, m, "down")
	require.NoError(t, err)
	assert.Equal(t, []string{"down"}, m.calls)
}

func TestForceParsesVersion(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runCmd(t, m, "force", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, m.forced)
	assert.Contains(t, out, "forced version to 3")

	_, err = runCmd(t, &fakeMigrator{}, "force", "three")
	assert.ErrorContains(t, err, "invalid version")
}

func TestVersionWithNothingApplied(t *testing.T) {
	out, err := runCmd(t, &fakeMigrator{err: migrate.ErrNilVersion}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "no migrations applied")

	out, err = runCmd(t, &fakeMigrator{version: 1}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty=false)")
}

func TestMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd(func(string) (migrator, error) {
		t.Fatal("open must not be called")
		return nil, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"up"})
	assert.ErrorContains(t, cmd.Execute(), "DATABASE_URL is required")
}
