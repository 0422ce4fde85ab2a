package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "authData")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "authData", []byte(`{"username":"demo"}`)))
	got, err := s.Get(ctx, "authData")
	require.NoError(t, err)
	assert.Equal(t, `{"username":"demo"}`, string(got))

	require.NoError(t, s.Put(ctx, "authData", []byte(`{"username":"other"}`)))
	got, err = s.Get(ctx, "authData")
	require.NoError(t, err)
	assert.Equal(t, `{"username":"other"}`, string(got))

	require.NoError(t, s.Delete(ctx, "authData"))
	_, err = s.Get(ctx, "authData")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, s.Delete(ctx, "authData"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "authData", []byte("blob")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "authData")
	require.NoError(t, err)
	assert.Equal(t, "blob", string(got))
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
