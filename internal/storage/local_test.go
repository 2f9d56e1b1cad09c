package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "cases/a.json", []byte(`{"id":"a"}`)))
	require.NoError(t, s.Store(ctx, "cases/b.json", []byte(`{"id":"b"}`)))
	require.NoError(t, s.Store(ctx, "analyses/2024/x.json", []byte(`{}`)))

	data, err := s.Retrieve(ctx, "cases/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(data))

	names, err := s.List(ctx, "cases/")
	require.NoError(t, err)
	assert.Equal(t, []string{"cases/a.json", "cases/b.json"}, names)

	require.NoError(t, s.Store(ctx, "cases/a.json", []byte(`{"id":"a2"}`)))
	data, err = s.Retrieve(ctx, "cases/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a2"}`, string(data))

	require.NoError(t, s.Delete(ctx, "cases/a.json"))
	_, err = s.Retrieve(ctx, "cases/a.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "cases/a.json"), ErrNotFound)
}

func TestLocalStorage_StaysUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "../../escape.json", []byte("x")))
	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"escape.json"}, names)

	assert.Error(t, s.Store(ctx, "", []byte("x")))
}

func TestNewLocalStorage_RequiresRoot(t *testing.T) {
	_, err := NewLocalStorage("")
	assert.Error(t, err)
}
