package tokenstore_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/racanlabs/go-auth-service/tokenstore"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session_token")
	store := tokenstore.NewFileStore(path)

	t.Run("get before set returns empty", func(t *testing.T) {
		token, err := store.Get()
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("set then get round trips", func(t *testing.T) {
		require.NoError(t, store.Set("token-123"))

		token, err := store.Get()
		require.NoError(t, err)
		require.Equal(t, "token-123", token)
	})

	t.Run("file is private", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("unix permission bits")
		}
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set("token-456"))

		token, err := store.Get()
		require.NoError(t, err)
		require.Equal(t, "token-456", token)
	})

	t.Run("clear removes the token", func(t *testing.T) {
		require.NoError(t, store.Clear())

		token, err := store.Get()
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("clear when nothing stored is fine", func(t *testing.T) {
		require.NoError(t, store.Clear())
	})
}

func TestMemoryStore(t *testing.T) {
	store := tokenstore.NewMemoryStore()

	token, err := store.Get()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Set("token-123"))
	token, err = store.Get()
	require.NoError(t, err)
	require.Equal(t, "token-123", token)

	require.NoError(t, store.Clear())
	token, err = store.Get()
	require.NoError(t, err)
	require.Empty(t, token)
}
