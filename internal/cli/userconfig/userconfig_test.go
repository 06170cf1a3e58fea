package userconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "bankctl", "config.json"), path)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path, err = Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdg, "bankctl", "config.json"), path)
}

func TestSelectedServer(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	selected, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected)

	require.NoError(t, SetSelectedServer("https://bank.example.com/api"))

	selected, err = GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "https://bank.example.com/api", selected)

	path, err := Path()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRememberLogin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	_, ok := LastAccount("http://localhost:8000/api")
	assert.False(t, ok)

	require.NoError(t, SetSelectedServer("http://localhost:8000/api"))
	require.NoError(t, RememberLogin("http://localhost:8000/api", "alice", at))
	require.NoError(t, RememberLogin("https://bank.example.com/api", "bob", at))

	account, ok := LastAccount("http://localhost:8000/api")
	require.True(t, ok)
	assert.Equal(t, "alice", account.Username)
	assert.True(t, account.LastLogin.Equal(at))
	assert.Equal(t, time.UTC, account.LastLogin.Location())

	// Remembering a login keeps the other fields
	selected, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", selected)
}

func TestLoad_Corrupt(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := Path()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	_, err = Load()
	assert.ErrorContains(t, err, "failed to parse user config file")

	_, ok := LastAccount("http://localhost:8000/api")
	assert.False(t, ok)
}
