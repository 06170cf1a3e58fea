package serverselect

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankctl-dev/bankctl/internal/cli/config"
	"github.com/bankctl-dev/bankctl/internal/cli/userconfig"
)

func twoServers() *config.Config {
	return &config.Config{
		Servers: []config.Server{
			{Alias: "local", URL: "http://localhost:8000/api"},
			{Alias: "staging", URL: "https://bank.staging.example.com/api"},
		},
	}
}

// newSelector isolates the user config and counts prompts
func newSelector(t *testing.T, prompt func(*config.Config) (*config.Server, error)) (*Selector, *int) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	calls := 0
	return &Selector{
		Prompt: func(cfg *config.Config) (*config.Server, error) {
			calls++
			return prompt(cfg)
		},
		Logger: zerolog.Nop(),
	}, &calls
}

func noPrompt(*config.Config) (*config.Server, error) {
	return nil, errors.New("should not prompt")
}

func TestResolve_AliasWins(t *testing.T) {
	s, calls := newSelector(t, noPrompt)
	require.NoError(t, userconfig.SetSelectedServer("http://localhost:8000/api"))

	server, err := s.Resolve(twoServers(), "staging")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)

	_, err = s.Resolve(twoServers(), "prod")
	assert.Error(t, err)
	assert.Zero(t, *calls)

	// An explicit alias is not remembered
	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", selected)
}

func TestResolve_UsesSelected(t *testing.T) {
	s, calls := newSelector(t, noPrompt)
	require.NoError(t, userconfig.SetSelectedServer("https://bank.staging.example.com/api"))

	server, err := s.Resolve(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)
	assert.Zero(t, *calls)
}

func TestResolve_StaleSelectionPrompts(t *testing.T) {
	s, calls := newSelector(t, func(cfg *config.Config) (*config.Server, error) {
		return &cfg.Servers[0], nil
	})
	require.NoError(t, userconfig.SetSelectedServer("https://gone.example.com/api"))

	server, err := s.Resolve(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
	assert.Equal(t, 1, *calls)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", selected)
}

func TestResolve_SingleServerAutoSelected(t *testing.T) {
	s, calls := newSelector(t, noPrompt)
	cfg := config.DefaultConfig("")

	server, err := s.Resolve(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
	assert.Zero(t, *calls)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, server.URL, selected)
}

func TestResolve_PromptCancelled(t *testing.T) {
	s, _ := newSelector(t, func(*config.Config) (*config.Server, error) {
		return nil, errors.New("server selection cancelled: ^C")
	})

	_, err := s.Resolve(twoServers(), "")
	assert.ErrorContains(t, err, "cancelled")

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestFind(t *testing.T) {
	cfg := twoServers()

	server, err := Find(cfg, "https://bank.staging.example.com/api")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)

	server, err = Find(cfg, "local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", server.URL)

	_, err = Find(cfg, "nope")
	assert.Error(t, err)
}

func TestPromptServerSelection_NoServers(t *testing.T) {
	_, err := PromptServerSelection(&config.Config{})
	assert.ErrorContains(t, err, "no servers configured")
}
