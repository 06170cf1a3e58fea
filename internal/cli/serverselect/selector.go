package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"

	"github.com/bankctl-dev/bankctl/internal/cli/config"
	"github.com/bankctl-dev/bankctl/internal/cli/userconfig"
)

// Selector decides which configured API a command talks to
type Selector struct {
	// Prompt asks the user to pick when nothing else decides
	Prompt func(cfg *config.Config) (*config.Server, error)
	Logger zerolog.Logger
}

// New returns a selector that prompts on the terminal
func New(logger zerolog.Logger) *Selector {
	return &Selector{Prompt: PromptServerSelection, Logger: logger}
}

// Resolve picks, in order: the server named by alias, the remembered
// selection, the only configured server, or an interactive choice.
// Anything but an explicit alias becomes the remembered selection.
func (s *Selector) Resolve(cfg *config.Config, alias string) (*config.Server, error) {
	if alias != "" {
		return cfg.GetServerByAlias(alias)
	}

	selected, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if selected != "" {
		if server := byURL(cfg, selected); server != nil {
			return server, nil
		}
		s.Logger.Debug().Str("url", selected).Msg("Selected server no longer configured")
	}

	var server *config.Server
	if len(cfg.Servers) == 1 {
		server = &cfg.Servers[0]
	} else if server, err = s.Prompt(cfg); err != nil {
		return nil, err
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		s.Logger.Warn().Err(err).Msg("Failed to remember selected server")
	}
	return server, nil
}

// PromptServerSelection shows an interactive list of the configured servers
func PromptServerSelection(cfg *config.Config) (*config.Server, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	sel := promptui.Select{
		Label: "Select a server",
		Items: cfg.Servers,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Alias | cyan }} ({{ .URL }})",
			Inactive: "  {{ .Alias }} ({{ .URL }})",
			Selected: "{{ .Alias | green }} ({{ .URL }})",
		},
		Size: 10,
	}

	index, _, err := sel.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}
	return &cfg.Servers[index], nil
}

// Find looks a server up by API URL, then by alias
func Find(cfg *config.Config, urlOrAlias string) (*config.Server, error) {
	if server := byURL(cfg, urlOrAlias); server != nil {
		return server, nil
	}
	if server, err := cfg.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

func byURL(cfg *config.Config, url string) *config.Server {
	for i := range cfg.Servers {
		if cfg.Servers[i].URL == url {
			return &cfg.Servers[i]
		}
	}
	return nil
}
