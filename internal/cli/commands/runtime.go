package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/cli/router"
	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/bankctl-dev/bankctl/internal/cli/session"
	appconfig "github.com/bankctl-dev/bankctl/internal/config"
)

// Command annotations read by the root command
const (
	// AnnotationRoute binds a command to a screen; the guard runs before it
	AnnotationRoute = "route"
	// AnnotationSession marks commands that need the session but no guard
	AnnotationSession = "session"
)

// BindRoute binds cmd to the screen at path
func BindRoute(cmd *cobra.Command, path string) *cobra.Command {
	router.MustResolve(path)
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[AnnotationRoute] = path
	return cmd
}

// NeedsSession marks cmd as using the session without navigation checks
func NeedsSession(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[AnnotationSession] = "true"
	return cmd
}

// RouteOf returns the route path bound to cmd, if any
func RouteOf(cmd *cobra.Command) (string, bool) {
	path, ok := cmd.Annotations[AnnotationRoute]
	return path, ok
}

func usesSession(cmd *cobra.Command) bool {
	_, routed := RouteOf(cmd)
	return routed || cmd.Annotations[AnnotationSession] == "true"
}

// Options are the process-wide dependencies of every command
type Options struct {
	Env      *appconfig.Config
	Tokens   auth.StoreOpener
	Prompter Prompter
	Logger   zerolog.Logger

	// ServerAlias and APIURL come from the persistent flags
	ServerAlias string
	APIURL      string
}

// Runtime is what a session-aware command works with
type Runtime struct {
	ServerName string
	APIURL     string
	Client     *client.Client
	Services   *services.Services
	Session    *session.Store
	Guard      *router.Guard
	Prompter   Prompter
	Logger     zerolog.Logger

	// Route is the screen the command ended up on after the guard ran
	Route router.Route
}

type runtimeKey struct{}

func withRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the runtime attached by Prepare
func RuntimeFrom(cmd *cobra.Command) (*Runtime, error) {
	if ctx := cmd.Context(); ctx != nil {
		if rt, ok := ctx.Value(runtimeKey{}).(*Runtime); ok {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("command %q has no session runtime", cmd.CommandPath())
}

// NewRuntime builds the client, facades, session and guard for one API
func NewRuntime(opts *Options, name, apiURL string) *Runtime {
	logger := opts.Logger.With().Str("api", apiURL).Logger()

	c := client.New(apiURL,
		client.WithTimeout(opts.Env.API.Timeout),
		client.WithLogger(logger),
	)

	authSvc := services.NewAuth(c, nil)
	store := session.New(authSvc, opts.Tokens(apiURL), logger)

	svc := services.New(c, store.Token)
	svc.Auth = authSvc
	svc.Blog.SetLogger(logger)

	return &Runtime{
		ServerName: name,
		APIURL:     apiURL,
		Client:     c,
		Services:   svc,
		Session:    store,
		Guard:      router.NewGuard(store, logger),
		Prompter:   opts.Prompter,
		Logger:     logger,
	}
}

// Prepare runs before every command. Session-aware commands get a runtime
// with the persisted session restored; routed commands also pass the guard.
func Prepare(cmd *cobra.Command, opts *Options) error {
	if !usesSession(cmd) {
		return nil
	}

	name, apiURL, err := resolveAPI(opts)
	if err != nil {
		return err
	}

	rt := NewRuntime(opts, name, apiURL)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := rt.Session.Init(ctx); err != nil {
		return err
	}

	if path, ok := RouteOf(cmd); ok {
		to := router.MustResolve(path)
		route, err := rt.Navigate(ctx, to, router.MustResolve(router.PathLanding))
		if err != nil {
			return err
		}
		rt.Route = route
	}

	cmd.SetContext(withRuntime(ctx, rt))
	return nil
}
