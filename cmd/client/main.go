package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/gophlogin/internal/client/api"
	"github.com/atinyakov/gophlogin/internal/client/config"
	"github.com/atinyakov/gophlogin/internal/client/login"
	"github.com/atinyakov/gophlogin/internal/client/prompt"
	"github.com/atinyakov/gophlogin/internal/client/session"
	"github.com/atinyakov/gophlogin/internal/client/social"
	"github.com/atinyakov/gophlogin/internal/client/storage"
	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	in  io.Reader
	out io.Writer

	cfgPath   string
	serverURL string
	storeDrv  string
	storePath string
	caFile    string
	logLevel  string

	log     *zap.Logger
	api     *api.Client
	kv      storage.KV
	tokens  *storage.TokenStore
	session *session.State
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	cfg.ServerURL = cmp.Or(a.serverURL, cfg.ServerURL)
	cfg.Store.Driver = cmp.Or(a.storeDrv, cfg.Store.Driver)
	cfg.Store.Path = cmp.Or(a.storePath, cfg.Store.Path)
	cfg.CAFile = cmp.Or(a.caFile, cfg.CAFile)
	cfg.Log.Level = cmp.Or(a.logLevel, cfg.Log.Level)

	l := logger.New()
	l.Env = cfg.Log.Env
	if err := l.Init(cfg.Log.Level); err != nil {
		return err
	}
	a.log = l.Log

	httpClient, err := api.NewHTTPClient(cfg.CAFile, api.DefaultTimeout)
	if err != nil {
		return err
	}
	a.api = api.NewClient(cfg.ServerURL, httpClient)

	kv, err := storage.Open(cfg.Store)
	if err != nil {
		return err
	}
	a.kv = kv
	a.tokens = storage.NewTokenStore(kv, a.log)
	a.session = session.NewState()
	return nil
}

func (a *app) teardown() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// credentials takes flags first and prompts for whatever is missing.
func (a *app) credentials(email, password string) (models.Credentials, error) {
	if email != "" && password != "" {
		return models.Credentials{Email: email, Password: password}, nil
	}
	return prompt.Credentials(a.in, a.out)
}

func (a *app) printValidation(err error) bool {
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, f := range verr.Result.Fields() {
		fmt.Fprintf(a.out, "%s: %s\n", f, verr.Result.Error(f))
	}
	return true
}

// newRootCmd builds the CLI. The returned func releases the store and
// flushes the logger; call it after Execute.
func newRootCmd(in io.Reader, out io.Writer) (*cobra.Command, func()) {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "gophlogin",
		Short:         "Log in to an authentication server and keep the access token locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "gophlogin.yaml", "path to YAML config file")
	pf.StringVar(&a.serverURL, "url", "", "authentication server base URL")
	pf.StringVar(&a.storeDrv, "store", "", "token store driver: file | sqlite")
	pf.StringVar(&a.storePath, "store-path", "", "token store location")
	pf.StringVar(&a.caFile, "ca", "", "CA certificate trusted for TLS")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug | info | warn | error")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newTokenCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
		newSocialCmd(a),
		newVersionCmd(a),
	)
	return root, a.teardown
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Submit credentials and store the issued access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials(email, password)
			if err != nil {
				return err
			}
			c := login.NewController(a.api, a.tokens, login.WithSession(a.session), login.WithLogger(a.log))
			if _, err := c.Submit(cmd.Context(), creds); err != nil {
				if a.printValidation(err) {
					return errors.New("login form is invalid")
				}
				return err
			}
			fmt.Fprintln(a.out, "Login successful. Access token saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the authentication server",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials(email, password)
			if err != nil {
				return err
			}
			if res := form.Validate(form.Values{Email: creds.Email, Password: creds.Password}); !res.Valid() {
				a.printValidation(&form.ValidationError{Result: res})
				return errors.New("registration form is invalid")
			}
			if err := a.api.Register(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Registration successful.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.tokens.Get(cmd.Context())
			if errors.Is(err, storage.ErrNoToken) {
				fmt.Fprintln(a.out, "No access token stored.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the stored access token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.tokens.Get(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.api.Me(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n", p.Email, p.UserID)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored access token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.tokens.Get(cmd.Context())
			if errors.Is(err, storage.ErrNoToken) {
				fmt.Fprintln(a.out, "No access token stored.")
				return nil
			}
			if err != nil {
				return err
			}
			// the local token is dropped even if the server cannot be reached
			if err := a.api.Logout(cmd.Context(), token); err != nil && !errors.Is(err, api.ErrUnauthorized) {
				a.log.Warn("server logout failed", zap.Error(err))
			}
			if err := a.tokens.Clear(cmd.Context()); err != nil {
				return err
			}
			if err := a.session.Dispatch(session.Event{Type: session.ActionClearAccessToken}); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newSocialCmd(a *app) *cobra.Command {
	var provider string
	var persist bool
	cmd := &cobra.Command{
		Use:   "social",
		Short: "Log in through a social provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk := social.PromptSDK{Provider: provider, In: a.in, Out: a.out}
			opts := []social.Option{social.WithLogger(a.log)}
			if persist {
				opts = append(opts, social.WithTokenStore(a.tokens))
			}
			out, err := social.NewAdapter(provider, sdk, opts...).Login(cmd.Context())
			if err != nil {
				return err
			}
			switch out.Kind {
			case social.KindSuccess:
				fmt.Fprintf(a.out, "Logged in with %s.\n", provider)
			case social.KindCancelled:
				fmt.Fprintln(a.out, "Social login cancelled.")
			default:
				return fmt.Errorf("social login failed: %s", out.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "google", "social provider name")
	cmd.Flags().BoolVar(&persist, "persist", false, "store the provider token as the access token")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build version and date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "gophlogin client\nVersion: %s\nBuild Date: %s\n",
				cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd(os.Stdin, os.Stdout)
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
