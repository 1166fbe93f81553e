package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/bunnysign/internal/api"
	"github.com/dharsanguruparan/bunnysign/internal/config"
	"github.com/dharsanguruparan/bunnysign/internal/logging"
	"github.com/dharsanguruparan/bunnysign/internal/model"
	"github.com/dharsanguruparan/bunnysign/internal/signing"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bunnysign: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "bunnysign",
		Short: "Bunny.net token authentication signer",
		Long: `bunnysign issues time-limited Bunny.net token URLs. It can run the HTTP signing
service, sign a single path from the shell, or check a previously issued URL.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file to read before the environment (empty to skip)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	cmd.AddCommand(
		newServeCmd(opts),
		newSignCmd(opts),
		newVerifyCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	return cfg, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP signing service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			signer := signing.NewSigner(cfg.SigningKey, cfg.BaseURL)
			return api.New(cfg, signer, logger).Run(cmd.Context())
		},
	}
}

func newSignCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	var expires int64
	cmd := &cobra.Command{
		Use:   "sign <path>",
		Short: "Print a signed URL for path as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			signer := signing.NewSigner(cfg.SigningKey, cfg.BaseURL, signing.WithValidity(ttl))
			sign := signer.Sign
			if expires > 0 {
				sign = func(path string) (*model.SignedURL, error) { return signer.SignAt(path, expires) }
			}
			signed, err := sign(args[0])
			if err != nil {
				return describe(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(signed)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", signing.DefaultValidity, "How long the URL stays valid")
	cmd.Flags().Int64Var(&expires, "expires", 0, "Explicit unix expiry; overrides --ttl")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <signed-url>",
		Short: "Check that a signed URL was issued with the configured key and has not expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.SigningKey == "" {
				return describe(signing.ErrMissingSecret)
			}
			if cfg.BaseURL == "" {
				return describe(signing.ErrMissingBaseURL)
			}
			path, expires, token, err := splitSignedURL(cfg.BaseURL, args[0])
			if err != nil {
				return err
			}
			signer := signing.NewSigner(cfg.SigningKey, cfg.BaseURL)
			if !signer.Validate(path, expires, token) {
				return errors.New("invalid or expired token")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s (expires %s)\n", path, expires)
			return nil
		},
	}
}

// splitSignedURL reverses the concatenation done by Signer.Sign. The path is
// taken verbatim, so it is cut at the last "?token=" rather than parsed.
func splitSignedURL(baseURL, signed string) (path, expires, token string, err error) {
	if !strings.HasPrefix(signed, baseURL) {
		return "", "", "", errors.Errorf("url does not start with %s", baseURL)
	}
	rest := strings.TrimPrefix(signed, baseURL)
	i := strings.LastIndex(rest, "?token=")
	if i < 0 {
		return "", "", "", errors.New("url has no token parameter")
	}
	q, err := url.ParseQuery(rest[i+1:])
	if err != nil {
		return "", "", "", errors.Wrap(err, "parse query")
	}
	return rest[:i], q.Get("expires"), q.Get("token"), nil
}

func describe(err error) error {
	switch {
	case errors.Is(err, signing.ErrMissingSecret):
		return errors.Errorf("%s is not set", config.EnvSigningKey)
	case errors.Is(err, signing.ErrMissingBaseURL):
		return errors.Errorf("%s is not set", config.EnvBaseURL)
	}
	return err
}
