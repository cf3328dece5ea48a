// ABOUTME: Entry point for botbridge, the turn/push protocol bot bridge
// ABOUTME: Provides serve, health and token commands built on cobra

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/botbridge/internal/auth"
	"github.com/2389/botbridge/internal/config"
	"github.com/2389/botbridge/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _           _   _          _     _
| |__   ___ | |_| |__  _ __(_) __| | __ _  ___
| '_ \ / _ \| __| '_ \| '__| |/ _' |/ _' |/ _ \
| |_) | (_) | |_| |_) | |  | | (_| | (_| |  __/
|_.__/ \___/ \__|_.__/|_|  |_|\__,_|\__, |\___|
                                    |___/
`

const defaultTokenTTL = 30 * 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "botbridge",
		Short:         "botbridge - one bot behind the Bot Framework connector and LivePerson",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $BOTBRIDGE_CONFIG or ~/.config/botbridge/config.yaml)")

	loadConfig := func() (string, *config.Config, error) {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		cfg, err := config.Load(path)
		if err != nil {
			return path, nil, fmt.Errorf("loading config: %w", err)
		}
		return path, cfg, nil
	}

	root.AddCommand(newServeCmd(loadConfig), newHealthCmd(loadConfig), newTokenCmd(loadConfig))
	return root
}

type configLoader func() (string, *config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	var turnOnly, pushOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, cfg, err := load()
			if err != nil {
				return err
			}
			if err := selectProtocols(cfg, turnOnly, pushOnly); err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd.OutOrStdout(), configPath, cfg)
		},
	}
	cmd.Flags().BoolVar(&turnOnly, "turn-only", false, "serve only the Bot Framework connector endpoint")
	cmd.Flags().BoolVar(&pushOnly, "push-only", false, "run only the LivePerson agent connection")
	cmd.MarkFlagsMutuallyExclusive("turn-only", "push-only")
	return cmd
}

// selectProtocols narrows the configured protocols to the one requested on the command line.
func selectProtocols(cfg *config.Config, turnOnly, pushOnly bool) error {
	switch {
	case turnOnly:
		cfg.Turn.Enabled = true
		cfg.Push.Enabled = false
	case pushOnly:
		cfg.Turn.Enabled = false
		cfg.Push.Enabled = true
	default:
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, out io.Writer, configPath string, cfg *config.Config) error {
	printBanner(out, configPath, cfg)

	logger := setupLogger(cfg.Logging, out)
	logger.Info("starting botbridge",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"turn", cfg.Turn.Enabled,
		"push", cfg.Push.Enabled,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	return gw.Run(ctx)
}

func printBanner(out io.Writer, configPath string, cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	gray.Fprintf(out, "    version: %s\n\n", version)

	line := func(label, value string) {
		green.Fprint(out, "    ▶ ")
		fmt.Fprintf(out, "%-10s %s\n", label+":", value)
	}
	line("Config", configPath)
	if cfg.Tailscale.Enabled {
		line("Tailscale", cfg.Tailscale.Hostname)
	} else {
		line("HTTP", cfg.Server.HTTPAddr)
	}
	if cfg.Turn.Enabled {
		line("Turn", cfg.Turn.Path)
		if cfg.Auth.JWTSecret == "" {
			yellow.Fprint(out, "      unauthenticated\n")
		}
	}
	if cfg.Push.Enabled {
		line("Push", fmt.Sprintf("%s (agent %s)", cfg.Push.URL, cfg.Push.AgentID))
	}
	fmt.Fprintln(out)
}

func newHealthCmd(load configLoader) *cobra.Command {
	var ready bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running bridge's health (or readiness with --ready)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := load()
			if err != nil {
				return err
			}
			path := "/health"
			if ready {
				path = "/ready"
			}
			return checkHealth(cmd.Context(), cmd.OutOrStdout(), baseURL(cfg)+path)
		},
	}
	cmd.Flags().BoolVar(&ready, "ready", false, "check readiness instead of liveness")
	return cmd
}

// baseURL returns the URL of the bridge's HTTP server as seen from this host.
func baseURL(cfg *config.Config) string {
	if cfg.Tailscale.Enabled {
		return "http://" + cfg.Tailscale.Hostname
	}
	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func checkHealth(ctx context.Context, out io.Writer, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Fprintln(out, "healthy")
	return nil
}

func newTokenCmd(load configLoader) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the turn endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(subject, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "token subject, usually the connector's name")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
