package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/datadog-mcp/internal/config"
	"github.com/stellarlinkco/datadog-mcp/internal/datadog"
	"github.com/stellarlinkco/datadog-mcp/internal/gateway"
	"github.com/stellarlinkco/datadog-mcp/internal/telemetry"
	"github.com/stellarlinkco/datadog-mcp/internal/tool"
	"github.com/stellarlinkco/datadog-mcp/internal/tools/logs"
	"github.com/stellarlinkco/datadog-mcp/internal/tools/rum"
	"gopkg.in/yaml.v3"
)

// Set by -ldflags at release time.
var version = "dev"

// APIs are the Datadog capabilities the tool groups are bound to.
type APIs struct {
	Logs logs.API
	RUM  rum.API
}

// APIFactory builds the Datadog capabilities (allows fakes in tests)
type APIFactory func(cfg *config.Config) (APIs, error)

// DefaultAPIFactory connects to Datadog with the configured keys.
func DefaultAPIFactory(cfg *config.Config) (APIs, error) {
	client, err := newDatadogClient(cfg)
	if err != nil {
		return APIs{}, err
	}
	return APIs{Logs: client.Logs(), RUM: client.RUM()}, nil
}

func newDatadogClient(cfg *config.Config) (*datadog.Client, error) {
	if cfg.Datadog.APIKey == "" || cfg.Datadog.AppKey == "" {
		return nil, fmt.Errorf("Datadog keys not set. Run 'datadog-mcp onboard' or set DATADOG_API_KEY / DATADOG_APP_KEY")
	}
	return datadog.NewClient(cfg.Datadog, datadog.WithUserAgent("datadog-mcp/"+version))
}

// buildRegistry wires every tool group in catalogue order.
func buildRegistry(apis APIs) (*tool.Registry, error) {
	return tool.NewRegistry(
		logs.Tools(apis.Logs),
		rum.Tools(apis.RUM),
	)
}

var apiFactory APIFactory = DefaultAPIFactory

var rootCmd = &cobra.Command{
	Use:          "datadog-mcp",
	Short:        "datadog-mcp - Datadog logs and RUM tools over MCP",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server until interrupted",
	RunE:  runServe,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalogue",
	RunE:  runTools,
}

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke one tool against Datadog and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show datadog-mcp status",
	RunE:  runStatus,
}

var (
	transportFlag string
	formatFlag    string
	argsFlag      string
	checkFlag     bool
)

func init() {
	serveCmd.Flags().StringVarP(&transportFlag, "transport", "t", "", "Transport: stdio, sse or http (overrides config)")
	toolsCmd.Flags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or yaml")
	callCmd.Flags().StringVarP(&argsFlag, "args", "a", "{}", "Tool arguments as a JSON object")
	statusCmd.Flags().BoolVar(&checkFlag, "check", false, "Validate the API key against Datadog")
	rootCmd.AddCommand(serveCmd, toolsCmd, callCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if transportFlag != "" {
		cfg.Server.Transport = transportFlag
	}
	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries the stdio transport; logs go to stderr.
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	slog.SetDefault(logger)

	ctx := context.Background()
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}

	apis, err := apiFactory(cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}
	reg, err := buildRegistry(apis)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("build registry: %w", err)
	}
	reg = reg.WithLogger(logger).WithTracer(tp.Tracer())

	gw, err := gateway.NewWithOptions(cfg, reg, gateway.Options{
		Version:    version,
		Logger:     logger,
		OnShutdown: []func(context.Context) error{tp.Shutdown},
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("create gateway: %w", err)
	}

	logger.Info("starting", "version", version, "site", cfg.Datadog.Site, "transport", cfg.Server.Transport, "tracing", tp.Enabled())
	return gw.Run(ctx)
}

func runTools(cmd *cobra.Command, args []string) error {
	// Listing needs no credentials; handlers are never invoked.
	reg, err := buildRegistry(APIs{})
	if err != nil {
		return err
	}
	return writeCatalog(cmd.OutOrStdout(), reg.Catalog(), formatFlag)
}

func writeCatalog(w io.Writer, catalog []tool.CatalogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalog); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)

	arguments, err := tool.DecodeArguments([]byte(argsFlag))
	if err != nil {
		return err
	}

	apis, err := apiFactory(cfg)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(apis)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	res, err := reg.WithLogger(logger).Dispatch(commandContext(cmd), tool.Request{Name: args[0], Arguments: arguments})
	if err != nil {
		return err
	}
	for _, c := range res.Content {
		fmt.Fprintln(cmd.OutOrStdout(), c.Text)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Edit %s to set your Datadog API and application keys\n", cfgPath)
	fmt.Fprintln(out, "  2. Or set DATADOG_API_KEY / DATADOG_APP_KEY environment variables")
	fmt.Fprintln(out, "  3. Run 'datadog-mcp tools' to list the tools, 'datadog-mcp serve' to start")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(out, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err != nil {
		fmt.Fprintln(out, "Config file: not found (run 'datadog-mcp onboard')")
	}
	fmt.Fprintf(out, "Site: %s\n", cfg.Datadog.Site)
	fmt.Fprintf(out, "Transport: %s\n", cfg.Server.Transport)
	if cfg.Server.Transport != config.TransportStdio {
		fmt.Fprintf(out, "Listen: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	}
	fmt.Fprintf(out, "API Key: %s\n", maskKey(cfg.Datadog.APIKey))
	fmt.Fprintf(out, "App Key: %s\n", maskKey(cfg.Datadog.AppKey))
	if cfg.Telemetry.Endpoint != "" {
		fmt.Fprintf(out, "Tracing: %s\n", cfg.Telemetry.Endpoint)
	} else {
		fmt.Fprintln(out, "Tracing: disabled")
	}
	if err := cfg.Validate(true); err != nil {
		fmt.Fprintf(out, "Problems: %v\n", err)
	}

	if checkFlag {
		client, err := newDatadogClient(cfg)
		if err != nil {
			return err
		}
		if err := client.Validate(commandContext(cmd)); err != nil {
			return err
		}
		fmt.Fprintln(out, "API key: valid")
	}

	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "set"
	}
}
