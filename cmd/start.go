package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benniehaelen/databricks-mcp-server/internal/api"
	"github.com/benniehaelen/databricks-mcp-server/internal/chart"
	"github.com/benniehaelen/databricks-mcp-server/internal/config"
	"github.com/benniehaelen/databricks-mcp-server/internal/nlq"
	"github.com/benniehaelen/databricks-mcp-server/internal/server"
	"github.com/benniehaelen/databricks-mcp-server/internal/telemetry"
	"github.com/benniehaelen/databricks-mcp-server/internal/workspace"
)

const (
	BindPortEnvVar  = "PORT"
	BindPortDefault = "8080"

	TelemetryEnabledEnvVar = "OTEL_ENABLED"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

var (
	startServerCmdConfigPath string
	startServerCmdTransport  string
	startServerCmdBindPort   string
)

var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Databricks MCP server",
	Long: "Starts the MCP server backed by a Databricks workspace.\n\n" +
		"The server speaks the stdio transport by default, which is what desktop MCP clients expect.\n" +
		"Pass --transport http to serve the streamable HTTP transport on /mcp instead, alongside\n" +
		"/health and (when OTEL_ENABLED is true) Prometheus metrics on /metrics.\n\n" +
		"Workspace credentials come from the optional YAML config file and the environment:\n" +
		"DATABRICKS_HOST and DATABRICKS_TOKEN are required, DATABRICKS_WAREHOUSE_ID sets the\n" +
		"default SQL warehouse, and ANTHROPIC_API_KEY enables the query_natural_language tool.\n" +
		"A .env file in the working directory is loaded automatically.",
	RunE: runStartServer,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "1",
	},
}

func init() {
	startServerCmd.Flags().StringVarP(
		&startServerCmdConfigPath,
		"config", "c",
		"",
		"path to a YAML config file (environment variables take precedence)",
	)
	startServerCmd.Flags().StringVar(
		&startServerCmdTransport,
		"transport",
		TransportStdio,
		fmt.Sprintf("MCP transport to serve ('%s' | '%s')", TransportStdio, TransportHTTP),
	)
	startServerCmd.Flags().StringVar(
		&startServerCmdBindPort,
		"port",
		"",
		fmt.Sprintf("port to bind the HTTP server to (overrides env var %s)", BindPortEnvVar),
	)

	rootCmd.AddCommand(startServerCmd)
}

// isTelemetryEnabled returns true if telemetry should be enabled.
// If an env var is specified, it takes precedence over the default.
// Telemetry is off by default and only ever served on the HTTP transport.
func isTelemetryEnabled() (bool, error) {
	envTelemetryEnabled := strings.ToLower(os.Getenv(TelemetryEnabledEnvVar))
	switch envTelemetryEnabled {
	case "":
		return false, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf(
			"invalid value for %s environment variable: '%s', valid values are 'true' or 'false'",
			TelemetryEnabledEnvVar, envTelemetryEnabled,
		)
	}
}

// getBindPort returns the TCP port to bind the HTTP server to
// precedence: command line flag > environment variable > default
func getBindPort() string {
	port := startServerCmdBindPort
	if port == "" {
		port = os.Getenv(BindPortEnvVar)
	}
	if port == "" {
		port = BindPortDefault
	}
	return port
}

// newLogger builds the process logger. On the stdio transport, stdout is the
// wire, so logs must go to stderr only.
func newLogger(transport string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if transport == TransportStdio {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}

func runStartServer(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	transport := strings.ToLower(startServerCmdTransport)
	if transport != TransportStdio && transport != TransportHTTP {
		return fmt.Errorf(
			"invalid value for --transport: '%s', valid values are '%s' and '%s'",
			startServerCmdTransport, TransportStdio, TransportHTTP,
		)
	}

	logger, err := newLogger(transport)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(startServerCmdConfigPath)
	if err != nil {
		return err
	}

	// Initialize metrics if enabled
	telemetryEnabled, err := isTelemetryEnabled()
	if err != nil {
		return err
	}
	if transport == TransportStdio {
		// there is no HTTP surface to scrape on stdio
		telemetryEnabled = false
	}
	otelConfig := &telemetry.Config{
		ServiceName: "databricks-mcp-server",
		Enabled:     telemetryEnabled,
	}
	otelProviders, err := telemetry.Init(cmd.Context(), otelConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize Opentelemetry providers: %v", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(cmd.Context()); err != nil {
			logger.Warn("failed to shutdown opentelemetry providers", zap.Error(err))
		}
	}()

	// By default, a no-op metrics implementation is used, assuming metrics
	// are disabled. If they are enabled, the real implementation replaces it.
	// Handlers always record through the CustomMetrics interface and never
	// check whether metrics are on.
	mcpMetrics := telemetry.NewNoopCustomMetrics()
	if otelProviders.IsEnabled() {
		mcpMetrics, err = telemetry.NewOtelCustomMetrics(otelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create MCP metrics: %v", err)
		}
	}

	ws, err := workspace.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create workspace client: %v", err)
	}

	var nlService server.NLService
	if cfg.NLEnabled() {
		nlService = nlq.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, ws, ws, logger)
	} else {
		logger.Info("ANTHROPIC_API_KEY is not set, the query_natural_language tool will report an error when called")
	}

	srv, err := server.New(server.Options{
		Workspace: ws,
		NL:        nlService,
		Charts:    chart.New(ws, logger),
		Metrics:   mcpMetrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %v", err)
	}

	if transport == TransportStdio {
		logger.Info("serving MCP over stdio", zap.String("host", cfg.DatabricksHost))
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("failed to run the stdio server: %v", err)
		}
		return nil
	}

	bindPort := getBindPort()
	s, err := api.NewServer(&api.ServerOptions{
		Port:          bindPort,
		MCPServer:     srv.MCPServer(),
		OtelProviders: otelProviders,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	cmd.Print(asciiArt)
	cmd.Printf("Databricks MCP server listening on :%s\n\n", bindPort)
	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to run the server: %v", err)
	}

	return nil
}
