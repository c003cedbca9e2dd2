// Terradetect-gateway is the HTTP service behind the terradetect client.
//
// It keeps the third-party credentials (weather service, ThingSpeak) away
// from the client, proxies prediction requests to the model service and
// stores every sensor reading it sees. Connected clients are told about new
// readings over a websocket.
//
// Usage:
//
//	terradetect-gateway serve [flags]
//
// Configuration comes from the environment, optionally seeded from a .env
// file. See 'terradetect-gateway serve --help' for the variables.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/gateway"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "terradetect-gateway",
	Short: "TerraDetect gateway",
	Long: `The HTTP gateway between the terradetect client and the services it needs.

Routes:
  POST /predict                  proxied to PREDICTION_URL
  POST /api/thingspeak/trigger   ask the field sensors for a reading
  GET  /api/thingspeak/fetch     newest reading on the ThingSpeak channel
  POST /api/esp32                readings posted by devices
  GET  /api/sensor/latest        newest stored reading
  GET  /api/sensor/history       stored readings, newest first
  GET  /api/weather              current conditions for lat/lon
  GET  /ws/sensor                push stream of new readings
  GET  /healthz                  liveness and configured features`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	addr     string
	envFiles []string
	logLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the gateway and serve until interrupted.

Environment:
  GATEWAY_ADDR           listen address (default :5000)
  PREDICTION_URL         prediction endpoint, used as is (a bare host gets /predict)
  WEATHER_API_KEY        weatherapi.com key
  WEATHER_API_URL        weather API root
  THINGSPEAK_CHANNEL_ID  ThingSpeak channel
  THINGSPEAK_READ_KEY    channel read key
  THINGSPEAK_WRITE_KEY   channel write key, used to trigger the sensors
  THINGSPEAK_URL         ThingSpeak API root
  MONGO_URI, MONGO_DB    reading store (in memory when unset)
  DEVICE_API_KEYS        device_id:key pairs for POST /api/esp32
  CORS_ORIGINS           allowed browser origins
  MDNS_ENABLE            advertise the gateway on the local network
  UPSTREAM_TIMEOUT       timeout for calls to the services above`,
	Example: `  # Start with settings from ./.env
  terradetect-gateway serve

  # Listen on another port with debug logging
  terradetect-gateway serve --addr :8080 --log-level debug

  # Read a different env file
  terradetect-gateway serve --env-file /etc/terradetect/gateway.env`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GATEWAY_ADDR)")
	serveCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	env, err := config.LoadGatewayEnv(envFiles...)
	if err != nil {
		return err
	}
	if addr != "" {
		env.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := gateway.New(ctx, env, gateway.Deps{})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	logging.Info("Starting gateway",
		zap.String("version", version.Full()),
		zap.String("addr", env.Addr),
		zap.Bool("thingspeak", env.ThingSpeakConfigured()),
		zap.Bool("weather", env.WeatherAPIKey != ""),
		zap.Bool("prediction", env.PredictionURL != ""),
		zap.Bool("mongo", env.MongoURI != ""),
	)

	err = srv.Serve(ctx, env.Addr, func(port int) {
		logging.Info("Gateway listening", zap.Int("port", port))
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info("Gateway stopped")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("terradetect-gateway %s (commit: %s)\n", version.Full(), version.Commit)
	},
}
