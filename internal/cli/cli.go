package cli

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lablabs/storefront-client/internal/routes"
)

// Execute initializes and runs the Cobra CLI
func Execute() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree and binds its flags to viper.
func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:           "storefront",
		Short:         "GraphQL client and gateway for the storefront API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	viper.AutomaticEnv()

	flags := cmd.PersistentFlags()

	flags.String("store", "", "storefront subdomain, <store>.myshopify.com")
	viper.BindEnv("store")

	flags.String("storefront_token", "", "storefront access token")
	viper.BindEnv("storefront_token")

	flags.String("api_version", "2024-04", "storefront API version")
	viper.BindEnv("api_version")
	viper.SetDefault("api_version", "2024-04")

	flags.String("endpoint", "", "override the storefront GraphQL URL")
	viper.BindEnv("endpoint")

	flags.String("log_level", "info", "log level (debug, info, warn, error)")
	viper.BindEnv("log_level")
	viper.SetDefault("log_level", "info")

	flags.String("fragment_mode", "single", "fragment inlining: single (first spread, one level) or fixpoint")
	viper.BindEnv("fragment_mode")
	viper.SetDefault("fragment_mode", "single")

	flags.Float64("rate_limit", 0, "max storefront requests per second, 0 disables throttling")
	viper.BindEnv("rate_limit")
	viper.SetDefault("rate_limit", 0)

	flags.Int("rate_burst", 2, "burst allowed above rate_limit")
	viper.BindEnv("rate_burst")
	viper.SetDefault("rate_burst", 2)

	flags.String("session_backend", "memory", "session cache backend: memory or redis")
	viper.BindEnv("session_backend")
	viper.SetDefault("session_backend", "memory")

	flags.Int("session_capacity", 1024, "number of in-memory sessions kept")
	viper.BindEnv("session_capacity")
	viper.SetDefault("session_capacity", 1024)

	flags.String("redis_url", "redis://localhost:6379/0", "redis URL for the redis session backend")
	viper.BindEnv("redis_url")
	viper.SetDefault("redis_url", "redis://localhost:6379/0")

	flags.Int("session_ttl", 1800, "redis session lifetime in seconds")
	viper.BindEnv("session_ttl")
	viper.SetDefault("session_ttl", 1800)

	viper.BindPFlags(flags)

	cmd.AddCommand(newServeCommand(), newQueryCommand(), newBuildCommand(), newKeyCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "serve the storefront gateway over HTTP",
		Run: func(_ *cobra.Command, _ []string) {
			routes.RunGateway()
		},
	}

	flags := cmd.Flags()

	flags.String("listen", ":8080", "listen on addr:port ( default :8080), omit addr to listen on all interfaces")
	viper.BindEnv("listen")
	viper.SetDefault("listen", ":8080")

	flags.String("metrics_path", "/metrics", "path for metrics, default /metrics")
	viper.BindEnv("metrics_path")
	viper.SetDefault("metrics_path", "/metrics")

	flags.String("metrics_denylist", "", "metrics to not expose, comma delimited list")
	viper.BindEnv("metrics_denylist")
	viper.SetDefault("metrics_denylist", "")

	flags.String("cors_origins", "*", "origins allowed to call the gateway, comma delimited list")
	viper.BindEnv("cors_origins")
	viper.SetDefault("cors_origins", "*")

	flags.Int("workers", 8, "workers executing batch operations")
	viper.BindEnv("workers")
	viper.SetDefault("workers", 8)

	viper.BindPFlags(flags)
	return cmd
}
