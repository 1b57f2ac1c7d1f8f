package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matcher over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", server.DefaultListen, "address to listen on")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serverConfig(config *Config) server.Config {
	return server.Config{
		Listen:         config.Server.Listen,
		MaxUploadBytes: config.Server.MaxUploadBytes,
		RateLimit: server.RateLimitConfig{
			Requests:        config.Server.RateLimit.Requests,
			Window:          config.Server.RateLimit.Window,
			CleanupInterval: config.Server.RateLimit.CleanupInterval,
		},
	}
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	matcher, emb, err := newMatcher(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the matcher", zap.Error(err))
	}

	logger.Info("starting the resume-matcher server", zap.String("version", version))

	srvConfig := serverConfig(config)
	srvConfig.CacheStats = emb.cache.Stats

	if err := server.New(srvConfig, matcher, logger.Named("http")).Run(ctx); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "server stopped"))
}
