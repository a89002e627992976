package bootstrap

import (
	"context"

	"element-locator/internal/config"
	"element-locator/internal/console"
	"element-locator/internal/ports"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type consoleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Console   *console.Interface
	Browser   ports.Browser
	Logger    *zap.Logger
	// Resolved so the global tracer provider is installed before any span starts.
	Tracing *sdktrace.TracerProvider
}

func runConsole(params consoleParams) {
	logger := params.Logger

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting element locator console")

			if params.Config.BrowserConfig.Enabled {
				logger.Info("Launching browser...")

				if err := params.Browser.Launch(ctx); err != nil {
					logger.Error("Failed to launch browser", zap.Error(err))

					return err
				}

				logger.Info("Browser launched successfully")
			} else {
				logger.Info("Browser disabled, working on HTML files only")
			}

			go func() {
				if err := params.Console.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down element locator...")

			if err := params.Console.Stop(); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if params.Browser.IsReady() {
				if err := params.Browser.Close(ctx); err != nil {
					logger.Error("Failed to close browser", zap.Error(err))
				}
			}

			return nil
		},
	})
}
