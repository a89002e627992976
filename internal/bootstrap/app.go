package bootstrap

import (
	"time"

	"element-locator/internal/browser"
	"element-locator/internal/config"
	"element-locator/internal/console"
	"element-locator/internal/ports"
	"element-locator/internal/query"
	"element-locator/internal/usecase"

	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newQueryEngine,

			fx.Annotate(browser.NewManager, fx.As(new(ports.Browser))),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(60*time.Second),
	)
}

func newQueryEngine(config *config.Config) (*query.Engine, error) {
	return query.NewEngine(config.LocatorConfig.SelectorCacheSize)
}
