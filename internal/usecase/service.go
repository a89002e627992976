package usecase

import (
	"element-locator/internal/config"
	"element-locator/internal/ports"
	"element-locator/internal/query"
	"element-locator/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Locator adapters.LocatorService
	Browser adapters.BrowserService
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Config  *config.Config
	Browser ports.Browser
	Engine  *query.Engine
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Locator: factory.CreateLocatorService(),
		Browser: factory.CreateBrowserService(),
	}
}
