package loggingfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params represents the parameters needed to create the logger
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Debug     bool `name:"debug" optional:"true"`
}

// NewLogger builds a JSON logger on stderr, or a development logger in debug
// mode. Stdout is left alone for the stdio MCP transport.
func NewLogger(params Params) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if params.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

// Module provides the application logger and routes fx events through it
var Module = fx.Options(
	fx.Module("logging",
		fx.Provide(NewLogger),
	),
	fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}),
)
