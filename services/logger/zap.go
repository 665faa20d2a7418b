package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"

	"github.com/trezcool/dripfeed/core"
)

// NewZap builds the local logger: human readable in DEV & TEST, JSON elsewhere.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	var cfg zap.Config
	switch conf.Env {
	case "DEV", "TEST":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	if conf.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build(zap.Fields(zap.String("app", conf.AppName), zap.String("build", conf.Build)))
}

// NewNopLogger discards everything; for tests.
func NewNopLogger() *RollbarLogger {
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: zap.NewNop().Sugar()}
}
