// Command lambda runs one handler, chosen by HANDLER_NAME, under the AWS
// Lambda runtime.
package main

import (
	"context"
	"fmt"
	"os"

	"session-handlers/internal/app"
	"session-handlers/internal/common/config"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/handlers/routes"
	"session-handlers/pkg/registry"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	// Dependencies are built once per container and reused across invocations.
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}

	reg, err := routes.Build(a)
	if err != nil {
		zapLog.Fatal("handler registration failed", zap.Error(err))
	}

	entry, err := selectHandler(reg, os.Getenv("HANDLER_NAME"))
	if err != nil {
		zapLog.Fatal("no handler to run", zap.Error(err))
	}

	log.Info("lambda handler ready", map[string]interface{}{"handler": entry.Name})
	lambda.Start(entry.Handler)
}

func selectHandler(reg *registry.Registry, name string) (registry.Entry, error) {
	if name == "" {
		return registry.Entry{}, fmt.Errorf("HANDLER_NAME is not set (available: %v)", reg.Names())
	}
	e, ok := reg.Get(name)
	if !ok {
		return registry.Entry{}, fmt.Errorf("unknown handler %q (available: %v)", name, reg.Names())
	}
	return e, nil
}
