package main

import (
	"runtime"

	"github.com/vkngwrapper/incipisphere/internal/app"
	"github.com/vkngwrapper/incipisphere/internal/config"
	"github.com/vkngwrapper/incipisphere/internal/logging"
)

func main() {
	runtime.LockOSThread()
	logger := logging.Root()

	cfg, path, err := config.Resolve()
	if err != nil {
		logger.Fatalf("%+v", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	logging.SetLevel(level)

	if path == "" {
		logger.Info("using built-in config")
	} else {
		logger.Info("config loaded", "path", path)
	}

	if err := app.Run(cfg); err != nil {
		logger.Fatalf("%+v", err)
	}
}
