package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/oshinlather/image-to-excel-converter/internal/app"
	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(context.Background())
	if err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
	}
	_ = infrastructure.CloseLogFile()
	if err != nil {
		os.Exit(1)
	}
}
