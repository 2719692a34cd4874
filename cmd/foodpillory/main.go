package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"foodpillory/cmd/foodpillory/commands"
	"foodpillory/lib/serviceutil"
	"foodpillory/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)

	ctx := serviceutil.SignalContext()
	tel := telemetry.SetupOptional(ctx, "foodpillory")

	err := commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := tel.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "telemetry shutdown:", shutdownErr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
