package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/scrapers/vtop"
	"vtop-backend/lib/serviceutil"
	"vtop-backend/lib/telemetry"
)

var tel telemetry.Telemetry

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	var err error
	tel, err = telemetry.SetupFromEnv(ctx, "vtop-server")
	if errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "telemetry.json5 not found, traces and metrics are not exported")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	out, err := restyutil.NewFilesystemOutput(".dev/resty/vtop")
	if err != nil {
		serviceutil.Fatal("create resty output", err)
	}
	vtop.SetRestyInstrumentOutput(out)
}

func shutdownTelemetry(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("telemetry shutdown", "err", err)
	}
}
