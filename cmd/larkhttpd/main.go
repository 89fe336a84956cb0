// Command larkhttpd runs the HTTP/1.1 origin server: it loads a JSON
// directory/server configuration, bootstraps telemetry, starts the
// worker-pool runtime and the administrative control channel, and
// waits for an interrupt to shut everything down.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/larkhttp/larkhttpd/admin"
	"github.com/larkhttp/larkhttpd/config"
	"github.com/larkhttp/larkhttpd/filesystem"
	"github.com/larkhttp/larkhttpd/housekeep"
	"github.com/larkhttp/larkhttpd/httpserver"
	"github.com/larkhttp/larkhttpd/telemetry"
	"github.com/larkhttp/larkhttpd/webdir"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "larkhttpd.json", "path to the JSON configuration document")
	otelEndpoint := flag.String("otel-endpoint", "127.0.0.1:4317", "OTLP/gRPC collector endpoint")
	serviceName := flag.String("service-name", "larkhttpd", "OTel service name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	result, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	providers, err := telemetry.Bootstrap(ctx, *serviceName, *otelEndpoint)
	if err != nil {
		return err
	}
	defer providers.Shutdown(context.Background())

	fs := filesystem.NewLocalFileSystem()
	resolver := &webdir.Resolver{Tree: result.Tree, FS: fs}

	rt := httpserver.New(result.ServerSettings, providers.Log, resolver.Resolve)
	rt.Telemetry = providers

	if err := rt.Start(); err != nil {
		return err
	}

	adminSrv := &admin.Server{Runtime: rt, Tree: result.Tree, Log: providers.Log, ConfigPath: *configPath}
	adminErrCh := make(chan error, 1)
	if result.AdminListen != "" {
		go func() { adminErrCh <- adminSrv.Serve(result.AdminListen) }()
	}

	go housekeep.Run(ctx, rt, result.ServerSettings.UploadsDir, providers.Log, time.Minute, 15*time.Minute)

	providers.Log.Info("larkhttpd listening", "addr", result.ServerSettings.Addr)

	select {
	case <-ctx.Done():
		stop()
	case err := <-adminErrCh:
		if err != nil {
			providers.Log.Error("admin channel failed", "err", err)
		}
	}

	return rt.Stop(true)
}
