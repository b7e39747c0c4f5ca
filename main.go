package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/filetool-go/api"
	"github.com/moyoez/filetool-go/api/models"
	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/notify"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const defaultRegistryPath = "filesystem.json"

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	settings, err := tool.LoadSettings(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UseAPIBaseURL != "" {
		if settings, err = tool.SetAPIBaseURL(cfg.UseAPIBaseURL); err != nil {
			tool.DefaultLogger.Fatalf("invalid -useApiBaseUrl: %v", err)
		}
	}

	registryPath := defaultRegistryPath
	if cfg.UseRegistryPath != "" {
		registryPath = cfg.UseRegistryPath
	}
	store, err := registry.NewJSONStore(registryPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("failed to open registry: %v", err)
	}

	client := remote.New(remote.Config{
		BaseURL:      settings.APIBaseURL,
		DownloadDir:  cfg.UseDownloadFolder,
		DownloadRate: cfg.UseDownloadRate,
	})
	tool.OnSettingsChange(func(s types.Settings) {
		if s.APIBaseURL != client.BaseURL() {
			client.SetBaseURL(s.APIBaseURL)
		}
	})

	hub := notify.NewHub()
	notifiers := notify.Multi{notify.LogNotifier{}, hub}
	if !cfg.SkipNotify {
		notifiers = append(notifiers, notify.NewSocketNotifier(cfg.UseNotifySocket))
	}

	flowNotify := notify.NewFlowReporter(notifiers, notify.DefaultFlowQueueSize)
	defer flowNotify.Close()

	flows := flow.New(store, client, newFlowOptions(cfg, flow.MultiReporter(models.JobReporter, flowNotify)))

	apiServer := api.NewServer(cfg.UsePort, api.Deps{
		Store:    store,
		Flows:    flows,
		Status:   client,
		Hub:      hub,
		Notifier: notifiers,
	})
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	if status, err := client.CheckStatus(context.Background()); err != nil {
		tool.DefaultLogger.Warnf("Processing service at %s is not reachable: %v", client.BaseURL(), err)
	} else {
		tool.DefaultLogger.Infof("Processing service at %s supports extract %v, convert %v",
			client.BaseURL(), status.SupportedFormats.Extract, status.SupportedFormats.Convert)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	tool.DefaultLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		tool.DefaultLogger.Errorf("API server shutdown failed: %v", err)
	}
}

// newFlowOptions keeps compress on the fixed default ratio and writes codec
// outputs next to the downloaded artifacts.
func newFlowOptions(cfg types.Config, reporter flow.Reporter) flow.Options {
	codec := flow.NewStdImageCodec(cfg.UseDownloadFolder)
	return flow.Options{
		DownloadConcurrency: cfg.UseDownloadConcurrency,
		Reporter:            reporter,
		Compressor:          codec,
		Converter:           codec,
	}
}
