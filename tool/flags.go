package tool

import (
	"flag"

	"github.com/moyoez/filetool-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override settings file path")
	flag.StringVar(&cfg.UseRegistryPath, "useRegistryPath", "", "override registry document path")
	flag.StringVar(&cfg.UseDownloadFolder, "useDownloadFolder", "", "override folder for downloaded artifacts")
	flag.StringVar(&cfg.UseAPIBaseURL, "useApiBaseUrl", "", "override processing service base url (persisted)")
	flag.IntVar(&cfg.UsePort, "usePort", 53320, "local api port (bound to 127.0.0.1)")
	flag.IntVar(&cfg.UseDownloadConcurrency, "useDownloadConcurrency", 1, "artifacts downloaded at once, 1 keeps downloads sequential")
	flag.Float64Var(&cfg.UseDownloadRate, "useDownloadRate", 0, "max artifact downloads per second, 0 disables pacing")
	flag.StringVar(&cfg.UseNotifySocket, "useNotifySocket", "", "unix socket that receives flow notifications")
	flag.BoolVar(&cfg.SkipNotify, "skipNotify", false, "if true, do not send unix socket notifications")
	flag.Parse()
	return cfg
}
