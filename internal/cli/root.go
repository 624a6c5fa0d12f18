// Package cli alertfi 命令行入口
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gonglijing/alertfi/internal/config"
	"github.com/gonglijing/alertfi/internal/logger"
)

var log = logger.Named("cli")

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	configPath string
	logLevel   string
	verbose    bool

	cfg       *config.Config
	logCloser io.Closer
}

// NewRootCommand 构建命令树
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "alertfi",
		Short: "AlertFi fire and gas detector administration",
		Long: `AlertFi administration server and tools.

The server keeps users, detectors and readings in SQLite, accepts detector
reports over HTTP and MQTT, pushes alerts to connected dashboards and exposes
Prometheus metrics. The stats and export commands talk to a running deployment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logCloser != nil {
				_ = opts.logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: config/config.yaml or $"+config.ConfigPathEnv+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCommand(opts),
		newStatsCommand(opts),
		newExportCommand(opts),
		newAdminCommand(opts),
	)
	return root
}

// Execute 运行命令行
func Execute() error {
	return NewRootCommand().Execute()
}

// load 读取配置并初始化日志
func (o *globalOptions) load() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.verbose {
		level = "debug"
	}
	closer, err := logger.Configure(level, cfg.LogJSON, logger.FileOptions{
		Path:         cfg.LogFile,
		MaxSizeBytes: int64(cfg.LogMaxSizeBytes),
		MaxBackups:   cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logCloser = closer
	log.Debug("configuration loaded", "config", cfg.String())
	return nil
}
