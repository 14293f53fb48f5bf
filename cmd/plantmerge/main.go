package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"plantmerge/internal/config"
	"plantmerge/internal/consolidator"
	"plantmerge/internal/profile"
	"plantmerge/internal/server"
	"plantmerge/internal/store"
	"plantmerge/internal/util"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "plantmerge",
		Short: "多工厂质量数据 Excel 合并工具",
		Long: `plantmerge 将多个工厂上传的 Excel 工作簿按各工厂约定合并为一个工作簿。
可以作为 Web 服务运行（serve），也可以直接在命令行合并文件（combine）。`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认: 可执行文件同目录下的 config.toml)")

	rootCmd.AddCommand(newServeCmd(&configPath), newCombineCmd(&configPath), newInitConfigCmd(&configPath))
	return rootCmd
}

// newLogger 按配置的级别构建 zap 日志
func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func loadConfig(path string) (*config.AppConfig, config.LoadConfigInfo) {
	cfg, info, err := config.LoadConfigWithInfo(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		return config.DefaultConfig(), config.LoadConfigInfo{}
	}
	return cfg, info
}

// ==================== serve ====================

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port      int
		devMode   bool
		dataDir   string
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, info := loadConfig(*configPath)

			// 命令行参数覆盖配置
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}
			if dataDir != "" {
				cfg.Data.DataDir = dataDir
			}
			if noBrowser {
				cfg.Server.OpenBrowser = false
			}

			logger, err := newLogger(cfg.Log.Level, cfg.Server.DevMode)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cfg, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不自动打开浏览器")
	return cmd
}

func serve(cfg *config.AppConfig, logger *zap.Logger) error {
	// 运行历史是可选的，数据库不可用时仍然提供合并服务
	var st *store.Store
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		logger.Warn("创建数据目录失败，运行历史不可用", zap.Error(err))
	} else if st, err = store.Open(dir); err != nil {
		logger.Warn("打开数据库失败，运行历史不可用", zap.String("data_dir", dir), zap.Error(err))
		st = nil
	} else {
		logger.Info("数据目录", zap.String("data_dir", dir))
		defer st.Close()
	}

	srv, err := server.NewServer(cfg, st, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", zap.String("addr", addr))
		errCh <- srv.Run(addr)
	}()

	if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
		if err := util.OpenBrowserWithFallback(url); err != nil {
			logger.Info("无法自动打开浏览器，请手动访问", zap.String("url", url))
		}
	} else {
		logger.Info("请访问", zap.String("url", url))
	}

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// ==================== init-config ====================

func newInitConfigCmd(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "写出默认配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入配置文件: %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的配置文件")
	return cmd
}

// ==================== combine ====================

type combineOptions struct {
	plant         string
	output        string
	sheetNames    string
	newSheetNames string
	reportPath    string
	logLevel      string
}

func newCombineCmd(configPath *string) *cobra.Command {
	opts := combineOptions{}

	cmd := &cobra.Command{
		Use:   "combine [files...]",
		Short: "在命令行合并 Excel 文件",
		Example: `  plantmerge combine --plant kunshan line1.xlsx line2.xlsx
  plantmerge combine --plant anhui -o anhui.xlsx --report report.yaml *.xlsx
  plantmerge combine --plant custom --sheet-names "Sheet1,Sheet2; Sheet1" a.xlsx b.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig(*configPath)
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			logger, err := newLogger(cfg.Log.Level, false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return combine(cmd, opts, args, logger)
		},
	}

	cmd.Flags().StringVar(&opts.plant, "plant", string(profile.PlantKunshan), "工厂: kunshan, anhui, custom")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件路径 (默认: <plant>_combined.xlsx)")
	cmd.Flags().StringVar(&opts.sheetNames, "sheet-names", "", `custom 模式的 sheet 名称，如 "Sheet1,Sheet2; Sheet1"`)
	cmd.Flags().StringVar(&opts.newSheetNames, "new-sheet-names", "", "custom 模式的输出 sheet 名称")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", `运行报告 (YAML) 输出路径，"-" 表示标准输出`)
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "日志级别 (覆盖配置文件)")
	return cmd
}

func combine(cmd *cobra.Command, opts combineOptions, paths []string, logger *zap.Logger) error {
	prof, err := profile.Lookup(profile.PlantID(opts.plant), opts.sheetNames, opts.newSheetNames)
	if err != nil {
		return err
	}

	files := make([]consolidator.InputFile, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, consolidator.InputFile{Filename: filepath.Base(p), Content: content})
	}

	res, err := consolidator.NewEngine(logger).Consolidate(files, prof)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = res.Filename
	}
	if err := os.WriteFile(output, res.Workbook, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	report := res.Report
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d 个文件，导入 %d 个 sheet，跳过 %d 项，共 %d 行\n",
		output, report.TotalFiles, report.ImportedSheets, len(report.Skipped()), report.TotalRows())

	if opts.reportPath == "" {
		return nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if opts.reportPath == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.reportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
