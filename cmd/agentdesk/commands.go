package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"agentdesk/internal/app"
	"agentdesk/internal/config"
	cfgloader "agentdesk/internal/config/loader"
	"agentdesk/internal/logger"
	"agentdesk/internal/portfolio"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

type runtime struct {
	cfgPath string
	cfg     *config.Config
	files   []*os.File
}

func (r *runtime) close() {
	for _, f := range r.files {
		_ = f.Close()
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:          "agentdesk",
		Short:        "agentdesk - AI agent trade generation for prediction markets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}
	root.PersistentFlags().StringVar(&rt.cfgPath, "config", "", "config file path (env AGENTDESK_CONFIG, default "+defaultConfigPath+")")

	root.AddCommand(newServeCmd(rt))
	root.AddCommand(newCycleCmd(rt))
	root.AddCommand(newAgentsCmd(rt))
	root.AddCommand(newStatsCmd(rt))
	return root
}

// setup 先加载 .env，保证模式与功能开关在读取配置前可见。
func (r *runtime) setup() error {
	_ = godotenv.Load()
	if r.cfgPath == "" {
		r.cfgPath = os.Getenv("AGENTDESK_CONFIG")
	}
	if r.cfgPath == "" {
		r.cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(r.cfgPath)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	r.cfg = cfg
	if f, err := setupLogOutput(cfg.App.LogPath); err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	} else if f != nil {
		r.files = append(r.files, f)
	}
	logger.SetOracleWriter(nil)
	if f, err := setupOracleLogOutput(cfg.App.OracleLogPath); err != nil {
		return fmt.Errorf("初始化 oracle 日志失败: %w", err)
	} else if f != nil {
		r.files = append(r.files, f)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableOraclePromptDump(cfg.Features.Mode == config.ModeDebug)
	logger.Infof("✓ 配置加载成功（环境=%s，模式=%s）", cfg.App.Env, cfg.Features.Mode)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run generation and lifecycle loops with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			config.WatchLogLevel(rt.cfgPath)
			a, err := app.NewApp(ctx, rt.cfg)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			return a.Run(ctx)
		},
	}
}

func newCycleCmd(rt *runtime) *cobra.Command {
	var withLifecycle bool
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run a single generation cycle and print the trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			a, err := app.NewApp(ctx, rt.cfg)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()
			res, err := a.Engine().RunGenerationCycle(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, app.RenderCycle(res))
			if withLifecycle {
				closed, err := a.Engine().RunLifecycle(ctx)
				if err != nil {
					return err
				}
				for _, c := range closed {
					fmt.Fprintf(out, "closed %s %s %s pnl=%+.2f\n", c.AgentID, c.Position.MarketID, c.Reason, c.RealizedPnL)
				}
			}
			_, summary := portfolio.LedgerStats(a.Engine().Ledger())
			fmt.Fprintln(out, app.RenderLeaderboard(summary))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withLifecycle, "lifecycle", false, "run a lifecycle pass after the cycle")
	return cmd
}

func newAgentsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := cfgloader.LoadRegistry(rt.cfg.Engine.ProfilesPath)
			if err != nil {
				return err
			}
			reg, err = reg.Subset(rt.cfg.Engine.Agents)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.RenderAgents(reg.All()))
			return nil
		},
	}
}

func newStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the P&L leaderboard from stored trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			_, summary := portfolio.LedgerStats(a.Engine().Ledger())
			fmt.Fprintln(cmd.OutOrStdout(), app.RenderLeaderboard(summary))
			return nil
		},
	}
}

func openAppend(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func setupLogOutput(path string) (*os.File, error) {
	file, err := openAppend(path)
	if err != nil || file == nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupOracleLogOutput(path string) (*os.File, error) {
	f, err := openAppend(path)
	if err != nil || f == nil {
		return nil, err
	}
	logger.SetOracleWriter(f)
	return f, nil
}
