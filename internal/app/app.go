package app

import (
	"context"
	"fmt"
	"time"

	"agentdesk/internal/config"
	"agentdesk/internal/engine"
	"agentdesk/internal/gateway/notifier"
	"agentdesk/internal/logger"
	livehttp "agentdesk/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引擎循环与 HTTP 服务。
type App struct {
	cfg      *config.Config
	engine   *engine.Service
	liveHTTP *livehttp.Server
	notifier *notifier.Dispatcher
	closers  []namedCloser
	Summary  *StartupSummary
}

type namedCloser struct {
	name string
	fn   func() error
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	if len(opts) > 0 {
		return NewAppBuilder(cfg, opts...).Build(ctx)
	}
	return buildAppWithWire(ctx, cfg)
}

// Run 启动引擎循环与 HTTP 服务，ctx 结束后关闭资源。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			logger.Infof("live http listening on %s", a.liveHTTP.Addr())
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	if a.notifier != nil {
		group.Go(func() error { return a.notifier.Run(ctx) })
	}
	eng := a.cfg.Engine
	group.Go(func() error {
		return a.engine.Run(ctx,
			time.Duration(eng.GenerationIntervalSeconds)*time.Second,
			time.Duration(eng.LifecycleIntervalSeconds)*time.Second)
	})
	return group.Wait()
}

// Engine 暴露引擎实例（CLI 单次周期与测试使用）。
func (a *App) Engine() *engine.Service {
	if a == nil {
		return nil
	}
	return a.engine
}

// Close 按逆序关闭存储等资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	closeAll(a.closers)
	a.closers = nil
}

func closeAll(closers []namedCloser) {
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(); err != nil {
			logger.Warnf("App: %s 关闭失败: %v", c.name, err)
			continue
		}
		logger.Infof("App: ✓ %s 已关闭", c.name)
	}
}
