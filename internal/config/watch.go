package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"agentdesk/internal/logger"
)

// WatchLogLevel 监听配置文件变化，仅热更新 app.log_level；其余配置需重启生效。
func WatchLogLevel(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config watch disabled: %v", err)
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := v.GetString("app.log_level")
		if level == "" {
			return
		}
		logger.SetLevel(level)
		logger.Infof("config changed (%s), log level -> %s", e.Name, level)
	})
	v.WatchConfig()
}
