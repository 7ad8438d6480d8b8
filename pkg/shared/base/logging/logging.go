// 指示: miu200521358
// Package logging はログ出力の契約と既定ロガーを提供する。
package logging

import "sync"

// LogLevel はログ出力レベルを表す。
type LogLevel int

const (
	// LOG_LEVEL_DEBUG はデバッグレベル。
	LOG_LEVEL_DEBUG LogLevel = -4
	// LOG_LEVEL_INFO は情報レベル。
	LOG_LEVEL_INFO LogLevel = 0
	// LOG_LEVEL_WARN は警告レベル。
	LOG_LEVEL_WARN LogLevel = 4
	// LOG_LEVEL_ERROR はエラーレベル。
	LOG_LEVEL_ERROR LogLevel = 8
)

// VerboseChannel は冗長ログの出力チャンネルを表す。
type VerboseChannel string

const (
	// VERBOSE_FLUSH はフラッシュ各パスの詳細ログ。
	VERBOSE_FLUSH VerboseChannel = "flush"
	// VERBOSE_STAGE は生成ステージ進行の詳細ログ。
	VERBOSE_STAGE VerboseChannel = "stage"
	// VERBOSE_DRIVER はドライバー生成の詳細ログ。
	VERBOSE_DRIVER VerboseChannel = "driver"
)

// ILogger はログ出力契約を表す。
type ILogger interface {
	Debug(format string, params ...any)
	Info(format string, params ...any)
	Warn(format string, params ...any)
	Error(format string, params ...any)
	// Verbose は有効化されたチャンネルにのみ出力する。
	Verbose(channel VerboseChannel, format string, params ...any)
	IsVerboseEnabled(channel VerboseChannel) bool
	EnableVerbose(channel VerboseChannel, enabled bool)
	SetLevel(level LogLevel)
	Level() LogLevel
}

var (
	defaultMu     sync.RWMutex
	defaultLogger ILogger
)

// DefaultLogger はプロセス既定のロガーを返す。未設定時はnil。
func DefaultLogger() ILogger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger はプロセス既定のロガーを差し替える。
func SetDefaultLogger(logger ILogger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// LevelFromFlags はCLIフラグからログレベルを決める。
// vv, v, q の順に評価する。
func LevelFromFlags(vv, v, q bool) LogLevel {
	switch {
	case vv:
		return LOG_LEVEL_DEBUG
	case v:
		return LOG_LEVEL_INFO
	case q:
		return LOG_LEVEL_ERROR
	default:
		return LOG_LEVEL_WARN
	}
}
