// 指示: miu200521358
// Package mlogging は slog ベースのロガー実装を提供する。
package mlogging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/muesli/termenv"

	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
)

// Logger は slog と termenv によるロガーを表す。
type Logger struct {
	mu      sync.RWMutex
	level   *slog.LevelVar
	logger  *slog.Logger
	output  *termenv.Output
	verbose map[logging.VerboseChannel]bool
}

// NewLogger はLoggerを生成する。wがnilの場合は標準エラー出力へ書き込む。
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{
		level:   &slog.LevelVar{},
		output:  termenv.NewOutput(w),
		verbose: map[logging.VerboseChannel]bool{},
	}
	l.level.Set(slog.Level(logging.LOG_LEVEL_INFO))
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       l.level,
		ReplaceAttr: l.replaceAttr,
	})
	l.logger = slog.New(handler)
	return l
}

// replaceAttr はレベル表記を端末色付きに置き換える。
func (l *Logger) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	label := level.String()
	style := l.output.String(label)
	switch {
	case level >= slog.LevelError:
		style = style.Foreground(termenv.ANSIRed).Bold()
	case level >= slog.LevelWarn:
		style = style.Foreground(termenv.ANSIYellow)
	case level < slog.LevelInfo:
		style = style.Faint()
	}
	return slog.String(a.Key, style.String())
}

// Debug はデバッグログを出力する。
func (l *Logger) Debug(format string, params ...any) {
	l.log(slog.LevelDebug, format, params...)
}

// Info は情報ログを出力する。
func (l *Logger) Info(format string, params ...any) {
	l.log(slog.LevelInfo, format, params...)
}

// Warn は警告ログを出力する。
func (l *Logger) Warn(format string, params ...any) {
	l.log(slog.LevelWarn, format, params...)
}

// Error はエラーログを出力する。
func (l *Logger) Error(format string, params ...any) {
	l.log(slog.LevelError, format, params...)
}

// Verbose は有効なチャンネルのみレベルに関係なく出力する。
func (l *Logger) Verbose(channel logging.VerboseChannel, format string, params ...any) {
	if !l.IsVerboseEnabled(channel) {
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, fmt.Sprintf(format, params...),
		slog.String("channel", string(channel)))
}

// IsVerboseEnabled はチャンネルが有効か返す。
func (l *Logger) IsVerboseEnabled(channel logging.VerboseChannel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose[channel]
}

// EnableVerbose はチャンネルの有効状態を切り替える。
func (l *Logger) EnableVerbose(channel logging.VerboseChannel, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose[channel] = enabled
}

// SetLevel は出力レベルを設定する。
func (l *Logger) SetLevel(level logging.LogLevel) {
	l.level.Set(slog.Level(level))
}

// Level は出力レベルを返す。
func (l *Logger) Level() logging.LogLevel {
	return logging.LogLevel(l.level.Level())
}

func (l *Logger) log(level slog.Level, format string, params ...any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	message := format
	if len(params) > 0 {
		message = fmt.Sprintf(format, params...)
	}
	l.logger.Log(ctx, level, message)
}
