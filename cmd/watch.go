// 指示: miu200521358
package main

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
)

// watchDebounce は連続した書き込みをまとめる待ち時間。
const watchDebounce = 150 * time.Millisecond

// inputWatcher はメタリグファイルの変更を監視する。
// エディタの置き換え保存を拾うため親ディレクトリを監視する。
type inputWatcher struct {
	watcher *fsnotify.Watcher
	targets map[string]struct{}
}

// newInputWatcher は監視を開始した状態の inputWatcher を返す。
func newInputWatcher(paths []string) (*inputWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &inputWatcher{watcher: watcher, targets: map[string]struct{}{}}
	dirs := map[string]struct{}{}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		w.targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run は ctx が終わるまで変更を待ち、まとめて onChange を呼ぶ。
// onChange は監視ループ上で直列に呼ばれる。
func (w *inputWatcher) Run(ctx context.Context, onChange func(changed []string)) error {
	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			if _, ok := w.targets[name]; !ok {
				continue
			}
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(changed)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logWatchWarn("監視エラー: %v", err)
		}
	}
}

// Close は監視を終了する。
func (w *inputWatcher) Close() error {
	return w.watcher.Close()
}

func logWatchWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}
