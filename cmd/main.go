// 指示: miu200521358
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/host/memory"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_scene"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/mpresenter/messages"
	"github.com/miu200521358/mu_cloudrig/pkg/infra/base/mlogging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/minteractor"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// stringList は複数指定可能なフラグ値を表す。
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// options はCLI引数を保持する。
type options struct {
	inputs    []string
	scenePath string
	dumpPath  string
	watch     bool
	record    bool
	level     logging.LogLevel
	verbose   bool
}

// main はメタリグからリグを生成する。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runContext(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run はCLI処理全体を実行する。
func run(args []string, out io.Writer, errOut io.Writer) error {
	return runContext(context.Background(), args, out, errOut)
}

// runContext は ctx が終わるまで監視を続ける以外は run と同じ。
func runContext(ctx context.Context, args []string, out io.Writer, errOut io.Writer) error {
	opts, err := parseOptions(args, errOut)
	if err != nil {
		return err
	}

	previous := logging.DefaultLogger()
	logger := mlogging.NewLogger(errOut)
	logger.SetLevel(opts.level)
	if opts.verbose {
		for _, channel := range []logging.VerboseChannel{logging.VERBOSE_FLUSH, logging.VERBOSE_STAGE, logging.VERBOSE_DRIVER} {
			logger.EnableVerbose(channel, true)
		}
	}
	logging.SetDefaultLogger(logger)
	defer logging.SetDefaultLogger(previous)

	repository := io_metarig.NewMetarigRepository()
	paths, err := expandInputs(opts.inputs, repository.CanLoad)
	if err != nil {
		return err
	}

	app := &cliApp{opts: opts, out: out, repository: repository}
	deps := minteractor.CloudGeneratorDeps{MetarigReader: repository}
	if opts.scenePath != "" {
		if err := ensureOutputDir(opts.scenePath); err != nil {
			return err
		}
		store, err := io_scene.NewSqliteStore(opts.scenePath)
		if err != nil {
			return fmt.Errorf(messages.MessageSceneFailed, err)
		}
		defer store.Close()
		app.store = store
		deps.SceneStore = store
	}
	app.generator = minteractor.NewCloudGenerator(deps)

	if err := app.generateAll(paths); err != nil {
		if !opts.watch {
			return err
		}
		logger.Error("%v", err)
	}
	if !opts.watch {
		return nil
	}

	watcher, err := newInputWatcher(paths)
	if err != nil {
		return fmt.Errorf(messages.MessageWatchFailed, err)
	}
	defer watcher.Close()
	fmt.Fprintf(out, messages.LogWatchStart, len(paths))
	return watcher.Run(ctx, func(changed []string) {
		for _, path := range changed {
			fmt.Fprintf(out, messages.LogWatchChanged, path)
		}
		if err := app.generateAll(paths); err != nil {
			logger.Error("%v", err)
		}
	})
}

// parseOptions はCLI引数を解析する。
func parseOptions(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("mu_cloudrig", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s: %s\n", messages.HelpUsageTitle, messages.HelpUsage)
		fs.PrintDefaults()
	}

	var inputs stringList
	fs.Var(&inputs, "in", messages.FlagIn)
	scene := fs.String("scene", "", messages.FlagScene)
	dump := fs.String("dump", "", messages.FlagDump)
	watch := fs.Bool("watch", false, messages.FlagWatch)
	record := fs.Bool("record", false, messages.FlagRecord)
	v := fs.Bool("v", false, messages.FlagV)
	vv := fs.Bool("vv", false, messages.FlagVV)
	q := fs.Bool("q", false, messages.FlagQ)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	inputs = append(inputs, fs.Args()...)
	if len(inputs) == 0 {
		return options{}, errors.New(messages.MessageInputRequired)
	}

	return options{
		inputs:    inputs,
		scenePath: strings.TrimSpace(*scene),
		dumpPath:  strings.TrimSpace(*dump),
		watch:     *watch,
		record:    *record,
		level:     logging.LevelFromFlags(*vv, *v, *q),
		verbose:   *vv,
	}, nil
}

// expandInputs はパスとglobを読み込み対象の一覧へ展開する。
func expandInputs(patterns []string, canLoad func(string) bool) ([]string, error) {
	seen := map[string]struct{}{}
	paths := make([]string, 0, len(patterns))
	add := func(path string) {
		clean := filepath.Clean(path)
		if _, exists := seen[clean]; exists {
			return
		}
		seen[clean] = struct{}{}
		paths = append(paths, clean)
	}
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			add(pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("globの解析に失敗しました: %s: %w", pattern, err)
		}
		sort.Strings(matches)
		count := 0
		for _, match := range matches {
			if canLoad != nil && !canLoad(match) {
				continue
			}
			add(match)
			count++
		}
		if count == 0 {
			return nil, fmt.Errorf(messages.MessageInputNotFound, pattern)
		}
	}
	return paths, nil
}

// cliApp は1回の生成パスに必要な依存をまとめる。
type cliApp struct {
	opts       options
	out        io.Writer
	repository *io_metarig.MetarigRepository
	store      *io_scene.SqliteStore
	generator  *minteractor.CloudGenerator
}

// generateAll は全メタリグを1つのシーンへ生成し、保存とダンプを行う。
func (a *cliApp) generateAll(paths []string) error {
	scene, err := a.loadScene()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := a.generateOne(scene, path); err != nil {
			return err
		}
	}
	if a.store != nil {
		if err := a.generator.SaveScene(nil, scene); err != nil {
			return fmt.Errorf(messages.MessageSaveFailed, err)
		}
		fmt.Fprintf(a.out, messages.LogSceneSaved, a.store.Path())
	}
	if a.opts.dumpPath != "" {
		if err := a.dumpScene(scene); err != nil {
			return fmt.Errorf(messages.MessageDumpFailed, err)
		}
	}
	return nil
}

func (a *cliApp) loadScene() (mhost.IScene, error) {
	if a.store == nil {
		return memory.NewScene(), nil
	}
	scene, err := a.generator.LoadScene(nil)
	if err != nil {
		return nil, fmt.Errorf(messages.MessageSceneFailed, err)
	}
	return scene, nil
}

func (a *cliApp) generateOne(scene mhost.IScene, path string) error {
	fmt.Fprintf(a.out, messages.LogGenerateStart, path)
	meta, err := a.generator.LoadMetarig(nil, path)
	if err != nil {
		return fmt.Errorf(messages.MessageLoadFailed, path, err)
	}
	recorded := meta.GeneratedRig
	result, err := a.generator.Generate(minteractor.GenerateRequest{Metarig: meta, Scene: scene})
	if err != nil {
		return fmt.Errorf(messages.MessageGenerateFail, path, err)
	}
	fmt.Fprintf(a.out, messages.LogGenerateSuccess, meta.Name, result.RigName, result.BoneCount, result.Report.Summary())
	for _, w := range result.Report.Warnings {
		fmt.Fprintf(a.out, messages.LogGenerateWarning, w.String())
	}
	if a.opts.record && recorded != meta.GeneratedRig {
		if err := a.repository.Save(path, meta); err != nil {
			return fmt.Errorf(messages.MessageRecordFailed, path, err)
		}
	}
	return nil
}

func (a *cliApp) dumpScene(scene mhost.IScene) error {
	dumper, ok := scene.(interface{ Snapshot() memory.SceneSnapshot })
	if !ok {
		return fmt.Errorf("ダンプできないシーンです: %T", scene)
	}
	if a.opts.dumpPath == "-" {
		return io_scene.DumpYAML(dumper.Snapshot(), a.out)
	}
	if err := ensureOutputDir(a.opts.dumpPath); err != nil {
		return err
	}
	f, err := os.Create(a.opts.dumpPath)
	if err != nil {
		return err
	}
	if err := io_scene.DumpYAML(dumper.Snapshot(), f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ensureOutputDir は出力先ディレクトリを作成する。
func ensureOutputDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("出力先ディレクトリの作成に失敗しました: %w", err)
	}
	return nil
}
