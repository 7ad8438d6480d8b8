// 指示: miu200521358
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/host/memory"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_scene"
	"github.com/miu200521358/mu_cloudrig/pkg/infra/base/mlogging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/minteractor"
)

const (
	batchOutputDirMode = 0o755
)

// batchConfig はバッチ再生成の実行設定を表す。
type batchConfig struct {
	InputPattern string
	OutputRoot   string
	DryRun       bool
	FailFast     bool
}

// regenerationEntry は1メタリグ分の再生成入力情報を表す。
type regenerationEntry struct {
	Index       int
	SourcePath  string
	MetarigName string
	CaseDir     string
	DumpPath    string
}

// regenerationResult は1メタリグ分の再生成結果を表す。
type regenerationResult struct {
	Entry        regenerationEntry
	Status       string
	Duration     time.Duration
	Err          error
	Summary      string
	ProgressInfo string
}

// generateProgressCollector は Generate の進捗イベントを収集する。
type generateProgressCollector struct {
	eventCounts map[minteractor.GenerateProgressEventType]int
	stages      []string
	elementMax  int
	boneMax     int
}

// main はメタリグ一括再生成と冪等性検証を実行する。
func main() {
	os.Exit(run())
}

// run は実行設定を解決して一括再生成を実行し、終了コードを返す。
func run() int {
	config, err := parseBatchConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定解析に失敗しました: %v\n", err)
		return 2
	}
	logger := mlogging.NewLogger(os.Stderr)
	logger.SetLevel(logging.LOG_LEVEL_WARN)
	logging.SetDefaultLogger(logger)

	paths, err := doublestar.FilepathGlob(config.InputPattern, doublestar.WithFilesOnly())
	if err != nil {
		fmt.Fprintf(os.Stderr, "入力globの解析に失敗しました: %v\n", err)
		return 2
	}
	sort.Strings(paths)
	entries := buildRegenerationEntries(config.OutputRoot, paths)
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "再生成対象メタリグがありません")
		return 2
	}

	results := executeBatchRegeneration(config, entries)
	printBatchSummary(results)

	for _, result := range results {
		if result.Status == "failed" {
			return 1
		}
	}
	return 0
}

// parseBatchConfig はコマンドライン引数から実行設定を構築する。
func parseBatchConfig() (batchConfig, error) {
	baseDir, err := resolveBaseDir()
	if err != nil {
		return batchConfig{}, err
	}
	input := flag.String("input", filepath.Join(baseDir, "metarigs", "**", "*.yaml"), "再生成するメタリグのglob")
	outputRoot := flag.String("output-root", filepath.Join(baseDir, "output"), "ダンプの出力ルートディレクトリ")
	dryRun := flag.Bool("dry-run", false, "再生成せず、入力解決と出力先計画のみ表示する")
	failFast := flag.Bool("fail-fast", false, "失敗時に即時終了する")
	flag.Parse()

	trimmedOutputRoot := strings.TrimSpace(*outputRoot)
	if trimmedOutputRoot == "" {
		return batchConfig{}, errors.New("output-root が空です")
	}
	return batchConfig{
		InputPattern: strings.TrimSpace(*input),
		OutputRoot:   filepath.Clean(trimmedOutputRoot),
		DryRun:       *dryRun,
		FailFast:     *failFast,
	}, nil
}

// resolveBaseDir はスクリプト配置ディレクトリを返す。
func resolveBaseDir() (string, error) {
	_, currentFilePath, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("実行ファイル位置を取得できません")
	}
	return filepath.Dir(currentFilePath), nil
}

// buildRegenerationEntries は入力パス一覧から再生成対象エントリを生成する。
func buildRegenerationEntries(outputRoot string, inputPaths []string) []regenerationEntry {
	entries := make([]regenerationEntry, 0, len(inputPaths))
	for i, rawPath := range inputPaths {
		name := resolveMetarigName(rawPath)
		safeName := sanitizePathComponent(name)
		caseDir := filepath.Join(outputRoot, fmt.Sprintf("%03d_%s", i+1, safeName))
		entries = append(entries, regenerationEntry{
			Index:       i + 1,
			SourcePath:  filepath.Clean(rawPath),
			MetarigName: name,
			CaseDir:     caseDir,
			DumpPath:    filepath.Join(caseDir, safeName+"_scene.yaml"),
		})
	}
	return entries
}

// executeBatchRegeneration は全メタリグの再生成を順次実行する。
func executeBatchRegeneration(config batchConfig, entries []regenerationEntry) []regenerationResult {
	results := make([]regenerationResult, 0, len(entries))
	usecase := minteractor.NewCloudGenerator(minteractor.CloudGeneratorDeps{
		MetarigReader: io_metarig.NewMetarigRepository(),
	})

	total := len(entries)
	for _, entry := range entries {
		fmt.Printf("[%d/%d] 再生成開始: metarig=%s\n", entry.Index, total, entry.MetarigName)
		result := regenerateEntry(usecase, config, entry)
		results = append(results, result)
		switch result.Status {
		case "succeeded":
			fmt.Printf("[%d/%d] 再生成成功: metarig=%s dump=%s elapsed=%s %s\n", entry.Index, total, entry.MetarigName, entry.DumpPath, result.Duration.Round(time.Millisecond), result.Summary)
			if strings.TrimSpace(result.ProgressInfo) != "" {
				fmt.Printf("[%d/%d] Generate進捗: %s\n", entry.Index, total, result.ProgressInfo)
			}
		case "dry_run":
			fmt.Printf("[%d/%d] DRY-RUN: metarig=%s input=%s dump=%s\n", entry.Index, total, entry.MetarigName, entry.SourcePath, entry.DumpPath)
		default:
			fmt.Printf("[%d/%d] 再生成失敗: metarig=%s reason=%v\n", entry.Index, total, entry.MetarigName, result.Err)
			if config.FailFast {
				return results
			}
		}
	}
	return results
}

// regenerateEntry は1メタリグを同じシーンへ2回生成し、結果が一致するか検証する。
func regenerateEntry(usecase *minteractor.CloudGenerator, config batchConfig, entry regenerationEntry) regenerationResult {
	result := regenerationResult{
		Entry:  entry,
		Status: "failed",
	}
	if config.DryRun {
		result.Status = "dry_run"
		return result
	}
	if err := os.MkdirAll(entry.CaseDir, batchOutputDirMode); err != nil {
		result.Err = fmt.Errorf("出力ディレクトリ作成に失敗しました: %w", err)
		return result
	}

	startedAt := time.Now()
	scene := memory.NewScene()
	collector := newGenerateProgressCollector()
	first, err := usecase.Generate(minteractor.GenerateRequest{
		MetarigPath:      entry.SourcePath,
		Scene:            scene,
		ProgressReporter: collector,
	})
	if err != nil {
		result.Err = fmt.Errorf("1回目のGenerateに失敗しました: %w", err)
		return result
	}
	firstSnapshot := scene.Snapshot()

	second, err := usecase.Generate(minteractor.GenerateRequest{Metarig: first.Metarig, Scene: scene})
	if err != nil {
		result.Err = fmt.Errorf("2回目のGenerateに失敗しました: %w", err)
		return result
	}
	secondSnapshot := scene.Snapshot()
	if first.RigID != second.RigID {
		result.Err = fmt.Errorf("rig_id が再生成で変化しました: %s != %s", first.RigID, second.RigID)
		return result
	}
	if !reflect.DeepEqual(firstSnapshot, secondSnapshot) {
		result.Err = errors.New("再生成でシーンが変化しました")
		return result
	}

	f, err := os.Create(entry.DumpPath)
	if err != nil {
		result.Err = fmt.Errorf("ダンプ作成に失敗しました: %w", err)
		return result
	}
	if err := io_scene.DumpYAML(secondSnapshot, f); err != nil {
		f.Close()
		result.Err = err
		return result
	}
	if err := f.Close(); err != nil {
		result.Err = err
		return result
	}

	result.Status = "succeeded"
	result.Duration = time.Since(startedAt)
	result.Summary = second.Report.Summary()
	result.ProgressInfo = collector.Summary()
	return result
}

// printBatchSummary は再生成結果の集計を標準出力へ表示する。
func printBatchSummary(results []regenerationResult) {
	succeeded := 0
	failed := 0
	dryRun := 0
	for _, result := range results {
		switch result.Status {
		case "succeeded":
			succeeded++
		case "dry_run":
			dryRun++
		default:
			failed++
		}
	}
	fmt.Printf(
		"バッチ再生成サマリ: total=%d succeeded=%d failed=%d dry_run=%d\n",
		len(results),
		succeeded,
		failed,
		dryRun,
	)
}

// resolveMetarigName は入力パスから拡張子を除いたメタリグ名を返す。
func resolveMetarigName(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		return "metarig"
	}
	return name
}

// sanitizePathComponent は出力ディレクトリ/ファイル名に使えない文字を置換する。
func sanitizePathComponent(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "metarig"
	}
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		default:
			if r < 0x20 {
				return '_'
			}
			return r
		}
	}, trimmed)
	replaced = strings.Trim(replaced, " .")
	if replaced == "" {
		return "metarig"
	}
	return replaced
}

// newGenerateProgressCollector は Generate 進捗収集器を生成する。
func newGenerateProgressCollector() *generateProgressCollector {
	return &generateProgressCollector{
		eventCounts: map[minteractor.GenerateProgressEventType]int{},
	}
}

// ReportGenerateProgress は Generate の進捗イベントを収集する。
func (collector *generateProgressCollector) ReportGenerateProgress(event minteractor.GenerateProgressEvent) {
	if collector == nil {
		return
	}
	collector.eventCounts[event.Type]++
	if event.Type == minteractor.GenerateProgressEventTypeStageCompleted {
		collector.stages = append(collector.stages, string(event.Stage))
	}
	if event.ElementCount > collector.elementMax {
		collector.elementMax = event.ElementCount
	}
	if event.BoneCount > collector.boneMax {
		collector.boneMax = event.BoneCount
	}
}

// Summary は収集した Generate 進捗の要約文字列を返す。
func (collector *generateProgressCollector) Summary() string {
	if collector == nil || len(collector.eventCounts) == 0 {
		return ""
	}
	return fmt.Sprintf(
		"events=%d elements=%d bones=%d stages=%s",
		len(collector.eventCounts),
		collector.elementMax,
		collector.boneMax,
		strings.Join(collector.stages, ","),
	)
}
