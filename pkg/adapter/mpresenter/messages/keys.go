// 指示: miu200521358
// Package messages はCLI表示に使うメッセージを提供する。
package messages

// メッセージ一覧。
const (
	HelpUsageTitle = "使い方"
	HelpUsage      = "mu_cloudrig [-scene scene.db] [-dump scene.yaml] [-watch] [-record] [-v|-vv|-q] <metarig.yaml|glob>..."

	FlagIn     = "入力メタリグYAML (doublestar形式のglob可)"
	FlagScene  = "生成先シーンファイル (SQLite)"
	FlagDump   = "生成後シーンのYAMLダンプ先 (- で標準出力)"
	FlagWatch  = "メタリグ変更を監視して再生成する"
	FlagRecord = "生成先リグ名をメタリグへ書き戻す"
	FlagV      = "情報ログを出力する"
	FlagVV     = "デバッグログと詳細チャンネルを出力する"
	FlagQ      = "エラーのみ出力する"

	MessageInputRequired = "メタリグファイルを指定してください (-in)"
	MessageInputNotFound = "メタリグが見つかりません: %s"
	MessageLoadFailed    = "メタリグ読み込みに失敗しました: %s: %w"
	MessageGenerateFail  = "リグ生成に失敗しました: %s: %w"
	MessageSceneFailed   = "シーンの準備に失敗しました: %w"
	MessageSaveFailed    = "シーン保存に失敗しました: %w"
	MessageDumpFailed    = "シーンダンプに失敗しました: %w"
	MessageRecordFailed  = "メタリグへの書き戻しに失敗しました: %s: %w"
	MessageWatchFailed   = "監視の開始に失敗しました: %w"

	LogGenerateStart   = "[mu_cloudrig] 生成開始: %s\n"
	LogGenerateSuccess = "[mu_cloudrig] 生成完了: %s -> %s bones=%d %s\n"
	LogGenerateWarning = "[mu_cloudrig]   %s\n"
	LogSceneSaved      = "[mu_cloudrig] シーン保存: %s\n"
	LogWatchStart      = "[mu_cloudrig] 監視開始: %d件\n"
	LogWatchChanged    = "[mu_cloudrig] 変更検出: %s\n"
)
