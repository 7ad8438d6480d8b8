// 指示: miu200521358
package minteractor

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/moutput"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/rigs"
)

// GenerateProgressEventType は生成処理の進捗イベント種別を表す。
type GenerateProgressEventType string

const (
	// GenerateProgressEventTypeMetarigValidated はメタリグ検証完了イベントを表す。
	GenerateProgressEventTypeMetarigValidated GenerateProgressEventType = "metarig_validated"
	// GenerateProgressEventTypeTargetResolved は生成先リグ解決完了イベントを表す。
	GenerateProgressEventTypeTargetResolved GenerateProgressEventType = "target_resolved"
	// GenerateProgressEventTypeElementsCreated はリグ要素生成完了イベントを表す。
	GenerateProgressEventTypeElementsCreated GenerateProgressEventType = "elements_created"
	// GenerateProgressEventTypeStageCompleted はステージ完了イベントを表す。
	GenerateProgressEventTypeStageCompleted GenerateProgressEventType = "stage_completed"
	// GenerateProgressEventTypeUIWritten はUIメタデータ書き込み完了イベントを表す。
	GenerateProgressEventTypeUIWritten GenerateProgressEventType = "ui_written"
)

// GenerateProgressEvent は生成処理の進捗イベントを表す。
type GenerateProgressEvent struct {
	Type         GenerateProgressEventType
	Stage        rigs.Stage
	ElementCount int
	BoneCount    int
}

// IGenerateProgressReporter は生成処理の進捗通知契約を表す。
type IGenerateProgressReporter interface {
	// ReportGenerateProgress は生成処理進捗を通知する。
	ReportGenerateProgress(event GenerateProgressEvent)
}

// GenerateRequest はリグ生成要求を表す。
type GenerateRequest struct {
	MetarigPath string
	// Metarig は読み込み済みのメタリグ。nilなら MetarigPath から読み込む。
	Metarig          *metarig.Metarig
	Reader           moutput.IMetarigReader
	Scene            mhost.IScene
	ProgressReporter IGenerateProgressReporter
}

// GenerateResult はリグ生成結果を表す。
type GenerateResult struct {
	Metarig   *metarig.Metarig
	RigName   string
	RigID     string
	Report    *merr.Report
	BoneCount int
	UIText    string
}

// reportGenerateProgress は生成処理の進捗を通知する。
func reportGenerateProgress(reporter IGenerateProgressReporter, event GenerateProgressEvent) {
	if reporter == nil {
		return
	}
	reporter.ReportGenerateProgress(event)
}
