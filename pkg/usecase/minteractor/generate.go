// 指示: miu200521358
package minteractor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/rigs"
)

// generationRun は1回の生成の作業状態を表す。
type generationRun struct {
	scene    mhost.IScene
	arm      mhost.IArmature
	ctx      *rigs.Context
	rigID    string
	elements []rigs.Element
	failed   map[*rigs.BaseRig]bool
	// realNames は記述子名からホスト上の実名への対応。
	realNames map[string]string
	// realConstraints はボーン実名と記述子の制約名からホスト上の制約名への対応。
	realConstraints map[string]string
	notMaterialized map[string]bool
	reporter        IGenerateProgressReporter
	uiText          string
}

// Generate はメタリグからリグを生成する。
// ホスト失敗で中断した場合もモードと pose_position は元に戻す。
func (uc *CloudGenerator) Generate(request GenerateRequest) (result *GenerateResult, err error) {
	if request.Scene == nil {
		return nil, fmt.Errorf("生成先シーンが未指定です")
	}
	meta, err := uc.resolveMetarig(request.Reader, request.MetarigPath, request.Metarig)
	if err != nil {
		return nil, err
	}
	reportGenerateProgress(request.ProgressReporter, GenerateProgressEvent{
		Type: GenerateProgressEventTypeMetarigValidated,
	})

	arm, err := resolveTargetArmature(request.Scene, meta)
	if err != nil {
		return nil, err
	}
	reportGenerateProgress(request.ProgressReporter, GenerateProgressEvent{
		Type: GenerateProgressEventTypeTargetResolved,
	})

	restore, err := enterRestPose(arm)
	defer func() {
		if restoreErr := restore(); restoreErr != nil {
			if err == nil {
				err = restoreErr
				result = nil
			} else {
				logGeneratorWarn("生成中断後の復元に失敗しました: %v", restoreErr)
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	run := &generationRun{
		scene:           request.Scene,
		arm:             arm,
		rigID:           resolveRigID(arm),
		failed:          map[*rigs.BaseRig]bool{},
		realNames:       map[string]string{},
		realConstraints: map[string]string{},
		notMaterialized: map[string]bool{},
		reporter:        request.ProgressReporter,
	}
	if err := clearEditBones(arm); err != nil {
		return nil, err
	}
	run.ctx = rigs.NewContext(meta, newContainer(meta.Options), arm.ID(), merr.NewReport())
	run.declareBaseBones()
	run.createElements(uc.registry)
	reportGenerateProgress(request.ProgressReporter, GenerateProgressEvent{
		Type:         GenerateProgressEventTypeElementsCreated,
		ElementCount: len(run.elements),
	})

	for _, stage := range rigs.Stages {
		if err := run.runStage(stage); err != nil {
			return nil, err
		}
		if err := run.afterStage(stage); err != nil {
			return nil, err
		}
		reportGenerateProgress(request.ProgressReporter, GenerateProgressEvent{
			Type:         GenerateProgressEventTypeStageCompleted,
			Stage:        stage,
			ElementCount: len(run.elements),
			BoneCount:    run.ctx.Bones.Len(),
		})
	}

	meta.GeneratedRig = arm.Name()
	report := run.ctx.Report
	if len(report.Warnings) > 0 || len(report.FailedElements) > 0 {
		logGeneratorWarn("リグ生成で警告がありました: %s %s", arm.Name(), report.Summary())
	} else {
		logGeneratorInfo("リグを生成しました: %s bones=%d", arm.Name(), run.ctx.Bones.Len())
	}
	return &GenerateResult{
		Metarig:   meta,
		RigName:   arm.Name(),
		RigID:     run.rigID,
		Report:    report,
		BoneCount: run.ctx.Bones.Len(),
		UIText:    run.uiText,
	}, nil
}

// newContainer は生成オプションから記述子コンテナを生成する。
func newContainer(opts metarig.GenerationOptions) *bone.BoneInfoContainer {
	opts.Normalize()
	defaults := bone.DefaultDefaults()
	defaults.BBoneWidth = opts.DefaultBBoneWidth
	defaults.Layers[0] = true
	return bone.NewBoneInfoContainer(opts.Scale, defaults)
}

// declareBaseBones はルートとメタリグ各ボーンの ORG コピーを宣言する。
func (run *generationRun) declareBaseBones() {
	ctx := run.ctx
	opts := ctx.Options
	if opts.CreateRoot {
		ctx.Bones.Bone(opts.RootName,
			bone.WithHead(r3.Vec{}),
			bone.WithTail(r3.Vec{Y: opts.Scale}),
			bone.WithDeform(false),
			bone.WithShape(ctx.Prefixed(rigs.PREFIX_WGT, "root")),
			bone.WithGroup("Root"),
			bone.WithLayers(0),
		)
	}
	for _, mb := range ctx.Metarig.Bones {
		parent := ""
		if mb.Parent != "" && ctx.Metarig.Bone(mb.Parent) != nil {
			parent = ctx.OrgName(mb.Parent)
		} else if opts.CreateRoot {
			parent = opts.RootName
		}
		segments := mb.BBoneSegments
		if segments < 1 {
			segments = 1
		}
		ctx.Bones.Bone(ctx.OrgName(mb.Name),
			bone.WithSource(mb),
			bone.WithParentName(parent),
			bone.WithConnect(mb.UseConnect && parent != ""),
			bone.WithDeform(false),
			bone.WithSegments(segments),
			bone.WithLayers(ctx.LayersFor(rigs.PREFIX_ORG)...),
		)
	}
}

// createElements はメタリグ順にリグ要素を生成し、最も近い祖先要素の子として登録する。
func (run *generationRun) createElements(registry *rigs.Registry) {
	ctx := run.ctx
	byBone := map[string]rigs.Element{}
	for _, mb := range ctx.Metarig.RigBones() {
		element, err := registry.New(mb)
		if err != nil {
			ctx.Warn(model.RigWarningUnknownRigType, mb.Name, mb.Name, "未登録のリグ種別です: %s", mb.RigType)
			ctx.Report.Fail(mb.Name, err)
			continue
		}
		for parent := mb.Parent; parent != ""; {
			if owner, ok := byBone[parent]; ok {
				owner.Base().AddChild(element)
				break
			}
			parentBone := ctx.Metarig.Bone(parent)
			if parentBone == nil {
				break
			}
			parent = parentBone.Parent
		}
		byBone[mb.Name] = element
		run.elements = append(run.elements, element)
	}
}

// isSkipped は要素自身または祖先要素が失敗済みか返す。
func (run *generationRun) isSkipped(element rigs.Element) bool {
	for current := element; current != nil; current = current.Base().ParentRig {
		if run.failed[current.Base()] {
			return true
		}
	}
	return false
}

// runStage は失敗していない全要素へステージを実行する。
// 構造違反は要素単位で中断し、それ以外のエラーは生成全体を中断する。
func (run *generationRun) runStage(stage rigs.Stage) error {
	for _, element := range run.elements {
		if run.isSkipped(element) {
			continue
		}
		name := element.Base().Name()
		handled, err := rigs.RunStage(stage, element, run.ctx)
		if err != nil {
			if merr.IsStructural(err) {
				run.failElement(element, stage, err)
				continue
			}
			return merr.NewHost("", fmt.Errorf("%s ステージで失敗しました: %s: %w", stage, name, err))
		}
		if handled {
			logGeneratorVerbose(logging.VERBOSE_STAGE, "ステージ実行: stage=%s element=%s", stage, name)
		}
	}
	return nil
}

// failElement は要素を失敗扱いにし、子孫要素も以降のステージから外す。
func (run *generationRun) failElement(element rigs.Element, stage rigs.Stage, err error) {
	base := element.Base()
	run.failed[base] = true
	run.ctx.Warn(model.RigWarningElementFailed, base.Name(), base.Name(), "%s ステージで中断しました: %v", stage, err)
	run.ctx.Report.Fail(base.Name(), err)
	for _, other := range run.elements {
		if other.Base().IsDescendantOf(base) {
			run.ctx.Report.Fail(other.Base().Name(), fmt.Errorf("親要素 %s が中断しました", base.Name()))
		}
	}
}

// afterStage はステージ完了後のフラッシュを行う。
func (run *generationRun) afterStage(stage rigs.Stage) error {
	switch stage {
	case rigs.STAGE_PREPARE:
		run.applyLayerOverrides()
	case rigs.STAGE_GENERATE_TOPOLOGY:
		return run.flushTopology()
	case rigs.STAGE_PARENT:
		if err := run.flushEditData(); err != nil {
			return err
		}
		if err := run.arm.BeginPropertyPhase(); err != nil {
			return merr.NewHost("", fmt.Errorf("ポーズモードに入れません: %w", err))
		}
	case rigs.STAGE_CONFIGURE:
		return run.flushPoseData()
	case rigs.STAGE_APPLY:
		return run.flushConstraints()
	case rigs.STAGE_RIG:
		return run.flushDrivers()
	case rigs.STAGE_FINALIZE:
		return run.writeUIData()
	}
	return nil
}

// applyLayerOverrides は接頭辞ごとのレイヤー上書き設定を反映する。
func (run *generationRun) applyLayerOverrides() {
	opts := run.ctx.Options
	overrides := []struct {
		enabled bool
		prefix  string
		layers  []int
	}{
		{opts.OverrideDefLayers, rigs.PREFIX_DEF, opts.DefLayers},
		{opts.OverrideMchLayers, rigs.PREFIX_MCH, opts.MchLayers},
		{opts.OverrideOrgLayers, rigs.PREFIX_ORG, opts.OrgLayers},
	}
	for _, o := range overrides {
		if !o.enabled || len(o.layers) == 0 {
			continue
		}
		head := o.prefix + opts.PrefixSeparator
		for _, b := range run.ctx.Bones.Bones() {
			if strings.HasPrefix(b.Name, head) {
				b.SetLayers(o.layers...)
			}
		}
	}
}
