// 指示: miu200521358
package minteractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// flushTopology は全記述子のボーンをホストへ追加する。
func (run *generationRun) flushTopology() error {
	for _, b := range run.ctx.Bones.Bones() {
		eb, err := run.arm.NewEditBone(b.Name)
		if err != nil {
			return merr.NewHost(b.Name, fmt.Errorf("ボーンを追加できません: %w", err))
		}
		if eb.Name() != b.Name {
			run.ctx.Warn(model.RigWarningBoneRenamed, "", b.Name, "ホスト側で名前が変更されました: %s", eb.Name())
		}
		run.realNames[b.Name] = eb.Name()
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "トポロジーパス完了: bones=%d", len(run.realNames))
	return nil
}

// realName は記述子名に対応するホスト上の実名を返す。
func (run *generationRun) realName(b *bone.BoneInfo) (string, bool) {
	name, ok := run.realNames[b.Name]
	if !ok {
		if !run.notMaterialized[b.Name] {
			run.notMaterialized[b.Name] = true
			run.ctx.Warn(model.RigWarningBoneNotMaterialized, "", b.Name, "トポロジーパス後に追加されたため実体化できません")
		}
		return "", false
	}
	return name, true
}

// resolveBoneName はボーン名をホスト上の実名へ解決する。
func (run *generationRun) resolveBoneName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if real, ok := run.realNames[name]; ok {
		return real, true
	}
	if run.arm.HasBone(name) {
		return name, true
	}
	return "", false
}

// setProp はプロパティを書き込む。未知のプロパティと型不一致は警告して読み飛ばす。
func (run *generationRun) setProp(handle mhost.IPropertyHandle, boneName string, prop string, value any) error {
	err := handle.Set(prop, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, merr.ErrTypeMismatch) || errors.Is(err, merr.ErrUnknownProperty) {
		run.ctx.Warn(model.RigWarningPropertySkipped, "", boneName, "%s を読み飛ばしました: %v", prop, err)
		return nil
	}
	return merr.NewHost(boneName, fmt.Errorf("%s を設定できません: %w", prop, err))
}

// setBoneRef はボーン参照プロパティを解決して書き込む。
// 解決できない参照は警告し、プロパティは未設定のまま残す。
func (run *generationRun) setBoneRef(handle mhost.IPropertyHandle, boneName string, prop string, ref bone.BoneRef, warningID string) error {
	if !ref.IsSet() {
		return nil
	}
	target, ok := run.resolveBoneName(ref.Name())
	if !ok {
		run.ctx.Warn(warningID, "", boneName, "%s を解決できません: %s", prop, ref.Name())
		return nil
	}
	err := handle.Set(prop, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, merr.ErrNotFound):
		run.ctx.Warn(warningID, "", boneName, "%s を解決できません: %s", prop, ref.Name())
		return nil
	case errors.Is(err, merr.ErrInvalidReference):
		run.ctx.Warn(warningID, "", boneName, "%s を設定できません: %v", prop, err)
		return nil
	case errors.Is(err, merr.ErrTypeMismatch), errors.Is(err, merr.ErrUnknownProperty):
		run.ctx.Warn(model.RigWarningPropertySkipped, "", boneName, "%s を読み飛ばしました: %v", prop, err)
		return nil
	}
	return merr.NewHost(boneName, fmt.Errorf("%s を設定できません: %w", prop, err))
}

// flushEditData は編集モードで形状と親子関係を書き込む。
func (run *generationRun) flushEditData() error {
	for _, b := range run.ctx.Bones.Bones() {
		real, ok := run.realName(b)
		if !ok {
			continue
		}
		if b.EnsureMinimalLength() {
			run.ctx.Warn(model.RigWarningZeroLengthBone, "", b.Name, "長さゼロのため最小長を与えました")
		}
		eb, err := run.arm.EditBone(real)
		if err != nil {
			return merr.NewHost(real, fmt.Errorf("編集ボーンを取得できません: %w", err))
		}
		for _, p := range b.EditProps() {
			if err := run.setProp(eb, real, p.Name, p.Value); err != nil {
				return err
			}
		}
	}
	// 親とハンドルは全ボーンの形状を書き込んだ後に設定する
	for _, b := range run.ctx.Bones.Bones() {
		real, ok := run.realNames[b.Name]
		if !ok {
			continue
		}
		eb, err := run.arm.EditBone(real)
		if err != nil {
			return merr.NewHost(real, fmt.Errorf("編集ボーンを取得できません: %w", err))
		}
		if err := run.setBoneRef(eb, real, "parent", b.Parent, model.RigWarningUnresolvedParent); err != nil {
			return err
		}
		if err := run.setBoneRef(eb, real, "bbone_custom_handle_start", b.BBoneHandleStart, model.RigWarningUnresolvedHandle); err != nil {
			return err
		}
		if err := run.setBoneRef(eb, real, "bbone_custom_handle_end", b.BBoneHandleEnd, model.RigWarningUnresolvedHandle); err != nil {
			return err
		}
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "編集パス完了: bones=%d", len(run.realNames))
	return nil
}

// makeRealGroups は所属ボーンを持つボーングループを実体化する。
func (run *generationRun) makeRealGroups() error {
	made, err := run.ctx.Bones.Groups.MakeReal(func(group *bone.BoneGroup) error {
		handle, err := run.arm.EnsureBoneGroup(group.Name)
		if err != nil {
			return err
		}
		values := []bone.Prop{
			{Name: "color_set", Value: group.ColorSet()},
			{Name: "normal", Value: group.Normal[:]},
			{Name: "select", Value: group.Select[:]},
			{Name: "active", Value: group.Active[:]},
		}
		for _, p := range values {
			if err := run.setProp(handle, "", p.Name, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return merr.NewHost("", err)
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "ボーングループ実体化: %s", strings.Join(made, ","))
	return nil
}

// flushPoseData はポーズモードでポーズ設定、グループ、シェイプ、カスタムプロパティを書き込む。
func (run *generationRun) flushPoseData() error {
	if err := run.makeRealGroups(); err != nil {
		return err
	}
	for _, b := range run.ctx.Bones.Bones() {
		real, ok := run.realName(b)
		if !ok {
			continue
		}
		pb, err := run.arm.PoseBone(real)
		if err != nil {
			if errors.Is(err, merr.ErrNotFound) {
				run.ctx.Warn(model.RigWarningBoneNotMaterialized, "", b.Name, "ホスト上にボーンがありません")
				delete(run.realNames, b.Name)
				continue
			}
			return merr.NewHost(real, fmt.Errorf("ポーズボーンを取得できません: %w", err))
		}
		for _, p := range b.PoseProps() {
			if err := run.setProp(pb, real, p.Name, p.Value); err != nil {
				return err
			}
		}
		if group := b.Group(); group != nil {
			if err := run.setProp(pb, real, "bone_group", group.Name); err != nil {
				return err
			}
		}
		if b.CustomShape != "" {
			widget, err := run.scene.EnsureWidget(b.CustomShape, run.ctx.Options.WidgetCollection)
			if err != nil {
				run.ctx.Warn(model.RigWarningWidgetMissing, "", real, "ウィジェットを取得できません: %s: %v", b.CustomShape, err)
			} else if err := run.setProp(pb, real, "custom_shape", widget.Name); err != nil {
				return err
			}
		}
		if err := run.setBoneRef(pb, real, "custom_shape_transform", b.CustomShapeTransform, model.RigWarningUnresolvedShapeTransform); err != nil {
			return err
		}
		data := pb.DataBone()
		for _, p := range b.DataProps() {
			if err := run.setProp(data, real, p.Name, p.Value); err != nil {
				return err
			}
		}
		if err := run.setCustomProps(real, b.CustomProps.Values(), pb.SetCustomProp); err != nil {
			return err
		}
		if err := run.setCustomProps(real, b.DataCustomProps.Values(), data.SetCustomProp); err != nil {
			return err
		}
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "ポーズパス完了")
	return nil
}

// setCustomProps はカスタムプロパティを書き込む。不正な定義は警告して読み飛ばす。
func (run *generationRun) setCustomProps(boneName string, props []*descriptor.CustomProp, set func(*descriptor.CustomProp) error) error {
	for _, prop := range props {
		if err := prop.Validate(); err != nil {
			run.ctx.Warn(model.RigWarningPropertySkipped, "", boneName, "カスタムプロパティを読み飛ばしました: %v", err)
			continue
		}
		if err := set(prop); err != nil {
			if errors.Is(err, merr.ErrTypeMismatch) {
				run.ctx.Warn(model.RigWarningPropertySkipped, "", boneName, "カスタムプロパティを読み飛ばしました: %v", err)
				continue
			}
			return merr.NewHost(boneName, fmt.Errorf("カスタムプロパティ %s を設定できません: %w", prop.Name, err))
		}
	}
	return nil
}

// constraintKey はボーン実名と記述子の制約名から対応表のキーを返す。
func constraintKey(boneName string, constraintName string) string {
	return boneName + "\x00" + constraintName
}

// flushConstraints は制約を書き込む。subtarget は実名へ解決する。
func (run *generationRun) flushConstraints() error {
	rigID := run.ctx.RigID
	for _, b := range run.ctx.Bones.Bones() {
		if len(b.Constraints) == 0 {
			continue
		}
		real, ok := run.realName(b)
		if !ok {
			continue
		}
		pb, err := run.arm.PoseBone(real)
		if err != nil {
			return merr.NewHost(real, fmt.Errorf("ポーズボーンを取得できません: %w", err))
		}
		for _, con := range b.Constraints {
			hc, err := pb.NewConstraint(con.Type, con.Name)
			if err != nil {
				return merr.NewHost(real, fmt.Errorf("制約 %s を追加できません: %w", con.Name, err))
			}
			run.realConstraints[constraintKey(real, con.Name)] = hc.Name()
			if err := run.writeConstraint(real, con, hc, rigID); err != nil {
				return err
			}
		}
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "制約パス完了: constraints=%d", len(run.realConstraints))
	return nil
}

func (run *generationRun) writeConstraint(real string, con *bone.Constraint, hc mhost.IConstraint, rigID *descriptor.ID) error {
	if con.Type == bone.CONSTRAINT_ARMATURE {
		for _, target := range con.Targets {
			subtarget := ""
			if target.Subtarget != "" {
				resolved, ok := run.resolveBoneName(target.Subtarget)
				if ok {
					subtarget = resolved
				} else {
					run.ctx.Warn(model.RigWarningUnresolvedSubtarget, "", real, "%s のターゲットを解決できません: %s", con.Name, target.Subtarget)
				}
			}
			if err := hc.AddTarget(rigID, subtarget, target.Weight); err != nil {
				return merr.NewHost(real, fmt.Errorf("制約 %s にターゲットを追加できません: %w", con.Name, err))
			}
		}
	} else if con.RigTarget {
		if err := run.setProp(hc, real, "target", rigID); err != nil {
			return err
		}
	}
	for _, name := range con.PropNames() {
		value, _ := con.Prop(name)
		switch name {
		case "subtarget", "pole_subtarget":
			sub, _ := value.(string)
			if sub == "" {
				continue
			}
			resolved, ok := run.resolveBoneName(sub)
			if !ok {
				run.ctx.Warn(model.RigWarningUnresolvedSubtarget, "", real, "%s の %s を解決できません: %s", con.Name, name, sub)
				continue
			}
			if name == "pole_subtarget" {
				if _, explicit := con.Prop("pole_target"); !explicit {
					if err := run.setProp(hc, real, "pole_target", rigID); err != nil {
						return err
					}
				}
			}
			if err := run.setProp(hc, real, name, resolved); err != nil {
				return err
			}
		default:
			if err := run.setProp(hc, real, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushDrivers はポーズボーン、ボーンデータ、制約のドライバーを書き込む。
// 同じパスの既存ドライバーは置き換える。
func (run *generationRun) flushDrivers() error {
	count := 0
	for _, b := range run.ctx.Bones.Bones() {
		real, ok := run.realNames[b.Name]
		if !ok {
			continue
		}
		for _, key := range b.Drivers.Names() {
			d, _ := b.Drivers.Get(key)
			path, index := descriptor.SplitDriverKey(key)
			if err := run.writeDriver(real, mhost.PoseBonePath(real, path), index, d); err != nil {
				return err
			}
			count++
		}
		for _, key := range b.DataDrivers.Names() {
			d, _ := b.DataDrivers.Get(key)
			path, index := descriptor.SplitDriverKey(key)
			if err := run.writeDriver(real, mhost.DataBonePath(real, path), index, d); err != nil {
				return err
			}
			count++
		}
		for _, con := range b.Constraints {
			hostName, ok := run.realConstraints[constraintKey(real, con.Name)]
			if !ok {
				continue
			}
			for _, key := range con.Drivers.Names() {
				d, _ := con.Drivers.Get(key)
				path, index := descriptor.SplitDriverKey(key)
				if err := run.writeDriver(real, mhost.ConstraintPath(real, hostName, path), index, d); err != nil {
					return err
				}
				count++
			}
		}
	}
	logGeneratorVerbose(logging.VERBOSE_FLUSH, "ドライバーパス完了: drivers=%d", count)
	return nil
}

func (run *generationRun) writeDriver(boneName string, dataPath string, index int, d *descriptor.Driver) error {
	if err := d.Validate(); err != nil {
		run.ctx.Warn(model.RigWarningDriverInvalid, "", boneName, "%s: %v", descriptor.DriverKey(dataPath, index), err)
	}
	run.arm.RemoveDriver(dataPath, index)
	hd, err := run.arm.AddDriver(dataPath, index)
	if err != nil {
		return merr.NewHost(boneName, fmt.Errorf("ドライバーを追加できません: %s: %w", dataPath, err))
	}
	fields := []bone.Prop{
		{Name: "type", Value: string(d.Type)},
		{Name: "expression", Value: d.Expression},
		{Name: "use_self", Value: d.UseSelf},
	}
	for _, p := range fields {
		if err := run.setProp(hd, boneName, p.Name, p.Value); err != nil {
			return err
		}
	}
	for _, v := range d.Variables {
		hv, err := hd.NewVariable(v.Name, string(v.Type))
		if err != nil {
			run.ctx.Warn(model.RigWarningDriverInvalid, "", boneName, "%s: 変数 %s を追加できません: %v", dataPath, v.Name, err)
			continue
		}
		for i, target := range v.Targets {
			ht, err := hv.Target(i)
			if err != nil {
				run.ctx.Warn(model.RigWarningDriverInvalid, "", boneName, "%s: %v", dataPath, err)
				break
			}
			if err := run.writeVariableTarget(boneName, ht, target); err != nil {
				return err
			}
		}
	}
	logGeneratorVerbose(logging.VERBOSE_DRIVER, "ドライバー: %s expression=%s", descriptor.DriverKey(dataPath, index), d.Expression)
	return nil
}

// writeVariableTarget は設定済みのフィールドのみ書き込む。
func (run *generationRun) writeVariableTarget(boneName string, handle mhost.IPropertyHandle, target *descriptor.DriverVariableTarget) error {
	fields := make([]bone.Prop, 0, 7)
	if target.ID != nil {
		fields = append(fields, bone.Prop{Name: "id", Value: target.ID})
	}
	if target.IDType != "" {
		fields = append(fields, bone.Prop{Name: "id_type", Value: string(target.IDType)})
	}
	if target.BoneTarget != "" {
		name := target.BoneTarget
		if real, ok := run.resolveBoneName(name); ok {
			name = real
		}
		fields = append(fields, bone.Prop{Name: "bone_target", Value: name})
	}
	for _, p := range []bone.Prop{
		{Name: "data_path", Value: target.DataPath},
		{Name: "transform_type", Value: target.TransformType},
		{Name: "transform_space", Value: target.TransformSpace},
		{Name: "rotation_mode", Value: target.RotationMode},
	} {
		if p.Value != "" {
			fields = append(fields, p)
		}
	}
	for _, p := range fields {
		if err := run.setProp(handle, boneName, p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// writeUIData はUIメタデータのテキストブロックと rig_id、警告ID集合を書き込む。
func (run *generationRun) writeUIData() error {
	document := map[string]any{model.RigIDPropertyKey: run.rigID}
	for category, columns := range run.ctx.UI {
		document[category] = columns
	}
	body, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("UIメタデータを生成できません: %w", err)
	}
	textName := run.arm.Name() + model.UIDataTextSuffix
	if _, err := run.scene.EnsureText(textName, string(body)); err != nil {
		return merr.NewHost("", fmt.Errorf("UIメタデータを書き込めません: %s: %w", textName, err))
	}
	run.uiText = textName
	reportGenerateProgress(run.reporter, GenerateProgressEvent{
		Type:         GenerateProgressEventTypeUIWritten,
		ElementCount: len(run.elements),
		BoneCount:    run.ctx.Bones.Len(),
	})

	idProp := descriptor.NewCustomProp(model.RigIDPropertyKey, run.rigID)
	idProp.Overridable = false
	if err := run.arm.SetCustomProp(idProp); err != nil {
		return merr.NewHost("", fmt.Errorf("rig_id を書き込めません: %w", err))
	}
	warnProp := descriptor.NewCustomProp(model.RigWarningRawPropertyKey, warningIDs(run.ctx.Report))
	warnProp.Overridable = false
	if err := run.arm.SetCustomProp(warnProp); err != nil {
		return merr.NewHost("", fmt.Errorf("警告ID集合を書き込めません: %w", err))
	}
	return nil
}

// warningIDs は警告IDを重複なしの昇順でカンマ区切りにする。
func warningIDs(report *merr.Report) string {
	seen := map[string]struct{}{}
	ids := make([]string, 0)
	for _, w := range report.Warnings {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		ids = append(ids, w.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
