// 指示: miu200521358
package minteractor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// resolveTargetArmature は生成先アーマチュアを解決する。
// 解決順はメタリグ保持の参照、シーン内の派生名、ファイル全体、新規作成。
func resolveTargetArmature(scene mhost.IScene, meta *metarig.Metarig) (mhost.IArmature, error) {
	if meta.GeneratedRig != "" {
		if arm, ok := scene.FileArmature(meta.GeneratedRig); ok {
			if err := ensureLinked(scene, arm); err != nil {
				return nil, err
			}
			return arm, nil
		}
		logGeneratorWarn("メタリグが参照する生成先リグが見つからないため名前で解決します: %s", meta.GeneratedRig)
	}
	name := meta.RigName()
	if arm, ok := scene.Armature(name); ok {
		return arm, nil
	}
	if arm, ok := scene.FileArmature(name); ok {
		if err := scene.LinkArmature(arm); err != nil {
			return nil, merr.NewHost("", fmt.Errorf("生成先リグをシーンへリンクできません: %w", err))
		}
		return arm, nil
	}
	arm, err := scene.NewArmature(name)
	if err != nil {
		return nil, merr.NewHost("", fmt.Errorf("生成先リグを作成できません: %w", err))
	}
	if err := scene.LinkArmature(arm); err != nil {
		return nil, merr.NewHost("", fmt.Errorf("生成先リグをシーンへリンクできません: %w", err))
	}
	return arm, nil
}

// ensureLinked はシーン未リンクのアーマチュアをリンクする。
func ensureLinked(scene mhost.IScene, arm mhost.IArmature) error {
	if _, ok := scene.Armature(arm.Name()); ok {
		return nil
	}
	if err := scene.LinkArmature(arm); err != nil {
		return merr.NewHost("", fmt.Errorf("生成先リグをシーンへリンクできません: %w", err))
	}
	return nil
}

// enterRestPose はモードと pose_position を退避してレスト姿勢にする。
// 戻り値の関数で退避した状態へ戻す。
func enterRestPose(arm mhost.IArmature) (func() error, error) {
	savedMode := arm.Mode()
	savedPosition, _ := arm.Get("pose_position")
	restore := func() error {
		if err := arm.SetMode(savedMode); err != nil {
			return merr.NewHost("", fmt.Errorf("モードを復元できません: %w", err))
		}
		if savedPosition != nil {
			if err := arm.Set("pose_position", savedPosition); err != nil {
				return merr.NewHost("", fmt.Errorf("pose_position を復元できません: %w", err))
			}
		}
		return nil
	}
	if err := arm.Set("pose_position", mhost.POSE_POSITION_REST); err != nil {
		return restore, merr.NewHost("", fmt.Errorf("レスト姿勢に設定できません: %w", err))
	}
	return restore, nil
}

// clearEditBones は編集モードで既存ボーンを全て削除する。ドライバーは残る。
func clearEditBones(arm mhost.IArmature) error {
	if err := arm.BeginTopologyPhase(); err != nil {
		return merr.NewHost("", fmt.Errorf("編集モードに入れません: %w", err))
	}
	names, err := arm.EditBoneNames()
	if err != nil {
		return merr.NewHost("", err)
	}
	for _, name := range names {
		if err := arm.RemoveEditBone(name); err != nil {
			return merr.NewHost(name, fmt.Errorf("既存ボーンを削除できません: %w", err))
		}
	}
	return nil
}

// resolveRigID は既存リグの rig_id を引き継ぎ、なければ新しく採番する。
func resolveRigID(arm mhost.IArmature) string {
	if value, ok := arm.CustomProp(model.RigIDPropertyKey); ok {
		if id, ok := value.(string); ok && id != "" {
			return id
		}
	}
	return uuid.NewString()
}
