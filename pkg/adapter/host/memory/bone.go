// 指示: miu200521358
package memory

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// bone は実在ボーンの全データを表す。
type bone struct {
	name        string
	edit        map[string]any
	pose        map[string]any
	data        map[string]any
	poseCustom  *descriptor.IDCollection[*descriptor.CustomProp]
	dataCustom  *descriptor.IDCollection[*descriptor.CustomProp]
	constraints *descriptor.IDCollection[*constraint]
}

func newCustomProps() *descriptor.IDCollection[*descriptor.CustomProp] {
	return descriptor.NewIDCollection(func(name string) *descriptor.CustomProp {
		return descriptor.NewCustomProp(name, 0.0)
	})
}

func newBone(name string) *bone {
	return &bone{
		name:       name,
		edit:       editBoneSchema.defaults(),
		pose:       poseBoneSchema.defaults(),
		data:       dataBoneSchema.defaults(),
		poseCustom: newCustomProps(),
		dataCustom: newCustomProps(),
		constraints: descriptor.NewIDCollection(func(name string) *constraint {
			return newConstraint(name, "")
		}),
	}
}

// editBone は編集モード中のみ有効なボーンハンドル。
type editBone struct {
	arm   *Armature
	bone  *bone
	epoch int
}

func (h *editBone) check() error {
	if h.arm.epoch != h.epoch {
		return fmt.Errorf("%w: 編集ボーン %s", merr.ErrStaleHandle, h.bone.name)
	}
	if err := h.arm.requireMode(mhost.MODE_EDIT); err != nil {
		return err
	}
	if current, ok := h.arm.bones.Get(h.bone.name); !ok || current != h.bone {
		return fmt.Errorf("%w: 編集ボーン %s", merr.ErrStaleHandle, h.bone.name)
	}
	return nil
}

// Name はボーン名を返す。
func (h *editBone) Name() string {
	return h.bone.name
}

// Set は編集プロパティを設定する。参照系はボーン名で指定する。
func (h *editBone) Set(prop string, value any) error {
	if err := h.check(); err != nil {
		return err
	}
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := editBoneSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	for _, refProp := range editBoneRefProps {
		if prop != refProp {
			continue
		}
		if err := h.validateRef(prop, v.(string)); err != nil {
			return err
		}
	}
	h.bone.edit[prop] = v
	return nil
}

func (h *editBone) validateRef(prop string, target string) error {
	if target == "" {
		return nil
	}
	if target == h.bone.name {
		return fmt.Errorf("%w: 自身は参照できません: %s.%s", merr.ErrInvalidReference, h.bone.name, prop)
	}
	if !h.arm.bones.Has(target) {
		return fmt.Errorf("%w: %s.%s=%s", merr.ErrNotFound, h.bone.name, prop, target)
	}
	if prop != "parent" {
		return nil
	}
	for name := target; name != ""; {
		if name == h.bone.name {
			return fmt.Errorf("%w: 親子関係が循環します: %s -> %s", merr.ErrInvalidReference, h.bone.name, target)
		}
		parent, ok := h.arm.bones.Get(name)
		if !ok {
			break
		}
		name, _ = parent.edit["parent"].(string)
	}
	return nil
}

// Get は編集プロパティを取得する。
func (h *editBone) Get(prop string) (any, bool) {
	if h.check() != nil {
		return nil, false
	}
	v, ok := h.bone.edit[prop]
	return copyValue(v), ok
}

// poseBone はポーズボーンハンドル。
type poseBone struct {
	arm   *Armature
	bone  *bone
	epoch int
}

func (h *poseBone) check() error {
	if h.arm.epoch != h.epoch {
		return fmt.Errorf("%w: ポーズボーン %s", merr.ErrStaleHandle, h.bone.name)
	}
	if current, ok := h.arm.bones.Get(h.bone.name); !ok || current != h.bone {
		return fmt.Errorf("%w: ポーズボーン %s", merr.ErrStaleHandle, h.bone.name)
	}
	return nil
}

// Name はボーン名を返す。
func (h *poseBone) Name() string {
	return h.bone.name
}

// Set はポーズプロパティを設定する。
func (h *poseBone) Set(prop string, value any) error {
	if err := h.check(); err != nil {
		return err
	}
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := poseBoneSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	name, _ := v.(string)
	switch prop {
	case "custom_shape_transform":
		if name != "" && !h.arm.bones.Has(name) {
			return fmt.Errorf("%w: %s.%s=%s", merr.ErrNotFound, h.bone.name, prop, name)
		}
	case "bone_group":
		if name != "" && !h.arm.groups.Has(name) {
			return fmt.Errorf("%w: %s.%s=%s", merr.ErrNotFound, h.bone.name, prop, name)
		}
	}
	h.bone.pose[prop] = v
	return nil
}

// Get はポーズプロパティを取得する。
func (h *poseBone) Get(prop string) (any, bool) {
	if h.check() != nil {
		return nil, false
	}
	v, ok := h.bone.pose[prop]
	return copyValue(v), ok
}

// DataBone はボーンデータのハンドルを返す。
func (h *poseBone) DataBone() mhost.IDataBone {
	return &dataBone{pose: h}
}

// SetCustomProp はポーズボーンのカスタムプロパティを設定する。
func (h *poseBone) SetCustomProp(prop *descriptor.CustomProp) error {
	if err := h.check(); err != nil {
		return err
	}
	if err := validateCustomProp(prop); err != nil {
		return err
	}
	h.bone.poseCustom.Set(prop.Name, prop.Clone())
	return nil
}

// NewConstraint は制約を追加する。名前が衝突した場合は連番を付ける。
func (h *poseBone) NewConstraint(constraintType string, name string) (mhost.IConstraint, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	if constraintType == "" {
		return nil, fmt.Errorf("制約種別が空です")
	}
	if name == "" {
		name = constraintType
	}
	unique := uniqueName(name, h.bone.constraints.Has)
	con := newConstraint(unique, constraintType)
	h.bone.constraints.Set(unique, con)
	return &constraintHandle{arm: h.arm, constraint: con}, nil
}

// ConstraintNames は制約名を順に返す。
func (h *poseBone) ConstraintNames() []string {
	return h.bone.constraints.Names()
}

// RemoveConstraint は制約を削除する。
func (h *poseBone) RemoveConstraint(name string) bool {
	if h.check() != nil {
		return false
	}
	return h.bone.constraints.Remove(name)
}

// dataBone はポーズボーン経由で得るボーンデータハンドル。
type dataBone struct {
	pose *poseBone
}

// Set はボーンデータのプロパティを設定する。
func (h *dataBone) Set(prop string, value any) error {
	if err := h.pose.check(); err != nil {
		return err
	}
	if err := h.pose.arm.fault(prop); err != nil {
		return err
	}
	v, err := dataBoneSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	h.pose.bone.data[prop] = v
	return nil
}

// Get はボーンデータのプロパティを取得する。
func (h *dataBone) Get(prop string) (any, bool) {
	if h.pose.check() != nil {
		return nil, false
	}
	v, ok := h.pose.bone.data[prop]
	return copyValue(v), ok
}

// SetCustomProp はボーンデータのカスタムプロパティを設定する。
func (h *dataBone) SetCustomProp(prop *descriptor.CustomProp) error {
	if err := h.pose.check(); err != nil {
		return err
	}
	if err := validateCustomProp(prop); err != nil {
		return err
	}
	h.pose.bone.dataCustom.Set(prop.Name, prop.Clone())
	return nil
}
