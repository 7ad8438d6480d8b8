// 指示: miu200521358
package rigs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/mmath"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

const (
	OPERATOR_SNAP_BAKE     = "pose.cloudrig_snap_bake"
	OPERATOR_SWITCH_PARENT = "pose.cloudrig_switch_parent"
)

// IKChainRig はFKチェーンにIK機構、ポール、親切替を追加するリグ要素。
type IKChainRig struct {
	FKChainRig
	// MechBones はIK計算用の機構チェーン。
	MechBones []*bone.BoneInfo
	Control   *bone.BoneInfo
	Pole      *bone.BoneInfo
	// ParentSwitch は操作ボーンの親を切り替える機構ボーン。
	ParentSwitch *bone.BoneInfo
	// Candidates は親切替の候補。ターゲット順と一致する。
	Candidates []ParentCandidate

	// ikCount はIK制約が扱うボーン数。残りは操作ボーンに追従する。
	ikCount        int
	flattenControl bool

	ikConstraint     *bone.Constraint
	parentConstraint *bone.Constraint
	ikCopies         []*bone.Constraint
}

// NewIKChainRig はIKChainRigを生成する。
func NewIKChainRig(meta *metarig.MetaBone) *IKChainRig {
	r := &IKChainRig{}
	r.init(meta)
	return r
}

// IKPropName はFK/IK切替のカスタムプロパティ名を返す。
func (r *IKChainRig) IKPropName() string {
	return "ik_" + r.Meta.Name
}

// StretchPropName はIK伸縮のカスタムプロパティ名を返す。
func (r *IKChainRig) StretchPropName() string {
	return "ik_stretch_" + r.Meta.Name
}

// ParentsPropName は親切替のカスタムプロパティ名を返す。
func (r *IKChainRig) ParentsPropName() string {
	return "ik_parents_" + r.Meta.Name
}

// Initialize は2本以上のチェーンであることを確認する。
func (r *IKChainRig) Initialize(ctx *Context) error {
	if err := r.ChainRig.Initialize(ctx); err != nil {
		return err
	}
	if len(r.ChainBones) < 2 {
		return merr.NewStructural(r.Meta.Name, "IKチェーンには2本以上のボーンが必要です: %d", len(r.ChainBones))
	}
	r.ikCount = len(r.ChainBones)
	return nil
}

// Prepare はFK一式に加えてIK機構を宣言する。
func (r *IKChainRig) Prepare(ctx *Context) error {
	if err := r.FKChainRig.Prepare(ctx); err != nil {
		return err
	}
	r.prepareIK(ctx)
	return nil
}

func (r *IKChainRig) prepareIK(ctx *Context) {
	mchLayers := ctx.LayersFor(PREFIX_MCH)
	r.MechBones = r.MechBones[:0]
	for i, org := range r.OrgBones {
		mech := ctx.Bones.Bone(ctx.Prefixed(PREFIX_MCH, ctx.Prefixed(PREFIX_IK, r.ChainBones[i].Name)),
			bone.WithSource(org),
			bone.WithDeform(false),
			bone.WithConnect(i > 0 && i < r.ikCount && r.ChainBones[i].UseConnect),
			bone.WithLayers(mchLayers...),
		)
		r.MechBones = append(r.MechBones, mech)
	}

	group := ctx.Bones.Groups.Ensure("IK Controls", 1)
	last := r.OrgBones[r.ikCount-1]
	controlOpts := []bone.Option{
		bone.WithDeform(false),
		bone.WithShape(ctx.Prefixed(PREFIX_WGT, "ik_box")),
		bone.WithLayers(0),
	}
	if r.ikCount < len(r.OrgBones) {
		controlOpts = append(controlOpts, bone.WithSource(r.OrgBones[r.ikCount]))
	} else {
		controlOpts = append(controlOpts,
			bone.WithSource(last),
			bone.WithHead(last.Tail),
			bone.WithTail(r3.Add(last.Tail, scaledDirection(last, 0.5))),
		)
	}
	controlName := ctx.Prefixed(PREFIX_IK, r.ChainBones[len(r.ChainBones)-1].Name)
	if r.ikCount == len(r.OrgBones) {
		controlName = ctx.Prefixed(PREFIX_IK, r.SidedName(ctx, baseOf(ctx, r.ChainBones[len(r.ChainBones)-1].Name)+"_target"))
	}
	r.Control = ctx.Bones.Bone(controlName, controlOpts...)
	if r.flattenControl {
		flattenToGround(r.Control)
	}
	r.Control.SetGroup(group)

	r.ParentSwitch = ctx.Bones.Bone(ctx.Prefixed(PREFIX_MCH, r.Control.Name+"_parent"),
		bone.WithSource(r.Control),
		bone.WithDeform(false),
		bone.WithLayers(mchLayers...),
	)

	first := r.OrgBones[0]
	polePos := mmath.PolePosition(first.Head, last.Head, last.Tail, first.Roll, first.Length())
	r.Pole = ctx.Bones.Bone(ctx.Prefixed(PREFIX_IK, r.SidedName(ctx, r.BaseName+"_pole")),
		bone.WithSource(first),
		bone.WithHead(polePos),
		bone.WithTail(r3.Add(polePos, scaledDirection(first, 0.25))),
		bone.WithDeform(false),
		bone.WithShape(ctx.Prefixed(PREFIX_WGT, "sphere")),
		bone.WithLayers(0),
	)
	r.Pole.SetGroup(group)

	ctx.PropertiesBone()
	r.RegisterParent("IK "+r.Label(ctx), r.Control.Name)
}

// flattenToGround は操作ボーンを接地面と平行に寝かせる。
func flattenToGround(b *bone.BoneInfo) {
	length := b.Length()
	dir := b.Vector()
	dir.Z = 0
	if mmath.IsZero(dir) {
		dir = mmath.UnitY
	}
	b.Tail = r3.Add(b.Head, r3.Scale(length, r3.Unit(dir)))
	b.Roll = 0
}

// Parent は機構チェーンと操作ボーンの親子を設定し、親切替候補を確定する。
func (r *IKChainRig) Parent(ctx *Context) error {
	if err := r.FKChainRig.Parent(ctx); err != nil {
		return err
	}
	for i, mech := range r.MechBones {
		switch {
		case i == 0:
			mech.Parent = bone.RefName(ctx.OrgParentName(r.Meta))
		case i < r.ikCount:
			mech.Parent = bone.RefInfo(r.MechBones[i-1])
		default:
			mech.Parent = bone.RefInfo(r.Control)
		}
	}
	r.Control.Parent = bone.RefInfo(r.ParentSwitch)
	r.Pole.Parent = bone.RefInfo(r.ParentSwitch)

	r.Candidates = r.collectCandidates(ctx)
	if len(r.Candidates) == 0 {
		r.ParentSwitch.Parent = bone.RefName(ctx.OrgParentName(r.Meta))
	}
	return nil
}

// collectCandidates はルートと祖先要素の候補を重複なく並べる。
func (r *IKChainRig) collectCandidates(ctx *Context) []ParentCandidate {
	candidates := append([]ParentCandidate(nil), ctx.RootCandidates()...)
	if r.ParentRig == nil {
		return candidates
	}
	for _, c := range r.ParentRig.Base().GetParentCandidates() {
		duplicated := false
		for _, existing := range candidates {
			if existing.Label == c.Label {
				duplicated = true
				break
			}
		}
		if !duplicated {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// Configure はFK/IK切替、伸縮、親切替のプロパティを登録する。
func (r *IKChainRig) Configure(ctx *Context) error {
	if err := r.FKChainRig.Configure(ctx); err != nil {
		return err
	}
	props := ctx.PropertiesBone()

	ik := descriptor.NewCustomProp(r.IKPropName(), 0.0)
	ik.Description = "FK/IK切替"
	props.AddCustomProp(ik)

	stretch := descriptor.NewCustomProp(r.StretchPropName(), 1.0)
	stretch.Description = "IKの伸縮"
	props.AddCustomProp(stretch)

	if len(r.Candidates) > 0 {
		parents := descriptor.NewCustomProp(r.ParentsPropName(), 0)
		parents.Max = float64(len(r.Candidates) - 1)
		parents.SoftMax = parents.Max
		parents.Description = "IK操作ボーンの親"
		props.AddCustomProp(parents)
	}

	r.Pole.LockRotation = [3]bool{true, true, true}
	r.Pole.LockRotationW = true
	r.Pole.LockScale = [3]bool{true, true, true}
	return nil
}

// Apply はIK制約と親切替、ORG のIK追従を追加する。
func (r *IKChainRig) Apply(ctx *Context) error {
	if err := r.FKChainRig.Apply(ctx); err != nil {
		return err
	}
	r.ikConstraint = r.MechBones[r.ikCount-1].AddConstraint(bone.CONSTRAINT_IK,
		bone.Props(map[string]any{
			"subtarget":      r.Control.Name,
			"pole_subtarget": r.Pole.Name,
			"chain_count":    r.ikCount,
			"pole_angle":     r.Params.Float("pole_angle", -math.Pi/2),
		}))

	r.parentConstraint = nil
	if len(r.Candidates) > 0 {
		targets := make([]bone.ConstraintTarget, 0, len(r.Candidates))
		for i, c := range r.Candidates {
			weight := 0.0
			if i == 0 {
				weight = 1.0
			}
			targets = append(targets, bone.ConstraintTarget{Subtarget: c.Bone, Weight: weight})
		}
		r.parentConstraint = r.ParentSwitch.AddConstraint(bone.CONSTRAINT_ARMATURE,
			bone.ConstraintName("Armature Parents"),
			bone.Targets(targets...))
	}

	r.ikCopies = r.ikCopies[:0]
	for i, org := range r.OrgBones {
		con := org.AddConstraint(bone.CONSTRAINT_COPY_TRANSFORMS,
			bone.ConstraintName("Copy Transforms IK"),
			bone.Props(map[string]any{"subtarget": r.MechBones[i].Name}))
		r.ikCopies = append(r.ikCopies, con)
	}
	return nil
}

// Rig はFK/IK切替、伸縮、親切替をプロパティで駆動する。
func (r *IKChainRig) Rig(ctx *Context) error {
	if err := r.FKChainRig.Rig(ctx); err != nil {
		return err
	}
	for _, con := range r.ikCopies {
		con.AddDriver("influence", ctx.PropDriver("ik", "ik", r.IKPropName()))
	}
	for _, mech := range r.MechBones[:r.ikCount] {
		mech.AddDriver("ik_stretch", ctx.PropDriver("stretch * 0.1", "stretch", r.StretchPropName()))
	}
	if r.parentConstraint != nil {
		for i := range r.Candidates {
			r.parentConstraint.AddDriver(fmt.Sprintf("targets[%d].weight", i),
				ctx.PropDriver(fmt.Sprintf("parent == %d", i), "parent", r.ParentsPropName()))
		}
	}
	return nil
}

// Finalize はFK/IK切替、伸縮、親切替をUIメタデータへ登録する。
func (r *IKChainRig) Finalize(ctx *Context) error {
	if err := r.FKChainRig.Finalize(ctx); err != nil {
		return err
	}
	label := r.Label(ctx)
	switchBones := append(boneNames(r.FKBones), r.Control.Name, r.Pole.Name)
	ctx.UI.Add(model.UIDataIKSwitches, label, UIEntry{
		PropBone: ctx.Options.PropertiesName,
		PropID:   r.IKPropName(),
		Texts:    []string{"FK", "IK"},
		Operator: OPERATOR_SNAP_BAKE,
		Bones:    switchBones,
	})
	ctx.UI.Add(model.UIDataIKStretches, label, UIEntry{
		PropBone: ctx.Options.PropertiesName,
		PropID:   r.StretchPropName(),
	})
	if len(r.Candidates) > 0 {
		texts := make([]string, 0, len(r.Candidates))
		for _, c := range r.Candidates {
			texts = append(texts, c.Label)
		}
		ctx.UI.Add(model.UIDataParents, label, UIEntry{
			PropBone: ctx.Options.PropertiesName,
			PropID:   r.ParentsPropName(),
			Texts:    texts,
			Operator: OPERATOR_SWITCH_PARENT,
			Bones:    []string{r.Control.Name},
		})
	}
	return nil
}
