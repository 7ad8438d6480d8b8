// 指示: miu200521358
package rigs

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
)

const (
	// OPERATOR_TOGGLE_HINGE はヒンジ切替時にワールド姿勢を保つオペレーター名。
	OPERATOR_TOGGLE_HINGE = "pose.cloudrig_toggle_hinge"
)

// FKChainRig はチェーンにFK操作ボーンと任意のヒンジを追加するリグ要素。
type FKChainRig struct {
	ChainRig
	FKBones []*bone.BoneInfo
	// Hinge はヒンジ有効時の機構ボーン。無効ならnil。
	Hinge *bone.BoneInfo

	hingeConstraint *bone.Constraint
}

// NewFKChainRig はFKChainRigを生成する。
func NewFKChainRig(meta *metarig.MetaBone) *FKChainRig {
	r := &FKChainRig{}
	r.init(meta)
	return r
}

// HingePropName はヒンジ切替のカスタムプロパティ名を返す。
func (r *FKChainRig) HingePropName() string {
	return "fk_hinge_" + r.Meta.Name
}

// Prepare はFK操作ボーンとヒンジ機構を宣言する。
func (r *FKChainRig) Prepare(ctx *Context) error {
	if err := r.ChainRig.Prepare(ctx); err != nil {
		return err
	}
	group := ctx.Bones.Groups.Ensure("FK Controls", 3)
	r.FKBones = r.FKBones[:0]
	for i, org := range r.OrgBones {
		meta := r.ChainBones[i]
		fk := ctx.Bones.Bone(ctx.Prefixed(PREFIX_FK, meta.Name),
			bone.WithSource(org),
			bone.WithDeform(false),
			bone.WithConnect(i > 0 && meta.UseConnect),
			bone.WithShape(ctx.Prefixed(PREFIX_WGT, "fk_circle")),
			bone.WithLayers(0),
		)
		fk.SetGroup(group)
		r.FKBones = append(r.FKBones, fk)
	}

	r.Hinge = nil
	if r.Params.Bool("fk_hinge", false) && ctx.RootBone() != nil {
		r.Hinge = ctx.Bones.Bone(ctx.Prefixed(PREFIX_MCH, r.SidedName(ctx, r.BaseName+"_hinge")),
			bone.WithSource(r.Org),
			bone.WithDeform(false),
			bone.WithLayers(ctx.LayersFor(PREFIX_MCH)...),
		)
		ctx.PropertiesBone()
	}
	r.RegisterParent(r.Label(ctx), r.FKBones[len(r.FKBones)-1].Name)
	return nil
}

// Parent はFKボーンを数珠つなぎにし、先頭をヒンジまたはメタリグ上の親へ接続する。
func (r *FKChainRig) Parent(ctx *Context) error {
	if err := r.ChainRig.Parent(ctx); err != nil {
		return err
	}
	for i, fk := range r.FKBones {
		if i > 0 {
			fk.Parent = bone.RefInfo(r.FKBones[i-1])
			continue
		}
		if r.Hinge != nil {
			fk.Parent = bone.RefInfo(r.Hinge)
		} else {
			fk.Parent = bone.RefName(ctx.OrgParentName(r.Meta))
		}
	}
	return nil
}

// Configure は接続されたFKボーンの移動を固定し、ヒンジ切替プロパティを登録する。
func (r *FKChainRig) Configure(ctx *Context) error {
	for _, fk := range r.FKBones {
		if fk.UseConnect {
			fk.LockLocation = [3]bool{true, true, true}
		}
	}
	if r.Hinge != nil {
		prop := descriptor.NewCustomProp(r.HingePropName(), 0.0)
		prop.Description = "親の回転を無視する"
		ctx.PropertiesBone().AddCustomProp(prop)
	}
	return nil
}

// Apply は ORG をFKへ追従させ、ヒンジを親とルートの間で切り替える。
func (r *FKChainRig) Apply(ctx *Context) error {
	if err := r.ChainRig.Apply(ctx); err != nil {
		return err
	}
	for i, org := range r.OrgBones {
		org.AddConstraint(bone.CONSTRAINT_COPY_TRANSFORMS,
			bone.ConstraintName("Copy Transforms FK"),
			bone.Props(map[string]any{"subtarget": r.FKBones[i].Name}))
	}
	r.hingeConstraint = nil
	if r.Hinge != nil {
		parent := ctx.OrgParentName(r.Meta)
		r.hingeConstraint = r.Hinge.AddConstraint(bone.CONSTRAINT_ARMATURE,
			bone.Targets(
				bone.ConstraintTarget{Subtarget: parent, Weight: 1},
				bone.ConstraintTarget{Subtarget: ctx.Options.RootName, Weight: 0},
			))
	}
	return nil
}

// Rig はヒンジのターゲット重みをプロパティで駆動する。
func (r *FKChainRig) Rig(ctx *Context) error {
	if r.hingeConstraint == nil {
		return nil
	}
	r.hingeConstraint.AddDriver("targets[0].weight", ctx.PropDriver("1 - hinge", "hinge", r.HingePropName()))
	r.hingeConstraint.AddDriver("targets[1].weight", ctx.PropDriver("hinge", "hinge", r.HingePropName()))
	return nil
}

// Finalize はヒンジ切替をUIメタデータへ登録する。
func (r *FKChainRig) Finalize(ctx *Context) error {
	if r.Hinge == nil {
		return nil
	}
	ctx.UI.Add(model.UIDataFKHinges, r.Label(ctx), UIEntry{
		PropBone: ctx.Options.PropertiesName,
		PropID:   r.HingePropName(),
		Operator: OPERATOR_TOGGLE_HINGE,
		Bones:    boneNames(r.FKBones),
	})
	return nil
}

func boneNames(bones []*bone.BoneInfo) []string {
	names := make([]string, 0, len(bones))
	for _, b := range bones {
		names = append(names, b.Name)
	}
	return names
}
