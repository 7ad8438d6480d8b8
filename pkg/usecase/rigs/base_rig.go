// 指示: miu200521358
package rigs

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

// BaseRig は全リグ要素の基底を表す。単体では cloud_base として働く。
type BaseRig struct {
	RigType string
	Meta    *metarig.MetaBone
	Params  metarig.Params
	// BaseName は左右接尾辞を除いた名前。
	BaseName string
	Side     string
	Org      *bone.BoneInfo

	ParentRig Element
	Children  []Element

	parents []ParentCandidate
	control *bone.BoneInfo
	deform  *bone.BoneInfo
}

// NewBaseRig はBaseRigを生成する。
func NewBaseRig(meta *metarig.MetaBone) *BaseRig {
	b := &BaseRig{}
	b.init(meta)
	return b
}

func (r *BaseRig) init(meta *metarig.MetaBone) {
	r.Meta = meta
	r.Params = meta.Params
	if r.Params == nil {
		r.Params = metarig.Params{}
	}
}

// Base は基底を返す。
func (r *BaseRig) Base() *BaseRig {
	return r
}

// Name はリグ要素名(基点ボーン名)を返す。
func (r *BaseRig) Name() string {
	return r.Meta.Name
}

// SidedName は基点と同じ左右接尾辞を付けた名前を返す。
func (r *BaseRig) SidedName(ctx *Context, base string) string {
	return JoinSide(base, r.Side, ctx.Options.SideSeparator)
}

// Label は基点ボーンのUI表示名を返す。
func (r *BaseRig) Label(ctx *Context) string {
	return UILabel(r.Meta.Name, ctx.Options.SideSeparator)
}

// AddChild は子要素を登録し、子の親要素を設定する。
func (r *BaseRig) AddChild(child Element) {
	child.Base().ParentRig = r
	r.Children = append(r.Children, child)
}

// RegisterParent は親切替候補を登録する。同じ表示名は後勝ち。
func (r *BaseRig) RegisterParent(label string, boneName string) {
	for i, p := range r.parents {
		if p.Label == label {
			r.parents[i].Bone = boneName
			return
		}
	}
	r.parents = append(r.parents, ParentCandidate{Label: label, Bone: boneName})
}

// RegisteredParents は自身が登録した親切替候補を返す。
func (r *BaseRig) RegisteredParents() []ParentCandidate {
	return append([]ParentCandidate(nil), r.parents...)
}

// GetParentCandidates は階層を遡って親切替候補を集める。祖先側が先に並ぶ。
// 表示名が重複した場合は祖先側を残す。
func (r *BaseRig) GetParentCandidates() []ParentCandidate {
	candidates := make([]ParentCandidate, 0)
	if r.ParentRig != nil {
		candidates = append(candidates, r.ParentRig.Base().GetParentCandidates()...)
	}
	for _, p := range r.parents {
		duplicated := false
		for _, c := range candidates {
			if c.Label == p.Label {
				duplicated = true
				break
			}
		}
		if !duplicated {
			candidates = append(candidates, p)
		}
	}
	return candidates
}

// IsDescendantOf は other の子孫要素か返す。
func (r *BaseRig) IsDescendantOf(other *BaseRig) bool {
	for parent := r.ParentRig; parent != nil; parent = parent.Base().ParentRig {
		if parent.Base() == other {
			return true
		}
	}
	return false
}

// Initialize は左右判定と ORG ボーンの取得を行う。
func (r *BaseRig) Initialize(ctx *Context) error {
	r.BaseName, r.Side = SplitSide(r.Meta.Name, ctx.Options.SideSeparator)
	r.Org = ctx.Bones.Find(ctx.OrgName(r.Meta.Name))
	if r.Org == nil {
		return merr.NewStructural(r.Meta.Name, "ORGボーンがありません: %s", ctx.OrgName(r.Meta.Name))
	}
	return nil
}

// Prepare は操作ボーンと変形ボーンを宣言する。
func (r *BaseRig) Prepare(ctx *Context) error {
	r.control = ctx.Bones.Bone(r.Meta.Name,
		bone.WithSource(r.Org),
		bone.WithDeform(false),
		bone.WithShape(ctx.Prefixed(PREFIX_WGT, r.Params.String("widget", "cube"))),
		bone.WithGroup("Body"),
		bone.WithLayers(0),
	)
	if r.Params.Bool("deform", true) {
		r.deform = ctx.Bones.Bone(ctx.Prefixed(PREFIX_DEF, r.Meta.Name),
			bone.WithSource(r.Org),
			bone.WithDeform(true),
			bone.WithLayers(ctx.LayersFor(PREFIX_DEF)...),
		)
	}
	r.RegisterParent(r.Label(ctx), r.control.Name)
	return nil
}

// Parent は操作ボーンをメタリグ上の親へ、変形ボーンを ORG へ接続する。
func (r *BaseRig) Parent(ctx *Context) error {
	r.control.Parent = bone.RefName(ctx.OrgParentName(r.Meta))
	if r.deform != nil {
		r.deform.Parent = bone.RefInfo(r.Org)
	}
	return nil
}

// Apply は ORG を操作ボーンへ追従させる。
func (r *BaseRig) Apply(ctx *Context) error {
	r.Org.AddConstraint(bone.CONSTRAINT_COPY_TRANSFORMS,
		bone.Props(map[string]any{"subtarget": r.control.Name}))
	return nil
}
