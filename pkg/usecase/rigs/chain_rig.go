// 指示: miu200521358
package rigs

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/mmath"
)

// ChainRig は接続されたボーン列を変形ボーンとストレッチ操作で繋ぐリグ要素。
type ChainRig struct {
	BaseRig
	ChainBones []*metarig.MetaBone
	OrgBones   []*bone.BoneInfo
	DefBones   []*bone.BoneInfo
	// StrBones は各ボーンのヘッドと末端テールに置くストレッチ操作。DefBones より1つ多い。
	StrBones []*bone.BoneInfo
}

// NewChainRig はChainRigを生成する。
func NewChainRig(meta *metarig.MetaBone) *ChainRig {
	r := &ChainRig{}
	r.init(meta)
	return r
}

// Initialize は基点から接続された子を辿ってチェーンを確定する。
// 別のリグ種別を持つ子はチェーンに含めない。
func (r *ChainRig) Initialize(ctx *Context) error {
	if err := r.BaseRig.Initialize(ctx); err != nil {
		return err
	}
	r.ChainBones = []*metarig.MetaBone{r.Meta}
	r.OrgBones = []*bone.BoneInfo{r.Org}
	for current := r.Meta; ; {
		var next *metarig.MetaBone
		for _, child := range ctx.Metarig.Children(current.Name) {
			if child.UseConnect && child.RigType == "" {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		org := ctx.Bones.Find(ctx.OrgName(next.Name))
		if org == nil {
			break
		}
		r.ChainBones = append(r.ChainBones, next)
		r.OrgBones = append(r.OrgBones, org)
		current = next
	}
	return nil
}

// Prepare は変形ボーンとストレッチ操作を宣言する。
func (r *ChainRig) Prepare(ctx *Context) error {
	segments := r.Params.Int("deform_segments", 1)
	if segments < 1 {
		segments = 1
	}
	stretch := ctx.Bones.Groups.Ensure("Stretch", 8)
	r.DefBones = r.DefBones[:0]
	r.StrBones = r.StrBones[:0]
	for i, org := range r.OrgBones {
		r.StrBones = append(r.StrBones, r.newStrBone(ctx, ctx.Prefixed(PREFIX_STR, r.ChainBones[i].Name), org.Head, org))
		def := ctx.Bones.Bone(ctx.Prefixed(PREFIX_DEF, r.ChainBones[i].Name),
			bone.WithSource(org),
			bone.WithDeform(true),
			bone.WithSegments(segments),
			bone.WithLayers(ctx.LayersFor(PREFIX_DEF)...),
		)
		r.DefBones = append(r.DefBones, def)
	}
	last := r.OrgBones[len(r.OrgBones)-1]
	tipName := ctx.Prefixed(PREFIX_STR, r.SidedName(ctx, baseOf(ctx, r.ChainBones[len(r.ChainBones)-1].Name)+"_tip"))
	r.StrBones = append(r.StrBones, r.newStrBone(ctx, tipName, last.Tail, last))
	for _, str := range r.StrBones {
		str.SetGroup(stretch)
	}
	return nil
}

// newStrBone はボーン長の1/4の大きさでストレッチ操作を宣言する。
func (r *ChainRig) newStrBone(ctx *Context, name string, at r3.Vec, org *bone.BoneInfo) *bone.BoneInfo {
	return ctx.Bones.Bone(name,
		bone.WithSource(org),
		bone.WithHead(at),
		bone.WithTail(r3.Add(at, scaledDirection(org, 0.25))),
		bone.WithDeform(false),
		bone.WithShape(ctx.Prefixed(PREFIX_WGT, "sphere")),
	)
}

// GenerateTopology はBボーンのハンドルをストレッチ操作へ割り当てる。
func (r *ChainRig) GenerateTopology(ctx *Context) error {
	for i, def := range r.DefBones {
		if def.BBoneSegments <= 1 {
			continue
		}
		def.BBoneHandleTypeStart = "ABSOLUTE"
		def.BBoneHandleTypeEnd = "ABSOLUTE"
		def.BBoneHandleStart = bone.RefInfo(r.StrBones[i])
		def.BBoneHandleEnd = bone.RefInfo(r.StrBones[i+1])
	}
	return nil
}

// Parent は変形ボーンをストレッチ操作へ、ストレッチ操作を ORG へ接続する。
func (r *ChainRig) Parent(ctx *Context) error {
	for i, def := range r.DefBones {
		def.Parent = bone.RefInfo(r.StrBones[i])
	}
	for i, str := range r.StrBones {
		org := r.OrgBones[len(r.OrgBones)-1]
		if i < len(r.OrgBones) {
			org = r.OrgBones[i]
		}
		str.Parent = bone.RefInfo(org)
	}
	return nil
}

// Apply は変形ボーンを次のストレッチ操作へ伸縮させる。
func (r *ChainRig) Apply(ctx *Context) error {
	for i, def := range r.DefBones {
		def.AddConstraint(bone.CONSTRAINT_STRETCH_TO,
			bone.Props(map[string]any{"subtarget": r.StrBones[i+1].Name}))
	}
	return nil
}

// scaledDirection はボーン方向へ長さの factor 倍のベクトルを返す。長さゼロなら+Y方向。
func scaledDirection(b *bone.BoneInfo, factor float64) r3.Vec {
	if mmath.IsZero(b.Vector()) {
		return r3.Scale(factor, mmath.UnitY)
	}
	return r3.Scale(factor, b.Vector())
}

// baseOf は左右接尾辞を除いた名前を返す。
func baseOf(ctx *Context, name string) string {
	base, _ := SplitSide(name, ctx.Options.SideSeparator)
	return base
}
