// 指示: miu200521358
package rigs

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

const (
	LIMB_TYPE_ARM = "arm"
	LIMB_TYPE_LEG = "leg"
)

// LimbRig は上腕・前腕・手(または腿・脛・足)の3本で構成する手足リグ要素。
type LimbRig struct {
	IKChainRig
	LimbType string
}

// NewLimbRig はLimbRigを生成する。
func NewLimbRig(meta *metarig.MetaBone) *LimbRig {
	r := &LimbRig{}
	r.init(meta)
	return r
}

// Initialize はボーン数と手足種別を検証する。
func (r *LimbRig) Initialize(ctx *Context) error {
	if err := r.IKChainRig.Initialize(ctx); err != nil {
		return err
	}
	if len(r.ChainBones) != 3 {
		return merr.NewStructural(r.Meta.Name, "手足リグには3本のボーンが必要です: %d", len(r.ChainBones))
	}
	r.LimbType = r.Params.String("limb_type", LIMB_TYPE_ARM)
	switch r.LimbType {
	case LIMB_TYPE_ARM:
		r.flattenControl = false
	case LIMB_TYPE_LEG:
		r.flattenControl = true
	default:
		return merr.NewStructural(r.Meta.Name, "未対応の手足種別です: %s", r.LimbType)
	}
	r.ikCount = 2
	return nil
}
