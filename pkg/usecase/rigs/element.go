// 指示: miu200521358
// Package rigs はリグ要素の基底クラス群とステージ契約を提供する。
package rigs

import (
	"fmt"
	"sort"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

// Stage は生成ステージを表す。
type Stage string

const (
	STAGE_INITIALIZE        Stage = "initialize"
	STAGE_PREPARE           Stage = "prepare"
	STAGE_GENERATE_TOPOLOGY Stage = "generate_topology"
	STAGE_PARENT            Stage = "parent"
	STAGE_CONFIGURE         Stage = "configure"
	STAGE_APPLY             Stage = "apply"
	STAGE_RIG               Stage = "rig"
	STAGE_FINALIZE          Stage = "finalize"
)

// Stages は実行順のステージ一覧。
var Stages = []Stage{
	STAGE_INITIALIZE,
	STAGE_PREPARE,
	STAGE_GENERATE_TOPOLOGY,
	STAGE_PARENT,
	STAGE_CONFIGURE,
	STAGE_APPLY,
	STAGE_RIG,
	STAGE_FINALIZE,
}

// Element はリグ要素を表す。
type Element interface {
	Base() *BaseRig
}

// Initializer は initialize ステージを実装する要素。
type Initializer interface {
	Initialize(ctx *Context) error
}

// Preparer は prepare ステージを実装する要素。記述子の宣言のみ行う。
type Preparer interface {
	Prepare(ctx *Context) error
}

// TopologyGenerator は generate_topology ステージを実装する要素。
type TopologyGenerator interface {
	GenerateTopology(ctx *Context) error
}

// Parenter は parent ステージを実装する要素。
type Parenter interface {
	Parent(ctx *Context) error
}

// Configurer は configure ステージを実装する要素。
type Configurer interface {
	Configure(ctx *Context) error
}

// Applier は apply ステージを実装する要素。
type Applier interface {
	Apply(ctx *Context) error
}

// Rigger は rig ステージを実装する要素。
type Rigger interface {
	Rig(ctx *Context) error
}

// Finalizer は finalize ステージを実装する要素。
type Finalizer interface {
	Finalize(ctx *Context) error
}

// RunStage は要素が実装していればステージの処理を呼ぶ。実装の有無を返す。
func RunStage(stage Stage, element Element, ctx *Context) (bool, error) {
	switch stage {
	case STAGE_INITIALIZE:
		if h, ok := element.(Initializer); ok {
			return true, h.Initialize(ctx)
		}
	case STAGE_PREPARE:
		if h, ok := element.(Preparer); ok {
			return true, h.Prepare(ctx)
		}
	case STAGE_GENERATE_TOPOLOGY:
		if h, ok := element.(TopologyGenerator); ok {
			return true, h.GenerateTopology(ctx)
		}
	case STAGE_PARENT:
		if h, ok := element.(Parenter); ok {
			return true, h.Parent(ctx)
		}
	case STAGE_CONFIGURE:
		if h, ok := element.(Configurer); ok {
			return true, h.Configure(ctx)
		}
	case STAGE_APPLY:
		if h, ok := element.(Applier); ok {
			return true, h.Apply(ctx)
		}
	case STAGE_RIG:
		if h, ok := element.(Rigger); ok {
			return true, h.Rig(ctx)
		}
	case STAGE_FINALIZE:
		if h, ok := element.(Finalizer); ok {
			return true, h.Finalize(ctx)
		}
	default:
		return false, fmt.Errorf("未対応のステージです: %s", stage)
	}
	return false, nil
}

// Factory はメタリグボーンからリグ要素を生成する。
type Factory func(meta *metarig.MetaBone) Element

// Registry はリグ種別と生成関数の対応を表す。
type Registry struct {
	factories map[string]Factory
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry は標準のリグ種別を登録したRegistryを返す。
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("cloud_base", func(meta *metarig.MetaBone) Element { return NewBaseRig(meta) })
	r.Register("cloud_chain", func(meta *metarig.MetaBone) Element { return NewChainRig(meta) })
	r.Register("cloud_fk_chain", func(meta *metarig.MetaBone) Element { return NewFKChainRig(meta) })
	r.Register("cloud_ik_chain", func(meta *metarig.MetaBone) Element { return NewIKChainRig(meta) })
	r.Register("cloud_limbs", func(meta *metarig.MetaBone) Element { return NewLimbRig(meta) })
	return r
}

// Register はリグ種別を登録する。
func (r *Registry) Register(rigType string, factory Factory) {
	r.factories[rigType] = factory
}

// New はリグ要素を生成する。未登録の種別は構造違反エラー。
func (r *Registry) New(meta *metarig.MetaBone) (Element, error) {
	factory, ok := r.factories[meta.RigType]
	if !ok {
		return nil, merr.NewStructural(meta.Name, "未登録のリグ種別です: %s", meta.RigType)
	}
	element := factory(meta)
	element.Base().RigType = meta.RigType
	return element, nil
}

// Types は登録済みの種別を名前順で返す。
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
