// 指示: miu200521358
package bone

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
)

// TransformSource は記述子生成時の基準となるボーン配置を表す。
type TransformSource interface {
	BoneHead() r3.Vec
	BoneTail() r3.Vec
	BoneRoll() float64
}

// Defaults は記述子生成時に継承する既定値を表す。
type Defaults struct {
	BBoneWidth       float64
	BBoneSegments    int
	EnvelopeDistance float64
	UseDeform        bool
	InheritScale     string
	RotationMode     string
	Layers           [LAYER_COUNT]bool
	Group            string
}

// DefaultDefaults は既定のDefaultsを返す。
func DefaultDefaults() Defaults {
	return Defaults{
		BBoneWidth:       0.1,
		BBoneSegments:    1,
		EnvelopeDistance: 0.25,
		InheritScale:     "FULL",
		RotationMode:     "QUATERNION",
	}
}

// Option は Bone のオプション。
type Option func(*boneConfig)

type boneConfig struct {
	source    TransformSource
	overwrite bool
	edits     []func(*BoneInfo)
}

// WithSource は基準ボーンの配置を複製する。記述子の場合は形状系フィールドも複製する。
func WithSource(source TransformSource) Option {
	return func(c *boneConfig) { c.source = source }
}

// WithOverwrite は同名記述子が存在する場合に置き換えるか指定する。既定は置き換え。
func WithOverwrite(overwrite bool) Option {
	return func(c *boneConfig) { c.overwrite = overwrite }
}

// With は任意のフィールド設定を追加する。
func With(edit func(b *BoneInfo)) Option {
	return func(c *boneConfig) { c.edits = append(c.edits, edit) }
}

// WithHead はヘッド位置を指定する。
func WithHead(head r3.Vec) Option {
	return With(func(b *BoneInfo) { b.Head = head })
}

// WithTail はテール位置を指定する。
func WithTail(tail r3.Vec) Option {
	return With(func(b *BoneInfo) { b.Tail = tail })
}

// WithRoll はロールを指定する。
func WithRoll(roll float64) Option {
	return With(func(b *BoneInfo) { b.Roll = roll })
}

// WithParent は親参照を指定する。
func WithParent(parent BoneRef) Option {
	return With(func(b *BoneInfo) { b.Parent = parent })
}

// WithParentName は親を名前で指定する。
func WithParentName(name string) Option {
	return WithParent(RefName(name))
}

// WithBBoneWidth は相対幅を指定する。
func WithBBoneWidth(width float64) Option {
	return With(func(b *BoneInfo) { b.BBoneWidth = width })
}

// WithSegments はBボーン分割数を指定する。
func WithSegments(segments int) Option {
	return With(func(b *BoneInfo) { b.BBoneSegments = segments })
}

// WithDeform は変形ボーンか指定する。
func WithDeform(deform bool) Option {
	return With(func(b *BoneInfo) { b.UseDeform = deform })
}

// WithConnect は親と接続するか指定する。
func WithConnect(connect bool) Option {
	return With(func(b *BoneInfo) { b.UseConnect = connect })
}

// WithLayers は有効レイヤーを指定する。
func WithLayers(indexes ...int) Option {
	return With(func(b *BoneInfo) { b.SetLayers(indexes...) })
}

// WithGroup はボーングループを名前で指定する。
func WithGroup(name string) Option {
	return With(func(b *BoneInfo) { b.SetGroupName(name) })
}

// WithShape はカスタムシェイプ名を指定する。
func WithShape(name string) Option {
	return With(func(b *BoneInfo) { b.CustomShape = name })
}

// WithRotationMode は回転モードを指定する。
func WithRotationMode(mode string) Option {
	return With(func(b *BoneInfo) { b.RotationMode = mode })
}

// BoneInfoContainer は生成1回分のボーン記述子を名前一意で保持する。
type BoneInfoContainer struct {
	// Scale は相対幅を絶対値へ変換する倍率。
	Scale    float64
	Defaults Defaults
	Groups   *BoneGroupContainer

	bones *descriptor.IDCollection[*BoneInfo]
}

// NewBoneInfoContainer はコンテナを生成する。
func NewBoneInfoContainer(scale float64, defaults Defaults) *BoneInfoContainer {
	if scale <= 0 {
		scale = 1
	}
	c := &BoneInfoContainer{
		Scale:    scale,
		Defaults: defaults,
		Groups:   NewBoneGroupContainer(),
	}
	c.bones = descriptor.NewIDCollection(func(name string) *BoneInfo {
		return c.newInfo(name)
	})
	return c
}

func (c *BoneInfoContainer) newInfo(name string) *BoneInfo {
	b := newBoneInfo(c, name)
	if c.Defaults.Group != "" {
		b.SetGroupName(c.Defaults.Group)
	}
	return b
}

// Bone は記述子を宣言する。
// 同名が存在し上書きしない場合は既存記述子をそのまま返す。
// 上書きする場合は同じ位置で新しい記述子に置き換える。
// 生成順はコンテナ既定値、基準ボーン、個別指定の順に適用する。
func (c *BoneInfoContainer) Bone(name string, opts ...Option) *BoneInfo {
	cfg := &boneConfig{overwrite: true}
	for _, opt := range opts {
		opt(cfg)
	}

	existing := c.Find(name)
	if existing != nil && !cfg.overwrite {
		return existing
	}
	if existing != nil {
		existing.SetGroup(nil)
	}

	b := c.newInfo(name)
	if cfg.source != nil {
		if src, ok := cfg.source.(*BoneInfo); ok {
			if src != nil {
				b.copyGeometry(src)
			}
		} else {
			b.CopyTransform(cfg.source)
		}
	}
	for _, edit := range cfg.edits {
		edit(b)
	}
	c.bones.Set(name, b)
	return b
}

// Find は名前で記述子を取得する。存在しない場合はnil。
func (c *BoneInfoContainer) Find(name string) *BoneInfo {
	b, ok := c.bones.Get(name)
	if !ok {
		return nil
	}
	return b
}

// Remove は記述子を削除し、グループから外す。
func (c *BoneInfoContainer) Remove(name string) bool {
	b := c.Find(name)
	if b == nil {
		return false
	}
	b.SetGroup(nil)
	return c.bones.Remove(name)
}

// Bones は宣言順の記述子一覧を返す。
func (c *BoneInfoContainer) Bones() []*BoneInfo {
	return c.bones.Values()
}

// Names は宣言順の名前一覧を返す。
func (c *BoneInfoContainer) Names() []string {
	return c.bones.Names()
}

// Len は記述子数を返す。
func (c *BoneInfoContainer) Len() int {
	return c.bones.Len()
}

// Resolve は参照を現在の記述子へ解決する。
// 記述子参照も名前で引き直すため、置き換え後の記述子が返る。
func (c *BoneInfoContainer) Resolve(ref BoneRef) (*BoneInfo, bool) {
	if !ref.IsSet() {
		return nil, false
	}
	b := c.Find(ref.Name())
	return b, b != nil
}

// Rename は記述子の名前を変更する。変更先が既に存在する場合はエラー。
func (c *BoneInfoContainer) Rename(oldName string, newName string) error {
	b := c.Find(oldName)
	if b == nil {
		return fmt.Errorf("ボーン記述子が見つかりません: %s", oldName)
	}
	if err := c.bones.Rename(oldName, newName); err != nil {
		return err
	}
	b.Name = newName
	return nil
}
