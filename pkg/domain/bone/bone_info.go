// 指示: miu200521358
package bone

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/mmath"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

const (
	// LAYER_COUNT はボーンレイヤー数。
	LAYER_COUNT = 32
	// MINIMAL_LENGTH は長さゼロのボーンへ与える最小長(コンテナスケール倍前)。
	MINIMAL_LENGTH = 0.001
)

// BoneInfo はホストへ未反映のボーン記述子を表す。
type BoneInfo struct {
	Name string

	Head r3.Vec
	Tail r3.Vec
	Roll float64
	// BBoneWidth はコンテナスケールに対する相対幅。
	BBoneWidth float64

	BBoneSegments        int
	BBoneCurveInX        float64
	BBoneCurveInZ        float64
	BBoneCurveOutX       float64
	BBoneCurveOutZ       float64
	BBoneRollIn          float64
	BBoneRollOut         float64
	BBoneEaseIn          float64
	BBoneEaseOut         float64
	BBoneScaleIn         r3.Vec
	BBoneScaleOut        r3.Vec
	BBoneHandleTypeStart string
	BBoneHandleTypeEnd   string
	BBoneHandleStart     BoneRef
	BBoneHandleEnd       BoneRef

	EnvelopeDistance float64
	EnvelopeWeight   float64
	HeadRadius       float64
	TailRadius       float64

	UseDeform          bool
	UseConnect         bool
	UseLocalLocation   bool
	UseInheritRotation bool
	UseEndroll         bool
	HideSelect         bool
	InheritScale       string

	Parent BoneRef
	Layers [LAYER_COUNT]bool

	CustomShape          string
	CustomShapeScale     float64
	CustomShapeTransform BoneRef

	RotationMode  string
	LockLocation  [3]bool
	LockRotation  [3]bool
	LockRotationW bool
	LockScale     [3]bool

	Constraints []*Constraint
	// Drivers はポーズボーン側プロパティのドライバー。
	Drivers *descriptor.IDCollection[*descriptor.Driver]
	// DataDrivers はボーンデータ側プロパティのドライバー。
	DataDrivers     *descriptor.IDCollection[*descriptor.Driver]
	CustomProps     *descriptor.IDCollection[*descriptor.CustomProp]
	DataCustomProps *descriptor.IDCollection[*descriptor.CustomProp]

	group     *BoneGroup
	container *BoneInfoContainer
}

func newDriverCollection() *descriptor.IDCollection[*descriptor.Driver] {
	return descriptor.NewIDCollection(func(string) *descriptor.Driver {
		return descriptor.NewDriver("")
	})
}

func newCustomPropCollection() *descriptor.IDCollection[*descriptor.CustomProp] {
	return descriptor.NewIDCollection(func(name string) *descriptor.CustomProp {
		return descriptor.NewCustomProp(name, 0.0)
	})
}

// newBoneInfo はコンテナ既定値を反映した記述子を生成する。
func newBoneInfo(container *BoneInfoContainer, name string) *BoneInfo {
	defaults := DefaultDefaults()
	if container != nil {
		defaults = container.Defaults
	}
	b := &BoneInfo{
		Name:                 name,
		Tail:                 r3.Vec{Y: 1},
		BBoneWidth:           defaults.BBoneWidth,
		BBoneSegments:        defaults.BBoneSegments,
		BBoneEaseIn:          1,
		BBoneEaseOut:         1,
		BBoneScaleIn:         r3.Vec{X: 1, Y: 1, Z: 1},
		BBoneScaleOut:        r3.Vec{X: 1, Y: 1, Z: 1},
		BBoneHandleTypeStart: "AUTO",
		BBoneHandleTypeEnd:   "AUTO",
		EnvelopeDistance:     defaults.EnvelopeDistance,
		EnvelopeWeight:       1,
		HeadRadius:           defaults.EnvelopeDistance / 2,
		TailRadius:           defaults.EnvelopeDistance / 2,
		UseDeform:            defaults.UseDeform,
		UseInheritRotation:   true,
		InheritScale:         defaults.InheritScale,
		Layers:               defaults.Layers,
		CustomShapeScale:     1,
		RotationMode:         defaults.RotationMode,
		Drivers:              newDriverCollection(),
		DataDrivers:          newDriverCollection(),
		CustomProps:          newCustomPropCollection(),
		DataCustomProps:      newCustomPropCollection(),
		container:            container,
	}
	return b
}

// BoneHead はヘッド位置を返す。
func (b *BoneInfo) BoneHead() r3.Vec { return b.Head }

// BoneTail はテール位置を返す。
func (b *BoneInfo) BoneTail() r3.Vec { return b.Tail }

// BoneRoll はロールを返す。
func (b *BoneInfo) BoneRoll() float64 { return b.Roll }

// Container は所属コンテナを返す。
func (b *BoneInfo) Container() *BoneInfoContainer {
	return b.container
}

// Group は所属ボーングループを返す。
func (b *BoneInfo) Group() *BoneGroup {
	return b.group
}

// SetGroup はボーングループへ排他的に所属させる。nilで所属を外す。
func (b *BoneInfo) SetGroup(group *BoneGroup) {
	if group == nil {
		if b.group != nil {
			b.group.detach(b)
		}
		return
	}
	group.attach(b)
}

// SetGroupName は名前でボーングループへ所属させる。未登録ならコンテナに生成する。
func (b *BoneInfo) SetGroupName(name string) {
	if name == "" {
		b.SetGroup(nil)
		return
	}
	if b.container == nil {
		return
	}
	b.SetGroup(b.container.Groups.Ensure(name, -1))
}

// SetLayers は指定番号のレイヤーのみを有効にする。
func (b *BoneInfo) SetLayers(indexes ...int) {
	b.Layers = [LAYER_COUNT]bool{}
	for _, idx := range indexes {
		if idx >= 0 && idx < LAYER_COUNT {
			b.Layers[idx] = true
		}
	}
}

// LayerIndexes は有効なレイヤー番号を返す。
func (b *BoneInfo) LayerIndexes() []int {
	indexes := make([]int, 0)
	for i, on := range b.Layers {
		if on {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// AbsoluteBBoneWidth はコンテナスケールを掛けた絶対幅を返す。
func (b *BoneInfo) AbsoluteBBoneWidth() float64 {
	scale := 1.0
	if b.container != nil && b.container.Scale > 0 {
		scale = b.container.Scale
	}
	return b.BBoneWidth * scale
}

// Vector はヘッドからテールへのベクトルを返す。
func (b *BoneInfo) Vector() r3.Vec {
	return r3.Sub(b.Tail, b.Head)
}

// Length はボーン長を返す。
func (b *BoneInfo) Length() float64 {
	return r3.Norm(b.Vector())
}

// SetLength はヘッドを固定して長さを変更する。方向がない場合は+Y方向とする。
func (b *BoneInfo) SetLength(length float64) {
	dir := b.Vector()
	if mmath.IsZero(dir) {
		dir = mmath.UnitY
	}
	b.Tail = r3.Add(b.Head, r3.Scale(length, r3.Unit(dir)))
}

// Scale はヘッドを固定して長さを倍率で変更する。
func (b *BoneInfo) Scale(factor float64) {
	b.Tail = r3.Add(b.Head, r3.Scale(factor, b.Vector()))
}

// Center はボーン中心を返す。
func (b *BoneInfo) Center() r3.Vec {
	return mmath.Lerp(b.Head, b.Tail, 0.5)
}

// Flip はヘッドとテールを入れ替える。
func (b *BoneInfo) Flip() {
	b.Head, b.Tail = b.Tail, b.Head
}

// Matrix はボーン行列を返す。
func (b *BoneInfo) Matrix() mgl64.Mat4 {
	return mmath.BoneMatrix(b.Head, b.Tail, b.Roll)
}

// AxisVector はボーン行列の指定軸(0:X, 1:Y, 2:Z)を返す。
func (b *BoneInfo) AxisVector(axis int) r3.Vec {
	return mmath.BoneAxis(b.Head, b.Tail, b.Roll, axis)
}

// CopyTransform はヘッド・テール・ロールを複製する。
func (b *BoneInfo) CopyTransform(src TransformSource) {
	if src == nil {
		return
	}
	b.Head = src.BoneHead()
	b.Tail = src.BoneTail()
	b.Roll = src.BoneRoll()
}

// copyGeometry は形状系フィールドを複製する。
func (b *BoneInfo) copyGeometry(src *BoneInfo) {
	b.CopyTransform(src)
	b.BBoneWidth = src.BBoneWidth
	b.BBoneSegments = src.BBoneSegments
	b.BBoneCurveInX = src.BBoneCurveInX
	b.BBoneCurveInZ = src.BBoneCurveInZ
	b.BBoneCurveOutX = src.BBoneCurveOutX
	b.BBoneCurveOutZ = src.BBoneCurveOutZ
	b.BBoneRollIn = src.BBoneRollIn
	b.BBoneRollOut = src.BBoneRollOut
	b.BBoneEaseIn = src.BBoneEaseIn
	b.BBoneEaseOut = src.BBoneEaseOut
	b.BBoneScaleIn = src.BBoneScaleIn
	b.BBoneScaleOut = src.BBoneScaleOut
	b.EnvelopeDistance = src.EnvelopeDistance
	b.EnvelopeWeight = src.EnvelopeWeight
	b.HeadRadius = src.HeadRadius
	b.TailRadius = src.TailRadius
}

// CopyInfo は名前とコンテナ以外の全フィールドを複製する。
// 制約とドライバーは複製し、グループは同じグループへ所属させる。
func (b *BoneInfo) CopyInfo(src *BoneInfo) {
	if src == nil || src == b {
		return
	}
	b.copyGeometry(src)
	b.BBoneHandleTypeStart = src.BBoneHandleTypeStart
	b.BBoneHandleTypeEnd = src.BBoneHandleTypeEnd
	b.BBoneHandleStart = src.BBoneHandleStart
	b.BBoneHandleEnd = src.BBoneHandleEnd
	b.UseDeform = src.UseDeform
	b.UseConnect = src.UseConnect
	b.UseLocalLocation = src.UseLocalLocation
	b.UseInheritRotation = src.UseInheritRotation
	b.UseEndroll = src.UseEndroll
	b.HideSelect = src.HideSelect
	b.InheritScale = src.InheritScale
	b.Parent = src.Parent
	b.Layers = src.Layers
	b.CustomShape = src.CustomShape
	b.CustomShapeScale = src.CustomShapeScale
	b.CustomShapeTransform = src.CustomShapeTransform
	b.RotationMode = src.RotationMode
	b.LockLocation = src.LockLocation
	b.LockRotation = src.LockRotation
	b.LockRotationW = src.LockRotationW
	b.LockScale = src.LockScale

	b.Constraints = make([]*Constraint, 0, len(src.Constraints))
	for _, con := range src.Constraints {
		b.Constraints = append(b.Constraints, con.Clone())
	}
	b.Drivers = cloneDrivers(src.Drivers)
	b.DataDrivers = cloneDrivers(src.DataDrivers)
	b.CustomProps = cloneCustomProps(src.CustomProps)
	b.DataCustomProps = cloneCustomProps(src.DataCustomProps)
	b.SetGroup(src.group)
}

func cloneDrivers(src *descriptor.IDCollection[*descriptor.Driver]) *descriptor.IDCollection[*descriptor.Driver] {
	copied := newDriverCollection()
	for _, key := range src.Names() {
		d, _ := src.Get(key)
		copied.Set(key, d.Clone())
	}
	return copied
}

func cloneCustomProps(src *descriptor.IDCollection[*descriptor.CustomProp]) *descriptor.IDCollection[*descriptor.CustomProp] {
	copied := newCustomPropCollection()
	for _, key := range src.Names() {
		p, _ := src.Get(key)
		copied.Set(key, p.Clone())
	}
	return copied
}

// AddDriver はポーズボーンのプロパティにドライバーを登録する。既存キーは置き換える。
func (b *BoneInfo) AddDriver(dataPath string, driver *descriptor.Driver) *descriptor.Driver {
	b.Drivers.Set(descriptor.DriverKey(dataPath, driver.Index), driver)
	return driver
}

// AddDataDriver はボーンデータのプロパティにドライバーを登録する。
func (b *BoneInfo) AddDataDriver(dataPath string, driver *descriptor.Driver) *descriptor.Driver {
	b.DataDrivers.Set(descriptor.DriverKey(dataPath, driver.Index), driver)
	return driver
}

// AddCustomProp はポーズボーンのカスタムプロパティを登録する。
func (b *BoneInfo) AddCustomProp(prop *descriptor.CustomProp) *descriptor.CustomProp {
	b.CustomProps.Set(prop.Name, prop)
	return prop
}

// AddDataCustomProp はボーンデータのカスタムプロパティを登録する。
func (b *BoneInfo) AddDataCustomProp(prop *descriptor.CustomProp) *descriptor.CustomProp {
	b.DataCustomProps.Set(prop.Name, prop)
	return prop
}

// Constraint は名前で制約記述子を取得する。
func (b *BoneInfo) Constraint(name string) *Constraint {
	for _, con := range b.Constraints {
		if con.Name == name {
			return con
		}
	}
	return nil
}

// Validate は記述子の整合性を検証する。
func (b *BoneInfo) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("ボーン名が空です")
	}
	if mmath.IsZero(b.Vector()) {
		return fmt.Errorf("%w: %s", merr.ErrZeroLength, b.Name)
	}
	return nil
}

// EnsureMinimalLength は長さゼロの場合に最小長を与え、補正したか返す。
func (b *BoneInfo) EnsureMinimalLength() bool {
	if !mmath.IsZero(b.Vector()) {
		return false
	}
	scale := 1.0
	if b.container != nil && b.container.Scale > 0 {
		scale = b.container.Scale
	}
	b.SetLength(MINIMAL_LENGTH * scale)
	return true
}

// String は表示文字列を返す。
func (b *BoneInfo) String() string {
	return fmt.Sprintf("BoneInfo(%s)", b.Name)
}
