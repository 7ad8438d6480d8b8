// 指示: miu200521358
package memory

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/mmath"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// Armature はメモリ上のアーマチュアオブジェクトを表す。
type Armature struct {
	id          *descriptor.ID
	mode        mhost.Mode
	epoch       int
	switches    int
	props       map[string]any
	customProps *descriptor.IDCollection[*descriptor.CustomProp]
	bones       *descriptor.IDCollection[*bone]
	groups      *descriptor.IDCollection[*boneGroup]
	drivers     *descriptor.IDCollection[*driver]
	faults      map[string]error
}

func newArmature(name string) *Armature {
	return &Armature{
		id:    descriptor.NewID(name, descriptor.ID_TYPE_OBJECT),
		mode:  mhost.MODE_OBJECT,
		props: armatureSchema.defaults(),
		customProps: descriptor.NewIDCollection(func(name string) *descriptor.CustomProp {
			return descriptor.NewCustomProp(name, 0.0)
		}),
		bones:   descriptor.NewIDCollection(newBone),
		groups:  descriptor.NewIDCollection(newBoneGroup),
		drivers: descriptor.NewIDCollection(func(key string) *driver { return newDriver(key) }),
		faults:  map[string]error{},
	}
}

// ID はオブジェクトIDを返す。
func (a *Armature) ID() *descriptor.ID {
	return a.id
}

// Name はオブジェクト名を返す。
func (a *Armature) Name() string {
	return a.id.Name
}

// Mode は現在のモードを返す。
func (a *Armature) Mode() mhost.Mode {
	return a.mode
}

// ModeSwitchCount はモード切替回数を返す。
func (a *Armature) ModeSwitchCount() int {
	return a.switches
}

// FailOnSet は指定プロパティへの書き込みで err を返すようにする。テスト用。
func (a *Armature) FailOnSet(prop string, err error) {
	if err == nil {
		delete(a.faults, prop)
		return
	}
	a.faults[prop] = err
}

func (a *Armature) fault(prop string) error {
	if err, ok := a.faults[prop]; ok {
		return err
	}
	return nil
}

// SetMode はモードを切り替える。編集モードを抜ける際は長さゼロのボーンを削除する。
// 切替ごとに既存ハンドルは無効になる。
func (a *Armature) SetMode(mode mhost.Mode) error {
	switch mode {
	case mhost.MODE_OBJECT, mhost.MODE_EDIT, mhost.MODE_POSE:
	default:
		return fmt.Errorf("%w: 未対応のモードです: %s", merr.ErrWrongMode, mode)
	}
	if a.mode == mode {
		return nil
	}
	if a.mode == mhost.MODE_EDIT {
		a.purgeZeroLengthBones()
	}
	a.mode = mode
	a.epoch++
	a.switches++
	return nil
}

// BeginTopologyPhase は編集モードへ入る。
func (a *Armature) BeginTopologyPhase() error {
	return a.SetMode(mhost.MODE_EDIT)
}

// BeginPropertyPhase はポーズモードへ入る。
func (a *Armature) BeginPropertyPhase() error {
	return a.SetMode(mhost.MODE_POSE)
}

func (a *Armature) purgeZeroLengthBones() {
	for _, b := range a.bones.Values() {
		head, _ := b.edit["head"].(r3.Vec)
		tail, _ := b.edit["tail"].(r3.Vec)
		if mmath.IsZero(r3.Sub(tail, head)) {
			logMemoryWarn("長さゼロのボーンを削除しました: %s", b.name)
			a.removeBone(b.name)
		}
	}
}

func (a *Armature) requireMode(mode mhost.Mode) error {
	if a.mode != mode {
		return fmt.Errorf("%w: want=%s got=%s", merr.ErrWrongMode, mode, a.mode)
	}
	return nil
}

func (a *Armature) requireNotEdit() error {
	if a.mode == mhost.MODE_EDIT {
		return fmt.Errorf("%w: 編集モード中は操作できません", merr.ErrWrongMode)
	}
	return nil
}

// Set はアーマチュアデータのプロパティを設定する。
func (a *Armature) Set(prop string, value any) error {
	if err := a.fault(prop); err != nil {
		return err
	}
	v, err := armatureSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	a.props[prop] = v
	return nil
}

// Get はアーマチュアデータのプロパティを取得する。
func (a *Armature) Get(prop string) (any, bool) {
	v, ok := a.props[prop]
	return v, ok
}

// EditBone は編集ボーンを取得する。
func (a *Armature) EditBone(name string) (mhost.IEditBone, error) {
	if err := a.requireMode(mhost.MODE_EDIT); err != nil {
		return nil, err
	}
	b, ok := a.bones.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", merr.ErrNotFound, name)
	}
	return &editBone{arm: a, bone: b, epoch: a.epoch}, nil
}

// NewEditBone は編集ボーンを追加する。名前が衝突した場合は連番を付ける。
func (a *Armature) NewEditBone(name string) (mhost.IEditBone, error) {
	if err := a.requireMode(mhost.MODE_EDIT); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("ボーン名が空です")
	}
	unique := uniqueName(name, a.bones.Has)
	if unique != name {
		logMemoryDebug("ボーン名が衝突したため変更しました: %s -> %s", name, unique)
	}
	b := a.bones.Ensure(unique)
	return &editBone{arm: a, bone: b, epoch: a.epoch}, nil
}

// RemoveEditBone は編集ボーンを削除する。
func (a *Armature) RemoveEditBone(name string) error {
	if err := a.requireMode(mhost.MODE_EDIT); err != nil {
		return err
	}
	if !a.bones.Has(name) {
		return fmt.Errorf("%w: %s", merr.ErrNotFound, name)
	}
	a.removeBone(name)
	a.epoch++
	return nil
}

// removeBone はボーンを削除し、他ボーンからの参照を外す。ドライバーは残す。
func (a *Armature) removeBone(name string) {
	a.bones.Remove(name)
	for _, b := range a.bones.Values() {
		for _, prop := range editBoneRefProps {
			if b.edit[prop] == name {
				b.edit[prop] = ""
			}
		}
		if b.pose["custom_shape_transform"] == name {
			b.pose["custom_shape_transform"] = ""
		}
	}
}

// EditBoneNames は編集ボーン名を返す。
func (a *Armature) EditBoneNames() ([]string, error) {
	if err := a.requireMode(mhost.MODE_EDIT); err != nil {
		return nil, err
	}
	return a.bones.Names(), nil
}

// BoneNames は実在するボーン名を返す。
func (a *Armature) BoneNames() []string {
	return a.bones.Names()
}

// HasBone はボーンが実在するか返す。
func (a *Armature) HasBone(name string) bool {
	return a.bones.Has(name)
}

// PoseBone はポーズボーンを取得する。
func (a *Armature) PoseBone(name string) (mhost.IPoseBone, error) {
	if err := a.requireNotEdit(); err != nil {
		return nil, err
	}
	b, ok := a.bones.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", merr.ErrNotFound, name)
	}
	return &poseBone{arm: a, bone: b, epoch: a.epoch}, nil
}

// EnsureBoneGroup はボーングループを取得し、なければ生成する。
func (a *Armature) EnsureBoneGroup(name string) (mhost.IBoneGroup, error) {
	if err := a.requireNotEdit(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("ボーングループ名が空です")
	}
	return &groupHandle{arm: a, group: a.groups.Ensure(name)}, nil
}

// BoneGroupNames はボーングループ名を返す。
func (a *Armature) BoneGroupNames() []string {
	return a.groups.Names()
}

// AddDriver はドライバーを追加する。同じパスに既存の場合はエラー。
func (a *Armature) AddDriver(dataPath string, index int) (mhost.IDriver, error) {
	if err := a.requireNotEdit(); err != nil {
		return nil, err
	}
	key := descriptor.DriverKey(dataPath, index)
	if a.drivers.Has(key) {
		return nil, fmt.Errorf("%w: %s", merr.ErrDriverExists, key)
	}
	d := a.drivers.Ensure(key)
	return &driverHandle{arm: a, driver: d}, nil
}

// RemoveDriver はドライバーを削除し、削除したか返す。
func (a *Armature) RemoveDriver(dataPath string, index int) bool {
	return a.drivers.Remove(descriptor.DriverKey(dataPath, index))
}

// DriverPaths は登録キーを昇順で返す。
func (a *Armature) DriverPaths() []string {
	keys := a.drivers.Names()
	sort.Strings(keys)
	return keys
}

// EvaluateDriver は変数値を与えてドライバーを評価する。
func (a *Armature) EvaluateDriver(dataPath string, index int, values map[string]float64) (float64, error) {
	d, ok := a.drivers.Get(descriptor.DriverKey(dataPath, index))
	if !ok {
		return 0, fmt.Errorf("%w: %s", merr.ErrNotFound, descriptor.DriverKey(dataPath, index))
	}
	return d.toDescriptor().Evaluate(values)
}

// SetCustomProp はオブジェクトのカスタムプロパティを設定する。
func (a *Armature) SetCustomProp(prop *descriptor.CustomProp) error {
	if err := validateCustomProp(prop); err != nil {
		return err
	}
	a.customProps.Set(prop.Name, prop.Clone())
	return nil
}

// CustomProp はオブジェクトのカスタムプロパティ値を返す。
func (a *Armature) CustomProp(name string) (any, bool) {
	prop, ok := a.customProps.Get(name)
	if !ok {
		return nil, false
	}
	return prop.Default, true
}

func validateCustomProp(prop *descriptor.CustomProp) error {
	if prop == nil {
		return fmt.Errorf("%w: カスタムプロパティが未設定です", merr.ErrTypeMismatch)
	}
	if err := prop.Validate(); err != nil {
		return fmt.Errorf("%w: %v", merr.ErrTypeMismatch, err)
	}
	return nil
}
