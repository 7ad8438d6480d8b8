// 指示: miu200521358
package memory

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// driver は実在するドライバーを表す。
type driver struct {
	key       string
	props     map[string]any
	variables []*variable
}

// variable はドライバー変数を表す。
type variable struct {
	name    string
	varType string
	targets []map[string]any
}

func newDriver(key string) *driver {
	return &driver{key: key, props: driverSchema.defaults()}
}

// toDescriptor は評価用にドライバー記述子へ変換する。
func (d *driver) toDescriptor() *descriptor.Driver {
	_, index := descriptor.SplitDriverKey(d.key)
	desc := &descriptor.Driver{Index: index}
	desc.Type = descriptor.DriverType(d.props["type"].(string))
	desc.Expression, _ = d.props["expression"].(string)
	desc.UseSelf, _ = d.props["use_self"].(bool)
	for _, v := range d.variables {
		dv := &descriptor.DriverVariable{Name: v.name, Type: descriptor.DriverVariableType(v.varType)}
		for _, t := range v.targets {
			target := &descriptor.DriverVariableTarget{}
			target.ID, _ = t["id"].(*descriptor.ID)
			target.BoneTarget, _ = t["bone_target"].(string)
			target.DataPath, _ = t["data_path"].(string)
			dv.Targets = append(dv.Targets, target)
		}
		desc.Variables = append(desc.Variables, dv)
	}
	return desc
}

// driverHandle はドライバーハンドル。
type driverHandle struct {
	arm    *Armature
	driver *driver
}

// Set はドライバープロパティを設定する。
func (h *driverHandle) Set(prop string, value any) error {
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := driverSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	h.driver.props[prop] = v
	return nil
}

// Get はドライバープロパティを取得する。
func (h *driverHandle) Get(prop string) (any, bool) {
	v, ok := h.driver.props[prop]
	return v, ok
}

// NewVariable は変数を追加する。種別に応じた数のターゲットを持つ。
func (h *driverHandle) NewVariable(name string, variableType string) (mhost.IDriverVariable, error) {
	if name == "" {
		return nil, fmt.Errorf("ドライバー変数名が空です")
	}
	for _, v := range h.driver.variables {
		if v.name == name {
			return nil, fmt.Errorf("ドライバー変数名が重複しています: %s", name)
		}
	}
	count := descriptor.DriverVariableType(variableType).TargetCount()
	v := &variable{name: name, varType: variableType}
	for i := 0; i < count; i++ {
		v.targets = append(v.targets, variableTargetSchema.defaults())
	}
	h.driver.variables = append(h.driver.variables, v)
	return &variableHandle{arm: h.arm, variable: v}, nil
}

// variableHandle はドライバー変数ハンドル。
type variableHandle struct {
	arm      *Armature
	variable *variable
}

// Name は変数名を返す。
func (h *variableHandle) Name() string {
	return h.variable.name
}

// Target は指定番号のターゲットを返す。
func (h *variableHandle) Target(index int) (mhost.IPropertyHandle, error) {
	if index < 0 || index >= len(h.variable.targets) {
		return nil, fmt.Errorf("ドライバー変数のターゲット番号が範囲外です: %s[%d]", h.variable.name, index)
	}
	return &targetHandle{arm: h.arm, props: h.variable.targets[index]}, nil
}

// targetHandle はドライバー変数ターゲットハンドル。
type targetHandle struct {
	arm   *Armature
	props map[string]any
}

// Set はターゲットプロパティを設定する。
func (h *targetHandle) Set(prop string, value any) error {
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := variableTargetSchema.coerce(prop, value)
	if err != nil {
		return err
	}
	h.props[prop] = v
	return nil
}

// Get はターゲットプロパティを取得する。
func (h *targetHandle) Get(prop string) (any, bool) {
	v, ok := h.props[prop]
	return v, ok
}
