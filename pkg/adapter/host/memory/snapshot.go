// 指示: miu200521358
package memory

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

// SceneSnapshot はシーン全体の決定的なダンプを表す。
type SceneSnapshot struct {
	Armatures []ArmatureSnapshot `yaml:"armatures" json:"armatures"`
	Widgets   []WidgetSnapshot   `yaml:"widgets,omitempty" json:"widgets,omitempty"`
	Texts     []TextSnapshot     `yaml:"texts,omitempty" json:"texts,omitempty"`
}

// ArmatureSnapshot はアーマチュアのダンプを表す。
type ArmatureSnapshot struct {
	Name        string               `yaml:"name" json:"name"`
	Linked      bool                 `yaml:"linked" json:"linked"`
	Mode        string               `yaml:"mode" json:"mode"`
	Props       map[string]any       `yaml:"props" json:"props"`
	CustomProps []CustomPropSnapshot `yaml:"custom_props,omitempty" json:"custom_props,omitempty"`
	Bones       []BoneSnapshot       `yaml:"bones" json:"bones"`
	Groups      []GroupSnapshot      `yaml:"bone_groups,omitempty" json:"bone_groups,omitempty"`
	Drivers     []DriverSnapshot     `yaml:"drivers,omitempty" json:"drivers,omitempty"`
}

// CustomPropSnapshot はカスタムプロパティのダンプを表す。
type CustomPropSnapshot struct {
	Name        string  `yaml:"name" json:"name"`
	Value       any     `yaml:"value" json:"value"`
	Min         float64 `yaml:"min" json:"min"`
	Max         float64 `yaml:"max" json:"max"`
	SoftMin     float64 `yaml:"soft_min" json:"soft_min"`
	SoftMax     float64 `yaml:"soft_max" json:"soft_max"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Overridable bool    `yaml:"overridable" json:"overridable"`
}

// BoneSnapshot はボーンのダンプを表す。
type BoneSnapshot struct {
	Name            string               `yaml:"name" json:"name"`
	Edit            map[string]any       `yaml:"edit" json:"edit"`
	Pose            map[string]any       `yaml:"pose" json:"pose"`
	Data            map[string]any       `yaml:"data" json:"data"`
	PoseCustomProps []CustomPropSnapshot `yaml:"pose_custom_props,omitempty" json:"pose_custom_props,omitempty"`
	DataCustomProps []CustomPropSnapshot `yaml:"data_custom_props,omitempty" json:"data_custom_props,omitempty"`
	Constraints     []ConstraintSnapshot `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// ConstraintSnapshot は制約のダンプを表す。
type ConstraintSnapshot struct {
	Name    string                     `yaml:"name" json:"name"`
	Type    string                     `yaml:"type" json:"type"`
	Props   map[string]any             `yaml:"props" json:"props"`
	Targets []ConstraintTargetSnapshot `yaml:"targets,omitempty" json:"targets,omitempty"`
}

// ConstraintTargetSnapshot は ARMATURE 制約ターゲットのダンプを表す。
type ConstraintTargetSnapshot struct {
	Target    string  `yaml:"target" json:"target"`
	Subtarget string  `yaml:"subtarget" json:"subtarget"`
	Weight    float64 `yaml:"weight" json:"weight"`
}

// DriverSnapshot はドライバーのダンプを表す。
type DriverSnapshot struct {
	Key       string             `yaml:"key" json:"key"`
	Props     map[string]any     `yaml:"props" json:"props"`
	Variables []VariableSnapshot `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// VariableSnapshot はドライバー変数のダンプを表す。
type VariableSnapshot struct {
	Name    string           `yaml:"name" json:"name"`
	Type    string           `yaml:"type" json:"type"`
	Targets []map[string]any `yaml:"targets" json:"targets"`
}

// GroupSnapshot はボーングループのダンプを表す。
type GroupSnapshot struct {
	Name  string         `yaml:"name" json:"name"`
	Props map[string]any `yaml:"props" json:"props"`
}

// WidgetSnapshot はウィジェットのダンプを表す。
type WidgetSnapshot struct {
	Name       string `yaml:"name" json:"name"`
	Collection string `yaml:"collection" json:"collection"`
}

// TextSnapshot はテキストブロックのダンプを表す。
type TextSnapshot struct {
	Name string `yaml:"name" json:"name"`
	Body string `yaml:"body" json:"body"`
}

// idRef はIDの保存用文字列を返す。
func idRef(id *descriptor.ID) string {
	if id == nil {
		return ""
	}
	return string(id.Type) + ":" + id.Name
}

// normalize は保存と比較に使う値へ変換する。
func normalize(value any) any {
	switch v := value.(type) {
	case r3.Vec:
		return []float64{v.X, v.Y, v.Z}
	case *descriptor.ID:
		return idRef(v)
	case []bool:
		return append([]bool(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	case []int:
		return append([]int(nil), v...)
	}
	return value
}

func normalizeMap(values map[string]any) map[string]any {
	normalized := make(map[string]any, len(values))
	for k, v := range values {
		normalized[k] = normalize(v)
	}
	return normalized
}

func snapshotCustomProps(props *descriptor.IDCollection[*descriptor.CustomProp]) []CustomPropSnapshot {
	snapshots := make([]CustomPropSnapshot, 0, props.Len())
	for _, p := range props.Values() {
		snapshots = append(snapshots, CustomPropSnapshot{
			Name:        p.Name,
			Value:       normalize(p.Default),
			Min:         p.Min,
			Max:         p.Max,
			SoftMin:     p.SoftMin,
			SoftMax:     p.SoftMax,
			Description: p.Description,
			Overridable: p.Overridable,
		})
	}
	return snapshots
}

// Snapshot はアーマチュアのダンプを返す。ドライバーはキー順に並べる。
func (a *Armature) Snapshot() ArmatureSnapshot {
	snap := ArmatureSnapshot{
		Name:        a.Name(),
		Mode:        string(a.mode),
		Props:       normalizeMap(a.props),
		CustomProps: snapshotCustomProps(a.customProps),
		Bones:       make([]BoneSnapshot, 0, a.bones.Len()),
	}
	for _, b := range a.bones.Values() {
		bs := BoneSnapshot{
			Name:            b.name,
			Edit:            normalizeMap(b.edit),
			Pose:            normalizeMap(b.pose),
			Data:            normalizeMap(b.data),
			PoseCustomProps: snapshotCustomProps(b.poseCustom),
			DataCustomProps: snapshotCustomProps(b.dataCustom),
		}
		for _, con := range b.constraints.Values() {
			cs := ConstraintSnapshot{Name: con.name, Type: con.conType, Props: normalizeMap(con.props)}
			for _, t := range con.targets {
				cs.Targets = append(cs.Targets, ConstraintTargetSnapshot{
					Target:    idRef(t.target),
					Subtarget: t.subtarget,
					Weight:    t.weight,
				})
			}
			bs.Constraints = append(bs.Constraints, cs)
		}
		snap.Bones = append(snap.Bones, bs)
	}
	for _, g := range a.groups.Values() {
		snap.Groups = append(snap.Groups, GroupSnapshot{Name: g.name, Props: normalizeMap(g.props)})
	}
	drivers := a.drivers.Values()
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].key < drivers[j].key })
	for _, d := range drivers {
		ds := DriverSnapshot{Key: d.key, Props: normalizeMap(d.props)}
		for _, v := range d.variables {
			vs := VariableSnapshot{Name: v.name, Type: v.varType}
			for _, t := range v.targets {
				vs.Targets = append(vs.Targets, normalizeMap(t))
			}
			ds.Variables = append(ds.Variables, vs)
		}
		snap.Drivers = append(snap.Drivers, ds)
	}
	return snap
}

// Snapshot はシーン全体のダンプを返す。
func (s *Scene) Snapshot() SceneSnapshot {
	snap := SceneSnapshot{}
	for _, arm := range s.armatures.Values() {
		as := arm.Snapshot()
		as.Linked = s.linked[arm.Name()]
		snap.Armatures = append(snap.Armatures, as)
	}
	for _, w := range s.widgets.Values() {
		snap.Widgets = append(snap.Widgets, WidgetSnapshot{Name: w.ID.Name, Collection: w.Collection})
	}
	for _, t := range s.texts.Values() {
		snap.Texts = append(snap.Texts, TextSnapshot{Name: t.ID.Name, Body: t.Body})
	}
	return snap
}

// RestoreScene はダンプからシーンを復元する。
// JSON/YAML 経由で型を失った値はスキーマに従って戻す。
func RestoreScene(snap SceneSnapshot) (*Scene, error) {
	s := NewScene()
	for _, w := range snap.Widgets {
		if _, err := s.EnsureWidget(w.Name, w.Collection); err != nil {
			return nil, err
		}
	}
	for _, t := range snap.Texts {
		if _, err := s.EnsureText(t.Name, t.Body); err != nil {
			return nil, err
		}
	}
	for _, as := range snap.Armatures {
		s.armatures.Ensure(as.Name)
		if as.Linked {
			s.linked[as.Name] = true
		}
	}
	for _, as := range snap.Armatures {
		arm := s.ArmatureByName(as.Name)
		if err := s.restoreArmature(arm, as); err != nil {
			return nil, fmt.Errorf("アーマチュアの復元に失敗しました: %s: %w", as.Name, err)
		}
	}
	return s, nil
}

func (s *Scene) restoreArmature(arm *Armature, as ArmatureSnapshot) error {
	if as.Mode != "" {
		arm.mode = mhost.Mode(as.Mode)
	}
	if err := s.restoreMap(armatureSchema, arm.props, as.Props); err != nil {
		return err
	}
	if err := restoreCustomProps(arm.customProps, as.CustomProps); err != nil {
		return err
	}
	for _, gs := range as.Groups {
		g := arm.groups.Ensure(gs.Name)
		if err := s.restoreMap(boneGroupSchema, g.props, gs.Props); err != nil {
			return err
		}
	}
	for _, bs := range as.Bones {
		arm.bones.Ensure(bs.Name)
	}
	for _, bs := range as.Bones {
		b, _ := arm.bones.Get(bs.Name)
		if err := s.restoreMap(editBoneSchema, b.edit, bs.Edit); err != nil {
			return err
		}
		if err := s.restoreMap(poseBoneSchema, b.pose, bs.Pose); err != nil {
			return err
		}
		if err := s.restoreMap(dataBoneSchema, b.data, bs.Data); err != nil {
			return err
		}
		if err := restoreCustomProps(b.poseCustom, bs.PoseCustomProps); err != nil {
			return err
		}
		if err := restoreCustomProps(b.dataCustom, bs.DataCustomProps); err != nil {
			return err
		}
		for _, cs := range bs.Constraints {
			con := newConstraint(cs.Name, cs.Type)
			if err := s.restoreMap(con.schema, con.props, cs.Props); err != nil {
				return err
			}
			for _, ts := range cs.Targets {
				con.targets = append(con.targets, constraintTarget{
					target:    s.resolveIDRef(ts.Target),
					subtarget: ts.Subtarget,
					weight:    ts.Weight,
				})
			}
			b.constraints.Set(cs.Name, con)
		}
	}
	for _, ds := range as.Drivers {
		d := arm.drivers.Ensure(ds.Key)
		if err := s.restoreMap(driverSchema, d.props, ds.Props); err != nil {
			return err
		}
		for _, vs := range ds.Variables {
			v := &variable{name: vs.Name, varType: vs.Type}
			for _, ts := range vs.Targets {
				target := variableTargetSchema.defaults()
				if err := s.restoreMap(variableTargetSchema, target, ts); err != nil {
					return err
				}
				v.targets = append(v.targets, target)
			}
			d.variables = append(d.variables, v)
		}
	}
	return nil
}

func (s *Scene) resolveIDRef(ref string) *descriptor.ID {
	if ref == "" {
		return nil
	}
	idType, name, ok := strings.Cut(ref, ":")
	if !ok {
		return nil
	}
	return s.lookupID(descriptor.IDType(idType), name)
}

// restoreMap は保存値をスキーマの型へ戻して dst に書き込む。
func (s *Scene) restoreMap(sch schema, dst map[string]any, src map[string]any) error {
	for prop, stored := range src {
		sample, ok := sch[prop]
		if !ok {
			continue
		}
		value := s.fromStored(sample, stored)
		v, err := sch.coerce(prop, value)
		if err != nil {
			return err
		}
		dst[prop] = v
	}
	return nil
}

// fromStored は JSON/YAML 復号値を見本の型へ寄せる。
func (s *Scene) fromStored(sample any, stored any) any {
	switch sample.(type) {
	case int:
		if v, ok := stored.(float64); ok {
			return int(v)
		}
	case r3.Vec, []float64:
		if items, ok := stored.([]any); ok {
			return floatsFromAny(items)
		}
	case []bool:
		if items, ok := stored.([]any); ok {
			values := make([]bool, 0, len(items))
			for _, item := range items {
				b, _ := item.(bool)
				values = append(values, b)
			}
			return values
		}
	case *descriptor.ID:
		if ref, ok := stored.(string); ok {
			return s.resolveIDRef(ref)
		}
	}
	return stored
}

func floatsFromAny(items []any) []float64 {
	values := make([]float64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case float64:
			values = append(values, n)
		case int:
			values = append(values, float64(n))
		}
	}
	return values
}

func restoreCustomProps(dst *descriptor.IDCollection[*descriptor.CustomProp], src []CustomPropSnapshot) error {
	for _, ps := range src {
		value := ps.Value
		if items, ok := value.([]any); ok {
			value = floatsFromAny(items)
		}
		if n, ok := value.(int); ok {
			value = float64(n)
		}
		dst.Set(ps.Name, &descriptor.CustomProp{
			Name:        ps.Name,
			Default:     value,
			Min:         ps.Min,
			Max:         ps.Max,
			SoftMin:     ps.SoftMin,
			SoftMax:     ps.SoftMax,
			Description: ps.Description,
			Overridable: ps.Overridable,
		})
	}
	return nil
}
