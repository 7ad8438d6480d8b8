// 指示: miu200521358
package bone

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
)

const (
	CONSTRAINT_STRETCH_TO      = "STRETCH_TO"
	CONSTRAINT_COPY_LOCATION   = "COPY_LOCATION"
	CONSTRAINT_COPY_ROTATION   = "COPY_ROTATION"
	CONSTRAINT_COPY_SCALE      = "COPY_SCALE"
	CONSTRAINT_COPY_TRANSFORMS = "COPY_TRANSFORMS"
	CONSTRAINT_LIMIT_LOCATION  = "LIMIT_LOCATION"
	CONSTRAINT_LIMIT_ROTATION  = "LIMIT_ROTATION"
	CONSTRAINT_LIMIT_SCALE     = "LIMIT_SCALE"
	CONSTRAINT_ARMATURE        = "ARMATURE"
	CONSTRAINT_DAMPED_TRACK    = "DAMPED_TRACK"
	CONSTRAINT_IK              = "IK"
)

// ConstraintTarget は複数ターゲット制約(ARMATURE)のターゲットを表す。
// ターゲットオブジェクトは常に生成リグとする。
type ConstraintTarget struct {
	Subtarget string
	Weight    float64
}

// Constraint はホストへ未反映の制約記述子を表す。
type Constraint struct {
	Type  string
	Name  string
	Props map[string]any
	// Targets は ARMATURE 制約のターゲット一覧。
	Targets []ConstraintTarget
	// RigTarget はターゲットを生成リグとして反映時に補うか。
	RigTarget bool
	Drivers   *descriptor.IDCollection[*descriptor.Driver]
}

// ConstraintOption は AddConstraint のオプション。
type ConstraintOption func(*constraintConfig)

type constraintConfig struct {
	trueDefaults bool
	prepend      bool
	name         string
	props        map[string]any
	targets      []ConstraintTarget
	hasTargets   bool
}

// TrueDefaults は既定値表を適用せずホスト既定値のままにする。
func TrueDefaults() ConstraintOption {
	return func(c *constraintConfig) { c.trueDefaults = true }
}

// Prepend は制約を先頭へ追加する。
func Prepend() ConstraintOption {
	return func(c *constraintConfig) { c.prepend = true }
}

// ConstraintName は制約名を指定する。
func ConstraintName(name string) ConstraintOption {
	return func(c *constraintConfig) { c.name = name }
}

// Props は制約プロパティを指定する。既定値表より優先する。
func Props(props map[string]any) ConstraintOption {
	return func(c *constraintConfig) {
		if c.props == nil {
			c.props = map[string]any{}
		}
		for k, v := range props {
			c.props[k] = v
		}
	}
}

// Targets は ARMATURE 制約のターゲットを指定する。
func Targets(targets ...ConstraintTarget) ConstraintOption {
	return func(c *constraintConfig) {
		c.targets = append([]ConstraintTarget(nil), targets...)
		c.hasTargets = true
	}
}

// constraintDefaults は制約種別ごとの既定値表を返す。
func constraintDefaults(constraintType string) (map[string]any, []ConstraintTarget) {
	switch constraintType {
	case CONSTRAINT_STRETCH_TO:
		return map[string]any{"use_bulge_min": true, "use_bulge_max": true}, nil
	case CONSTRAINT_COPY_LOCATION:
		return map[string]any{"owner_space": "LOCAL", "target_space": "LOCAL", "use_offset": true}, nil
	case CONSTRAINT_COPY_ROTATION:
		return map[string]any{"owner_space": "LOCAL", "target_space": "LOCAL", "mix_mode": "BEFORE"}, nil
	case CONSTRAINT_COPY_SCALE:
		return map[string]any{"owner_space": "LOCAL", "target_space": "LOCAL", "use_offset": true, "use_add": true}, nil
	case CONSTRAINT_COPY_TRANSFORMS:
		return map[string]any{"owner_space": "LOCAL", "target_space": "LOCAL", "mix_mode": "BEFORE_FULL"}, nil
	case CONSTRAINT_LIMIT_LOCATION, CONSTRAINT_LIMIT_ROTATION, CONSTRAINT_LIMIT_SCALE:
		return map[string]any{"owner_space": "LOCAL", "use_transform_limit": true}, nil
	case CONSTRAINT_ARMATURE:
		return map[string]any{}, []ConstraintTarget{{Weight: 1.0}, {Weight: 1.0}}
	case CONSTRAINT_DAMPED_TRACK:
		return map[string]any{"track_axis": "TRACK_Y"}, nil
	case CONSTRAINT_IK:
		return map[string]any{"chain_count": 2, "use_tail": true}, nil
	}
	return map[string]any{}, nil
}

var constraintDisplayNames = map[string]string{
	CONSTRAINT_IK: "IK",
}

// ConstraintDisplayName は制約種別の既定表示名を返す。
func ConstraintDisplayName(constraintType string) string {
	if name, ok := constraintDisplayNames[constraintType]; ok {
		return name
	}
	words := strings.ReplaceAll(strings.ToLower(constraintType), "_", " ")
	return cases.Title(language.Und).String(words)
}

// AddConstraint は制約記述子を追加する。
func (b *BoneInfo) AddConstraint(constraintType string, opts ...ConstraintOption) *Constraint {
	cfg := &constraintConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	con := &Constraint{
		Type:    constraintType,
		Props:   map[string]any{},
		Drivers: newDriverCollection(),
	}
	if !cfg.trueDefaults {
		props, targets := constraintDefaults(constraintType)
		con.Props = props
		con.Targets = targets
	}
	for k, v := range cfg.props {
		con.Props[k] = v
	}
	if cfg.hasTargets {
		con.Targets = cfg.targets
	}
	if _, hasSub := con.Props["subtarget"]; hasSub {
		if _, hasTarget := con.Props["target"]; !hasTarget {
			con.RigTarget = true
		}
	}
	if constraintType == CONSTRAINT_ARMATURE && len(con.Targets) > 0 {
		con.RigTarget = true
	}

	name := cfg.name
	if name == "" {
		name = ConstraintDisplayName(constraintType)
	}
	con.Name = b.uniqueConstraintName(name)

	if cfg.prepend {
		b.Constraints = append([]*Constraint{con}, b.Constraints...)
	} else {
		b.Constraints = append(b.Constraints, con)
	}
	return con
}

func (b *BoneInfo) uniqueConstraintName(name string) string {
	if b.Constraint(name) == nil {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if b.Constraint(candidate) == nil {
			return candidate
		}
	}
}

// Prop はプロパティ値を返す。
func (c *Constraint) Prop(name string) (any, bool) {
	v, ok := c.Props[name]
	return v, ok
}

// SetProp はプロパティ値を設定する。
func (c *Constraint) SetProp(name string, value any) {
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	c.Props[name] = value
	if name == "subtarget" {
		if _, hasTarget := c.Props["target"]; !hasTarget {
			c.RigTarget = true
		}
	}
}

// Subtarget はサブターゲット名を返す。
func (c *Constraint) Subtarget() string {
	v, _ := c.Props["subtarget"].(string)
	return v
}

// PropNames は書き込み順のプロパティ名を返す。target と subtarget を先頭とする。
func (c *Constraint) PropNames() []string {
	names := make([]string, 0, len(c.Props))
	for _, first := range []string{"target", "subtarget"} {
		if _, ok := c.Props[first]; ok {
			names = append(names, first)
		}
	}
	rest := make([]string, 0, len(c.Props))
	for name := range c.Props {
		if name == "target" || name == "subtarget" {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// AddDriver は制約プロパティにドライバーを登録する。
func (c *Constraint) AddDriver(dataPath string, driver *descriptor.Driver) *descriptor.Driver {
	c.Drivers.Set(descriptor.DriverKey(dataPath, driver.Index), driver)
	return driver
}

// Clone は制約記述子を複製する。
func (c *Constraint) Clone() *Constraint {
	copied := &Constraint{
		Type:      c.Type,
		Name:      c.Name,
		Props:     make(map[string]any, len(c.Props)),
		Targets:   append([]ConstraintTarget(nil), c.Targets...),
		RigTarget: c.RigTarget,
		Drivers:   cloneDrivers(c.Drivers),
	}
	for k, v := range c.Props {
		copied.Props[k] = descriptor.CloneValue(v)
	}
	return copied
}
