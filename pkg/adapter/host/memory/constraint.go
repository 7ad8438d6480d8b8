// 指示: miu200521358
package memory

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
)

// constraintTarget は ARMATURE 制約のターゲットを表す。
type constraintTarget struct {
	target    *descriptor.ID
	subtarget string
	weight    float64
}

// constraint は実在する制約を表す。
type constraint struct {
	name    string
	conType string
	schema  schema
	props   map[string]any
	targets []constraintTarget
}

func newConstraint(name string, constraintType string) *constraint {
	s := constraintSchema(constraintType)
	return &constraint{
		name:    name,
		conType: constraintType,
		schema:  s,
		props:   s.defaults(),
	}
}

// constraintHandle は制約ハンドル。
type constraintHandle struct {
	arm        *Armature
	constraint *constraint
}

// Name は制約名を返す。
func (h *constraintHandle) Name() string {
	return h.constraint.name
}

// Type は制約種別を返す。
func (h *constraintHandle) Type() string {
	return h.constraint.conType
}

// Set は制約プロパティを設定する。
func (h *constraintHandle) Set(prop string, value any) error {
	if err := h.arm.requireNotEdit(); err != nil {
		return err
	}
	if err := h.arm.fault(prop); err != nil {
		return err
	}
	v, err := h.constraint.schema.coerce(prop, value)
	if err != nil {
		return err
	}
	h.constraint.props[prop] = v
	return nil
}

// Get は制約プロパティを取得する。
func (h *constraintHandle) Get(prop string) (any, bool) {
	v, ok := h.constraint.props[prop]
	return copyValue(v), ok
}

// AddTarget は ARMATURE 制約にターゲットを追加する。
func (h *constraintHandle) AddTarget(target *descriptor.ID, subtarget string, weight float64) error {
	if err := h.arm.requireNotEdit(); err != nil {
		return err
	}
	if h.constraint.conType != "ARMATURE" {
		return fmt.Errorf("複数ターゲットに未対応の制約です: %s", h.constraint.conType)
	}
	h.constraint.targets = append(h.constraint.targets, constraintTarget{
		target:    target,
		subtarget: subtarget,
		weight:    weight,
	})
	return nil
}

// Targets は ARMATURE 制約のターゲット数を返す。
func (h *constraintHandle) Targets() int {
	return len(h.constraint.targets)
}
