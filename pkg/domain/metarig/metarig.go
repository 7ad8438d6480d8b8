// 指示: miu200521358
// Package metarig は生成元メタリグのデータを提供する。
package metarig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// RIG_PREFIX は生成リグ名の接頭辞。
const RIG_PREFIX = "RIG-"

// Params はリグ種別ごとのパラメータを表す。
type Params map[string]any

// String は文字列パラメータを返す。
func (p Params) String(key string, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// Int は整数パラメータを返す。YAML由来の実数も受け付ける。
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// Float は実数パラメータを返す。
func (p Params) Float(key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

// Bool は真偽パラメータを返す。
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// MetaBone はメタリグのボーンを表す。
type MetaBone struct {
	Name          string
	Parent        string
	Head          r3.Vec
	Tail          r3.Vec
	Roll          float64
	BBoneSegments int
	UseConnect    bool
	UseDeform     bool
	RigType       string
	Params        Params
}

// BoneHead はヘッド位置を返す。
func (b *MetaBone) BoneHead() r3.Vec { return b.Head }

// BoneTail はテール位置を返す。
func (b *MetaBone) BoneTail() r3.Vec { return b.Tail }

// BoneRoll はロールを返す。
func (b *MetaBone) BoneRoll() float64 { return b.Roll }

// Metarig はメタリグ全体を表す。
type Metarig struct {
	Name          string
	FormatVersion string
	Path          string
	Options       GenerationOptions
	Bones         []*MetaBone
	// GeneratedRig は前回生成したリグ名。
	GeneratedRig string
}

// Bone は名前でボーンを取得する。存在しない場合はnil。
func (m *Metarig) Bone(name string) *MetaBone {
	for _, b := range m.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Roots は親を持たないボーンを記述順で返す。
func (m *Metarig) Roots() []*MetaBone {
	roots := make([]*MetaBone, 0)
	for _, b := range m.Bones {
		if b.Parent == "" || m.Bone(b.Parent) == nil {
			roots = append(roots, b)
		}
	}
	return roots
}

// Children は直下の子ボーンを記述順で返す。
func (m *Metarig) Children(name string) []*MetaBone {
	children := make([]*MetaBone, 0)
	for _, b := range m.Bones {
		if b.Parent == name {
			children = append(children, b)
		}
	}
	return children
}

// RigBones はリグ種別を持つボーンを親から子への深さ優先順で返す。
func (m *Metarig) RigBones() []*MetaBone {
	ordered := make([]*MetaBone, 0)
	var walk func(b *MetaBone)
	walk = func(b *MetaBone) {
		if b.RigType != "" {
			ordered = append(ordered, b)
		}
		for _, child := range m.Children(b.Name) {
			walk(child)
		}
	}
	for _, root := range m.Roots() {
		walk(root)
	}
	return ordered
}

// RigName は生成リグ名を返す。
func (m *Metarig) RigName() string {
	if m.Options.TargetRigName != "" {
		return m.Options.TargetRigName
	}
	return RIG_PREFIX + m.Name
}

// Validate は名前の重複と親の循環を検証する。
func (m *Metarig) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("メタリグ名が空です")
	}
	seen := map[string]struct{}{}
	for _, b := range m.Bones {
		if b.Name == "" {
			return fmt.Errorf("メタリグのボーン名が空です")
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("メタリグのボーン名が重複しています: %s", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	for _, b := range m.Bones {
		visited := map[string]struct{}{b.Name: {}}
		for parent := m.Bone(b.Parent); parent != nil; parent = m.Bone(parent.Parent) {
			if _, loop := visited[parent.Name]; loop {
				return fmt.Errorf("メタリグの親子関係が循環しています: %s", b.Name)
			}
			visited[parent.Name] = struct{}{}
		}
	}
	return nil
}
