// 指示: miu200521358
package bone

import (
	"fmt"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
)

const (
	// GROUP_PRESET_CUSTOM は独自色を使うプリセット番号。
	GROUP_PRESET_CUSTOM = -1
	// GROUP_PRESET_COUNT はテーマプリセット数。
	GROUP_PRESET_COUNT = 20
)

// Color はRGB色を表す。
type Color [3]float64

// BoneGroup はボーングループ記述子を表す。
type BoneGroup struct {
	Name   string
	Preset int
	Normal Color
	Select Color
	Active Color

	bones []*BoneInfo
}

// ColorSet はホストの色セット名を返す。
func (g *BoneGroup) ColorSet() string {
	if g.Preset < 0 || g.Preset >= GROUP_PRESET_COUNT {
		return "CUSTOM"
	}
	return fmt.Sprintf("THEME%02d", g.Preset+1)
}

// Bones は所属ボーン一覧を返す。
func (g *BoneGroup) Bones() []*BoneInfo {
	return append([]*BoneInfo(nil), g.bones...)
}

// Has はボーンが所属しているか返す。
func (g *BoneGroup) Has(b *BoneInfo) bool {
	for _, member := range g.bones {
		if member == b {
			return true
		}
	}
	return false
}

// Len は所属ボーン数を返す。
func (g *BoneGroup) Len() int {
	return len(g.bones)
}

// attach はボーンを所属させる。旧グループからは外す。
func (g *BoneGroup) attach(b *BoneInfo) {
	if b.group == g {
		return
	}
	if b.group != nil {
		b.group.detach(b)
	}
	g.bones = append(g.bones, b)
	b.group = g
}

// detach はボーンを所属から外す。
func (g *BoneGroup) detach(b *BoneInfo) {
	for i, member := range g.bones {
		if member == b {
			g.bones = append(g.bones[:i], g.bones[i+1:]...)
			break
		}
	}
	if b.group == g {
		b.group = nil
	}
}

// BoneGroupContainer は生成全体で名前一意のボーングループを保持する。
type BoneGroupContainer struct {
	groups *descriptor.IDCollection[*BoneGroup]
}

// NewBoneGroupContainer はBoneGroupContainerを生成する。
func NewBoneGroupContainer() *BoneGroupContainer {
	return &BoneGroupContainer{
		groups: descriptor.NewIDCollection(func(name string) *BoneGroup {
			return &BoneGroup{Name: name, Preset: GROUP_PRESET_CUSTOM}
		}),
	}
}

// Ensure は既存グループを返すか、プリセットと色を指定して生成する。
// colors は通常・選択・アクティブの順。
func (c *BoneGroupContainer) Ensure(name string, preset int, colors ...Color) *BoneGroup {
	if g, ok := c.groups.Get(name); ok {
		return g
	}
	g := c.groups.Ensure(name)
	g.Preset = preset
	for i, color := range colors {
		switch i {
		case 0:
			g.Normal = color
		case 1:
			g.Select = color
		case 2:
			g.Active = color
		}
	}
	return g
}

// Get は名前でグループを取得する。存在しない場合はnil。
func (c *BoneGroupContainer) Get(name string) *BoneGroup {
	g, ok := c.groups.Get(name)
	if !ok {
		return nil
	}
	return g
}

// Groups は生成順のグループ一覧を返す。
func (c *BoneGroupContainer) Groups() []*BoneGroup {
	return c.groups.Values()
}

// AssignBone はボーンをグループへ排他的に所属させる。
func (c *BoneGroupContainer) AssignBone(group *BoneGroup, b *BoneInfo) {
	if group == nil || b == nil {
		return
	}
	group.attach(b)
}

// RemoveBone はボーンを所属グループから外す。
func (c *BoneGroupContainer) RemoveBone(b *BoneInfo) {
	if b == nil || b.group == nil {
		return
	}
	b.group.detach(b)
}

// MakeReal は所属ボーンを持つグループのみ ensure で実体化する。
// ensure はグループ名で冪等であること。
func (c *BoneGroupContainer) MakeReal(ensure func(group *BoneGroup) error) ([]string, error) {
	made := make([]string, 0)
	for _, g := range c.groups.Values() {
		if g.Len() == 0 {
			continue
		}
		if err := ensure(g); err != nil {
			return made, fmt.Errorf("ボーングループの作成に失敗しました: %s: %w", g.Name, err)
		}
		made = append(made, g.Name)
	}
	return made, nil
}
