// 指示: miu200521358
package rigs

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

const (
	PREFIX_ORG = "ORG"
	PREFIX_DEF = "DEF"
	PREFIX_MCH = "MCH"
	PREFIX_STR = "STR"
	PREFIX_FK  = "FK"
	PREFIX_IK  = "IK"
	PREFIX_WGT = "WGT"
)

// UIEntry はUIメタデータの1列を表す。
type UIEntry struct {
	PropBone string   `json:"prop_bone"`
	PropID   string   `json:"prop_id"`
	Texts    []string `json:"texts,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Bones    []string `json:"bones,omitempty"`
}

// UIData はカテゴリ→列名→エントリのUIメタデータを表す。
type UIData map[string]map[string]UIEntry

// Add はエントリを登録する。同じ列名は置き換える。
func (u UIData) Add(category string, column string, entry UIEntry) {
	if u[category] == nil {
		u[category] = map[string]UIEntry{}
	}
	u[category][column] = entry
}

// Entry はエントリを取得する。
func (u UIData) Entry(category string, column string) (UIEntry, bool) {
	entry, ok := u[category][column]
	return entry, ok
}

// ParentCandidate は親切替の候補を表す。
type ParentCandidate struct {
	Label string
	Bone  string
}

// Context は1回の生成でリグ要素が共有する状態を表す。
type Context struct {
	Metarig *metarig.Metarig
	Options metarig.GenerationOptions
	Bones   *bone.BoneInfoContainer
	// RigID は生成リグ自身のID。制約とドライバーのターゲットに使う。
	RigID  *descriptor.ID
	Report *merr.Report
	UI     UIData
}

// NewContext はContextを生成する。
func NewContext(meta *metarig.Metarig, bones *bone.BoneInfoContainer, rigID *descriptor.ID, report *merr.Report) *Context {
	opts := meta.Options
	opts.Normalize()
	return &Context{
		Metarig: meta,
		Options: opts,
		Bones:   bones,
		RigID:   rigID,
		Report:  report,
		UI:      UIData{},
	}
}

// Prefixed は接頭辞付きのボーン名を返す。
func (c *Context) Prefixed(prefix string, name string) string {
	return prefix + c.Options.PrefixSeparator + name
}

// OrgName はメタリグボーンに対応する ORG ボーン名を返す。
func (c *Context) OrgName(name string) string {
	return c.Prefixed(PREFIX_ORG, name)
}

// OrgParentName はメタリグ上の親に対応する ORG ボーン名を返す。親がなければルート名。
func (c *Context) OrgParentName(meta *metarig.MetaBone) string {
	if meta.Parent != "" && c.Metarig.Bone(meta.Parent) != nil {
		return c.OrgName(meta.Parent)
	}
	if c.RootBone() != nil {
		return c.Options.RootName
	}
	return ""
}

// LayersFor は接頭辞に対応するレイヤー番号を返す。
func (c *Context) LayersFor(prefix string) []int {
	switch prefix {
	case PREFIX_DEF:
		return c.Options.DefLayers
	case PREFIX_MCH:
		return c.Options.MchLayers
	case PREFIX_ORG:
		return c.Options.OrgLayers
	}
	return []int{0}
}

// RootBone はルートボーン記述子を返す。作成しない設定ではnil。
func (c *Context) RootBone() *bone.BoneInfo {
	if !c.Options.CreateRoot {
		return nil
	}
	return c.Bones.Find(c.Options.RootName)
}

// RootCandidates はルートを親切替候補として返す。
func (c *Context) RootCandidates() []ParentCandidate {
	if c.RootBone() == nil {
		return nil
	}
	return []ParentCandidate{{Label: "Root", Bone: c.Options.RootName}}
}

// PropertiesBone は切替用カスタムプロパティを持つボーンを返す。なければ生成する。
func (c *Context) PropertiesBone() *bone.BoneInfo {
	if b := c.Bones.Find(c.Options.PropertiesName); b != nil {
		return b
	}
	opts := []bone.Option{
		bone.WithHead(r3.Vec{}),
		bone.WithTail(r3.Vec{Z: 0.5}),
		bone.WithDeform(false),
		bone.WithShape(c.Prefixed(PREFIX_WGT, "properties")),
	}
	if c.RootBone() != nil {
		opts = append(opts, bone.WithParentName(c.Options.RootName))
	}
	return c.Bones.Bone(c.Options.PropertiesName, opts...)
}

// PropDriver はプロパティボーンのカスタムプロパティを1変数で読むドライバーを生成する。
func (c *Context) PropDriver(expression string, variable string, prop string) *descriptor.Driver {
	d := descriptor.NewDriver(expression)
	d.AddPropVariable(variable, c.RigID, mhost.PoseBonePath(c.Options.PropertiesName, mhost.CustomPropPath(prop)))
	return d
}

// Warn は警告をログへ出力し、レポートへ記録する。
func (c *Context) Warn(id string, element string, boneName string, format string, params ...any) {
	w := c.Report.Warn(id, element, boneName, format, params...)
	logRigsWarn("%s", w.String())
}

// SplitSide は名前を左右接尾辞の前後に分ける。接尾辞がなければ side は空。
func SplitSide(name string, separator string) (string, string) {
	for _, side := range []string{"L", "R", "l", "r"} {
		suffix := separator + side
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), strings.ToUpper(side)
		}
	}
	return name, ""
}

// JoinSide は左右接尾辞を付ける。
func JoinSide(base string, side string, separator string) string {
	if side == "" {
		return base
	}
	return base + separator + side
}

// UILabel はボーン名からUI表示名を返す。
func UILabel(name string, separator string) string {
	base, side := SplitSide(name, separator)
	words := strings.Join(strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' || r == '.' }), " ")
	label := cases.Title(language.English).String(words)
	if side != "" {
		label += " " + side
	}
	return label
}

func logRigsWarn(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Warn(format, params...)
}

func logRigsVerbose(format string, params ...any) {
	logger := logging.DefaultLogger()
	if logger == nil {
		return
	}
	logger.Verbose(logging.VERBOSE_STAGE, format, params...)
}
