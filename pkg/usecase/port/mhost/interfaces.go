// 指示: miu200521358
// Package mhost はリグ生成先ホストの操作契約を提供する。
package mhost

import (
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
)

// Mode はアーマチュアの編集モードを表す。
type Mode string

const (
	// MODE_OBJECT はオブジェクトモード。
	MODE_OBJECT Mode = "OBJECT"
	// MODE_EDIT は編集モード。ボーンの追加削除と形状変更のみ可能。
	MODE_EDIT Mode = "EDIT"
	// MODE_POSE はポーズモード。ポーズ・制約・ドライバーのみ変更可能。
	MODE_POSE Mode = "POSE"
)

const (
	// POSE_POSITION_REST はレスト姿勢表示。
	POSE_POSITION_REST = "REST"
	// POSE_POSITION_POSE はポーズ姿勢表示。
	POSE_POSITION_POSE = "POSE"
)

// IPropertyHandle は名前指定でプロパティを読み書きできる実体を表す。
// Set は未知のプロパティで merr.ErrUnknownProperty、型不一致で merr.ErrTypeMismatch を返す。
type IPropertyHandle interface {
	Set(prop string, value any) error
	Get(prop string) (any, bool)
}

// IScene はホストのシーン(ファイル)を表す。
type IScene interface {
	// Armature はシーンにリンク済みのアーマチュアを名前で取得する。
	Armature(name string) (IArmature, bool)
	// FileArmature はシーン未リンクを含むファイル全体から取得する。
	FileArmature(name string) (IArmature, bool)
	NewArmature(name string) (IArmature, error)
	LinkArmature(armature IArmature) error
	ArmatureNames() []string
	// EnsureWidget は名前でウィジェットを取得し、なければ生成する。
	EnsureWidget(name string, collection string) (*descriptor.ID, error)
	// EnsureText はテキストブロックを生成または上書きする。
	EnsureText(name string, body string) (*descriptor.ID, error)
	Text(name string) (string, bool)
}

// IArmature はアーマチュアオブジェクトを表す。
// Set/Get はアーマチュアデータのプロパティ(pose_position 等)を扱う。
type IArmature interface {
	IPropertyHandle
	ID() *descriptor.ID
	Name() string
	Mode() Mode
	SetMode(mode Mode) error
	// BeginTopologyPhase は編集モードへ入る。既に編集モードなら何もしない。
	BeginTopologyPhase() error
	// BeginPropertyPhase はポーズモードへ入る。編集ボーンのハンドルは無効になる。
	BeginPropertyPhase() error

	EditBone(name string) (IEditBone, error)
	// NewEditBone はボーンを追加する。名前が衝突した場合はホストが別名を付ける。
	NewEditBone(name string) (IEditBone, error)
	RemoveEditBone(name string) error
	EditBoneNames() ([]string, error)

	// BoneNames はモードに関係なく実在するボーン名を返す。
	BoneNames() []string
	HasBone(name string) bool
	PoseBone(name string) (IPoseBone, error)

	EnsureBoneGroup(name string) (IBoneGroup, error)
	BoneGroupNames() []string

	// AddDriver はデータパスにドライバーを追加する。既存の場合は merr.ErrDriverExists。
	AddDriver(dataPath string, index int) (IDriver, error)
	RemoveDriver(dataPath string, index int) bool
	DriverPaths() []string

	SetCustomProp(prop *descriptor.CustomProp) error
	CustomProp(name string) (any, bool)
}

// IEditBone は編集モード中のみ有効なボーンを表す。
// parent と bbone_custom_handle_start/end はボーン名で設定する。
type IEditBone interface {
	IPropertyHandle
	Name() string
}

// IDataBone はボーンデータ側のプロパティを表す。
type IDataBone interface {
	IPropertyHandle
	SetCustomProp(prop *descriptor.CustomProp) error
}

// IPoseBone はポーズモード中のボーンを表す。
// custom_shape はウィジェット名、custom_shape_transform はボーン名、bone_group はグループ名で設定する。
type IPoseBone interface {
	IPropertyHandle
	Name() string
	DataBone() IDataBone
	SetCustomProp(prop *descriptor.CustomProp) error
	NewConstraint(constraintType string, name string) (IConstraint, error)
	ConstraintNames() []string
	RemoveConstraint(name string) bool
}

// IConstraint は制約を表す。
type IConstraint interface {
	IPropertyHandle
	Name() string
	Type() string
	// AddTarget は複数ターゲット制約にターゲットを追加する。
	AddTarget(target *descriptor.ID, subtarget string, weight float64) error
}

// IDriver はドライバーを表す。
type IDriver interface {
	IPropertyHandle
	NewVariable(name string, variableType string) (IDriverVariable, error)
}

// IDriverVariable はドライバー変数を表す。
type IDriverVariable interface {
	Name() string
	Target(index int) (IPropertyHandle, error)
}

// IBoneGroup はボーングループを表す。
type IBoneGroup interface {
	IPropertyHandle
	Name() string
}
