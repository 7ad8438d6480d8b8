// 指示: miu200521358
package model

const (
	// RigWarningRawPropertyKey は生成時警告ID集合を保持する生成リグのカスタムプロパティキー。
	RigWarningRawPropertyKey = "MU_CLOUDRIG_warnings"
	// RigIDPropertyKey は生成リグを識別する rig_id のカスタムプロパティキー。
	RigIDPropertyKey = "rig_id"
	// GeneratorRigPropertyKey はメタリグ側に保持する生成先リグ名のキー。
	GeneratorRigPropertyKey = "generated_rig"
	// UIDataTextSuffix はUIメタデータのテキストブロック名の接尾辞。
	UIDataTextSuffix = "_ui.json"

	// RigWarningUnresolvedParent は親ボーン名の解決失敗警告。
	RigWarningUnresolvedParent = "RigWarningUnresolvedParent"
	// RigWarningUnresolvedHandle は bbone ハンドル名の解決失敗警告。
	RigWarningUnresolvedHandle = "RigWarningUnresolvedHandle"
	// RigWarningUnresolvedShapeTransform は custom_shape_transform の解決失敗警告。
	RigWarningUnresolvedShapeTransform = "RigWarningUnresolvedShapeTransform"
	// RigWarningUnresolvedSubtarget はコンストレイント subtarget の解決失敗警告。
	RigWarningUnresolvedSubtarget = "RigWarningUnresolvedSubtarget"
	// RigWarningZeroLengthBone は長さゼロボーンの補正警告。
	RigWarningZeroLengthBone = "RigWarningZeroLengthBone"
	// RigWarningPropertySkipped はプロパティ設定失敗による読み飛ばし警告。
	RigWarningPropertySkipped = "RigWarningPropertySkipped"
	// RigWarningDriverInvalid はドライバー式の検証警告。
	RigWarningDriverInvalid = "RigWarningDriverInvalid"
	// RigWarningBoneRenamed はホスト側で名前が変更されたボーンの警告。
	RigWarningBoneRenamed = "RigWarningBoneRenamed"
	// RigWarningBoneNotMaterialized はトポロジーパス後に追加され実体化できなかったボーンの警告。
	RigWarningBoneNotMaterialized = "RigWarningBoneNotMaterialized"
	// RigWarningElementFailed はリグ要素の構造違反による中断警告。
	RigWarningElementFailed = "RigWarningElementFailed"
	// RigWarningUnknownRigType は未登録リグタイプの警告。
	RigWarningUnknownRigType = "RigWarningUnknownRigType"
	// RigWarningWidgetMissing はウィジェット取得失敗の警告。
	RigWarningWidgetMissing = "RigWarningWidgetMissing"
)

// UIメタデータのカテゴリキー。UIスクリプトと切替オペレーターが同じキーで参照する。
const (
	UIDataIKSwitches  = "ik_switches"
	UIDataFKHinges    = "fk_hinges"
	UIDataIKStretches = "ik_stretches"
	UIDataParents     = "parents"
)
