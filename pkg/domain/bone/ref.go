// 指示: miu200521358
// Package bone はホスト反映前のボーン記述グラフを提供する。
package bone

// RefKind はボーン参照の状態を表す。
type RefKind int

const (
	// REF_UNSET は参照なし。
	REF_UNSET RefKind = iota
	// REF_BY_NAME は名前参照。
	REF_BY_NAME
	// REF_BY_INFO は記述子参照。
	REF_BY_INFO
)

// BoneRef は親やハンドルなどのボーン参照を表す。
// 名前参照と記述子参照はどちらも反映時に名前で解決する。
type BoneRef struct {
	kind RefKind
	name string
	info *BoneInfo
}

// RefName は名前参照を生成する。空文字は参照なしとする。
func RefName(name string) BoneRef {
	if name == "" {
		return BoneRef{}
	}
	return BoneRef{kind: REF_BY_NAME, name: name}
}

// RefInfo は記述子参照を生成する。nilは参照なしとする。
func RefInfo(info *BoneInfo) BoneRef {
	if info == nil {
		return BoneRef{}
	}
	return BoneRef{kind: REF_BY_INFO, info: info}
}

// Kind は参照の状態を返す。
func (r BoneRef) Kind() RefKind {
	return r.kind
}

// IsSet は参照が設定済みか返す。
func (r BoneRef) IsSet() bool {
	return r.kind != REF_UNSET
}

// Name は参照先のボーン名を返す。記述子参照は記述子の現在名を返す。
func (r BoneRef) Name() string {
	switch r.kind {
	case REF_BY_NAME:
		return r.name
	case REF_BY_INFO:
		return r.info.Name
	}
	return ""
}

// Info は記述子参照の記述子を返す。名前参照ではnil。
func (r BoneRef) Info() *BoneInfo {
	return r.info
}
