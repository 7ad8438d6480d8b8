// 指示: miu200521358
// Package merr はリグ生成のエラー分類と警告集計を提供する。
package merr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind はエラー分類を表す。
type ErrorKind int

const (
	// KindUnresolvedReference は名前参照の解決失敗。警告で継続する。
	KindUnresolvedReference ErrorKind = iota + 1
	// KindTypeMismatch はプロパティ型の不一致。該当プロパティのみ飛ばす。
	KindTypeMismatch
	// KindStructural はリグ要素の構造違反。要素単位で中断する。
	KindStructural
	// KindHost はホスト側の失敗。生成全体を中断する。
	KindHost
)

// String は分類名を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindUnresolvedReference:
		return "unresolved_reference"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindStructural:
		return "structural"
	case KindHost:
		return "host"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownProperty は存在しないプロパティへの設定。
	ErrUnknownProperty = errors.New("unknown property")
	// ErrTypeMismatch はプロパティ値の型不一致。
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrStaleHandle はモード切替で無効化されたハンドルの使用。
	ErrStaleHandle = errors.New("stale handle")
	// ErrWrongMode は現在のモードで許可されない操作。
	ErrWrongMode = errors.New("wrong mode")
	// ErrDriverExists は同一パスのドライバー重複。
	ErrDriverExists = errors.New("driver already exists")
	// ErrZeroLength は長さゼロのボーン。
	ErrZeroLength = errors.New("zero length bone")
	// ErrNotFound は名前解決の失敗。
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference は自己参照や循環など設定できない参照。
	ErrInvalidReference = errors.New("invalid reference")
)

// RigError はリグ生成中のエラーを表す。
type RigError struct {
	Kind     ErrorKind
	Element  string
	Bone     string
	Property string
	Err      error
}

// Error はエラー文字列を返す。
func (e *RigError) Error() string {
	parts := make([]string, 0, 4)
	if e.Element != "" {
		parts = append(parts, "element="+e.Element)
	}
	if e.Bone != "" {
		parts = append(parts, "bone="+e.Bone)
	}
	if e.Property != "" {
		parts = append(parts, "property="+e.Property)
	}
	msg := e.Kind.String()
	if len(parts) > 0 {
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap は元エラーを返す。
func (e *RigError) Unwrap() error {
	return e.Err
}

// NewStructural は構造違反エラーを生成する。
func NewStructural(element string, format string, params ...any) error {
	return &RigError{Kind: KindStructural, Element: element, Err: fmt.Errorf(format, params...)}
}

// NewHost はホスト失敗エラーを生成する。
func NewHost(bone string, err error) error {
	return &RigError{Kind: KindHost, Bone: bone, Err: err}
}

// NewUnresolved は名前解決失敗エラーを生成する。
func NewUnresolved(bone string, property string, target string) error {
	return &RigError{
		Kind:     KindUnresolvedReference,
		Bone:     bone,
		Property: property,
		Err:      fmt.Errorf("%w: %s", ErrNotFound, target),
	}
}

// KindOf はエラー分類を返す。RigErrorでない場合は0。
func KindOf(err error) ErrorKind {
	var rigErr *RigError
	if errors.As(err, &rigErr) {
		return rigErr.Kind
	}
	return 0
}

// IsStructural は構造違反か判定する。
func IsStructural(err error) bool {
	return KindOf(err) == KindStructural
}
