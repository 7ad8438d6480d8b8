// 指示: miu200521358
// Package io_common は入出力アダプター共通のエラーを提供する。
package io_common

import (
	"errors"
	"fmt"
)

// IoErrorKind は入出力エラーの分類を表す。
type IoErrorKind string

const (
	IO_EXT_INVALID          IoErrorKind = "ext_invalid"
	IO_FILE_NOT_FOUND       IoErrorKind = "file_not_found"
	IO_PARSE_FAILED         IoErrorKind = "parse_failed"
	IO_FORMAT_NOT_SUPPORTED IoErrorKind = "format_not_supported"
	IO_SAVE_FAILED          IoErrorKind = "save_failed"
)

// IoError は入出力エラーを表す。
type IoError struct {
	Kind    IoErrorKind
	Message string
	Err     error
}

// Error はエラーメッセージを返す。
func (e *IoError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *IoError) Unwrap() error {
	return e.Err
}

func newIoError(kind IoErrorKind, err error, format string, params ...any) error {
	return &IoError{Kind: kind, Message: fmt.Sprintf(format, params...), Err: err}
}

// NewIoExtInvalid は拡張子不正エラーを生成する。
func NewIoExtInvalid(path string, err error) error {
	return newIoError(IO_EXT_INVALID, err, "読み込めない拡張子です: %s", path)
}

// NewIoFileNotFound はファイル未検出エラーを生成する。
func NewIoFileNotFound(path string, err error) error {
	return newIoError(IO_FILE_NOT_FOUND, err, "ファイルが見つかりません: %s", path)
}

// NewIoParseFailed は解析失敗エラーを生成する。
func NewIoParseFailed(format string, err error, params ...any) error {
	return newIoError(IO_PARSE_FAILED, err, format, params...)
}

// NewIoFormatNotSupported は未対応形式エラーを生成する。
func NewIoFormatNotSupported(format string, err error, params ...any) error {
	return newIoError(IO_FORMAT_NOT_SUPPORTED, err, format, params...)
}

// NewIoSaveFailed は保存失敗エラーを生成する。
func NewIoSaveFailed(format string, err error, params ...any) error {
	return newIoError(IO_SAVE_FAILED, err, format, params...)
}

// KindOf はエラーの分類を返す。入出力エラーでなければ空文字。
func KindOf(err error) IoErrorKind {
	var ioErr *IoError
	if errors.As(err, &ioErr) {
		return ioErr.Kind
	}
	return ""
}
