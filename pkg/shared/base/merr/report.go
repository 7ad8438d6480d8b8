// 指示: miu200521358
package merr

import (
	"fmt"
	"sort"
	"strings"
)

// Warning は生成時の非致命的な警告1件を表す。
type Warning struct {
	ID      string
	Element string
	Bone    string
	Message string
}

// String は警告の表示文字列を返す。
func (w Warning) String() string {
	target := w.Bone
	if w.Element != "" {
		target = w.Element + ":" + w.Bone
	}
	return fmt.Sprintf("[%s] %s %s", w.ID, target, w.Message)
}

// Report は1回の生成で発生した警告と失敗要素を集計する。
type Report struct {
	Warnings       []Warning
	FailedElements map[string]error
}

// NewReport はReportを生成する。
func NewReport() *Report {
	return &Report{FailedElements: map[string]error{}}
}

// Warn は警告を追加する。
func (r *Report) Warn(id string, element string, bone string, format string, params ...any) Warning {
	w := Warning{ID: id, Element: element, Bone: bone, Message: fmt.Sprintf(format, params...)}
	if r != nil {
		r.Warnings = append(r.Warnings, w)
	}
	return w
}

// Fail は要素の失敗を記録する。
func (r *Report) Fail(element string, err error) {
	if r == nil {
		return
	}
	if _, exists := r.FailedElements[element]; exists {
		return
	}
	r.FailedElements[element] = err
}

// HasWarning は指定IDの警告があるか返す。
func (r *Report) HasWarning(id string) bool {
	return r.CountWarnings(id) > 0
}

// CountWarnings は指定IDの警告件数を返す。
func (r *Report) CountWarnings(id string) int {
	if r == nil {
		return 0
	}
	count := 0
	for _, w := range r.Warnings {
		if w.ID == id {
			count++
		}
	}
	return count
}

// FailedElementNames は失敗要素名を名前順で返す。
func (r *Report) FailedElementNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.FailedElements))
	for name := range r.FailedElements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary は利用者向けの1行要約を返す。
func (r *Report) Summary() string {
	if r == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("warnings=%d", len(r.Warnings))}
	if failed := r.FailedElementNames(); len(failed) > 0 {
		parts = append(parts, "failed="+strings.Join(failed, ","))
	}
	return strings.Join(parts, " ")
}
