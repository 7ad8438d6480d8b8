// 指示: miu200521358
package descriptor

import (
	"fmt"
	"reflect"

	"github.com/tiendc/go-deepcopy"
)

// CustomProp はホストへ未反映のカスタムプロパティを表す。
type CustomProp struct {
	Name        string
	Default     any
	Min         float64
	Max         float64
	SoftMin     float64
	SoftMax     float64
	Description string
	Overridable bool
}

// NewCustomProp は既定範囲 0..1 のCustomPropを生成する。
func NewCustomProp(name string, value any) *CustomProp {
	return &CustomProp{
		Name:        name,
		Default:     value,
		Min:         0,
		Max:         1,
		SoftMin:     0,
		SoftMax:     1,
		Overridable: true,
	}
}

// Clone はCustomPropを複製する。配列の既定値も複製する。
func (p *CustomProp) Clone() *CustomProp {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Default = CloneValue(p.Default)
	return &copied
}

// Validate は範囲と既定値の種類を検証する。
func (p *CustomProp) Validate() error {
	if p == nil {
		return fmt.Errorf("カスタムプロパティが未設定です")
	}
	if p.Name == "" {
		return fmt.Errorf("カスタムプロパティ名が空です")
	}
	if p.Min > p.Max {
		return fmt.Errorf("カスタムプロパティの範囲が不正です: %s min=%f max=%f", p.Name, p.Min, p.Max)
	}
	switch v := p.Default.(type) {
	case bool, string, []float64, []int, []bool:
		return nil
	case int:
		return p.validateRange(float64(v))
	case float64:
		return p.validateRange(v)
	default:
		return fmt.Errorf("カスタムプロパティの既定値が未対応です: %s %T", p.Name, p.Default)
	}
}

func (p *CustomProp) validateRange(value float64) error {
	if value < p.Min || value > p.Max {
		return fmt.Errorf("カスタムプロパティの既定値が範囲外です: %s value=%f", p.Name, value)
	}
	return nil
}

// CloneValue はプロパティ値を深く複製する。IDポインタは共有する。
func CloneValue(value any) any {
	switch v := value.(type) {
	case nil, bool, int, float64, string, *ID:
		return v
	case []float64:
		return append([]float64(nil), v...)
	case []int:
		return append([]int(nil), v...)
	case []bool:
		return append([]bool(nil), v...)
	case map[string]any:
		copied := make(map[string]any, len(v))
		for k, item := range v {
			copied[k] = CloneValue(item)
		}
		return copied
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = CloneValue(item)
		}
		return copied
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map && rv.Kind() != reflect.Slice {
		// 配列など値型はそのまま複製される
		return value
	}
	copied := reflect.New(rv.Type())
	if err := deepcopy.Copy(copied.Interface(), value); err != nil {
		return value
	}
	return copied.Elem().Interface()
}
