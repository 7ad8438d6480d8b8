// 指示: miu200521358
package descriptor

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

// DriverType はドライバーの評価種別を表す。
type DriverType string

const (
	DRIVER_TYPE_SCRIPTED DriverType = "SCRIPTED"
	DRIVER_TYPE_AVERAGE  DriverType = "AVERAGE"
	DRIVER_TYPE_SUM      DriverType = "SUM"
	DRIVER_TYPE_MIN      DriverType = "MIN"
	DRIVER_TYPE_MAX      DriverType = "MAX"
)

// DriverVariableType はドライバー変数の種別を表す。
type DriverVariableType string

const (
	// VARIABLE_TYPE_SINGLE_PROP は単一プロパティ読み取り。
	VARIABLE_TYPE_SINGLE_PROP DriverVariableType = "SINGLE_PROP"
	// VARIABLE_TYPE_TRANSFORMS はボーン変形値の読み取り。
	VARIABLE_TYPE_TRANSFORMS DriverVariableType = "TRANSFORMS"
	// VARIABLE_TYPE_ROTATION_DIFF は2ボーン間の回転差。
	VARIABLE_TYPE_ROTATION_DIFF DriverVariableType = "ROTATION_DIFF"
	// VARIABLE_TYPE_LOC_DIFF は2ボーン間の距離。
	VARIABLE_TYPE_LOC_DIFF DriverVariableType = "LOC_DIFF"
)

// TargetCount は変数種別が必要とするターゲット数を返す。
func (t DriverVariableType) TargetCount() int {
	switch t {
	case VARIABLE_TYPE_ROTATION_DIFF, VARIABLE_TYPE_LOC_DIFF:
		return 2
	default:
		return 1
	}
}

// DriverVariableTarget はドライバー変数の読み取り先を表す。
// IDは既に実在するホスト実体への参照で、複製時も共有する。
type DriverVariableTarget struct {
	ID             *ID
	IDType         IDType
	BoneTarget     string
	DataPath       string
	TransformType  string
	TransformSpace string
	RotationMode   string
}

// SetField は名前指定でフィールドを設定する。
func (t *DriverVariableTarget) SetField(name string, value any) error {
	switch name {
	case "id":
		v, ok := value.(*ID)
		if !ok {
			return fieldTypeError(name, value)
		}
		t.ID = v
	case "id_type":
		v, ok := stringValue(value)
		if !ok {
			return fieldTypeError(name, value)
		}
		t.IDType = IDType(v)
	case "bone_target":
		return setString(&t.BoneTarget, name, value)
	case "data_path":
		return setString(&t.DataPath, name, value)
	case "transform_type":
		return setString(&t.TransformType, name, value)
	case "transform_space":
		return setString(&t.TransformSpace, name, value)
	case "rotation_mode":
		return setString(&t.RotationMode, name, value)
	default:
		return fmt.Errorf("%w: %s", merr.ErrUnknownProperty, name)
	}
	return nil
}

// DriverVariable はドライバー変数を表す。
type DriverVariable struct {
	Name    string
	Type    DriverVariableType
	Targets []*DriverVariableTarget
}

// Driver はホストへ未反映のドライバーを表す。
type Driver struct {
	Type       DriverType
	Expression string
	UseSelf    bool
	// Index は配列プロパティの要素番号。スカラーは -1。
	Index     int
	Variables []*DriverVariable
}

// NewDriver はスクリプト式ドライバーを生成する。
func NewDriver(expression string) *Driver {
	return &Driver{
		Type:       DRIVER_TYPE_SCRIPTED,
		Expression: expression,
		Index:      -1,
	}
}

// AddVariable は種別に応じた数のターゲットを持つ変数を追加する。
func (d *Driver) AddVariable(name string, varType DriverVariableType) *DriverVariable {
	if varType == "" {
		varType = VARIABLE_TYPE_SINGLE_PROP
	}
	v := &DriverVariable{Name: name, Type: varType}
	for i := 0; i < varType.TargetCount(); i++ {
		v.Targets = append(v.Targets, &DriverVariableTarget{IDType: ID_TYPE_OBJECT})
	}
	d.Variables = append(d.Variables, v)
	return v
}

// AddPropVariable はボーンのカスタムプロパティを読む SINGLE_PROP 変数を追加する。
func (d *Driver) AddPropVariable(name string, id *ID, dataPath string) *DriverVariable {
	v := d.AddVariable(name, VARIABLE_TYPE_SINGLE_PROP)
	v.Targets[0].ID = id
	v.Targets[0].DataPath = dataPath
	return v
}

// AddTransformVariable はボーン変形値を読む TRANSFORMS 変数を追加する。
func (d *Driver) AddTransformVariable(name string, id *ID, bone string, transformType string, space string) *DriverVariable {
	v := d.AddVariable(name, VARIABLE_TYPE_TRANSFORMS)
	v.Targets[0].ID = id
	v.Targets[0].BoneTarget = bone
	v.Targets[0].TransformType = transformType
	v.Targets[0].TransformSpace = space
	return v
}

// Variable は名前で変数を取得する。
func (d *Driver) Variable(name string) *DriverVariable {
	for _, v := range d.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Clone はドライバーを複製する。変数とターゲットは複製し、ターゲットのIDは共有する。
func (d *Driver) Clone() *Driver {
	if d == nil {
		return nil
	}
	copied := &Driver{
		Type:       d.Type,
		Expression: d.Expression,
		UseSelf:    d.UseSelf,
		Index:      d.Index,
	}
	for _, v := range d.Variables {
		cv := &DriverVariable{Name: v.Name, Type: v.Type}
		for _, t := range v.Targets {
			ct := *t
			cv.Targets = append(cv.Targets, &ct)
		}
		copied.Variables = append(copied.Variables, cv)
	}
	return copied
}

// SetField は名前指定でフィールドを設定する。
func (d *Driver) SetField(name string, value any) error {
	switch name {
	case "type":
		v, ok := stringValue(value)
		if !ok {
			return fieldTypeError(name, value)
		}
		d.Type = DriverType(v)
	case "expression":
		return setString(&d.Expression, name, value)
	case "use_self":
		v, ok := value.(bool)
		if !ok {
			return fieldTypeError(name, value)
		}
		d.UseSelf = v
	case "index":
		v, ok := value.(int)
		if !ok {
			return fieldTypeError(name, value)
		}
		d.Index = v
	default:
		return fmt.Errorf("%w: %s", merr.ErrUnknownProperty, name)
	}
	return nil
}

// Validate は変数のターゲット数と式の整合性を検証する。
func (d *Driver) Validate() error {
	if d == nil {
		return fmt.Errorf("ドライバーが未設定です")
	}
	var errs []error
	names := map[string]struct{}{}
	for _, v := range d.Variables {
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("ドライバー変数名が空です"))
		}
		if _, dup := names[v.Name]; dup {
			errs = append(errs, fmt.Errorf("ドライバー変数名が重複しています: %s", v.Name))
		}
		names[v.Name] = struct{}{}
		if len(v.Targets) != v.Type.TargetCount() {
			errs = append(errs, fmt.Errorf("ドライバー変数のターゲット数が不正です: %s type=%s count=%d",
				v.Name, v.Type, len(v.Targets)))
		}
	}
	switch d.Type {
	case DRIVER_TYPE_SCRIPTED:
		refs, err := ExpressionVars(d.Expression)
		if err != nil {
			errs = append(errs, err)
			break
		}
		var unknown []string
		for _, ref := range refs {
			if _, ok := names[ref]; !ok && !(d.UseSelf && ref == "self") {
				unknown = append(unknown, ref)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			errs = append(errs, fmt.Errorf("ドライバー式に未定義の変数があります: %s", strings.Join(unknown, ",")))
		}
	case DRIVER_TYPE_AVERAGE, DRIVER_TYPE_SUM, DRIVER_TYPE_MIN, DRIVER_TYPE_MAX:
		if len(d.Variables) == 0 {
			errs = append(errs, fmt.Errorf("集計ドライバーに変数がありません: %s", d.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("ドライバー種別が未対応です: %s", d.Type))
	}
	return errors.Join(errs...)
}

// DriverKey はデータパスと要素番号から登録キーを生成する。スカラーは要素番号を付けない。
func DriverKey(dataPath string, index int) string {
	if index < 0 {
		return dataPath
	}
	return fmt.Sprintf("%s#%d", dataPath, index)
}

// SplitDriverKey は登録キーをデータパスと要素番号に分解する。
func SplitDriverKey(key string) (string, int) {
	pos := strings.LastIndex(key, "#")
	if pos < 0 {
		return key, -1
	}
	index, err := strconv.Atoi(key[pos+1:])
	if err != nil {
		return key, -1
	}
	return key[:pos], index
}

func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

func setString(dst *string, name string, value any) error {
	v, ok := value.(string)
	if !ok {
		return fieldTypeError(name, value)
	}
	*dst = v
	return nil
}

func fieldTypeError(name string, value any) error {
	return fmt.Errorf("%w: %s=%T", merr.ErrTypeMismatch, name, value)
}
