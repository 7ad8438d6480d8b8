// 指示: miu200521358
package descriptor

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/Knetic/govaluate.v3"
)

var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"min":   foldFloats(math.Min),
	"max":   foldFloats(math.Max),
	"abs":   unaryFloat(math.Abs),
	"floor": unaryFloat(math.Floor),
	"ceil":  unaryFloat(math.Ceil),
	"clamp": func(args ...interface{}) (interface{}, error) {
		values, err := floatArgs("clamp", args)
		if err != nil {
			return nil, err
		}
		switch len(values) {
		case 1:
			return math.Max(0, math.Min(1, values[0])), nil
		case 3:
			return math.Max(values[1], math.Min(values[2], values[0])), nil
		}
		return nil, fmt.Errorf("clamp の引数数が不正です: %d", len(values))
	},
}

func floatArgs(name string, args []interface{}) ([]float64, error) {
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case float64:
			values = append(values, v)
		case bool:
			if v {
				values = append(values, 1)
			} else {
				values = append(values, 0)
			}
		default:
			return nil, fmt.Errorf("%s の引数が数値ではありません: %T", name, arg)
		}
	}
	return values, nil
}

func foldFloats(fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		values, err := floatArgs("fold", args)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("引数がありません")
		}
		result := values[0]
		for _, v := range values[1:] {
			result = fn(result, v)
		}
		return result, nil
	}
}

func unaryFloat(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		values, err := floatArgs("unary", args)
		if err != nil {
			return nil, err
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("引数数が不正です: %d", len(values))
		}
		return fn(values[0]), nil
	}
}

func parseExpression(expression string) (*govaluate.EvaluableExpression, error) {
	if expression == "" {
		return nil, fmt.Errorf("ドライバー式が空です")
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, expressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("ドライバー式の解析に失敗しました: %s: %w", expression, err)
	}
	return expr, nil
}

// ExpressionVars は式が参照する変数名を重複なしの昇順で返す。
func ExpressionVars(expression string) ([]string, error) {
	expr, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	names := make([]string, 0)
	for _, token := range expr.Tokens() {
		if token.Kind != govaluate.VARIABLE {
			continue
		}
		name, ok := token.Value.(string)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Evaluate は変数値を与えてドライバーの値を計算する。
func (d *Driver) Evaluate(values map[string]float64) (float64, error) {
	if d == nil {
		return 0, fmt.Errorf("ドライバーが未設定です")
	}
	switch d.Type {
	case DRIVER_TYPE_SCRIPTED:
		expr, err := parseExpression(d.Expression)
		if err != nil {
			return 0, err
		}
		params := make(map[string]interface{}, len(values))
		for k, v := range values {
			params[k] = v
		}
		result, err := expr.Evaluate(params)
		if err != nil {
			return 0, fmt.Errorf("ドライバー式の評価に失敗しました: %s: %w", d.Expression, err)
		}
		switch v := result.(type) {
		case float64:
			return v, nil
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("ドライバー式の結果が数値ではありません: %T", result)
	case DRIVER_TYPE_AVERAGE, DRIVER_TYPE_SUM, DRIVER_TYPE_MIN, DRIVER_TYPE_MAX:
		if len(d.Variables) == 0 {
			return 0, fmt.Errorf("集計ドライバーに変数がありません: %s", d.Type)
		}
		collected := make([]float64, 0, len(d.Variables))
		for _, v := range d.Variables {
			value, ok := values[v.Name]
			if !ok {
				return 0, fmt.Errorf("ドライバー変数の値がありません: %s", v.Name)
			}
			collected = append(collected, value)
		}
		return aggregate(d.Type, collected), nil
	}
	return 0, fmt.Errorf("ドライバー種別が未対応です: %s", d.Type)
}

func aggregate(driverType DriverType, values []float64) float64 {
	result := values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		switch driverType {
		case DRIVER_TYPE_MIN:
			result = math.Min(result, v)
		case DRIVER_TYPE_MAX:
			result = math.Max(result, v)
		}
	}
	switch driverType {
	case DRIVER_TYPE_SUM:
		return sum
	case DRIVER_TYPE_AVERAGE:
		return sum / float64(len(values))
	}
	return result
}
