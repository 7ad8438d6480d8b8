// 指示: miu200521358
package memory

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

// schema はプロパティ名と既定値(型の見本)の対応を表す。
type schema map[string]any

func boolSlice(n int, on ...int) []bool {
	values := make([]bool, n)
	for _, idx := range on {
		values[idx] = true
	}
	return values
}

var armatureSchema = schema{
	"pose_position": "POSE",
	"display_type":  "OCTAHEDRAL",
	"show_axes":     false,
}

var editBoneSchema = schema{
	"head":                      r3.Vec{},
	"tail":                      r3.Vec{},
	"roll":                      0.0,
	"parent":                    "",
	"bbone_x":                   0.1,
	"bbone_z":                   0.1,
	"bbone_segments":            1,
	"bbone_curveinx":            0.0,
	"bbone_curveinz":            0.0,
	"bbone_curveoutx":           0.0,
	"bbone_curveoutz":           0.0,
	"bbone_rollin":              0.0,
	"bbone_rollout":             0.0,
	"bbone_easein":              1.0,
	"bbone_easeout":             1.0,
	"bbone_scalein":             r3.Vec{X: 1, Y: 1, Z: 1},
	"bbone_scaleout":            r3.Vec{X: 1, Y: 1, Z: 1},
	"bbone_handle_type_start":   "AUTO",
	"bbone_handle_type_end":     "AUTO",
	"bbone_custom_handle_start": "",
	"bbone_custom_handle_end":   "",
	"envelope_distance":         0.25,
	"envelope_weight":           1.0,
	"head_radius":               0.1,
	"tail_radius":               0.1,
	"use_deform":                true,
	"use_connect":               false,
	"use_local_location":        true,
	"use_inherit_rotation":      true,
	"use_endroll_as_inroll":     false,
	"inherit_scale":             "FULL",
	"layers":                    boolSlice(32, 0),
}

// editBoneRefProps はボーン名で他ボーンを参照する編集プロパティ。
var editBoneRefProps = []string{"parent", "bbone_custom_handle_start", "bbone_custom_handle_end"}

var poseBoneSchema = schema{
	"rotation_mode":          "QUATERNION",
	"location":               r3.Vec{},
	"rotation_quaternion":    []float64{1, 0, 0, 0},
	"rotation_euler":         r3.Vec{},
	"scale":                  r3.Vec{X: 1, Y: 1, Z: 1},
	"lock_location":          boolSlice(3),
	"lock_rotation":          boolSlice(3),
	"lock_rotation_w":        false,
	"lock_scale":             boolSlice(3),
	"custom_shape":           "",
	"custom_shape_scale":     1.0,
	"custom_shape_transform": "",
	"bone_group":             "",
	"ik_stretch":             0.0,
	"lock_ik_x":              false,
	"lock_ik_y":              false,
	"lock_ik_z":              false,
}

var dataBoneSchema = schema{
	"hide":          false,
	"hide_select":   false,
	"bbone_easein":  0.0,
	"bbone_easeout": 0.0,
}

var constraintCommonSchema = schema{
	"influence":    1.0,
	"mute":         false,
	"owner_space":  "WORLD",
	"target_space": "WORLD",
	"target":       (*descriptor.ID)(nil),
	"subtarget":    "",
}

var xyzFlags = schema{
	"use_x":    true,
	"use_y":    true,
	"use_z":    true,
	"invert_x": false,
	"invert_y": false,
	"invert_z": false,
}

func limitSchema(value float64, useKey string) schema {
	s := schema{"use_transform_limit": false}
	for _, axis := range []string{"x", "y", "z"} {
		s["min_"+axis] = value
		s["max_"+axis] = value
		if useKey == "" {
			s["use_min_"+axis] = false
			s["use_max_"+axis] = false
		} else {
			s[useKey+axis] = false
		}
	}
	return s
}

var constraintTypeSchemas = map[string]schema{
	"STRETCH_TO": {
		"use_bulge_min":   false,
		"use_bulge_max":   false,
		"bulge":           1.0,
		"rest_length":     0.0,
		"volume":          "VOLUME_XZX",
		"keep_axis":       "PLANE_X",
		"head_tail":       0.0,
		"use_bbone_shape": false,
	},
	"COPY_LOCATION":   merge(xyzFlags, schema{"use_offset": false, "head_tail": 0.0}),
	"COPY_ROTATION":   merge(xyzFlags, schema{"mix_mode": "REPLACE", "euler_order": "AUTO"}),
	"COPY_SCALE":      merge(xyzFlags, schema{"use_offset": false, "use_add": false, "power": 1.0, "use_make_uniform": false}),
	"COPY_TRANSFORMS": {"mix_mode": "REPLACE", "head_tail": 0.0, "use_bbone_shape": false},
	"LIMIT_LOCATION":  limitSchema(0.0, ""),
	"LIMIT_ROTATION":  limitSchema(0.0, "use_limit_"),
	"LIMIT_SCALE":     limitSchema(1.0, ""),
	"ARMATURE": {
		"use_deform_preserve_volume": false,
		"use_bone_envelopes":         false,
		"use_current_location":       false,
	},
	"DAMPED_TRACK": {"track_axis": "TRACK_Y", "head_tail": 0.0},
	"IK": {
		"chain_count":    0,
		"use_tail":       true,
		"use_stretch":    true,
		"pole_target":    (*descriptor.ID)(nil),
		"pole_subtarget": "",
		"pole_angle":     0.0,
		"iterations":     500,
		"weight":         1.0,
	},
}

// constraintSchema は制約種別ごとのスキーマを返す。ARMATURE はターゲットを一覧で持つ。
func constraintSchema(constraintType string) schema {
	s := merge(constraintCommonSchema, constraintTypeSchemas[constraintType])
	if constraintType == "ARMATURE" {
		delete(s, "target")
		delete(s, "subtarget")
	}
	return s
}

var driverSchema = schema{
	"type":       "SCRIPTED",
	"expression": "",
	"use_self":   false,
}

var variableTargetSchema = schema{
	"id":              (*descriptor.ID)(nil),
	"id_type":         "OBJECT",
	"bone_target":     "",
	"data_path":       "",
	"transform_type":  "LOC_X",
	"transform_space": "WORLD_SPACE",
	"rotation_mode":   "AUTO",
}

var boneGroupSchema = schema{
	"color_set": "DEFAULT",
	"normal":    []float64{0, 0, 0},
	"select":    []float64{0, 0, 0},
	"active":    []float64{0, 0, 0},
}

func merge(schemas ...schema) schema {
	merged := schema{}
	for _, s := range schemas {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}

// defaults はスキーマの既定値を複製した値表を返す。
func (s schema) defaults() map[string]any {
	values := make(map[string]any, len(s))
	for k, v := range s {
		values[k] = copyValue(v)
	}
	return values
}

// coerce はスキーマに従って値を検証し、格納用の値を返す。
func (s schema) coerce(prop string, value any) (any, error) {
	sample, ok := s[prop]
	if !ok {
		return nil, fmt.Errorf("%w: %s", merr.ErrUnknownProperty, prop)
	}
	mismatch := fmt.Errorf("%w: %s=%T", merr.ErrTypeMismatch, prop, value)
	switch sv := sample.(type) {
	case float64:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case int:
		if v, ok := value.(int); ok {
			return v, nil
		}
	case bool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case string:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case r3.Vec:
		switch v := value.(type) {
		case r3.Vec:
			return v, nil
		case []float64:
			if len(v) == 3 {
				return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
			}
		}
	case []bool:
		if v, ok := value.([]bool); ok && len(v) == len(sv) {
			return append([]bool(nil), v...), nil
		}
	case []float64:
		if v, ok := value.([]float64); ok && len(v) == len(sv) {
			return append([]float64(nil), v...), nil
		}
	case *descriptor.ID:
		if v, ok := value.(*descriptor.ID); ok {
			return v, nil
		}
	}
	return nil, mismatch
}

func copyValue(value any) any {
	switch v := value.(type) {
	case []bool:
		return append([]bool(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	}
	return value
}
