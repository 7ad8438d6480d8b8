// 指示: miu200521358
package descriptor

import (
	"errors"
	"math"
	"testing"

	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

func TestIDCollectionKeepsOrderAndReplacesInPlace(t *testing.T) {
	c := NewIDCollection(func(name string) *ID { return NewID(name, ID_TYPE_OBJECT) })
	a := c.Ensure("a")
	c.Ensure("b")
	c.Ensure("c")
	if got := c.Ensure("a"); got != a {
		t.Fatalf("ensure should return existing: got=%p want=%p", got, a)
	}
	replaced := NewID("a2", ID_TYPE_OBJECT)
	c.Set("a", replaced)
	names := c.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Fatalf("names mismatch: %v", names)
	}
	if got, _ := c.Get("a"); got != replaced {
		t.Fatalf("replace mismatch: got=%v", got)
	}
	if !c.Remove("b") {
		t.Fatalf("remove failed")
	}
	if got, ok := c.Get("c"); !ok || got.Name != "c" {
		t.Fatalf("index after remove mismatch: %v", got)
	}
	if c.Len() != 2 {
		t.Fatalf("len mismatch: got=%d want=2", c.Len())
	}
}

func TestIDCollectionRenameRejectsDuplicate(t *testing.T) {
	c := NewIDCollection(func(name string) int { return len(name) })
	c.Ensure("x")
	c.Ensure("y")
	if err := c.Rename("x", "y"); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := c.Rename("x", "z"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if c.Has("x") || !c.Has("z") {
		t.Fatalf("rename not applied: %v", c.Names())
	}
}

func TestCustomPropValidate(t *testing.T) {
	p := NewCustomProp("ik_fk", 1.0)
	if err := p.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	p.Default = 2.0
	if err := p.Validate(); err == nil {
		t.Fatalf("expected range error")
	}
	p.Default = struct{}{}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected type error")
	}
	p.Default = []float64{1, 2, 3}
	if err := p.Validate(); err != nil {
		t.Fatalf("array default should pass: %v", err)
	}
}

func TestCustomPropCloneCopiesArray(t *testing.T) {
	p := NewCustomProp("colors", []float64{0.1, 0.2})
	copied := p.Clone()
	copied.Default.([]float64)[0] = 9
	if p.Default.([]float64)[0] != 0.1 {
		t.Fatalf("clone shares array: %v", p.Default)
	}
}

func TestCloneValueKeepsIDPointer(t *testing.T) {
	id := NewID("RIG-test", ID_TYPE_OBJECT)
	if got := CloneValue(id); got != id {
		t.Fatalf("id pointer should be shared")
	}
	m := map[string]any{"k": []any{1.0, "s", id}, "target": id}
	copied := CloneValue(m).(map[string]any)
	if copied["target"] != id {
		t.Fatalf("id pointer in map should be shared: got=%p want=%p", copied["target"], id)
	}
	if nested := copied["k"].([]any); nested[2] != id {
		t.Fatalf("id pointer in nested slice should be shared: got=%p want=%p", nested[2], id)
	}
	copied["k"].([]any)[0] = 2.0
	copied["k"] = "changed"
	if list, ok := m["k"].([]any); !ok || list[0] != 1.0 {
		t.Fatalf("map clone shares storage: %v", m)
	}
	names := []string{"a", "b"}
	copiedNames := CloneValue(names).([]string)
	copiedNames[0] = "z"
	if names[0] != "a" {
		t.Fatalf("slice clone shares storage: %v", names)
	}
}

func TestDriverAddVariableTargetCount(t *testing.T) {
	d := NewDriver("a + b")
	if d.Index != -1 {
		t.Fatalf("index mismatch: got=%d want=-1", d.Index)
	}
	a := d.AddVariable("a", VARIABLE_TYPE_SINGLE_PROP)
	b := d.AddVariable("b", VARIABLE_TYPE_ROTATION_DIFF)
	if len(a.Targets) != 1 || len(b.Targets) != 2 {
		t.Fatalf("target count mismatch: a=%d b=%d", len(a.Targets), len(b.Targets))
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestDriverValidateUnknownVariable(t *testing.T) {
	d := NewDriver("1 - ik")
	d.AddVariable("fk", VARIABLE_TYPE_SINGLE_PROP)
	if err := d.Validate(); err == nil {
		t.Fatalf("expected unknown variable error")
	}
	d.Expression = "1 - ("
	if err := d.Validate(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDriverValidateBrokenTargets(t *testing.T) {
	d := NewDriver("x")
	v := d.AddVariable("x", VARIABLE_TYPE_LOC_DIFF)
	v.Targets = v.Targets[:1]
	if err := d.Validate(); err == nil {
		t.Fatalf("expected target count error")
	}
}

func TestDriverCloneSharesIDOnly(t *testing.T) {
	id := NewID("RIG-test", ID_TYPE_OBJECT)
	d := NewDriver("var")
	d.AddPropVariable("var", id, `pose.bones["props"]["ik"]`)
	copied := d.Clone()
	copied.Variables[0].Targets[0].DataPath = "changed"
	copied.Variables[0].Name = "other"
	if d.Variables[0].Targets[0].DataPath == "changed" || d.Variables[0].Name != "var" {
		t.Fatalf("clone shares variable storage")
	}
	if copied.Variables[0].Targets[0].ID != id {
		t.Fatalf("clone should share id pointer")
	}
}

func TestDriverEvaluate(t *testing.T) {
	d := NewDriver("1 - clamp(ik)")
	d.AddVariable("ik", VARIABLE_TYPE_SINGLE_PROP)
	got, err := d.Evaluate(map[string]float64{"ik": 0.25})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("value mismatch: got=%f want=0.75", got)
	}

	sum := &Driver{Type: DRIVER_TYPE_AVERAGE, Index: -1}
	sum.AddVariable("a", VARIABLE_TYPE_SINGLE_PROP)
	sum.AddVariable("b", VARIABLE_TYPE_SINGLE_PROP)
	got, err = sum.Evaluate(map[string]float64{"a": 1, "b": 3})
	if err != nil || got != 2 {
		t.Fatalf("average mismatch: got=%f err=%v", got, err)
	}
}

func TestDriverSetField(t *testing.T) {
	d := NewDriver("")
	if err := d.SetField("expression", "var"); err != nil || d.Expression != "var" {
		t.Fatalf("set expression failed: %v", err)
	}
	if err := d.SetField("use_self", "yes"); !errors.Is(err, merr.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch: %v", err)
	}
	if err := d.SetField("missing", 1); !errors.Is(err, merr.ErrUnknownProperty) {
		t.Fatalf("expected unknown property: %v", err)
	}
	target := &DriverVariableTarget{}
	if err := target.SetField("transform_type", "LOC_X"); err != nil || target.TransformType != "LOC_X" {
		t.Fatalf("set target failed: %v", err)
	}
}

func TestDriverKeyRoundTrip(t *testing.T) {
	if got := DriverKey("influence", -1); got != "influence" {
		t.Fatalf("key mismatch: %s", got)
	}
	path, index := SplitDriverKey(DriverKey("scale", 2))
	if path != "scale" || index != 2 {
		t.Fatalf("split mismatch: path=%s index=%d", path, index)
	}
}
