// 指示: miu200521358
package minteractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/host/memory"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/infra/base/mlogging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/rigs"
)

// refRigForTest は前方参照、長さゼロ、トポロジー後追加のボーンを宣言するリグ要素。
type refRigForTest struct {
	base *rigs.BaseRig
}

func (r *refRigForTest) Base() *rigs.BaseRig {
	return r.base
}

func (r *refRigForTest) Prepare(ctx *rigs.Context) error {
	ctx.Bones.Bone("MCH-early",
		bone.WithHead(r3.Vec{Z: 1}),
		bone.WithTail(r3.Vec{Z: 2}),
		bone.WithParentName("MCH-late"),
	)
	ctx.Bones.Bone("MCH-late",
		bone.WithHead(r3.Vec{}),
		bone.WithTail(r3.Vec{Z: 1}),
	)
	ctx.Bones.Bone("MCH-zero",
		bone.WithHead(r3.Vec{X: 1}),
		bone.WithTail(r3.Vec{X: 1}),
		bone.WithParentName("MCH-missing"),
	)
	return nil
}

func (r *refRigForTest) Parent(ctx *rigs.Context) error {
	ctx.Bones.Bone("MCH-too_late", bone.WithHead(r3.Vec{}), bone.WithTail(r3.Vec{Y: 1}))
	return nil
}

// cyclicRigForTest は自己参照と循環する親を宣言するリグ要素。
type cyclicRigForTest struct {
	base *rigs.BaseRig
}

func (r *cyclicRigForTest) Base() *rigs.BaseRig {
	return r.base
}

func (r *cyclicRigForTest) Prepare(ctx *rigs.Context) error {
	ctx.Bones.Bone("MCH-a",
		bone.WithHead(r3.Vec{}),
		bone.WithTail(r3.Vec{Z: 1}),
		bone.WithParentName("MCH-b"),
	)
	ctx.Bones.Bone("MCH-b",
		bone.WithHead(r3.Vec{Z: 1}),
		bone.WithTail(r3.Vec{Z: 2}),
		bone.WithParentName("MCH-a"),
	)
	ctx.Bones.Bone("MCH-self",
		bone.WithHead(r3.Vec{X: 1}),
		bone.WithTail(r3.Vec{X: 1, Z: 1}),
		bone.WithParentName("MCH-self"),
	)
	return nil
}

// stageRecorderRigForTest はステージ呼び出し順を記録するリグ要素。
type stageRecorderRigForTest struct {
	base  *rigs.BaseRig
	calls *[]string
}

func (r *stageRecorderRigForTest) Base() *rigs.BaseRig {
	return r.base
}

func (r *stageRecorderRigForTest) Prepare(ctx *rigs.Context) error {
	*r.calls = append(*r.calls, "prepare:"+r.base.Meta.Name)
	return nil
}

func (r *stageRecorderRigForTest) Apply(ctx *rigs.Context) error {
	*r.calls = append(*r.calls, "apply:"+r.base.Meta.Name)
	return nil
}

type progressRecorderForTest struct {
	events []GenerateProgressEvent
}

func (p *progressRecorderForTest) ReportGenerateProgress(event GenerateProgressEvent) {
	p.events = append(p.events, event)
}

func (p *progressRecorderForTest) count(eventType GenerateProgressEventType) int {
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func newLoggerForTest(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := logging.DefaultLogger()
	buf := &bytes.Buffer{}
	logging.SetDefaultLogger(mlogging.NewLogger(buf))
	t.Cleanup(func() {
		logging.SetDefaultLogger(prev)
	})
	return buf
}

func newArmMetarigForTest() *metarig.Metarig {
	return &metarig.Metarig{
		Name:    "human",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "torso", Head: r3.Vec{Z: 1}, Tail: r3.Vec{Z: 1.5}, RigType: "cloud_base"},
			{
				Name: "upper_arm.L", Parent: "torso",
				Head: r3.Vec{X: 0.2, Z: 1.5}, Tail: r3.Vec{X: 0.5, Y: 0.05, Z: 1.4},
				RigType: "cloud_limbs", Params: metarig.Params{"limb_type": "arm", "fk_hinge": true},
			},
			{Name: "forearm.L", Parent: "upper_arm.L", UseConnect: true, Head: r3.Vec{X: 0.5, Y: 0.05, Z: 1.4}, Tail: r3.Vec{X: 0.8, Z: 1.3}},
			{Name: "hand.L", Parent: "forearm.L", UseConnect: true, Head: r3.Vec{X: 0.8, Z: 1.3}, Tail: r3.Vec{X: 0.9, Z: 1.2}},
		},
	}
}

func newGeneratorForTest(t *testing.T) *CloudGenerator {
	t.Helper()
	newLoggerForTest(t)
	return NewCloudGenerator(CloudGeneratorDeps{})
}

func generateForTest(t *testing.T, uc *CloudGenerator, scene *memory.Scene, meta *metarig.Metarig) *GenerateResult {
	t.Helper()
	result, err := uc.Generate(GenerateRequest{Metarig: meta, Scene: scene})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return result
}

func findBoneForTest(t *testing.T, snap memory.ArmatureSnapshot, name string) memory.BoneSnapshot {
	t.Helper()
	for _, b := range snap.Bones {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("bone not found: %s", name)
	return memory.BoneSnapshot{}
}

func TestGenerateCreatesRig(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	meta := newArmMetarigForTest()
	recorder := &progressRecorderForTest{}

	result, err := uc.Generate(GenerateRequest{Metarig: meta, Scene: scene, ProgressReporter: recorder})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.RigName != "RIG-human" {
		t.Fatalf("rig name mismatch: got=%s", result.RigName)
	}
	if meta.GeneratedRig != "RIG-human" {
		t.Fatalf("generated rig reference mismatch: got=%s", meta.GeneratedRig)
	}
	if len(result.Report.FailedElements) != 0 {
		t.Fatalf("unexpected failures: %v", result.Report.FailedElementNames())
	}
	if !scene.IsLinked("RIG-human") {
		t.Fatalf("generated rig should be linked")
	}
	arm := scene.ArmatureByName("RIG-human")
	for _, name := range []string{"root", "properties", "ORG-torso", "torso", "DEF-torso", "ORG-upper_arm.L", "FK-upper_arm.L", "IK-hand.L", "IK-upper_arm_pole.L", "MCH-upper_arm_hinge.L"} {
		if !arm.HasBone(name) {
			t.Fatalf("bone missing: %s", name)
		}
	}
	if result.BoneCount != len(arm.BoneNames()) {
		t.Fatalf("bone count mismatch: got=%d want=%d", result.BoneCount, len(arm.BoneNames()))
	}
	if arm.Mode() != mhost.MODE_OBJECT {
		t.Fatalf("mode should be restored: got=%s", arm.Mode())
	}
	if v, _ := arm.Get("pose_position"); v != mhost.POSE_POSITION_POSE {
		t.Fatalf("pose_position should be restored: got=%v", v)
	}
	if arm.ModeSwitchCount() != 3 {
		t.Fatalf("mode switch count mismatch: got=%d want=3", arm.ModeSwitchCount())
	}
	if got := recorder.count(GenerateProgressEventTypeStageCompleted); got != len(rigs.Stages) {
		t.Fatalf("stage events mismatch: got=%d want=%d", got, len(rigs.Stages))
	}
	if recorder.count(GenerateProgressEventTypeUIWritten) != 1 {
		t.Fatalf("ui event should be reported once")
	}

	snap := arm.Snapshot()
	orgArm := findBoneForTest(t, snap, "ORG-upper_arm.L")
	if orgArm.Edit["parent"] != "ORG-torso" {
		t.Fatalf("ORG parent mismatch: got=%v", orgArm.Edit["parent"])
	}
	if len(orgArm.Constraints) != 2 || orgArm.Constraints[0].Name != "Copy Transforms FK" || orgArm.Constraints[1].Name != "Copy Transforms IK" {
		t.Fatalf("ORG constraints mismatch: %+v", orgArm.Constraints)
	}
	if orgArm.Constraints[0].Props["target"] != "OBJECT:RIG-human" || orgArm.Constraints[0].Props["subtarget"] != "FK-upper_arm.L" {
		t.Fatalf("constraint target mismatch: %+v", orgArm.Constraints[0].Props)
	}
	mech := findBoneForTest(t, snap, "MCH-IK-forearm.L")
	if len(mech.Constraints) != 1 || mech.Constraints[0].Type != "IK" {
		t.Fatalf("IK constraint missing: %+v", mech.Constraints)
	}
	ik := mech.Constraints[0].Props
	if ik["subtarget"] != "IK-hand.L" || ik["pole_subtarget"] != "IK-upper_arm_pole.L" || ik["pole_target"] != "OBJECT:RIG-human" || ik["chain_count"] != 2 {
		t.Fatalf("IK props mismatch: %+v", ik)
	}
	if math.Abs(ik["pole_angle"].(float64)+math.Pi/2) > 1e-9 {
		t.Fatalf("pole angle mismatch: got=%v", ik["pole_angle"])
	}
	hinge := findBoneForTest(t, snap, "MCH-upper_arm_hinge.L")
	if len(hinge.Constraints) != 1 || len(hinge.Constraints[0].Targets) != 2 || hinge.Constraints[0].Targets[1].Subtarget != "root" {
		t.Fatalf("hinge constraint mismatch: %+v", hinge.Constraints)
	}
	fk := findBoneForTest(t, snap, "FK-upper_arm.L")
	if fk.Pose["bone_group"] != "FK Controls" || fk.Pose["custom_shape"] != "WGT-fk_circle" {
		t.Fatalf("FK pose mismatch: %+v", fk.Pose)
	}

	influence := mhost.ConstraintPath("ORG-upper_arm.L", "Copy Transforms IK", "influence")
	value, err := arm.EvaluateDriver(influence, -1, map[string]float64{"ik": 0.75})
	if err != nil {
		t.Fatalf("EvaluateDriver failed: %v", err)
	}
	if value != 0.75 {
		t.Fatalf("driver value mismatch: got=%v want=0.75", value)
	}
	hingeWeight := mhost.ConstraintPath("MCH-upper_arm_hinge.L", "Armature", "targets[0].weight")
	if value, err := arm.EvaluateDriver(hingeWeight, -1, map[string]float64{"hinge": 1}); err != nil || value != 0 {
		t.Fatalf("hinge driver mismatch: got=%v err=%v", value, err)
	}

	body, ok := scene.Text("RIG-human" + model.UIDataTextSuffix)
	if !ok || result.UIText != "RIG-human"+model.UIDataTextSuffix {
		t.Fatalf("ui text missing: %s", result.UIText)
	}
	var document map[string]any
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		t.Fatalf("ui text is not json: %v", err)
	}
	if document[model.RigIDPropertyKey] != result.RigID {
		t.Fatalf("ui rig_id mismatch: got=%v want=%s", document[model.RigIDPropertyKey], result.RigID)
	}
	for _, category := range []string{model.UIDataIKSwitches, model.UIDataFKHinges, model.UIDataIKStretches, model.UIDataParents} {
		if _, ok := document[category]; !ok {
			t.Fatalf("ui category missing: %s", category)
		}
	}
	if id, _ := arm.CustomProp(model.RigIDPropertyKey); id != result.RigID {
		t.Fatalf("rig_id prop mismatch: got=%v want=%s", id, result.RigID)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	meta := newArmMetarigForTest()

	first := generateForTest(t, uc, scene, meta)
	firstSnap := scene.Snapshot()
	second := generateForTest(t, uc, scene, meta)
	secondSnap := scene.Snapshot()

	if first.RigID != second.RigID {
		t.Fatalf("rig_id should be reused: got=%s want=%s", second.RigID, first.RigID)
	}
	if len(secondSnap.Armatures) != 1 {
		t.Fatalf("regeneration should reuse the rig: armatures=%d", len(secondSnap.Armatures))
	}
	if !reflect.DeepEqual(firstSnap, secondSnap) {
		t.Fatalf("snapshot changed on regeneration")
	}
}

func TestGenerateResolvesExistingRigByName(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	existing := scene.AddArmature("RIG-human")
	scene.UnlinkArmature("RIG-human")

	result := generateForTest(t, uc, scene, newArmMetarigForTest())
	if result.RigName != "RIG-human" || len(scene.ArmatureNames()) != 1 {
		t.Fatalf("existing rig should be reused: %v", scene.ArmatureNames())
	}
	if !scene.IsLinked("RIG-human") {
		t.Fatalf("file-wide rig should be linked")
	}
	if len(existing.BoneNames()) == 0 {
		t.Fatalf("existing rig should receive bones")
	}
}

func TestGenerateReferenceWarnings(t *testing.T) {
	uc := newGeneratorForTest(t)
	uc.Registry().Register("test_refs", func(meta *metarig.MetaBone) rigs.Element {
		return &refRigForTest{base: rigs.NewBaseRig(meta)}
	})
	scene := memory.NewScene()
	meta := &metarig.Metarig{
		Name:    "refs",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "refs", Head: r3.Vec{}, Tail: r3.Vec{Z: 1}, RigType: "test_refs"},
		},
	}
	meta.Options.Scale = 2

	result := generateForTest(t, uc, scene, meta)
	report := result.Report
	arm := scene.ArmatureByName("RIG-refs")
	snap := arm.Snapshot()

	early := findBoneForTest(t, snap, "MCH-early")
	if early.Edit["parent"] != "MCH-late" {
		t.Fatalf("forward parent reference should resolve: got=%v", early.Edit["parent"])
	}
	if !report.HasWarning(model.RigWarningZeroLengthBone) {
		t.Fatalf("zero length warning missing: %s", report.Summary())
	}
	zero := findBoneForTest(t, snap, "MCH-zero")
	head := zero.Edit["head"].([]float64)
	tail := zero.Edit["tail"].([]float64)
	length := r3.Norm(r3.Sub(r3.Vec{X: tail[0], Y: tail[1], Z: tail[2]}, r3.Vec{X: head[0], Y: head[1], Z: head[2]}))
	if math.Abs(length-bone.MINIMAL_LENGTH*2) > 1e-9 {
		t.Fatalf("minimal length mismatch: got=%v want=%v", length, bone.MINIMAL_LENGTH*2)
	}
	if !report.HasWarning(model.RigWarningUnresolvedParent) || zero.Edit["parent"] != "" {
		t.Fatalf("unresolved parent should warn and stay unset: %v", zero.Edit["parent"])
	}
	if !report.HasWarning(model.RigWarningBoneNotMaterialized) || arm.HasBone("MCH-too_late") {
		t.Fatalf("late bone should not be materialized")
	}
	org := findBoneForTest(t, snap, "ORG-refs")
	if width := org.Edit["bbone_x"].(float64); math.Abs(width-0.2) > 1e-9 {
		t.Fatalf("bbone width mismatch: got=%v want=0.2", width)
	}
	warnings, _ := arm.CustomProp(model.RigWarningRawPropertyKey)
	if !strings.Contains(warnings.(string), model.RigWarningZeroLengthBone) {
		t.Fatalf("warning ids mismatch: got=%v", warnings)
	}
}

func TestGenerateWarnsOnCyclicParent(t *testing.T) {
	uc := newGeneratorForTest(t)
	uc.Registry().Register("test_cycle", func(meta *metarig.MetaBone) rigs.Element {
		return &cyclicRigForTest{base: rigs.NewBaseRig(meta)}
	})
	scene := memory.NewScene()
	meta := &metarig.Metarig{
		Name:    "cycle",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "cycle", Head: r3.Vec{}, Tail: r3.Vec{Z: 1}, RigType: "test_cycle"},
		},
	}

	result := generateForTest(t, uc, scene, meta)
	if !result.Report.HasWarning(model.RigWarningUnresolvedParent) {
		t.Fatalf("cyclic parent should warn: %s", result.Report.Summary())
	}
	snap := scene.ArmatureByName("RIG-cycle").Snapshot()
	if got := findBoneForTest(t, snap, "MCH-a").Edit["parent"]; got != "MCH-b" {
		t.Fatalf("MCH-a parent mismatch: got=%v want=MCH-b", got)
	}
	if got := findBoneForTest(t, snap, "MCH-b").Edit["parent"]; got != "" {
		t.Fatalf("MCH-b parent mismatch: got=%v want=", got)
	}
	if got := findBoneForTest(t, snap, "MCH-self").Edit["parent"]; got != "" {
		t.Fatalf("MCH-self parent mismatch: got=%v want=", got)
	}
}

func TestGenerateRunsStagesBreadthFirst(t *testing.T) {
	uc := newGeneratorForTest(t)
	calls := []string{}
	uc.Registry().Register("test_stages", func(meta *metarig.MetaBone) rigs.Element {
		return &stageRecorderRigForTest{base: rigs.NewBaseRig(meta), calls: &calls}
	})
	scene := memory.NewScene()
	meta := &metarig.Metarig{
		Name:    "stages",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "child", Parent: "parent", Head: r3.Vec{Z: 1}, Tail: r3.Vec{Z: 2}, RigType: "test_stages"},
			{Name: "other", Head: r3.Vec{X: 1}, Tail: r3.Vec{X: 1, Z: 1}, RigType: "test_stages"},
			{Name: "parent", Head: r3.Vec{}, Tail: r3.Vec{Z: 1}, RigType: "test_stages"},
		},
	}

	generateForTest(t, uc, scene, meta)
	want := []string{"prepare:other", "prepare:parent", "prepare:child", "apply:other", "apply:parent", "apply:child"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("stage order mismatch: got=%v want=%v", calls, want)
	}
}

func TestGenerateElementFailureSkipsDescendants(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	meta := &metarig.Metarig{
		Name:    "short",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "torso", Head: r3.Vec{Z: 1}, Tail: r3.Vec{Z: 1.5}, RigType: "cloud_base"},
			{Name: "upper_arm.L", Parent: "torso", Head: r3.Vec{X: 0.2, Z: 1.5}, Tail: r3.Vec{X: 0.5, Z: 1.4}, RigType: "cloud_limbs"},
			{Name: "forearm.L", Parent: "upper_arm.L", UseConnect: true, Head: r3.Vec{X: 0.5, Z: 1.4}, Tail: r3.Vec{X: 0.8, Z: 1.3}},
			{Name: "hand_prop", Parent: "forearm.L", Head: r3.Vec{X: 0.8, Z: 1.3}, Tail: r3.Vec{X: 0.9, Z: 1.3}, RigType: "cloud_base"},
			{Name: "tail", Parent: "torso", Head: r3.Vec{Z: 1}, Tail: r3.Vec{Y: 0.5, Z: 1}, RigType: "cloud_tentacle"},
		},
	}

	result := generateForTest(t, uc, scene, meta)
	failed := result.Report.FailedElementNames()
	if !reflect.DeepEqual(failed, []string{"hand_prop", "tail", "upper_arm.L"}) {
		t.Fatalf("failed elements mismatch: got=%v", failed)
	}
	if !merr.IsStructural(result.Report.FailedElements["upper_arm.L"]) {
		t.Fatalf("limb failure should be structural: %v", result.Report.FailedElements["upper_arm.L"])
	}
	if !result.Report.HasWarning(model.RigWarningElementFailed) || !result.Report.HasWarning(model.RigWarningUnknownRigType) {
		t.Fatalf("warnings mismatch: %s", result.Report.Summary())
	}
	arm := scene.ArmatureByName("RIG-short")
	if !arm.HasBone("torso") || !arm.HasBone("ORG-hand_prop") {
		t.Fatalf("healthy elements and ORG bones should be generated")
	}
	if arm.HasBone("hand_prop") {
		t.Fatalf("descendant of failed element should be skipped")
	}
}

func TestGenerateHostFailureRestoresState(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	arm := scene.AddArmature("RIG-human")
	arm.FailOnSet("use_deform", errors.New("host crashed"))

	_, err := uc.Generate(GenerateRequest{Metarig: newArmMetarigForTest(), Scene: scene})
	if err == nil {
		t.Fatalf("host failure should abort generation")
	}
	if merr.KindOf(err) != merr.KindHost {
		t.Fatalf("error kind mismatch: got=%v", merr.KindOf(err))
	}
	if arm.Mode() != mhost.MODE_OBJECT {
		t.Fatalf("mode should be restored: got=%s", arm.Mode())
	}
	if v, _ := arm.Get("pose_position"); v != mhost.POSE_POSITION_POSE {
		t.Fatalf("pose_position should be restored: got=%v", v)
	}
}

func TestGenerateSkipsMismatchedProperty(t *testing.T) {
	uc := newGeneratorForTest(t)
	scene := memory.NewScene()
	arm := scene.AddArmature("RIG-human")
	arm.FailOnSet("bbone_x", fmt.Errorf("%w: bbone_x", merr.ErrTypeMismatch))

	result := generateForTest(t, uc, scene, newArmMetarigForTest())
	if !result.Report.HasWarning(model.RigWarningPropertySkipped) {
		t.Fatalf("property skipped warning missing: %s", result.Report.Summary())
	}
	if result.Report.CountWarnings(model.RigWarningPropertySkipped) != result.BoneCount {
		t.Fatalf("every bone should skip bbone_x: got=%d want=%d",
			result.Report.CountWarnings(model.RigWarningPropertySkipped), result.BoneCount)
	}
}

func TestGenerateRequiresScene(t *testing.T) {
	uc := newGeneratorForTest(t)
	if _, err := uc.Generate(GenerateRequest{Metarig: newArmMetarigForTest()}); err == nil {
		t.Fatalf("missing scene should fail")
	}
}

func TestGenerateRejectsInvalidMetarig(t *testing.T) {
	uc := newGeneratorForTest(t)
	meta := newArmMetarigForTest()
	meta.Bones = append(meta.Bones, &metarig.MetaBone{Name: "torso"})
	if _, err := uc.Generate(GenerateRequest{Metarig: meta, Scene: memory.NewScene()}); err == nil {
		t.Fatalf("duplicated bone name should fail validation")
	}
}
