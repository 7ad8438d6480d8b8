// 指示: miu200521358
package rigs

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/domain/bone"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/model"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/merr"
)

// newContextForTest はルートと ORG ボーンを宣言済みのContextを返す。
func newContextForTest(t *testing.T, meta *metarig.Metarig) *Context {
	t.Helper()
	bones := bone.NewBoneInfoContainer(1.0, bone.DefaultDefaults())
	ctx := NewContext(meta, bones, descriptor.NewID(meta.RigName(), descriptor.ID_TYPE_OBJECT), merr.NewReport())
	bones.Bone(ctx.Options.RootName, bone.WithHead(r3.Vec{}), bone.WithTail(r3.Vec{Y: 1}))
	for _, mb := range meta.Bones {
		parent := ctx.Options.RootName
		if mb.Parent != "" {
			parent = ctx.OrgName(mb.Parent)
		}
		bones.Bone(ctx.OrgName(mb.Name),
			bone.WithSource(mb),
			bone.WithParentName(parent),
			bone.WithConnect(mb.UseConnect),
			bone.WithDeform(false),
		)
	}
	return ctx
}

// buildElementsForTest はメタリグ順に要素を生成し、最も近い祖先要素へ子として登録する。
func buildElementsForTest(t *testing.T, ctx *Context) []Element {
	t.Helper()
	registry := DefaultRegistry()
	byBone := map[string]Element{}
	elements := make([]Element, 0)
	for _, mb := range ctx.Metarig.RigBones() {
		element, err := registry.New(mb)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		for parent := mb.Parent; parent != ""; parent = ctx.Metarig.Bone(parent).Parent {
			if owner, ok := byBone[parent]; ok {
				owner.Base().AddChild(element)
				break
			}
		}
		byBone[mb.Name] = element
		elements = append(elements, element)
	}
	return elements
}

func runStagesForTest(t *testing.T, ctx *Context, elements []Element) {
	t.Helper()
	for _, stage := range Stages {
		for _, element := range elements {
			if _, err := RunStage(stage, element, ctx); err != nil {
				t.Fatalf("stage %s failed on %s: %v", stage, element.Base().Name(), err)
			}
		}
	}
}

func newLimbMetarigForTest(limbType string) *metarig.Metarig {
	return &metarig.Metarig{
		Name:    "human",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "torso", Head: r3.Vec{Z: 1}, Tail: r3.Vec{Z: 1.5}, RigType: "cloud_base"},
			{
				Name: "upper_arm.L", Parent: "torso",
				Head: r3.Vec{X: 0.2, Z: 1.5}, Tail: r3.Vec{X: 0.5, Y: 0.05, Z: 1.4},
				RigType: "cloud_limbs", Params: metarig.Params{"limb_type": limbType},
			},
			{Name: "forearm.L", Parent: "upper_arm.L", UseConnect: true, Head: r3.Vec{X: 0.5, Y: 0.05, Z: 1.4}, Tail: r3.Vec{X: 0.8, Z: 1.3}},
			{Name: "hand.L", Parent: "forearm.L", UseConnect: true, Head: r3.Vec{X: 0.8, Z: 1.3}, Tail: r3.Vec{X: 0.9, Z: 1.2}},
		},
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := DefaultRegistry()
	_, err := registry.New(&metarig.MetaBone{Name: "tail", RigType: "cloud_tentacle"})
	if !merr.IsStructural(err) {
		t.Fatalf("unknown type should be structural: %v", err)
	}
	types := registry.Types()
	if len(types) != 5 || types[0] != "cloud_base" || types[4] != "cloud_limbs" {
		t.Fatalf("types mismatch: %v", types)
	}
}

func TestRegistrySetsRigType(t *testing.T) {
	element, err := DefaultRegistry().New(&metarig.MetaBone{Name: "spine", RigType: "cloud_chain"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if element.Base().RigType != "cloud_chain" {
		t.Fatalf("rig type mismatch: got=%s", element.Base().RigType)
	}
	if _, ok := element.(*ChainRig); !ok {
		t.Fatalf("element type mismatch: %T", element)
	}
}

func TestRunStage(t *testing.T) {
	ctx := newContextForTest(t, &metarig.Metarig{
		Name:    "prop",
		Options: metarig.DefaultGenerationOptions(),
		Bones:   []*metarig.MetaBone{{Name: "box", Tail: r3.Vec{Y: 1}, RigType: "cloud_base"}},
	})
	element := NewBaseRig(ctx.Metarig.Bones[0])
	handled, err := RunStage(STAGE_INITIALIZE, element, ctx)
	if !handled || err != nil {
		t.Fatalf("initialize mismatch: handled=%v err=%v", handled, err)
	}
	handled, err = RunStage(STAGE_CONFIGURE, element, ctx)
	if handled || err != nil {
		t.Fatalf("configure should be skipped: handled=%v err=%v", handled, err)
	}
	if _, err := RunStage(Stage("unknown"), element, ctx); err == nil {
		t.Fatalf("unknown stage should fail")
	}
}

func TestBaseRigMissingOrgIsStructural(t *testing.T) {
	ctx := newContextForTest(t, &metarig.Metarig{Name: "prop", Options: metarig.DefaultGenerationOptions()})
	element := NewBaseRig(&metarig.MetaBone{Name: "ghost", RigType: "cloud_base"})
	if err := element.Initialize(ctx); !merr.IsStructural(err) {
		t.Fatalf("missing ORG should be structural: %v", err)
	}
}

func TestBaseRigGeneratesControlAndDeform(t *testing.T) {
	ctx := newContextForTest(t, &metarig.Metarig{
		Name:    "prop",
		Options: metarig.DefaultGenerationOptions(),
		Bones:   []*metarig.MetaBone{{Name: "box", Tail: r3.Vec{Y: 1}, RigType: "cloud_base"}},
	})
	runStagesForTest(t, ctx, buildElementsForTest(t, ctx))

	control := ctx.Bones.Find("box")
	if control == nil || control.UseDeform || control.CustomShape != "WGT-cube" {
		t.Fatalf("control mismatch: %+v", control)
	}
	if control.Parent.Name() != "root" {
		t.Fatalf("control parent mismatch: got=%s", control.Parent.Name())
	}
	def := ctx.Bones.Find("DEF-box")
	if def == nil || !def.UseDeform || def.Parent.Name() != "ORG-box" {
		t.Fatalf("deform mismatch: %+v", def)
	}
	org := ctx.Bones.Find("ORG-box")
	if len(org.Constraints) != 1 || org.Constraints[0].Subtarget() != "box" {
		t.Fatalf("org constraint mismatch: %+v", org.Constraints)
	}
}

func TestChainStretchesToNextHandle(t *testing.T) {
	ctx := newContextForTest(t, &metarig.Metarig{
		Name:    "tail",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "tail1", Tail: r3.Vec{Y: 1}, RigType: "cloud_chain", Params: metarig.Params{"deform_segments": 3}},
			{Name: "tail2", Parent: "tail1", UseConnect: true, Head: r3.Vec{Y: 1}, Tail: r3.Vec{Y: 2}},
		},
	})
	elements := buildElementsForTest(t, ctx)
	runStagesForTest(t, ctx, elements)

	chain := elements[0].(*ChainRig)
	if len(chain.DefBones) != 2 || len(chain.StrBones) != 3 {
		t.Fatalf("chain size mismatch: def=%d str=%d", len(chain.DefBones), len(chain.StrBones))
	}
	wantTargets := []string{"STR-tail2", "STR-tail2_tip"}
	for i, def := range chain.DefBones {
		if len(def.Constraints) != 1 || def.Constraints[0].Type != bone.CONSTRAINT_STRETCH_TO {
			t.Fatalf("constraint mismatch on %s: %+v", def.Name, def.Constraints)
		}
		if got := def.Constraints[0].Subtarget(); got != wantTargets[i] {
			t.Fatalf("subtarget mismatch: got=%s want=%s", got, wantTargets[i])
		}
		if def.BBoneSegments != 3 || def.BBoneHandleTypeStart != "ABSOLUTE" {
			t.Fatalf("bbone mismatch on %s: segments=%d handle=%s", def.Name, def.BBoneSegments, def.BBoneHandleTypeStart)
		}
	}
	tip := ctx.Bones.Find("STR-tail2_tip")
	if tip == nil || tip.Parent.Name() != "ORG-tail2" {
		t.Fatalf("tip mismatch: %+v", tip)
	}
	if math.Abs(tip.Length()-0.25) > 1e-9 {
		t.Fatalf("tip length mismatch: got=%f", tip.Length())
	}
}

func TestGetParentCandidatesAncestorsFirst(t *testing.T) {
	parent := NewBaseRig(&metarig.MetaBone{Name: "torso"})
	child := NewBaseRig(&metarig.MetaBone{Name: "chest"})
	parent.AddChild(child)
	parent.RegisterParent("Torso", "torso")
	child.RegisterParent("Chest", "chest")
	child.RegisterParent("Torso", "chest_torso")

	got := child.GetParentCandidates()
	if len(got) != 2 {
		t.Fatalf("candidate count mismatch: got=%v", got)
	}
	if got[0] != (ParentCandidate{Label: "Torso", Bone: "torso"}) || got[1].Label != "Chest" {
		t.Fatalf("candidate order mismatch: got=%v", got)
	}
	if !child.IsDescendantOf(parent) || parent.IsDescendantOf(child) {
		t.Fatalf("descendant mismatch")
	}
}

func TestSplitSideAndLabel(t *testing.T) {
	cases := []struct {
		name  string
		base  string
		side  string
		label string
	}{
		{name: "upper_arm.L", base: "upper_arm", side: "L", label: "Upper Arm L"},
		{name: "thigh.r", base: "thigh", side: "R", label: "Thigh R"},
		{name: "spine", base: "spine", side: "", label: "Spine"},
		{name: ".L", base: ".L", side: "", label: "L"},
	}
	for _, c := range cases {
		base, side := SplitSide(c.name, ".")
		if base != c.base || side != c.side {
			t.Fatalf("split mismatch for %s: got=%s,%s want=%s,%s", c.name, base, side, c.base, c.side)
		}
		if got := UILabel(c.name, "."); got != c.label {
			t.Fatalf("label mismatch for %s: got=%s want=%s", c.name, got, c.label)
		}
	}
	if got := JoinSide("hand_ik", "L", "."); got != "hand_ik.L" {
		t.Fatalf("join mismatch: got=%s", got)
	}
}

func TestFKChainHingeDrivers(t *testing.T) {
	ctx := newContextForTest(t, &metarig.Metarig{
		Name:    "tail",
		Options: metarig.DefaultGenerationOptions(),
		Bones: []*metarig.MetaBone{
			{Name: "tail1", Tail: r3.Vec{Y: 1}, RigType: "cloud_fk_chain", Params: metarig.Params{"fk_hinge": true}},
			{Name: "tail2", Parent: "tail1", UseConnect: true, Head: r3.Vec{Y: 1}, Tail: r3.Vec{Y: 2}},
		},
	})
	elements := buildElementsForTest(t, ctx)
	runStagesForTest(t, ctx, elements)

	fk := elements[0].(*FKChainRig)
	if fk.Hinge == nil || fk.Hinge.Name != "MCH-tail1_hinge" {
		t.Fatalf("hinge mismatch: %+v", fk.Hinge)
	}
	if fk.FKBones[0].Parent.Name() != "MCH-tail1_hinge" || fk.FKBones[1].Parent.Name() != "FK-tail1" {
		t.Fatalf("fk parent mismatch")
	}
	if !fk.FKBones[1].LockLocation[0] || fk.FKBones[0].LockLocation[0] {
		t.Fatalf("lock location mismatch")
	}
	con := fk.Hinge.Constraint("Armature")
	if con == nil || len(con.Targets) != 2 || con.Targets[1].Subtarget != "root" {
		t.Fatalf("hinge constraint mismatch: %+v", con)
	}
	d, ok := con.Drivers.Get(descriptor.DriverKey("targets[1].weight", -1))
	if !ok || d.Expression != "hinge" {
		t.Fatalf("hinge driver mismatch: %+v", d)
	}
	props := ctx.Bones.Find("properties")
	if props == nil || !props.CustomProps.Has("fk_hinge_tail1") {
		t.Fatalf("hinge property missing")
	}
	if _, ok := ctx.UI.Entry(model.UIDataFKHinges, "Tail1"); !ok {
		t.Fatalf("hinge ui entry missing: %v", ctx.UI)
	}
	org := ctx.Bones.Find("ORG-tail2")
	if org.Constraint("Copy Transforms FK") == nil {
		t.Fatalf("fk copy constraint missing")
	}
}

func TestLimbArmStages(t *testing.T) {
	ctx := newContextForTest(t, newLimbMetarigForTest("arm"))
	elements := buildElementsForTest(t, ctx)
	runStagesForTest(t, ctx, elements)

	limb := elements[1].(*LimbRig)
	if limb.Control.Name != "IK-hand.L" || limb.Pole.Name != "IK-upper_arm_pole.L" {
		t.Fatalf("ik names mismatch: control=%s pole=%s", limb.Control.Name, limb.Pole.Name)
	}
	ik := ctx.Bones.Find("MCH-IK-forearm.L").Constraint("IK")
	if ik == nil {
		t.Fatalf("ik constraint missing")
	}
	if v, _ := ik.Prop("chain_count"); v != 2 {
		t.Fatalf("chain_count mismatch: got=%v", v)
	}
	if v, _ := ik.Prop("pole_subtarget"); v != "IK-upper_arm_pole.L" {
		t.Fatalf("pole mismatch: got=%v", v)
	}
	if hand := ctx.Bones.Find("MCH-IK-hand.L"); hand.Parent.Name() != "IK-hand.L" {
		t.Fatalf("hand mech parent mismatch: got=%s", hand.Parent.Name())
	}

	if len(limb.Candidates) != 2 || limb.Candidates[0].Label != "Root" || limb.Candidates[1].Bone != "torso" {
		t.Fatalf("candidates mismatch: %v", limb.Candidates)
	}
	switchCon := limb.ParentSwitch.Constraint("Armature Parents")
	if switchCon == nil || len(switchCon.Targets) != 2 {
		t.Fatalf("parent switch mismatch: %+v", switchCon)
	}
	d, ok := switchCon.Drivers.Get(descriptor.DriverKey("targets[1].weight", -1))
	if !ok || d.Expression != "parent == 1" {
		t.Fatalf("parent driver mismatch: %+v", d)
	}
	if v, err := d.Evaluate(map[string]float64{"parent": 1}); err != nil || v != 1 {
		t.Fatalf("parent driver evaluate mismatch: got=%v err=%v", v, err)
	}

	props := ctx.Bones.Find("properties")
	parents, ok := props.CustomProps.Get("ik_parents_upper_arm.L")
	if !ok || parents.Max != 1 {
		t.Fatalf("parents prop mismatch: %+v", parents)
	}
	if !props.CustomProps.Has("ik_upper_arm.L") || !props.CustomProps.Has("ik_stretch_upper_arm.L") {
		t.Fatalf("ik props missing: %v", props.CustomProps.Names())
	}

	org := ctx.Bones.Find("ORG-forearm.L")
	copyIK := org.Constraint("Copy Transforms IK")
	if copyIK == nil || copyIK.Subtarget() != "MCH-IK-forearm.L" {
		t.Fatalf("ik copy mismatch: %+v", copyIK)
	}
	if _, ok := copyIK.Drivers.Get(descriptor.DriverKey("influence", -1)); !ok {
		t.Fatalf("ik influence driver missing")
	}
	entry, ok := ctx.UI.Entry(model.UIDataIKSwitches, "Upper Arm L")
	if !ok || entry.Operator != OPERATOR_SNAP_BAKE || len(entry.Texts) != 2 {
		t.Fatalf("ik ui mismatch: %+v", entry)
	}
	if _, ok := ctx.UI.Entry(model.UIDataParents, "Upper Arm L"); !ok {
		t.Fatalf("parents ui missing")
	}
}

func TestLimbLegFlattensControl(t *testing.T) {
	ctx := newContextForTest(t, newLimbMetarigForTest("leg"))
	elements := buildElementsForTest(t, ctx)
	runStagesForTest(t, ctx, elements)

	control := elements[1].(*LimbRig).Control
	if math.Abs(control.Tail.Z-control.Head.Z) > 1e-9 {
		t.Fatalf("leg control should be flat: head=%v tail=%v", control.Head, control.Tail)
	}
}

func TestLimbStructuralErrors(t *testing.T) {
	meta := newLimbMetarigForTest("tentacle")
	ctx := newContextForTest(t, meta)
	limb := NewLimbRig(meta.Bones[1])
	if err := limb.Initialize(ctx); !merr.IsStructural(err) {
		t.Fatalf("invalid limb type should be structural: %v", err)
	}

	meta = newLimbMetarigForTest("arm")
	meta.Bones = meta.Bones[:3]
	ctx = newContextForTest(t, meta)
	limb = NewLimbRig(meta.Bones[1])
	if err := limb.Initialize(ctx); !merr.IsStructural(err) {
		t.Fatalf("two bone limb should be structural: %v", err)
	}
}
