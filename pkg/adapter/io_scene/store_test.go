// 指示: miu200521358
package io_scene

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/host/memory"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_common"
	"github.com/miu200521358/mu_cloudrig/pkg/domain/descriptor"
	"github.com/miu200521358/mu_cloudrig/pkg/usecase/port/mhost"
)

func newSceneForTest(t *testing.T) *memory.Scene {
	t.Helper()
	scene := memory.NewScene()
	arm := scene.AddArmature("RIG-test")
	if err := arm.BeginTopologyPhase(); err != nil {
		t.Fatalf("BeginTopologyPhase failed: %v", err)
	}
	for i, name := range []string{"a", "b"} {
		eb, err := arm.NewEditBone(name)
		if err != nil {
			t.Fatalf("NewEditBone failed: %v", err)
		}
		_ = eb.Set("head", r3.Vec{X: float64(i)})
		_ = eb.Set("tail", r3.Vec{X: float64(i), Z: 1})
	}
	b, _ := arm.EditBone("b")
	_ = b.Set("parent", "a")
	_ = b.Set("bbone_segments", 4)
	if err := arm.BeginPropertyPhase(); err != nil {
		t.Fatalf("BeginPropertyPhase failed: %v", err)
	}
	widget, _ := scene.EnsureWidget("WGT-b", "Widgets")
	group, _ := arm.EnsureBoneGroup("FK")
	_ = group.Set("color_set", "THEME01")
	pb, _ := arm.PoseBone("b")
	_ = pb.Set("custom_shape", "WGT-b")
	_ = pb.Set("bone_group", "FK")
	con, _ := pb.NewConstraint("COPY_ROTATION", "Copy Rotation")
	_ = con.Set("target", arm.ID())
	_ = con.Set("subtarget", "a")
	_ = pb.SetCustomProp(descriptor.NewCustomProp("ik_fk", 1.0))
	d, _ := arm.AddDriver(mhost.ConstraintPath("b", "Copy Rotation", "influence"), -1)
	_ = d.Set("expression", "ik_fk")
	v, _ := d.NewVariable("ik_fk", string(descriptor.VARIABLE_TYPE_SINGLE_PROP))
	target, _ := v.Target(0)
	_ = target.Set("id", widget)
	_ = arm.SetCustomProp(descriptor.NewCustomProp("rig_id", "abc"))
	_, _ = scene.EnsureText("RIG-test_ui.json", "{}")
	scene.AddArmature("metarig")
	scene.UnlinkArmature("metarig")
	return scene
}

func newStoreForTest(t *testing.T) (*SqliteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.db")
	store, err := NewSqliteStore(path)
	if err != nil {
		t.Fatalf("NewSqliteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func snapshotJSONForTest(t *testing.T, snap memory.SceneSnapshot) string {
	t.Helper()
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(b)
}

func TestLoadEmptyScene(t *testing.T) {
	store, _ := newStoreForTest(t)
	scene, err := store.LoadScene()
	if err != nil {
		t.Fatalf("LoadScene failed: %v", err)
	}
	if len(scene.ArmatureNames()) != 0 {
		t.Fatalf("empty store should give an empty scene: %v", scene.ArmatureNames())
	}
}

func TestSaveAndLoadScene(t *testing.T) {
	store, path := newStoreForTest(t)
	scene := newSceneForTest(t)
	if err := store.SaveScene(scene); err != nil {
		t.Fatalf("SaveScene failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSqliteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	loaded, err := reopened.LoadScene()
	if err != nil {
		t.Fatalf("LoadScene failed: %v", err)
	}
	restored, ok := loaded.(*memory.Scene)
	if !ok {
		t.Fatalf("scene type mismatch: %T", loaded)
	}
	if got, want := snapshotJSONForTest(t, restored.Snapshot()), snapshotJSONForTest(t, scene.Snapshot()); got != want {
		t.Fatalf("snapshot mismatch:\ngot=%s\nwant=%s", got, want)
	}
	if restored.IsLinked("metarig") || !restored.IsLinked("RIG-test") {
		t.Fatalf("link state mismatch")
	}
	body, ok := restored.Text("RIG-test_ui.json")
	if !ok || body != "{}" {
		t.Fatalf("text mismatch: %q", body)
	}
}

func TestSaveReplacesPreviousScene(t *testing.T) {
	store, _ := newStoreForTest(t)
	if err := store.SaveScene(newSceneForTest(t)); err != nil {
		t.Fatalf("SaveScene failed: %v", err)
	}
	small := memory.NewScene()
	small.AddArmature("RIG-other")
	if err := store.SaveScene(small); err != nil {
		t.Fatalf("SaveScene failed: %v", err)
	}
	snap, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap.Armatures) != 1 || snap.Armatures[0].Name != "RIG-other" {
		t.Fatalf("armatures should be replaced: %+v", snap.Armatures)
	}
	if len(snap.Widgets) != 0 || len(snap.Texts) != 0 {
		t.Fatalf("widgets and texts should be replaced")
	}
}

func TestSaveRejectsForeignScene(t *testing.T) {
	store, _ := newStoreForTest(t)
	if err := store.SaveScene(nil); io_common.KindOf(err) != io_common.IO_SAVE_FAILED {
		t.Fatalf("nil scene should fail: %v", err)
	}
}

func TestDumpYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := DumpYAML(newSceneForTest(t).Snapshot(), &buf); err != nil {
		t.Fatalf("DumpYAML failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"name: RIG-test", "bone_groups:", "type: COPY_ROTATION", "name: WGT-b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump should contain %q:\n%s", want, out)
		}
	}
}
