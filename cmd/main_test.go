// 指示: miu200521358
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_metarig"
	"github.com/miu200521358/mu_cloudrig/pkg/adapter/io_scene"
	"github.com/miu200521358/mu_cloudrig/pkg/shared/base/logging"
)

const metarigYamlForTest = `format_version: "1.0.0"
bones:
  - name: torso
    head: [0, 0, 1]
    tail: [0, 0, 1.5]
    rig_type: cloud_base
  - name: upper_arm.L
    parent: torso
    head: [0.2, 0, 1.5]
    tail: [0.5, 0.05, 1.4]
    rig_type: cloud_limbs
    params:
      limb_type: arm
      fk_hinge: true
  - name: forearm.L
    parent: upper_arm.L
    use_connect: true
    head: [0.5, 0.05, 1.4]
    tail: [0.8, 0, 1.3]
  - name: hand.L
    parent: forearm.L
    use_connect: true
    head: [0.8, 0, 1.3]
    tail: [0.9, 0, 1.2]
`

func writeMetarigForTest(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(metarigYamlForTest), 0o644); err != nil {
		t.Fatalf("write metarig failed: %v", err)
	}
	return path
}

func TestParseOptionsWithFlags(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	opts, err := parseOptions([]string{"-in", "a.yaml", "-in", "b.yaml", "-scene", "scene.db", "-dump", "-", "-watch", "-vv"}, errBuf)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(opts.inputs) != 2 || opts.inputs[1] != "b.yaml" {
		t.Fatalf("inputs mismatch: %v", opts.inputs)
	}
	if opts.scenePath != "scene.db" || opts.dumpPath != "-" || !opts.watch {
		t.Fatalf("options mismatch: %+v", opts)
	}
	if opts.level != logging.LOG_LEVEL_DEBUG || !opts.verbose {
		t.Fatalf("level mismatch: got=%d want=%d", opts.level, logging.LOG_LEVEL_DEBUG)
	}
}

func TestParseOptionsWithPositionals(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	opts, err := parseOptions([]string{"-q", "rigs/**/*.yaml", "human.yaml"}, errBuf)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(opts.inputs) != 2 || opts.inputs[0] != "rigs/**/*.yaml" {
		t.Fatalf("inputs mismatch: %v", opts.inputs)
	}
	if opts.level != logging.LOG_LEVEL_ERROR {
		t.Fatalf("level mismatch: got=%d want=%d", opts.level, logging.LOG_LEVEL_ERROR)
	}
}

func TestParseOptionsRequireInput(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	if _, err := parseOptions([]string{"-v"}, errBuf); err == nil || !strings.Contains(err.Error(), "-in") {
		t.Fatalf("missing input should fail: %v", err)
	}
}

func TestExpandInputsWithGlob(t *testing.T) {
	dir := t.TempDir()
	writeMetarigForTest(t, dir, filepath.Join("a", "human.yaml"))
	writeMetarigForTest(t, dir, filepath.Join("a", "b", "quad.yml"))
	writeMetarigForTest(t, dir, filepath.Join("a", "notes.txt"))
	canLoad := io_metarig.NewMetarigRepository().CanLoad

	paths, err := expandInputs([]string{filepath.Join(dir, "**", "*"), filepath.Join(dir, "a", "human.yaml")}, canLoad)
	if err != nil {
		t.Fatalf("expandInputs failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a", "b", "quad.yml"), filepath.Join(dir, "a", "human.yaml")}
	if len(paths) != len(want) {
		t.Fatalf("paths mismatch: got=%v want=%v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path mismatch: got=%s want=%s", paths[i], want[i])
		}
	}
	if _, err := expandInputs([]string{filepath.Join(dir, "**", "*.blend")}, canLoad); err == nil {
		t.Fatalf("glob without matches should fail")
	}
}

func TestRunGeneratesAndSavesScene(t *testing.T) {
	dir := t.TempDir()
	in := writeMetarigForTest(t, dir, "human.yaml")
	scenePath := filepath.Join(dir, "out", "scene.db")
	dumpPath := filepath.Join(dir, "out", "scene.yaml")

	outBuf := bytes.NewBuffer(nil)
	errBuf := bytes.NewBuffer(nil)
	args := []string{"-in", in, "-scene", scenePath, "-dump", dumpPath, "-record"}
	if err := run(args, outBuf, errBuf); err != nil {
		t.Fatalf("run failed: %v\n%s", err, errBuf.String())
	}
	if !strings.Contains(outBuf.String(), "RIG-human") {
		t.Fatalf("output should name the rig: %s", outBuf.String())
	}
	first, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("dump not found: %v", err)
	}
	if !strings.Contains(string(first), "name: RIG-human") || !strings.Contains(string(first), "name: ORG-upper_arm.L") {
		t.Fatalf("dump content mismatch:\n%s", first)
	}
	meta, err := io_metarig.NewMetarigRepository().Load(in)
	if err != nil {
		t.Fatalf("reload metarig failed: %v", err)
	}
	if meta.GeneratedRig != "RIG-human" {
		t.Fatalf("generated rig mismatch: got=%s want=RIG-human", meta.GeneratedRig)
	}

	if err := run(args, bytes.NewBuffer(nil), bytes.NewBuffer(nil)); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("dump not found: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("regeneration should be idempotent")
	}

	store, err := io_scene.NewSqliteStore(scenePath)
	if err != nil {
		t.Fatalf("open scene failed: %v", err)
	}
	defer store.Close()
	snap, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap.Armatures) != 1 || snap.Armatures[0].Name != "RIG-human" {
		t.Fatalf("saved armatures mismatch: %+v", snap.Armatures)
	}
}

func TestRunDumpsToStdout(t *testing.T) {
	in := writeMetarigForTest(t, t.TempDir(), "human.yaml")
	outBuf := bytes.NewBuffer(nil)
	if err := run([]string{"-q", "-dump", "-", in}, outBuf, bytes.NewBuffer(nil)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(outBuf.String(), "armatures:") {
		t.Fatalf("dump should be written to stdout: %s", outBuf.String())
	}
}

func TestRunReportsLoadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("format_version: \"3.0.0\"\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	err := run([]string{path}, bytes.NewBuffer(nil), bytes.NewBuffer(nil))
	if err == nil || !strings.Contains(err.Error(), "broken.yaml") {
		t.Fatalf("load failure should name the file: %v", err)
	}
}

func TestInputWatcherReportsChange(t *testing.T) {
	dir := t.TempDir()
	path := writeMetarigForTest(t, dir, "human.yaml")
	writeMetarigForTest(t, dir, "other.yaml")
	watcher, err := newInputWatcher([]string{path})
	if err != nil {
		t.Fatalf("newInputWatcher failed: %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func(changed []string) { changes <- changed })
	}()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(metarigYamlForTest+"\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case changed := <-changes:
		abs, _ := filepath.Abs(path)
		if len(changed) != 1 || changed[0] != abs {
			t.Fatalf("changed mismatch: got=%v want=[%s]", changed, abs)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("change was not reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}
