// 指示: miu200521358
package merr

import (
	"errors"
	"strings"
	"testing"
)

func TestRigErrorUnwrapAndKind(t *testing.T) {
	err := NewUnresolved("DEF-arm.L", "parent", "ORG-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain: %v", err)
	}
	if KindOf(err) != KindUnresolvedReference {
		t.Fatalf("kind mismatch: got=%v", KindOf(err))
	}
	if !strings.Contains(err.Error(), "bone=DEF-arm.L") || !strings.Contains(err.Error(), "property=parent") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestStructuralErrorDetected(t *testing.T) {
	err := NewStructural("upper_arm.L", "limb needs %d bones, got %d", 3, 2)
	if !IsStructural(err) {
		t.Fatalf("expected structural error")
	}
	if IsStructural(errors.New("plain")) {
		t.Fatalf("plain error should not be structural")
	}
}

func TestReportSummary(t *testing.T) {
	report := NewReport()
	report.Warn("W1", "", "a", "msg %d", 1)
	report.Warn("W1", "el", "b", "msg")
	report.Fail("z", errors.New("boom"))
	report.Fail("a", errors.New("boom"))
	report.Fail("a", errors.New("second"))

	if report.CountWarnings("W1") != 2 {
		t.Fatalf("warning count mismatch: %d", report.CountWarnings("W1"))
	}
	if got := report.Summary(); got != "warnings=2 failed=a,z" {
		t.Fatalf("summary mismatch: %s", got)
	}
	if report.FailedElements["a"].Error() != "boom" {
		t.Fatalf("first failure should win: %v", report.FailedElements["a"])
	}
}
