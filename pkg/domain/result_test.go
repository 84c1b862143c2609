package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "room 101 over capacity"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	err := RuleViolationError{Result: result}
	if !strings.Contains(err.Error(), "room 101 over capacity") {
		t.Fatalf("expected blocking message in error, got %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
	if names := engine.Rules(); len(names) != 1 || names[0] != "warn" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEngineStopsOnError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); err == nil {
		t.Fatalf("expected rule error to propagate")
	}
}

func TestValidationErrorAccumulates(t *testing.T) {
	verr := NewValidationError()
	if verr.OrNil() != nil {
		t.Fatalf("expected nil for empty validation error")
	}
	verr.Add("capacity", "must be positive")
	verr.Add("capacity", "ignored second message")
	verr.Add("roomNumber", "is required")
	err := verr.OrNil()
	if err == nil {
		t.Fatalf("expected error")
	}
	var target *ValidationError
	if !errors.As(err, &target) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if target.FieldErrors["capacity"] != "must be positive" {
		t.Fatalf("first message should win, got %q", target.FieldErrors["capacity"])
	}
	if err.Error() != "validation failed: capacity: must be positive; roomNumber: is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(errors.Join(errors.New("lookup"), ErrRoomNotFound)) {
		t.Fatalf("room not found should classify as not found")
	}
	if !IsNotFound(ErrStudentNotFound) {
		t.Fatalf("student not found should classify as not found")
	}
	if IsNotFound(ErrRoomFull) {
		t.Fatalf("room full is not a not-found error")
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, errors.New("boom")
}

type emptyView struct{}

func (emptyView) ListRooms() []Room                 { return nil }
func (emptyView) ListStudents() []Student           { return nil }
func (emptyView) FindRoom(string) (Room, bool)       { return Room{}, false }
func (emptyView) FindStudent(string) (Student, bool) { return Student{}, false }
