package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestFields_Component(t *testing.T) {
	fields := NewFields().Component("strategy-store")
	if fields["component"] != "strategy-store" {
		t.Errorf("Component() = %v, want %v", fields["component"], "strategy-store")
	}
}

func TestFields_Resource(t *testing.T) {
	fields := NewFields().Resource("pod", "nginx-test")
	if fields["resource_type"] != "pod" {
		t.Errorf("resource_type = %v, want pod", fields["resource_type"])
	}
	if fields["resource_name"] != "nginx-test" {
		t.Errorf("resource_name = %v, want nginx-test", fields["resource_name"])
	}
}

func TestFields_ResourceWithoutName(t *testing.T) {
	fields := NewFields().Resource("pod", "")
	if _, exists := fields["resource_name"]; exists {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestFields_Duration(t *testing.T) {
	fields := NewFields().Duration(150 * time.Millisecond)
	if fields["duration_ms"] != int64(150) {
		t.Errorf("duration_ms = %v, want 150", fields["duration_ms"])
	}
}

func TestFields_Err(t *testing.T) {
	fields := NewFields().Err(errors.New("boom"))
	if fields["error"] != "boom" {
		t.Errorf("error = %v, want boom", fields["error"])
	}

	fields2 := NewFields().Err(nil)
	if _, exists := fields2["error"]; exists {
		t.Error("Err(nil) should not set error field")
	}
}

func TestFields_Chaining(t *testing.T) {
	fields := NewFields().
		Component("executor").
		Operation("execute_command_plan").
		Namespace("default").
		StrategyID("s1").
		Count("retries", 2)

	if fields["component"] != "executor" ||
		fields["operation"] != "execute_command_plan" ||
		fields["namespace"] != "default" ||
		fields["strategy_id"] != "s1" ||
		fields["retries"] != 2 {
		t.Errorf("chained fields incomplete: %+v", fields)
	}
}
