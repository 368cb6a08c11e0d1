package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestClipboardEntry_Fields(t *testing.T) {
	typ := reflect.TypeOf(ClipboardEntry{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Content", "type:text")
	assertGormTag(t, typ, "Content", "not null")
	assertGormTag(t, typ, "Hash", "size:64")
	assertGormTag(t, typ, "Hash", "index")
	assertGormTag(t, typ, "CreatedAt", "index")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestAutomationTask_Fields(t *testing.T) {
	typ := reflect.TypeOf(AutomationTask{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Command", "not null")
	assertGormTag(t, typ, "Kind", "size:16")
	assertGormTag(t, typ, "Kind", "index")
	assertGormTag(t, typ, "CronSpec", "size:128")
	assertGormTag(t, typ, "LastResult", "type:text")
	assertGormTag(t, typ, "RunCount", "default:0")
	assertGormTag(t, typ, "Active", "default:true")
	assertFieldType(t, typ, "RunAt", "*time.Time")
	assertFieldType(t, typ, "LastRunAt", "*time.Time")
	assertFieldType(t, typ, "IntervalMinutes", "int")
}

func TestActionLog_Fields(t *testing.T) {
	typ := reflect.TypeOf(ActionLog{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "RequestID", "size:36")
	assertGormTag(t, typ, "Principal", "index")
	assertGormTag(t, typ, "Action", "size:128")
	assertGormTag(t, typ, "Outcome", "size:16")
	assertGormTag(t, typ, "Error", "type:text")
	assertFieldType(t, typ, "DurationMs", "int64")
}

func TestTaskKinds_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range []string{TaskOnce, TaskRecurring, TaskCron} {
		if seen[k] {
			t.Errorf("duplicate task kind %q", k)
		}
		seen[k] = true
	}
}

func TestAutomationTask_Instantiation(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task := AutomationTask{
		Command: "echo hi",
		Kind:    TaskOnce,
		RunAt:   &at,
		Active:  true,
	}
	if task.RunAt == nil || !task.RunAt.Equal(at) {
		t.Errorf("RunAt = %v, want %v", task.RunAt, at)
	}
	if task.LastRunAt != nil {
		t.Error("LastRunAt should be nil before the first run")
	}
}
