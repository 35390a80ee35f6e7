package testutil

import (
	"os"
	"testing"
)

// mockTB captures whether a test failure occurred.
type mockTB struct {
	testing.TB // embedded for unimplemented methods
	failed     bool
}

func (m *mockTB) Helper()                           {}
func (m *mockTB) Fatal(args ...any)                 { m.failed = true }
func (m *mockTB) Fatalf(format string, args ...any) { m.failed = true }

func TestEqual(t *testing.T) {
	m := &mockTB{}

	Equal(m, 1, 1)
	if m.failed {
		t.Error("Equal(1, 1) should pass")
	}

	m.failed = false
	Equal(m, "foo", "foo")
	if m.failed {
		t.Error("Equal(foo, foo) should pass")
	}

	m.failed = false
	Equal(m, 1, 2)
	if !m.failed {
		t.Error("Equal(1, 2) should fail")
	}
}

func TestSliceEqual(t *testing.T) {
	m := &mockTB{}

	SliceEqual(m, []int{1, 2, 3}, []int{1, 2, 3})
	if m.failed {
		t.Error("equal slices should pass")
	}

	m.failed = false
	SliceEqual(m, []int{}, []int{})
	if m.failed {
		t.Error("empty slices should pass")
	}

	m.failed = false
	SliceEqual(m, []int{1, 2}, []int{1, 2, 3})
	if !m.failed {
		t.Error("different length slices should fail")
	}

	m.failed = false
	SliceEqual(m, []int{1, 2, 3}, []int{1, 9, 3})
	if !m.failed {
		t.Error("different content should fail")
	}
}

func TestNoError(t *testing.T) {
	m := &mockTB{}

	NoError(m, nil)
	if m.failed {
		t.Error("NoError(nil) should pass")
	}

	m.failed = false
	NoError(m, os.ErrNotExist)
	if !m.failed {
		t.Error("NoError(err) should fail")
	}
}

func TestContains(t *testing.T) {
	m := &mockTB{}

	Contains(m, "hello world", "world")
	if m.failed {
		t.Error("Contains should pass for substring")
	}

	m.failed = false
	Contains(m, "hello", "world")
	if !m.failed {
		t.Error("Contains should fail for missing substring")
	}
}
