package entity

import (
	"errors"
	"testing"

	apperrors "tracehub-api/pkg/errors"
)

func TestProjectVersionOrderingIsTotal(t *testing.T) {
	var versions []*ProjectVersion
	for major := 0; major <= 2; major++ {
		for minor := 0; minor <= 2; minor++ {
			for patch := 0; patch <= 2; patch++ {
				versions = append(versions, NewProjectVersion("p1", major, minor, patch))
			}
		}
	}

	for _, a := range versions {
		for _, b := range versions {
			lt, eq, gt := a.IsLessThan(b), a.SameRank(b), a.IsGreaterThan(b)
			count := 0
			for _, ok := range []bool{lt, eq, gt} {
				if ok {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("%s vs %s: expected exactly one relation, got lt=%v eq=%v gt=%v", a, b, lt, eq, gt)
			}
			if a.IsLessThanOrEqualTo(b) != (lt || eq) {
				t.Fatalf("%s <= %s inconsistent", a, b)
			}
			if a.Compare(b) != -b.Compare(a) {
				t.Fatalf("%s vs %s: compare is not antisymmetric", a, b)
			}
			for _, c := range versions {
				if a.IsLessThan(b) && b.IsLessThan(c) && !a.IsLessThan(c) {
					t.Fatalf("transitivity broken for %s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestProjectVersionCompareFieldPrecedence(t *testing.T) {
	tests := []struct {
		name string
		a, b *ProjectVersion
		want int
	}{
		{"major wins", NewProjectVersion("p", 2, 0, 0), NewProjectVersion("p", 1, 9, 9), 1},
		{"minor wins", NewProjectVersion("p", 1, 1, 0), NewProjectVersion("p", 1, 0, 9), 1},
		{"patch decides", NewProjectVersion("p", 1, 1, 1), NewProjectVersion("p", 1, 1, 2), -1},
		{"equal", NewProjectVersion("p", 3, 2, 1), NewProjectVersion("p", 3, 2, 1), 0},
		{"unset sorts first", UnsetProjectVersion("p"), NewProjectVersion("p", 0, 0, 0), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Fatalf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProjectVersionContractViolationsPanic(t *testing.T) {
	tests := []struct {
		name string
		a, b *ProjectVersion
	}{
		{"different projects", NewProjectVersion("p1", 1, 0, 0), NewProjectVersion("p2", 1, 0, 0)},
		{"malformed triple", NewProjectVersion("p1", 1, -1, 0), NewProjectVersion("p1", 1, 0, 0)},
		{"nil other", NewProjectVersion("p1", 1, 0, 0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected panic")
				}
				err, ok := r.(error)
				if !ok || !errors.Is(err, apperrors.ErrVersionContract) {
					t.Fatalf("expected version contract error, got %v", r)
				}
			}()
			tt.a.Compare(tt.b)
		})
	}
}

func TestProjectVersionNext(t *testing.T) {
	v := NewProjectVersion("p", 1, 2, 3)
	if got := v.NextMajor().String(); got != "2.0.0" {
		t.Fatalf("NextMajor() = %s", got)
	}
	if got := v.NextMinor().String(); got != "1.3.0" {
		t.Fatalf("NextMinor() = %s", got)
	}
	if got := v.NextRevision().String(); got != "1.2.4" {
		t.Fatalf("NextRevision() = %s", got)
	}
}

func TestProjectVersionValidate(t *testing.T) {
	if err := UnsetProjectVersion("p").Validate(); err != nil {
		t.Fatalf("unset sentinel should validate: %v", err)
	}
	if err := NewProjectVersion("p", 0, -1, 0).Validate(); !errors.Is(err, apperrors.ErrVersionContract) {
		t.Fatalf("expected contract error, got %v", err)
	}
}
