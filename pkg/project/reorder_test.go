package project

import (
	"slices"
	"testing"

	"github.com/matzehuels/kdag/pkg/errors"
)

func TestMove(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"first to third", 0, 2, []string{"b", "c", "a", "d"}},
		{"last to first", 3, 0, []string{"d", "a", "b", "c"}},
		{"second to last", 1, 3, []string{"a", "c", "d", "b"}},
		{"in place", 1, 1, []string{"a", "b", "c", "d"}},
		{"adjacent swap", 2, 1, []string{"a", "c", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Move(ids, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Move() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Move(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
	if !slices.Equal(ids, []string{"a", "b", "c", "d"}) {
		t.Errorf("Move mutated its input: %v", ids)
	}
}

func TestMoveOutOfRange(t *testing.T) {
	for _, c := range [][2]int{{-1, 0}, {0, 4}, {4, 0}} {
		if _, err := Move([]string{"a", "b", "c", "d"}, c[0], c[1]); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Move(%d, %d) error = %v, want INVALID_INPUT", c[0], c[1], err)
		}
	}
	if _, err := Move(nil, 0, 0); err == nil {
		t.Error("Move(nil) should fail")
	}
}

func TestMoveID(t *testing.T) {
	got, err := MoveID([]string{"n1", "n2", "n3"}, "n3", 0)
	if err != nil || !slices.Equal(got, []string{"n3", "n1", "n2"}) {
		t.Errorf("MoveID() = %v, %v", got, err)
	}
	if _, err := MoveID([]string{"n1"}, "zz", 0); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("MoveID(zz) error = %v, want NOT_FOUND", err)
	}
}
