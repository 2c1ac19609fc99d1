package layout

import (
	"sync"
	"testing"

	"github.com/matzehuels/kdag/pkg/geom"
)

func TestReportNodeRect(t *testing.T) {
	tests := []struct {
		name    string
		initial *geom.Rect
		report  geom.Rect
		want    geom.Rect
		updated bool
	}{
		{
			name:    "insert unknown",
			report:  geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			want:    geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			updated: true,
		},
		{
			name:    "sub-epsilon jitter ignored",
			initial: &geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			report:  geom.Rect{X: 10.4, Y: 10, W: 50, H: 20},
			want:    geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			updated: false,
		},
		{
			name:    "exactly epsilon ignored",
			initial: &geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			report:  geom.Rect{X: 11, Y: 9, W: 51, H: 19},
			want:    geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			updated: false,
		},
		{
			name:    "single axis beyond epsilon replaces wholesale",
			initial: &geom.Rect{X: 10, Y: 10, W: 50, H: 20},
			report:  geom.Rect{X: 10.5, Y: 10, W: 52, H: 20},
			want:    geom.Rect{X: 10.5, Y: 10, W: 52, H: 20},
			updated: true,
		},
		{
			name:    "height change",
			initial: &geom.Rect{X: 0, Y: 0, W: 10, H: 10},
			report:  geom.Rect{X: 0, Y: 0, W: 10, H: 30},
			want:    geom.Rect{X: 0, Y: 0, W: 10, H: 30},
			updated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if tt.initial != nil {
				s.ReportNodeRect("n1", *tt.initial)
			}
			if got := s.ReportNodeRect("n1", tt.report); got != tt.updated {
				t.Errorf("ReportNodeRect() = %v, want %v", got, tt.updated)
			}
			got, ok := s.Rect("n1")
			if !ok {
				t.Fatal("Rect() missing after report")
			}
			if got != tt.want {
				t.Errorf("Rect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReportNodeRectRepeatedIsNoop(t *testing.T) {
	s := NewStore()
	r := geom.Rect{X: 1, Y: 2, W: 3, H: 4}
	s.ReportNodeRect("a", r)
	v := s.Version()

	calls := 0
	cancel := s.Subscribe(func() { calls++ })
	defer cancel()

	for i := 0; i < 5; i++ {
		if s.ReportNodeRect("a", r) {
			t.Fatal("identical report changed the store")
		}
	}
	if s.Version() != v {
		t.Errorf("Version() = %d, want %d", s.Version(), v)
	}
	if calls != 0 {
		t.Errorf("subscriber called %d times, want 0", calls)
	}
}

func TestWithEpsilon(t *testing.T) {
	s := NewStore(WithEpsilon(5))
	s.ReportNodeRect("a", geom.Rect{})
	if s.ReportNodeRect("a", geom.Rect{X: 4}) {
		t.Error("delta 4 should be within epsilon 5")
	}
	if !s.ReportNodeRect("a", geom.Rect{X: 6}) {
		t.Error("delta 6 should exceed epsilon 5")
	}

	s = NewStore(WithEpsilon(-1))
	s.ReportNodeRect("a", geom.Rect{})
	if s.ReportNodeRect("a", geom.Rect{X: 1}) {
		t.Error("non-positive epsilon should fall back to the default")
	}
}

func TestUpdateViewport(t *testing.T) {
	s := NewStore()
	if got := s.Viewport(); got != (geom.Viewport{}) {
		t.Errorf("initial Viewport() = %+v, want zero", got)
	}

	calls := 0
	s.Subscribe(func() { calls++ })

	origin := geom.Origin{Top: 60, Left: 240}
	scroll := geom.Scroll{X: 0, Y: 150}
	s.UpdateViewport(origin, scroll)
	s.UpdateViewport(origin, scroll)

	want := geom.Viewport{CanvasOrigin: origin, ScrollOffset: scroll}
	if got := s.Viewport(); got != want {
		t.Errorf("Viewport() = %+v, want %+v", got, want)
	}
	if calls != 2 {
		t.Errorf("subscriber called %d times, want 2 (viewport updates are unconditional)", calls)
	}
}

func TestRelativePosition(t *testing.T) {
	s := NewStore()
	if _, ok := s.RelativePosition("missing"); ok {
		t.Error("RelativePosition() of unknown node should report false")
	}

	s.ReportNodeRect("n1", geom.Rect{X: 300, Y: 200, W: 120, H: 40})
	s.UpdateViewport(geom.Origin{Top: 60, Left: 240}, geom.Scroll{X: 0, Y: 150})

	got, ok := s.RelativePosition("n1")
	if !ok {
		t.Fatal("RelativePosition() missing")
	}
	want := RelativePosition{X: 120, Y: 310, W: 120, H: 40}
	if got != want {
		t.Errorf("RelativePosition() = %+v, want %+v", got, want)
	}

	// Scrolling moves the relative center without re-measuring.
	s.UpdateViewport(geom.Origin{Top: 60, Left: 240}, geom.Scroll{X: 30, Y: 0})
	got, _ = s.RelativePosition("n1")
	if got.X != 150 || got.Y != 160 {
		t.Errorf("after scroll RelativePosition() = (%v, %v), want (150, 160)", got.X, got.Y)
	}
}

func TestRectIsCopy(t *testing.T) {
	s := NewStore()
	s.ReportNodeRect("n1", geom.Rect{X: 1, Y: 1, W: 1, H: 1})

	r, _ := s.Rect("n1")
	r.X = 999
	all := s.Rects()
	all["n1"] = geom.Rect{}
	delete(all, "n1")

	got, _ := s.Rect("n1")
	if got.X != 1 {
		t.Errorf("store mutated through accessor: %+v", got)
	}
}

func TestRemoveAndReset(t *testing.T) {
	s := NewStore()
	s.ReportNodeRect("a", geom.Rect{W: 1})
	s.ReportNodeRect("b", geom.Rect{W: 1})
	s.UpdateViewport(geom.Origin{Top: 1}, geom.Scroll{})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !s.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if s.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if _, ok := s.Rect("a"); ok {
		t.Error("a still present after Remove")
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", s.Len())
	}
	if s.Viewport() != (geom.Viewport{}) {
		t.Errorf("Viewport() after Reset = %+v, want zero", s.Viewport())
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := NewStore()
	calls := 0
	cancel := s.Subscribe(func() { calls++ })

	s.ReportNodeRect("a", geom.Rect{W: 1})
	cancel()
	s.ReportNodeRect("b", geom.Rect{W: 1})

	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := NewStore()
	var seen int
	s.Subscribe(func() { seen = s.Len() })
	s.ReportNodeRect("a", geom.Rect{W: 1})
	if seen != 1 {
		t.Errorf("subscriber saw Len() = %d, want 1", seen)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.ReportNodeRect("n", geom.Rect{X: float64(i*100 + j*2)})
				s.UpdateViewport(geom.Origin{Top: float64(j)}, geom.Scroll{})
				s.RelativePosition("n")
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
