package compositor

import "testing"

func TestFadeDirectionFromCode(t *testing.T) {
	tests := []struct {
		code uint8
		want FadeDirection
	}{
		{0, FadeTopToBottom},
		{1, FadeBottomToTop},
		{2, FadeLeftToRight},
		{3, FadeRightToLeft},
		{4, FadeCenterOut},
		{5, FadeEdgesIn},
		{6, FadeTopToBottom},
		{255, FadeTopToBottom},
	}
	for _, tt := range tests {
		if got := FadeDirectionFromCode(tt.code); got != tt.want {
			t.Errorf("FadeDirectionFromCode(%d) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestNewGradientFadeDefaults(t *testing.T) {
	f := NewGradientFade(Rect(0, 0, 100, 100), FadeBottomToTop)
	if f.FadeStart != 0.7 || f.FadeEnd != 1.0 {
		t.Errorf("defaults = (%v, %v), want (0.7, 1.0)", f.FadeStart, f.FadeEnd)
	}
	if f.Direction != FadeBottomToTop {
		t.Errorf("Direction = %d", f.Direction)
	}
}

func TestGradientFadeRampClamping(t *testing.T) {
	f := NewGradientFade(Rect(0, 0, 10, 10), FadeTopToBottom).
		WithFadeStart(-0.5).
		WithFadeEnd(1.5)
	if f.FadeStart != 0 {
		t.Errorf("FadeStart = %v, want 0", f.FadeStart)
	}
	if f.FadeEnd != 1 {
		t.Errorf("FadeEnd = %v, want 1", f.FadeEnd)
	}
}

func TestFadeStateLifecycle(t *testing.T) {
	var s FadeState
	fade := NewGradientFade(Rect(0, 0, 100, 100), FadeTopToBottom)

	s.Start(fade, 2)
	// An open fade claims nothing until End closes it.
	if s.IsLayerInFadeRegion(3) {
		t.Error("open fade claimed a layer")
	}
	if s.HasRegions() {
		t.Error("open fade counted as completed")
	}

	s.End(5)
	if !s.HasRegions() {
		t.Fatal("completed fade missing")
	}
	if !s.IsLayerInFadeRegion(2) || !s.IsLayerInFadeRegion(4) {
		t.Error("layers inside fade region not claimed")
	}
	if s.IsLayerInFadeRegion(1) || s.IsLayerInFadeRegion(5) {
		t.Error("fade region is half open [start, end)")
	}

	regions := s.TakeRegions()
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].StartLayer != 2 || regions[0].EndLayer != 5 {
		t.Errorf("region = [%d, %d), want [2, 5)", regions[0].StartLayer, regions[0].EndLayer)
	}
	if s.HasRegions() {
		t.Error("TakeRegions did not clear")
	}
}

func TestFadeStateEndWithoutStart(t *testing.T) {
	var s FadeState
	s.End(3)
	if s.HasRegions() {
		t.Error("End without Start recorded a region")
	}
}

func TestFadeStateStartReplacesOpenFade(t *testing.T) {
	var s FadeState
	s.Start(NewGradientFade(Rect(0, 0, 10, 10), FadeTopToBottom), 1)
	s.Start(NewGradientFade(Rect(0, 0, 20, 20), FadeLeftToRight), 4)
	s.End(6)

	regions := s.TakeRegions()
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].StartLayer != 4 || regions[0].Fade.Direction != FadeLeftToRight {
		t.Errorf("replacement lost: %+v", regions[0])
	}
}

func TestFadeStateClear(t *testing.T) {
	var s FadeState
	s.Start(NewGradientFade(Rect(0, 0, 10, 10), FadeTopToBottom), 0)
	s.End(2)
	s.Start(NewGradientFade(Rect(0, 0, 10, 10), FadeTopToBottom), 3)

	s.Clear()
	if s.HasRegions() || s.IsLayerInFadeRegion(1) {
		t.Error("Clear left state behind")
	}
	// End after Clear must not resurrect the dropped open fade.
	s.End(9)
	if s.HasRegions() {
		t.Error("End after Clear recorded a region")
	}
}
