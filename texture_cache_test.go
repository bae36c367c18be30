package compositor

import (
	"errors"
	"testing"
)

func TestBlurTextureCacheReuseAndRecreate(t *testing.T) {
	e := newFakeEngine()
	var c blurTextureCache

	scene1, int1, err := c.get(e, 800, 600)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if scene1.Width() != 800 || int1.Height() != 600 {
		t.Errorf("wrong texture size: %dx%d", scene1.Width(), int1.Height())
	}

	// Same size returns the same textures.
	scene2, int2, err := c.get(e, 800, 600)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if scene2 != scene1 || int2 != int1 {
		t.Error("matching size recreated textures")
	}
	if len(e.created) != 2 {
		t.Errorf("created %d textures, want 2", len(e.created))
	}

	// A size change destroys and recreates both.
	scene3, int3, err := c.get(e, 1024, 768)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if scene3 == scene1 || int3 == int1 {
		t.Error("size change kept stale textures")
	}
	if len(e.destroyed) != 2 {
		t.Errorf("destroyed %d textures, want 2: %q", len(e.destroyed), e.destroyed)
	}
	if scene3.Width() != 1024 || scene3.Height() != 768 {
		t.Errorf("recreated size = %dx%d", scene3.Width(), scene3.Height())
	}
}

func TestBlurTextureCacheCreateError(t *testing.T) {
	e := newFakeEngine()
	e.createErr = errors.New("out of memory")
	var c blurTextureCache

	if _, _, err := c.get(e, 100, 100); err == nil {
		t.Fatal("want error from failed create")
	}
}

func TestFadeTextureCacheReuseAndRecreate(t *testing.T) {
	e := newFakeEngine()
	var c fadeTextureCache

	t1, err := c.get(e, 640, 480)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t2, err := c.get(e, 640, 480)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if t1 != t2 {
		t.Error("matching size recreated texture")
	}

	t3, err := c.get(e, 320, 240)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if t3 == t1 {
		t.Error("size change kept stale texture")
	}
	if len(e.destroyed) != 1 {
		t.Errorf("destroyed %d textures, want 1", len(e.destroyed))
	}
}
