// Command compositordemo renders a demo scene with the GPU compositor
// into an offscreen target and reports frame timings. It exercises
// quads, gradients, backdrop blur and gradient fades without needing a
// window system.
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	compositor "github.com/gogpu/compositor"
	"github.com/gogpu/compositor/gpu"
)

func main() {
	var (
		width    = flag.Int("width", 800, "target width in pixels")
		height   = flag.Int("height", 600, "target height in pixels")
		frames   = flag.Int("frames", 60, "number of frames to render")
		settings = flag.String("settings", "", "YAML settings file")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := compositor.DefaultSettings()
	if *settings != "" {
		s, err := compositor.LoadSettings(*settings)
		if err != nil {
			log.Fatalf("load settings: %v", err)
		}
		cfg = s
	}

	engine, err := gpu.NewHeadless()
	if err != nil {
		log.Fatalf("open GPU: %v", err)
	}
	defer engine.Destroy()

	target, err := engine.CreateTexture("demo.target", uint32(*width), uint32(*height), false)
	if err != nil {
		log.Fatalf("create target: %v", err)
	}
	defer engine.DestroyTexture(target)

	renderer := compositor.NewRenderer(engine, cfg)
	viewport := compositor.NewViewport(uint32(*width), uint32(*height), 1)
	clear := compositor.RGB(0.08, 0.08, 0.1)

	var total time.Duration
	for i := 0; i < *frames; i++ {
		drawScene(renderer, viewport.LogicalBounds(), float32(i)/float32(*frames))
		start := time.Now()
		if err := renderer.Present(target, &clear, viewport); err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}
		total += time.Since(start)
	}

	log.Printf("rendered %d frames at %dx%d, avg %s/frame",
		*frames, *width, *height, total/time.Duration(*frames))
}

// drawScene records one frame: a gradient backdrop, a grid of rounded
// cards, a frosted-glass panel over them and a fading footer.
func drawScene(r *compositor.Renderer, bounds compositor.Rectangle, phase float32) {
	r.Reset(bounds)

	backdrop := compositor.NewLinear(float32(math.Pi)/4).
		AddStop(0, compositor.RGB(0.13, 0.1, 0.25)).
		AddStop(1, compositor.RGB(0.03, 0.12, 0.2))
	r.FillQuad(compositor.Quad{
		Bounds:     bounds,
		Background: backdrop,
	})

	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			x := 40 + float32(col)*180
			y := 40 + float32(row)*140
			r.FillQuad(compositor.Quad{
				Bounds:       compositor.Rect(x, y, 150, 110),
				Background:   compositor.RGBA(0.9, 0.4+0.1*float32(row), 0.3, 0.9),
				BorderRadius: [4]float32{12, 12, 12, 12},
				BorderWidth:  1,
				BorderColor:  compositor.RGBA(1, 1, 1, 0.3),
				ShadowColor:  compositor.RGBA(0, 0, 0, 0.4),
				ShadowOffset:     compositor.Pt(0, 4),
				ShadowBlurRadius: 12,
			})
		}
	}

	// Frosted panel: blur the cards underneath, then draw the panel
	// chrome on top of the blurred backdrop.
	panel := compositor.Rect(120, 120, 400, 260)
	radius := 15 + 10*float32(math.Sin(float64(phase)*2*math.Pi))
	r.DrawBackdropBlur(panel, radius, [4]float32{16, 16, 16, 16})
	r.StartPostBlurLayer(panel)
	r.FillQuad(compositor.Quad{
		Bounds:       panel,
		Background:   compositor.RGBA(1, 1, 1, 0.12),
		BorderRadius: [4]float32{16, 16, 16, 16},
		BorderWidth:  1,
		BorderColor:  compositor.RGBA(1, 1, 1, 0.25),
	})
	r.EndPostBlurLayer()

	// Footer that fades out toward the bottom edge.
	footer := compositor.Rect(0, bounds.Height-120, bounds.Width, 120)
	r.StartGradientFade(footer, compositor.FadeTopToBottom, 0.5, 1)
	r.FillQuad(compositor.Quad{
		Bounds:     footer,
		Background: compositor.RGBA(0, 0, 0, 0.6),
	})
	r.EndGradientFade()
}
