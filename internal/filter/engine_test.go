package filter

import (
	"errors"
	"image"
	"math"
	"sync"
	"testing"

	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
)

func sampleBuffer() *imaging.Buffer {
	return imaging.SampleImage(40, 30)
}

func TestDefaultEffects_PreserveSizeAndInput(t *testing.T) {
	r := DefaultRegistry()
	src := sampleBuffer()
	before := src.Pixels()

	for i := 0; i < r.Count(); i++ {
		tr, _ := r.Get(i)
		t.Run(tr.DisplayName(), func(t *testing.T) {
			out, err := tr.Apply(src)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if out.Width() != src.Width() || out.Height() != src.Height() {
				t.Errorf("size: got %s, want %s", out, src)
			}
			if out == src || out.Equal(src) {
				t.Error("filter output is identical to its input")
			}
			if string(src.Pixels()) != string(before) {
				t.Error("filter modified its input")
			}
		})
	}
}

func TestDefaultEffects_Deterministic(t *testing.T) {
	r := DefaultRegistry()
	src := sampleBuffer()

	for i := 0; i < r.Count(); i++ {
		tr, _ := r.Get(i)
		a, err := tr.Apply(src)
		if err != nil {
			t.Fatalf("%s: %v", tr.DisplayName(), err)
		}
		b, _ := tr.Apply(src)
		if !a.Equal(b) {
			t.Errorf("%s is not deterministic", tr.DisplayName())
		}
	}
}

func TestMonoEffects_AreGray(t *testing.T) {
	r := DefaultRegistry()
	src := sampleBuffer()

	for _, key := range []string{KeyMono, KeyNoir, KeyTonal} {
		_, tr, err := r.ByKey(key)
		if err != nil {
			t.Fatalf("ByKey(%s): %v", key, err)
		}
		out, err := tr.Apply(src)
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		pix := out.Pixels()
		for i := 0; i < len(pix); i += imaging.BytesPerPixel {
			if pix[i] != pix[i+1] || pix[i+1] != pix[i+2] {
				t.Errorf("%s: pixel %d not gray: (%d,%d,%d)", key, i/4, pix[i], pix[i+1], pix[i+2])
				break
			}
		}
	}
}

func TestToneCurves_RoundTrip(t *testing.T) {
	for v := 0; v < 256; v++ {
		back := sRGBToLinearTable[linearToSRGBTable[v]]
		// Dark linear values are quantised hard by the 8-bit round trip
		if v > 16 && math.Abs(float64(back)-float64(v)) > 3 {
			t.Errorf("linear %d -> sRGB %d -> linear %d", v, linearToSRGBTable[v], back)
		}
	}
	if linearToSRGBTable[128] <= 128 {
		t.Errorf("linear to sRGB should brighten mid grey, got %d", linearToSRGBTable[128])
	}
	if sRGBToLinearTable[128] >= 128 {
		t.Errorf("sRGB to linear should darken mid grey, got %d", sRGBToLinearTable[128])
	}
	if linearToSRGBTable[0] != 0 || linearToSRGBTable[255] != 255 {
		t.Error("tone curve endpoints must be fixed")
	}
}

func TestEngine_Render_Failures(t *testing.T) {
	e := NewEngine(map[string]Effect{
		"panic": func(image.Image) image.Image { panic("boom") },
		"nil":   func(image.Image) image.Image { return nil },
		"shrink": func(img image.Image) image.Image {
			return image.NewNRGBA(image.Rect(0, 0, 1, 1))
		},
	})
	src := sampleBuffer()

	tests := []struct {
		name string
		key  string
		src  *imaging.Buffer
	}{
		{"unknown key", "missing", src},
		{"panicking effect", "panic", src},
		{"nil result", "nil", src},
		{"size mismatch", "shrink", src},
		{"nil input", "nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Render(tt.key, tt.src)
			if !errors.Is(err, ErrEngineUnavailable) {
				t.Errorf("got %v, want ErrEngineUnavailable", err)
			}
			if out != nil {
				t.Error("failed render should return nil")
			}
		})
	}
}

func TestNewEngine_CopiesTable(t *testing.T) {
	table := map[string]Effect{"id": func(img image.Image) image.Image { return img }}
	e := NewEngine(table)
	delete(table, "id")

	if !e.Has("id") {
		t.Error("engine lost an effect when the source map changed")
	}
}

func TestEngine_ConcurrentRender(t *testing.T) {
	r := DefaultRegistry()
	src := sampleBuffer()

	var wg sync.WaitGroup
	errs := make(chan error, r.Count()*4)
	for n := 0; n < 4; n++ {
		for i := 0; i < r.Count(); i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tr, _ := r.Get(i)
				if _, err := tr.Apply(src); err != nil {
					errs <- err
				}
			}(i)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Apply: %v", err)
	}
}
