package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNewBuffer_NormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 40, 60))
	src.Set(10, 20, color.RGBA{255, 0, 0, 255})

	buf := NewBuffer(src)

	if buf.Width() != 30 || buf.Height() != 40 {
		t.Fatalf("dimensions: got %dx%d, want 30x40", buf.Width(), buf.Height())
	}
	if buf.Bounds().Min != (image.Point{}) {
		t.Errorf("origin: got %v, want (0,0)", buf.Bounds().Min)
	}
	if got := len(buf.Pixels()); got != 30*40*BytesPerPixel {
		t.Errorf("pixel length: got %d, want %d", got, 30*40*BytesPerPixel)
	}

	c, err := SampleColor(buf, 0, 0)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if c.Hex != "#FF0000" {
		t.Errorf("top-left pixel: got %s, want #FF0000", c.Hex)
	}
}

func TestNewBuffer_Nil(t *testing.T) {
	if NewBuffer(nil) != nil {
		t.Error("NewBuffer(nil) should return nil")
	}
}

func TestNewBuffer_CopiesSource(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	buf := NewBuffer(src)

	src.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})

	if buf.Pixels()[0] != 0 {
		t.Error("mutating the source changed the buffer")
	}
}

func TestFromPixels(t *testing.T) {
	pix := make([]byte, 4*3*BytesPerPixel)
	pix[0] = 200

	buf, err := FromPixels(4, 3, pix)
	if err != nil {
		t.Fatalf("FromPixels failed: %v", err)
	}
	if buf.Width() != 4 || buf.Height() != 3 {
		t.Errorf("dimensions: got %dx%d, want 4x3", buf.Width(), buf.Height())
	}

	// Input slice is copied
	pix[0] = 0
	if buf.Pixels()[0] != 200 {
		t.Error("FromPixels did not copy its input")
	}
}

func TestFromPixels_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		length        int
	}{
		{"short buffer", 4, 3, 4*3*BytesPerPixel - 1},
		{"long buffer", 4, 3, 4*3*BytesPerPixel + 4},
		{"zero width", 0, 3, 0},
		{"negative height", 4, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPixels(tt.width, tt.height, make([]byte, tt.length))
			if !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("got %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestBuffer_PixelsIsCopy(t *testing.T) {
	buf := createInMemoryImage(2, 2, color.RGBA{10, 20, 30, 255})

	p := buf.Pixels()
	p[0] = 99

	if buf.Pixels()[0] != 10 {
		t.Error("modifying Pixels() result changed the buffer")
	}
}

func TestBuffer_Equal(t *testing.T) {
	a := createInMemoryImage(5, 5, color.RGBA{1, 2, 3, 255})
	b := createInMemoryImage(5, 5, color.RGBA{1, 2, 3, 255})
	c := createInMemoryImage(5, 5, color.RGBA{9, 2, 3, 255})
	d := createInMemoryImage(5, 4, color.RGBA{1, 2, 3, 255})

	if !a.Equal(a) {
		t.Error("buffer should equal itself")
	}
	if !a.Equal(b) {
		t.Error("buffers with identical content should be equal")
	}
	if a.Equal(c) {
		t.Error("buffers with different pixels should not be equal")
	}
	if a.Equal(d) {
		t.Error("buffers with different sizes should not be equal")
	}
	if a.Equal(nil) {
		t.Error("buffer should not equal nil")
	}

	var n *Buffer
	if !n.Equal(nil) {
		t.Error("nil should equal nil")
	}
}

func TestBuffer_String(t *testing.T) {
	if got := createInMemoryImage(40, 30, color.Black).String(); got != "40x30" {
		t.Errorf("String: got %q, want 40x30", got)
	}
	var n *Buffer
	if got := n.String(); got != "<nil>" {
		t.Errorf("nil String: got %q", got)
	}
}
