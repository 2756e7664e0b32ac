package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func TestEncodePNG(t *testing.T) {
	buf := createPatternImage(64, 48)

	result, err := EncodePNG(buf)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	if result.Width != 64 || result.Height != 48 {
		t.Errorf("dimensions: got %dx%d, want 64x48", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not a PNG: %v", err)
	}
	if !NewBuffer(decoded).Equal(buf) {
		t.Error("PNG round trip changed pixels")
	}
}

func TestEncodePNG_Nil(t *testing.T) {
	if _, err := EncodePNG(nil); err == nil {
		t.Error("EncodePNG should fail for nil buffer")
	}
}

func TestWrite_JPEG(t *testing.T) {
	buf := createInMemoryImage(32, 32, color.RGBA{200, 100, 50, 255})

	var out bytes.Buffer
	if err := Write(&out, buf, imaging.JPEG, 90); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(&out)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 32 {
		t.Errorf("dimensions: got %dx%d, want 32x32", cfg.Width, cfg.Height)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    imaging.Format
		wantErr bool
	}{
		{"png", imaging.PNG, false},
		{"jpeg", imaging.JPEG, false},
		{"jpg", imaging.JPEG, false},
		{"gif", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("format: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMimeType(t *testing.T) {
	if MimeType(imaging.JPEG) != "image/jpeg" {
		t.Error("JPEG mime type")
	}
	if MimeType(imaging.PNG) != "image/png" {
		t.Error("PNG mime type")
	}
}
