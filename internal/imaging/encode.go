package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// EncodedImage is a Buffer rendered to a transportable form.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// ParseFormat maps a format name ("png", "jpeg", "jpg") to an encoder format.
func ParseFormat(name string) (imaging.Format, error) {
	switch name {
	case "png":
		return imaging.PNG, nil
	case "jpeg", "jpg":
		return imaging.JPEG, nil
	}
	return 0, fmt.Errorf("unsupported output format: %q", name)
}

// MimeType returns the MIME type for an encoder format.
func MimeType(f imaging.Format) string {
	if f == imaging.JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Write encodes buf to w. quality applies to JPEG only.
func Write(w io.Writer, buf *Buffer, format imaging.Format, quality int) error {
	if buf == nil {
		return fmt.Errorf("no image to encode")
	}
	if err := imaging.Encode(w, buf.Image(), format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// EncodePNG renders buf as a base64 PNG.
func EncodePNG(buf *Buffer) (*EncodedImage, error) {
	var out bytes.Buffer
	if err := Write(&out, buf, imaging.PNG, 0); err != nil {
		return nil, err
	}

	return &EncodedImage{
		Width:       buf.Width(),
		Height:      buf.Height(),
		ImageBase64: base64.StdEncoding.EncodeToString(out.Bytes()),
		MimeType:    MimeType(imaging.PNG),
	}, nil
}
