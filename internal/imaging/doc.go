// Package imaging provides the image primitives the filter screen is built on.
//
// The central type is Buffer, an immutable 8-bit NRGBA raster anchored at
// (0,0). Every operation in this module that changes pixels returns a new
// Buffer, so a Buffer can be handed between the session worker and its
// callers without copying or locking.
//
// # Operations
//
//   - Loading: ImageCache.Load and DecodeFormat read PNG, JPEG, GIF, BMP,
//     TIFF and WebP, applying EXIF orientation to camera captures.
//   - Resizing: ScaleToFit bounds the longer side to a maximum display
//     dimension, preserving aspect ratio and never upscaling.
//   - Encoding: EncodePNG produces base64 PNG for transport; Write encodes
//     PNG or JPEG to any io.Writer.
//   - Sampling: SampleColor reads a single pixel as hex, RGBA and HSL.
//   - SampleImage renders the built-in sample photo used for thumbnails.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Error Handling
//
// Construction from raw pixels fails with ErrInvalidBuffer when the byte
// length does not equal width*height*4. Scale-to-fit failures are reported as
// ErrResize. Both are sentinel errors intended for errors.Is.
package imaging
