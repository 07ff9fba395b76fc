// Package photons reads ChiTuBox .photons files, the legacy slice format
// of the AnyCubic Photon S.
//
// The container is big-endian and strictly sequential: a header, a
// thumbnail, then every layer with its own size and a compressed
// single-bit plane (see rle.ChiTu).
package photons

import (
	"bytes"
	"errors"
	"image"

	"github.com/gmlewis/sla-format-tools/rle"
)

// ErrFormat is wrapped by every error returned from Parse.
var ErrFormat = errors.New("photons: invalid format")

// File is a parsed .photons file.
type File struct {
	PixelSize          float64 // XY size of a pixel, in mm
	LayerHeight        float64 // in mm
	ExposureTime       float64 // in seconds
	OffTime            float64 // in seconds
	BottomExposureTime float64 // in seconds
	BottomLayers       uint32
	LiftDistance       float64 // in mm
	LiftSpeed          float64 // in mm/s
	RetractSpeed       float64 // in mm/s
	Volume             float64 // in mm^3

	Thumbnail *image.RGBA
	Layers    []Layer
}

// Layer is one layer image.
type Layer struct {
	Width  int
	Height int
	Data   rle.Stream
}

// Bits decompresses the layer, row-major.
func (l *Layer) Bits() []bool {
	return rle.ChiTu.Decode(l.Data, l.Width*l.Height)
}

// Image returns the layer as a black and white image.
func (l *Layer) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, l.Width, l.Height))
	for i, b := range l.Bits() {
		if b {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// Recompress reports whether compressing the decoded layer again
// reproduces the stored stream byte-for-byte.
func (l *Layer) Recompress() (rle.Stream, bool) {
	s := rle.ChiTu.Encode(l.Bits())
	return s, s.Ones == l.Data.Ones && bytes.Equal(s.Data, l.Data.Data)
}
