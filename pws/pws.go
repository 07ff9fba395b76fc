// Package pws reads and writes AnyCubic Photon Workshop (.pws) files,
// the slice format of the AnyCubic Photon S.
//
// A .pws file is a small fixed header followed by four tagged sections
// (header, preview, layer definitions, layer data). The fixed header
// records the absolute offset of every section. Since every section size
// follows from its contents, the writer computes all offsets up front and
// emits the file in a single pass; nothing is patched after the fact.
//
// Layer images are stored as one or more run-length encoded bit-planes
// (see CompressImage); more than one plane encodes antialiasing levels.
package pws

import (
	"errors"
	"image"
)

var (
	// ErrFormat is wrapped by every error returned from Parse.
	ErrFormat = errors.New("pws: invalid format")
	// ErrBitDepth reports an antialiasing depth other than 1, 2, 4 or 8.
	ErrBitDepth = errors.New("pws: bits per pixel must be 1, 2, 4 or 8")
)

// Header holds the print settings of a .pws file.
type Header struct {
	PixelSize          float32 // in microns
	LayerHeight        float32 // in mm
	ExposureTime       float32 // in seconds
	OffTime            float32 // in seconds
	BottomExposureTime float32 // in seconds
	BottomLayers       float32 // a count, but stored as a float
	LiftDistance       float32 // in mm
	LiftSpeed          float32 // in mm/s
	DropSpeed          float32 // in mm/s
	Volume             float32
	BitsPerPixel       uint32
	Width              uint32
	Height             uint32
	Weight             float32
	Price              float32 // resin cost
	ResinType          uint32

	// IndividualParameters makes the printer honor the per-layer settings.
	IndividualParameters bool
}

// Layer is one printed layer: its per-layer settings plus its image.
type Layer struct {
	LiftDistance float32
	LiftSpeed    float32
	ExposureTime float32
	LayerHeight  float32

	Data Bitstream
}

// File is a complete .pws file.
type File struct {
	Header  Header
	Preview *image.RGBA
	Layers  []Layer
}

// LayerDef is an entry of the layer definition table.
type LayerDef struct {
	Offset       uint32 // absolute, from the start of the file
	Length       uint32
	LiftDistance float32
	LiftSpeed    float32
	ExposureTime float32
	LayerHeight  float32
}

// ValidBitsPerPixel reports whether bpp is a supported antialiasing depth.
func ValidBitsPerPixel(bpp int) bool {
	switch bpp {
	case 1, 2, 4, 8:
		return true
	}
	return false
}
