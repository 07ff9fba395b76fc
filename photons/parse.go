package photons

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math/bits"

	"github.com/gmlewis/sla-format-tools/rgb565"
	"github.com/gmlewis/sla-format-tools/rle"
)

const (
	fileVersion = 2
	fileMagic   = 0x31

	thumbnailMagic1 = 42
	thumbnailMagic2 = 10

	// Layer bit sizes count the two reversed dimension words too.
	layerSizeBits = 32

	layerHeaderSize = 28 // binLayerHeader + binLayerCheck

	maxRunBits = 128
)

type binHeader struct {
	Version            uint32 // Always 2
	Magic              uint16 // Always 0x31
	PixelSize          float64
	LayerHeight        float64
	ExposureTime       float64
	OffTime            float64
	BottomExposureTime float64
	BottomLayers       uint32
	LiftDistance       float64
	LiftSpeed          float64
	RetractSpeed       float64
	Volume             float64
}

type binThumbnailHeader struct {
	Width  uint32
	Magic1 uint32 // Always 42
	Height uint32
	Magic2 uint32 // Always 10
}

type binLayerHeader struct {
	Ones     uint32
	Reserved uint64
	Width    uint32
	Height   uint32
	BitSize  uint32
}

// The reversed dimensions are little-endian, unlike the rest of the file.
type binLayerCheck struct {
	WidthReversed  uint16
	HeightReversed uint16
}

func errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrFormat, fmt.Sprintf(format, args...))
}

func read(r *bytes.Reader, order binary.ByteOrder, name string, v interface{}) error {
	if err := binary.Read(r, order, v); err != nil {
		return errorf("reading %v: %v", name, err)
	}
	return nil
}

// Parse decodes a .photons file. It returns the number of bytes left
// after the last layer. Any framing error is reported wrapped in
// ErrFormat and no partial file is returned.
func Parse(buf []byte) (*File, int, error) {
	r := bytes.NewReader(buf)

	var h binHeader
	if err := read(r, binary.BigEndian, "header", &h); err != nil {
		return nil, 0, err
	}
	if h.Version != fileVersion {
		return nil, 0, errorf("unexpected version: %v", h.Version)
	}
	if h.Magic != fileMagic {
		return nil, 0, errorf("unexpected header constant: %#x", h.Magic)
	}

	thumbnail, err := parseThumbnail(r)
	if err != nil {
		return nil, 0, err
	}

	var count uint32
	if err := read(r, binary.BigEndian, "layer count", &count); err != nil {
		return nil, 0, err
	}
	if uint64(count)*layerHeaderSize > uint64(r.Len()) {
		return nil, 0, errorf("%v layers do not fit in %v bytes", count, r.Len())
	}

	layers := make([]Layer, 0, count)
	for i := uint32(0); i < count; i++ {
		l, err := parseLayer(r)
		if err != nil {
			return nil, 0, fmt.Errorf("layer %v: %w", i, err)
		}
		layers = append(layers, *l)
	}

	return &File{
		PixelSize:          h.PixelSize,
		LayerHeight:        h.LayerHeight,
		ExposureTime:       h.ExposureTime,
		OffTime:            h.OffTime,
		BottomExposureTime: h.BottomExposureTime,
		BottomLayers:       h.BottomLayers,
		LiftDistance:       h.LiftDistance,
		LiftSpeed:          h.LiftSpeed,
		RetractSpeed:       h.RetractSpeed,
		Volume:             h.Volume,
		Thumbnail:          thumbnail,
		Layers:             layers,
	}, r.Len(), nil
}

func parseThumbnail(r *bytes.Reader) (*image.RGBA, error) {
	var th binThumbnailHeader
	if err := read(r, binary.BigEndian, "thumbnail header", &th); err != nil {
		return nil, err
	}
	if th.Magic1 != thumbnailMagic1 || th.Magic2 != thumbnailMagic2 {
		return nil, errorf("unexpected thumbnail constants: %v %v", th.Magic1, th.Magic2)
	}
	if w := uint64(th.Width); w != 0 && uint64(th.Height) > uint64(r.Len())/2/w {
		return nil, errorf("thumbnail of %vx%v pixels truncated", th.Width, th.Height)
	}
	img, err := rgb565.Read(r, int(th.Width), int(th.Height))
	if err != nil {
		return nil, errorf("%v", err)
	}
	return img, nil
}

func parseLayer(r *bytes.Reader) (*Layer, error) {
	var lh binLayerHeader
	if err := read(r, binary.BigEndian, "layer header", &lh); err != nil {
		return nil, err
	}
	if lh.Reserved != 0 {
		return nil, errorf("reserved layer field not zero: %#x", lh.Reserved)
	}

	var lc binLayerCheck
	if err := read(r, binary.LittleEndian, "layer dimensions", &lc); err != nil {
		return nil, err
	}
	if uint32(bits.Reverse16(lc.WidthReversed)) != lh.Width || uint32(bits.Reverse16(lc.HeightReversed)) != lh.Height {
		return nil, errorf("reverse-bit fields invalid: %#x != %#x or %#x != %#x",
			lh.Width, bits.Reverse16(lc.WidthReversed), lh.Height, bits.Reverse16(lc.HeightReversed))
	}

	if lh.BitSize < layerSizeBits {
		return nil, errorf("layer bit size %v too small", lh.BitSize)
	}
	n := int64(lh.BitSize-layerSizeBits) / 8
	if n > int64(r.Len()) {
		return nil, errorf("layer data of %v bytes truncated", n)
	}
	// Every token covers at most maxRunBits pixels; one token of slack
	// allows for the shortened final token ChiTuBox writes.
	if uint64(lh.Width)*uint64(lh.Height) > maxRunBits*uint64(n+1) {
		return nil, errorf("layer data of %v bytes cannot cover %vx%v pixels", n, lh.Width, lh.Height)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errorf("reading layer data: %v", err)
	}

	return &Layer{
		Width:  int(lh.Width),
		Height: int(lh.Height),
		Data:   rle.Stream{Data: data, Ones: int(lh.Ones)},
	}, nil
}
