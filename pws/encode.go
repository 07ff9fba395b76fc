package pws

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gmlewis/sla-format-tools/rgb565"
)

// Offsets holds the absolute section offsets recorded in the file header.
type Offsets struct {
	Header    uint32
	Preview   uint32
	LayerDefs uint32
	Layers    uint32
	// Size is the total size of the encoded file.
	Size uint32
}

// Offsets computes where every section of f will be placed.
func (f *File) Offsets() (Offsets, error) {
	if f.Preview == nil {
		return Offsets{}, errors.New("pws: missing preview image")
	}
	pb := f.Preview.Bounds()

	var pos uint64
	pos += fileHeaderSize

	var o Offsets
	o.Header = uint32(pos)
	pos += headerSectionSize

	o.Preview = uint32(pos)
	pos += previewSectionSize(uint64(pb.Dx()), uint64(pb.Dy()))

	o.LayerDefs = uint32(pos)
	pos += layerDefsSectionSize(uint64(len(f.Layers)))

	o.Layers = uint32(pos)
	for _, l := range f.Layers {
		pos += uint64(len(l.Data))
	}

	if pos > math.MaxUint32 {
		return Offsets{}, fmt.Errorf("pws: file size %v exceeds 4GiB", pos)
	}
	o.Size = uint32(pos)
	return o, nil
}

// LayerDefs returns the layer definition table of f. Offsets are a
// running sum over the layer data sizes starting at the layers section.
func (f *File) LayerDefs() ([]LayerDef, error) {
	o, err := f.Offsets()
	if err != nil {
		return nil, err
	}
	defs := make([]LayerDef, 0, len(f.Layers))
	offset := o.Layers
	for _, l := range f.Layers {
		defs = append(defs, LayerDef{
			Offset:       offset,
			Length:       uint32(len(l.Data)),
			LiftDistance: l.LiftDistance,
			LiftSpeed:    l.LiftSpeed,
			ExposureTime: l.ExposureTime,
			LayerHeight:  l.LayerHeight,
		})
		offset += uint32(len(l.Data))
	}
	return defs, nil
}

// Encode serializes f.
func (f *File) Encode() ([]byte, error) {
	if !ValidBitsPerPixel(int(f.Header.BitsPerPixel)) {
		return nil, fmt.Errorf("%w, got %v", ErrBitDepth, f.Header.BitsPerPixel)
	}
	o, err := f.Offsets()
	if err != nil {
		return nil, err
	}
	defs, err := f.LayerDefs()
	if err != nil {
		return nil, err
	}

	// Start forming the file from here.
	fileHeader := binFileHeader{
		Tag:            fileTag,
		Version:        fileVersion,
		Area:           fileArea,
		HeaderOffset:   o.Header,
		PreviewOffset:  o.Preview,
		LayerDefOffset: o.LayerDefs,
		LayersOffset:   o.Layers,
	}

	h := f.Header
	header := binHeader{
		Tag:                headerTag,
		Length:             headerLength,
		PixelSize:          h.PixelSize,
		LayerHeight:        h.LayerHeight,
		ExposureTime:       h.ExposureTime,
		OffTime:            h.OffTime,
		BottomExposureTime: h.BottomExposureTime,
		BottomLayers:       h.BottomLayers,
		LiftDistance:       h.LiftDistance,
		LiftSpeed:          h.LiftSpeed,
		DropSpeed:          h.DropSpeed,
		Volume:             h.Volume,
		BitsPerPixel:       h.BitsPerPixel,
		Width:              h.Width,
		Height:             h.Height,
		Weight:             h.Weight,
		Price:              h.Price,
		ResinType:          h.ResinType,
	}
	if h.IndividualParameters {
		header.IndividualParameters = 1
	}

	pb := f.Preview.Bounds()
	previewHeader := binPreviewHeader{
		Tag:    previewTag,
		Length: uint32(previewSectionSize(uint64(pb.Dx()), uint64(pb.Dy())) - 16),
		Width:  uint32(pb.Dx()),
		Marker: previewMarker,
		Height: uint32(pb.Dy()),
	}

	layerDefsHeader := binLayerDefsHeader{
		Tag:    layerDefTag,
		Length: uint32(layerDefsSectionSize(uint64(len(defs))) - 16),
		Count:  uint32(len(defs)),
	}
	layerDefs := make([]binLayerDef, 0, len(defs))
	for _, d := range defs {
		layerDefs = append(layerDefs, binLayerDef{
			Offset:       d.Offset,
			Length:       d.Length,
			LiftDistance: d.LiftDistance,
			LiftSpeed:    d.LiftSpeed,
			ExposureTime: d.ExposureTime,
			LayerHeight:  d.LayerHeight,
		})
	}

	w := bytes.NewBuffer(make([]byte, 0, o.Size))

	if err := binary.Write(w, binary.LittleEndian, fileHeader); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, previewHeader); err != nil {
		return nil, err
	}

	if err := rgb565.Write(w, f.Preview); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, layerDefsHeader); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.LittleEndian, layerDefs); err != nil {
		return nil, err
	}

	for _, l := range f.Layers {
		if _, err := w.Write(l.Data); err != nil {
			return nil, err
		}
	}

	if w.Len() != int(o.Size) {
		return nil, fmt.Errorf("pws: wrote %v bytes, expected %v", w.Len(), o.Size)
	}
	return w.Bytes(), nil
}

// WriteTo writes the encoded file to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	buf, err := f.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}
