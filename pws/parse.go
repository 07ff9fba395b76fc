package pws

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	"github.com/gmlewis/sla-format-tools/rgb565"
)

// Parse decodes a .pws file.
//
// Sections are located through the offsets in the file header, so they
// may appear in any order. The returned count is the smallest number of
// bytes left after any one section; a file with no trailing data has
// zero.
//
// Any framing error is reported wrapped in ErrFormat and no partial
// file is returned.
func Parse(buf []byte) (*File, int, error) {
	p := &parser{buf: buf}
	f, err := p.parse()
	if err != nil {
		return nil, 0, err
	}
	return f, p.rest, nil
}

type parser struct {
	buf  []byte
	rest int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrFormat, fmt.Sprintf(format, args...))
}

// section returns a reader positioned at off.
func (p *parser) section(name string, off uint32) (*bytes.Reader, error) {
	if uint64(off) > uint64(len(p.buf)) {
		return nil, p.errorf("%v offset %v beyond end of file (%v bytes)", name, off, len(p.buf))
	}
	return bytes.NewReader(p.buf[off:]), nil
}

// done records how far a section read got.
func (p *parser) done(r *bytes.Reader) {
	if r.Len() < p.rest {
		p.rest = r.Len()
	}
}

func (p *parser) read(r *bytes.Reader, name string, v interface{}) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return p.errorf("reading %v: %v", name, err)
	}
	return nil
}

func (p *parser) parse() (*File, error) {
	r := bytes.NewReader(p.buf)
	var fh binFileHeader
	if err := p.read(r, "file header", &fh); err != nil {
		return nil, err
	}
	p.rest = r.Len()
	if fh.Tag != fileTag {
		return nil, p.errorf("bad file tag %q", fh.Tag[:])
	}
	if fh.Reserved1 != 0 || fh.Reserved2 != 0 || fh.Reserved3 != 0 {
		return nil, p.errorf("reserved file header values not zero: %v %v %v", fh.Reserved1, fh.Reserved2, fh.Reserved3)
	}
	if fh.Version != fileVersion || fh.Area != fileArea {
		return nil, p.errorf("unexpected version or area: %v %v", fh.Version, fh.Area)
	}

	header, err := p.parseHeader(fh.HeaderOffset)
	if err != nil {
		return nil, err
	}

	preview, err := p.parsePreview(fh.PreviewOffset)
	if err != nil {
		return nil, err
	}

	defs, err := p.parseLayerDefs(fh.LayerDefOffset)
	if err != nil {
		return nil, err
	}

	layers := make([]Layer, 0, len(defs))
	for i, d := range defs {
		end := uint64(d.Offset) + uint64(d.Length)
		if end > uint64(len(p.buf)) {
			return nil, p.errorf("layer %v data [%v,%v) beyond end of file (%v bytes)", i, d.Offset, end, len(p.buf))
		}
		if rest := len(p.buf) - int(end); rest < p.rest {
			p.rest = rest
		}
		data := make(Bitstream, d.Length)
		copy(data, p.buf[d.Offset:end])
		layers = append(layers, Layer{
			LiftDistance: d.LiftDistance,
			LiftSpeed:    d.LiftSpeed,
			ExposureTime: d.ExposureTime,
			LayerHeight:  d.LayerHeight,
			Data:         data,
		})
	}

	return &File{
		Header:  *header,
		Preview: preview,
		Layers:  layers,
	}, nil
}

func (p *parser) parseHeader(off uint32) (*Header, error) {
	r, err := p.section("header", off)
	if err != nil {
		return nil, err
	}
	var h binHeader
	if err := p.read(r, "header", &h); err != nil {
		return nil, err
	}
	p.done(r)

	if h.Tag != headerTag {
		return nil, p.errorf("bad header tag %q", h.Tag[:])
	}
	if h.Length != headerLength {
		return nil, p.errorf("unexpected header length: %v", h.Length)
	}
	for _, b := range h.Reserved {
		if b != 0 {
			return nil, p.errorf("header reserved not empty: % x", h.Reserved)
		}
	}
	if h.IndividualParameters > 1 {
		return nil, p.errorf("expected 0 or 1 for boolean, got %v", h.IndividualParameters)
	}

	return &Header{
		PixelSize:            h.PixelSize,
		LayerHeight:          h.LayerHeight,
		ExposureTime:         h.ExposureTime,
		OffTime:              h.OffTime,
		BottomExposureTime:   h.BottomExposureTime,
		BottomLayers:         h.BottomLayers,
		LiftDistance:         h.LiftDistance,
		LiftSpeed:            h.LiftSpeed,
		DropSpeed:            h.DropSpeed,
		Volume:               h.Volume,
		BitsPerPixel:         h.BitsPerPixel,
		Width:                h.Width,
		Height:               h.Height,
		Weight:               h.Weight,
		Price:                h.Price,
		ResinType:            h.ResinType,
		IndividualParameters: h.IndividualParameters != 0,
	}, nil
}

func (p *parser) parsePreview(off uint32) (*image.RGBA, error) {
	r, err := p.section("preview", off)
	if err != nil {
		return nil, err
	}
	var ph binPreviewHeader
	if err := p.read(r, "preview header", &ph); err != nil {
		return nil, err
	}
	if ph.Tag != previewTag {
		return nil, p.errorf("bad preview tag %q", ph.Tag[:])
	}
	if ph.Marker != previewMarker {
		return nil, p.errorf("bad preview marker % x", ph.Marker[:])
	}
	w, h := uint64(ph.Width), uint64(ph.Height)
	if w != 0 && h > uint64(r.Len())/2/w {
		return nil, p.errorf("preview of %vx%v pixels truncated", w, h)
	}
	if uint64(ph.Length) != previewSectionSize(w, h)-16 {
		return nil, p.errorf("unexpected preview length: %v != 12 + %v * %v * 2", ph.Length, w, h)
	}
	img, err := rgb565.Read(r, int(w), int(h))
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	p.done(r)
	return img, nil
}

func (p *parser) parseLayerDefs(off uint32) ([]LayerDef, error) {
	r, err := p.section("layer definitions", off)
	if err != nil {
		return nil, err
	}
	var lh binLayerDefsHeader
	if err := p.read(r, "layer definitions header", &lh); err != nil {
		return nil, err
	}
	if lh.Tag != layerDefTag {
		return nil, p.errorf("bad layer definitions tag %q", lh.Tag[:])
	}
	count := uint64(lh.Count)
	if uint64(lh.Length) != layerDefsSectionSize(count)-16 {
		return nil, p.errorf("length of layer definitions does not match: %v != 4 + %v * 32", lh.Length, count)
	}
	if layerDefSize*count > uint64(r.Len()) {
		return nil, p.errorf("layer definitions for %v layers truncated", count)
	}
	raw := make([]binLayerDef, count)
	if err := p.read(r, "layer definitions", raw); err != nil {
		return nil, err
	}
	p.done(r)

	defs := make([]LayerDef, 0, count)
	for i, d := range raw {
		for _, b := range d.Reserved {
			if b != 0 {
				return nil, p.errorf("reserved fields not empty in layer definition %v: % x", i, d.Reserved)
			}
		}
		defs = append(defs, LayerDef{
			Offset:       d.Offset,
			Length:       d.Length,
			LiftDistance: d.LiftDistance,
			LiftSpeed:    d.LiftSpeed,
			ExposureTime: d.ExposureTime,
			LayerHeight:  d.LayerHeight,
		})
	}
	return defs, nil
}
