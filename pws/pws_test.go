package pws

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"reflect"
	"testing"
)

const (
	testWidth  = 6
	testHeight = 4
)

// testFile returns a small file whose preview colors survive the
// 16-bit truncation unchanged.
func testFile(t *testing.T) *File {
	t.Helper()

	preview := image.NewRGBA(image.Rect(0, 0, 4, 3))
	colors := []color.RGBA{
		{A: 0xff},
		{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		{R: 0xff, A: 0xff},
		{R: 0x84, G: 0x82, B: 0x84, A: 0xff},
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			preview.SetRGBA(x, y, colors[(x+y)%len(colors)])
		}
	}

	f := &File{
		Header: Header{
			PixelSize:            47.25,
			LayerHeight:          0.05,
			ExposureTime:         8,
			OffTime:              1,
			BottomExposureTime:   50,
			BottomLayers:         3,
			LiftDistance:         6,
			LiftSpeed:            1.5,
			DropSpeed:            3,
			BitsPerPixel:         2,
			Width:                testWidth,
			Height:               testHeight,
			ResinType:            36,
			IndividualParameters: true,
		},
		Preview: preview,
	}

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 3; i++ {
		data, err := CompressImage(randomGray(rng, testWidth, testHeight), 2)
		if err != nil {
			t.Fatalf("CompressImage: %v", err)
		}
		f.Layers = append(f.Layers, Layer{
			LiftDistance: 6,
			LiftSpeed:    1.5,
			ExposureTime: float32(50 - 10*i),
			LayerHeight:  0.05,
			Data:         data,
		})
	}
	return f
}

func mustEncode(t *testing.T, f *File) []byte {
	t.Helper()
	buf, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf
}

func TestOffsets(t *testing.T) {
	f := testFile(t)
	o, err := f.Offsets()
	if err != nil {
		t.Fatalf("Offsets: %v", err)
	}

	var layerBytes uint32
	for _, l := range f.Layers {
		layerBytes += uint32(len(l.Data))
	}
	want := Offsets{
		Header:    48,
		Preview:   48 + 96,
		LayerDefs: 48 + 96 + 28 + 2*4*3,
		Layers:    48 + 96 + 28 + 2*4*3 + 20 + 32*3,
	}
	want.Size = want.Layers + layerBytes
	if o != want {
		t.Errorf("Offsets = %+v, want %+v", o, want)
	}

	buf := mustEncode(t, f)
	if len(buf) != int(o.Size) {
		t.Errorf("Encode wrote %v bytes, Offsets promised %v", len(buf), o.Size)
	}
	for i, off := range []uint32{o.Header, o.Preview, o.LayerDefs} {
		if got := binary.LittleEndian.Uint32(buf[20+8*i:]); got != off {
			t.Errorf("header offset #%v = %v, want %v", i, got, off)
		}
	}
	if got := binary.LittleEndian.Uint32(buf[44:]); got != o.Layers {
		t.Errorf("layers offset = %v, want %v", got, o.Layers)
	}
}

func TestEncodeLayout(t *testing.T) {
	f := testFile(t)
	buf := mustEncode(t, f)
	o, _ := f.Offsets()

	tags := []struct {
		off  uint32
		want string
	}{
		{0, "ANYCUBIC\x00\x00\x00\x00"},
		{o.Header, "HEADER\x00\x00\x00\x00\x00\x00"},
		{o.Preview, "PREVIEW\x00\x00\x00\x00\x00"},
		{o.LayerDefs, "LAYERDEF\x00\x00\x00\x00"},
	}
	for _, tt := range tags {
		if got := string(buf[tt.off : tt.off+12]); got != tt.want {
			t.Errorf("tag at %v = %q, want %q", tt.off, got, tt.want)
		}
	}

	if got := binary.LittleEndian.Uint32(buf[o.Header+12:]); got != 80 {
		t.Errorf("header length = %v, want 80", got)
	}
	if got := binary.LittleEndian.Uint32(buf[o.Preview+12:]); got != 12+2*4*3 {
		t.Errorf("preview length = %v, want %v", got, 12+2*4*3)
	}
	if got := string(buf[o.Preview+20 : o.Preview+24]); got != "*\x00\x00\x00" {
		t.Errorf("preview marker = %q", got)
	}
	if got := binary.LittleEndian.Uint32(buf[o.LayerDefs+12:]); got != 4+32*3 {
		t.Errorf("layer definitions length = %v, want %v", got, 4+32*3)
	}

	defs, err := f.LayerDefs()
	if err != nil {
		t.Fatalf("LayerDefs: %v", err)
	}
	var total uint32
	next := o.Layers
	for i, d := range defs {
		if d.Offset != next {
			t.Errorf("layer %v offset = %v, want %v", i, d.Offset, next)
		}
		if uint64(d.Offset)+uint64(d.Length) > uint64(len(buf)) {
			t.Errorf("layer %v runs past the end of the file", i)
		}
		if !bytes.Equal(buf[d.Offset:d.Offset+d.Length], f.Layers[i].Data) {
			t.Errorf("layer %v data mismatch", i)
		}
		next += d.Length
		total += d.Length
	}
	if int(total) != len(buf)-int(o.Layers) {
		t.Errorf("layer lengths sum to %v, trailing payload is %v bytes", total, len(buf)-int(o.Layers))
	}
}

func TestRoundTrip(t *testing.T) {
	f := testFile(t)
	buf := mustEncode(t, f)

	got, rest, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rest != 0 {
		t.Errorf("Parse left %v bytes", rest)
	}
	if !reflect.DeepEqual(got, f) {
		t.Errorf("Parse = %+v, want %+v", got, f)
	}

	again := mustEncode(t, got)
	if !bytes.Equal(again, buf) {
		t.Error("re-encoding a parsed file changed it")
	}
}

func TestRoundTripNoLayers(t *testing.T) {
	f := testFile(t)
	f.Layers = nil
	buf := mustEncode(t, f)
	got, rest, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rest != 0 || len(got.Layers) != 0 {
		t.Errorf("Parse = %v layers, %v bytes left; want 0, 0", len(got.Layers), rest)
	}
}

func TestParseTrailingData(t *testing.T) {
	buf := append(mustEncode(t, testFile(t)), 1, 2, 3, 4, 5)
	if _, rest, err := Parse(buf); err != nil || rest != 5 {
		t.Errorf("Parse = (%v, %v), want (5, nil)", rest, err)
	}
}

// reorder moves the header section after the layer data, so the
// sections are no longer in file order.
func reorder(t *testing.T, f *File, buf []byte) []byte {
	t.Helper()
	o, err := f.Offsets()
	if err != nil {
		t.Fatalf("Offsets: %v", err)
	}
	fh := append([]byte(nil), buf[:o.Header]...)
	hdr := buf[o.Header:o.Preview]
	prev := buf[o.Preview:o.LayerDefs]
	defs := append([]byte(nil), buf[o.LayerDefs:o.Layers]...)
	layers := buf[o.Layers:]

	newPreview := uint32(len(fh))
	newDefs := newPreview + uint32(len(prev))
	newLayers := newDefs + uint32(len(defs))
	newHeader := newLayers + uint32(len(layers))

	binary.LittleEndian.PutUint32(fh[20:], newHeader)
	binary.LittleEndian.PutUint32(fh[28:], newPreview)
	binary.LittleEndian.PutUint32(fh[36:], newDefs)
	binary.LittleEndian.PutUint32(fh[44:], newLayers)
	for i := range f.Layers {
		p := defs[20+32*i:]
		binary.LittleEndian.PutUint32(p, binary.LittleEndian.Uint32(p)-uint32(len(hdr)))
	}

	var out []byte
	out = append(out, fh...)
	out = append(out, prev...)
	out = append(out, defs...)
	out = append(out, layers...)
	out = append(out, hdr...)
	return out
}

func TestParseSectionOrder(t *testing.T) {
	f := testFile(t)
	buf := reorder(t, f, mustEncode(t, f))

	got, rest, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rest != 0 {
		t.Errorf("Parse left %v bytes, want 0", rest)
	}
	if !reflect.DeepEqual(got, f) {
		t.Errorf("Parse = %+v, want %+v", got, f)
	}
}

func TestParseErrors(t *testing.T) {
	f := testFile(t)
	good := mustEncode(t, f)
	o, _ := f.Offsets()

	put32 := func(off uint32, v uint32) func([]byte) []byte {
		return func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[off:], v)
			return b
		}
	}
	set := func(off uint32, v byte) func([]byte) []byte {
		return func(b []byte) []byte {
			b[off] = v
			return b
		}
	}

	tests := []struct {
		name   string
		modify func([]byte) []byte
	}{
		{name: "file tag", modify: set(0, 'X')},
		{name: "file tag padding", modify: set(11, 1)},
		{name: "version", modify: put32(12, 2)},
		{name: "area", modify: put32(16, 5)},
		{name: "reserved after header offset", modify: put32(24, 1)},
		{name: "reserved after preview offset", modify: put32(32, 1)},
		{name: "reserved after layer def offset", modify: put32(40, 1)},
		{name: "header offset past end", modify: put32(20, 0xffffff)},
		{name: "header tag", modify: set(o.Header+1, 'x')},
		{name: "header length", modify: put32(o.Header+12, 81)},
		{name: "header reserved", modify: set(o.Header+95, 1)},
		{name: "boolean out of range", modify: put32(o.Header+80, 2)},
		{name: "preview tag", modify: set(o.Preview, 'p')},
		{name: "preview length", modify: put32(o.Preview+12, 12+2*4*3+2)},
		{name: "preview marker", modify: set(o.Preview+20, '+')},
		{name: "preview too large", modify: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[o.Preview+16:], 4000)
			binary.LittleEndian.PutUint32(b[o.Preview+24:], 4000)
			binary.LittleEndian.PutUint32(b[o.Preview+12:], 12+2*4000*4000)
			return b
		}},
		{name: "preview size wraps", modify: func(b []byte) []byte {
			// 12 + 2*w*h wraps to 65548 in 32 bits and 2*w*h to 65536 in 64.
			binary.LittleEndian.PutUint32(b[o.Preview+16:], 2147516416)
			binary.LittleEndian.PutUint32(b[o.Preview+24:], 4294901761)
			binary.LittleEndian.PutUint32(b[o.Preview+12:], 65548)
			return append(b, make([]byte, 70000)...)
		}},
		{name: "layer def tag", modify: set(o.LayerDefs+8, 'D')},
		{name: "layer def length", modify: put32(o.LayerDefs+12, 4+32*4)},
		{name: "layer def count", modify: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[o.LayerDefs+12:], 4+32*1000)
			binary.LittleEndian.PutUint32(b[o.LayerDefs+16:], 1000)
			return b
		}},
		{name: "layer def reserved", modify: set(o.LayerDefs+20+24, 1)},
		{name: "layer data past end", modify: put32(o.LayerDefs+20+32, 0xfffffff0)},
		{name: "layer length past end", modify: put32(o.LayerDefs+20+4, 0xffff)},
		{name: "truncated", modify: func(b []byte) []byte { return b[:o.Header+50] }},
		{name: "empty", modify: func(b []byte) []byte { return nil }},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			buf := tt.modify(append([]byte(nil), good...))
			got, _, err := Parse(buf)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("Parse error = %v, want ErrFormat", err)
			}
			if got != nil {
				t.Errorf("Parse returned a partial file")
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	f := testFile(t)
	f.Header.BitsPerPixel = 3
	if _, err := f.Encode(); !errors.Is(err, ErrBitDepth) {
		t.Errorf("Encode with bpp=3 = %v, want ErrBitDepth", err)
	}

	f = testFile(t)
	f.Preview = nil
	if _, err := f.Encode(); err == nil {
		t.Error("Encode without a preview succeeded")
	}
}

func TestWriteTo(t *testing.T) {
	f := testFile(t)
	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if want := mustEncode(t, f); n != int64(len(want)) || !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteTo wrote %v bytes, want %v", n, len(want))
	}
}
