package rgb565

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestPack(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    uint16
	}{
		{name: "black"},
		{name: "white", r: 0xff, g: 0xff, b: 0xff, want: 0xffff},
		{name: "red", r: 0xff, want: 0x001f},
		{name: "green", g: 0xff, want: 0x07e0},
		{name: "blue", b: 0xff, want: 0xf800},
		{name: "truncated low bits", r: 0x07, g: 0x03, b: 0x07, want: 0},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			if got := Pack(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("Pack(%v,%v,%v) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestUnpack(t *testing.T) {
	r, g, b := Unpack(0xffff)
	if r != 0xff || g != 0xff || b != 0xff {
		t.Errorf("Unpack(0xffff) = (%v,%v,%v), want all 255", r, g, b)
	}
	r, g, b = Unpack(0x0821) // r=1, g=1, b=1
	if r != 0x08 || g != 0x04 || b != 0x08 {
		t.Errorf("Unpack(0x0821) = (%#x,%#x,%#x), want (0x8,0x4,0x8)", r, g, b)
	}
}

func TestUnpackPackIsIdentity(t *testing.T) {
	for v := 0; v <= 0xffff; v++ {
		r, g, b := Unpack(uint16(v))
		if got := Pack(r, g, b); got != uint16(v) {
			t.Fatalf("Pack(Unpack(%#04x)) = %#04x", v, got)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
	src.SetRGBA(1, 0, color.RGBA{G: 0xff, A: 0xff})
	src.SetRGBA(2, 0, color.RGBA{B: 0xff, A: 0xff})
	src.SetRGBA(0, 1, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	src.SetRGBA(1, 1, color.RGBA{A: 0xff})
	src.SetRGBA(2, 1, color.RGBA{R: 0x84, G: 0x82, B: 0x84, A: 0xff})

	var buf bytes.Buffer
	if err := Write(&buf, src); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.Len(), 2*3*2; got != want {
		t.Fatalf("Write produced %v bytes, want %v", got, want)
	}
	if got := buf.Bytes()[:2]; got[0] != 0x1f || got[1] != 0 {
		t.Errorf("first pixel = % x, want 1f 00 (little-endian)", got)
	}

	got, err := Read(&buf, 3, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Errorf("Read = %v, want %v", got.Pix, src.Pix)
	}
}

func TestReadShort(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{1, 2, 3}), 2, 1); err == nil {
		t.Error("Read of a truncated buffer succeeded")
	}
}

func TestReadInvalidSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{name: "negative", width: -1, height: 1},
		{name: "overflow", width: math.MaxInt / 2, height: 3},
		{name: "more than the reader holds", width: 300, height: 300},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			if _, err := Read(bytes.NewReader(make([]byte, 1000)), tt.width, tt.height); err == nil {
				t.Errorf("Read(%v, %v) succeeded", tt.width, tt.height)
			}
		})
	}
}

func TestDecodeImageSizeMismatch(t *testing.T) {
	if _, err := DecodeImage(2, 2, []uint16{1, 2, 3}); err == nil {
		t.Error("DecodeImage with too few pixels succeeded")
	}
}
