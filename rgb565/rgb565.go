// Package rgb565 converts between 8-bit RGB and the 16-bit truncated
// color words used for slice-file thumbnails.
//
// Bits 0-4 hold red, bits 5-10 green and bits 11-15 blue.
package rgb565

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

// Pack truncates an 8-bit RGB triplet to a 16-bit word.
func Pack(r, g, b uint8) uint16 {
	var x uint16
	x |= uint16(r>>3) << 0
	x |= uint16(g>>2) << 5
	x |= uint16(b>>3) << 11
	return x
}

// Unpack expands a 16-bit word back to 8-bit channels by replicating
// the high bits into the low bits.
func Unpack(v uint16) (r, g, b uint8) {
	r5 := uint8(v & 0x1f)
	g6 := uint8((v >> 5) & 0x3f)
	b5 := uint8((v >> 11) & 0x1f)
	return upscale5(r5), upscale6(g6), upscale5(b5)
}

func upscale5(v uint8) uint8 { return v<<3 | v>>2 }
func upscale6(v uint8) uint8 { return v<<2 | v>>4 }

// EncodeImage returns the packed pixels of img in row-major order.
func EncodeImage(img image.Image) []uint16 {
	b := img.Bounds()
	out := make([]uint16, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out = append(out, Pack(c.R, c.G, c.B))
		}
	}
	return out
}

// DecodeImage builds an opaque RGBA image from row-major packed pixels.
func DecodeImage(width, height int, pix []uint16) (*image.RGBA, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("rgb565: %v pixels for a %vx%v image", len(pix), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range pix {
		r, g, b := Unpack(v)
		o := i * 4
		img.Pix[o+0] = r
		img.Pix[o+1] = g
		img.Pix[o+2] = b
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// Write writes the packed pixels of img as little-endian words.
func Write(w io.Writer, img image.Image) error {
	return binary.Write(w, binary.LittleEndian, EncodeImage(img))
}

// Read reads width*height little-endian words from r and decodes them.
func Read(r io.Reader, width, height int) (*image.RGBA, error) {
	if width < 0 || height < 0 || (width > 0 && height > math.MaxInt/2/width) {
		return nil, fmt.Errorf("rgb565: invalid size %vx%v", width, height)
	}
	if l, ok := r.(interface{ Len() int }); ok && width*height > l.Len()/2 {
		return nil, fmt.Errorf("rgb565: %vx%v pixels truncated, %v bytes left", width, height, l.Len())
	}
	pix := make([]uint16, width*height)
	if err := binary.Read(r, binary.LittleEndian, pix); err != nil {
		return nil, fmt.Errorf("rgb565: reading %vx%v pixels: %w", width, height, err)
	}
	return DecodeImage(width, height, pix)
}
