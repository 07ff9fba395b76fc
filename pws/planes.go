package pws

import (
	"fmt"
	"image"

	"github.com/gmlewis/sla-format-tools/rle"
)

const maxTokenBits = 0x7f

// Bitstream is a compressed layer image: bpp bit-planes, each compressed
// on its own with rle.Anycubic and concatenated lowest threshold first.
type Bitstream []byte

// threshold returns the gray level at which plane bit of bpp turns on.
// The integer rounding matches Photon Workshop.
func threshold(bit, bpp int) int {
	return (bit*256)/bpp + 256/(2*bpp)
}

// CompressImage compresses img into bpp bit-planes.
func CompressImage(img *image.Gray, bpp int) (Bitstream, error) {
	if !ValidBitsPerPixel(bpp) {
		return nil, fmt.Errorf("%w, got %v", ErrBitDepth, bpp)
	}

	b := img.Bounds()
	plane := make([]bool, 0, b.Dx()*b.Dy())
	var out Bitstream
	for bit := 0; bit < bpp; bit++ {
		t := threshold(bit, bpp)
		plane = plane[:0]
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				plane = append(plane, int(row[x]) >= t)
			}
		}
		out = append(out, rle.Anycubic.Encode(plane).Data...)
	}
	return out, nil
}

// Bits decompresses all planes of b back to back.
func (b Bitstream) Bits() []bool {
	return rle.Anycubic.Decode(rle.Stream{Data: b}, 0)
}

// Image decompresses b into a width x height grayscale image and also
// returns the number of planes found. Each pixel becomes
// 255*planesSet/bpp, rounded down.
func (b Bitstream) Image(width, height int) (*image.Gray, int, error) {
	if width <= 0 || height <= 0 {
		return nil, 0, fmt.Errorf("pws: invalid image size %vx%v", width, height)
	}
	// No token decodes to more than maxTokenBits bits.
	if maxBits := maxTokenBits * uint64(len(b)); uint64(height) > maxBits/uint64(width) {
		return nil, 0, fmt.Errorf("pws: %v bytes of data cannot hold a %vx%v image", len(b), width, height)
	}
	n := width * height
	bits := rle.Anycubic.Decode(rle.Stream{Data: b}, n)
	if len(bits) == 0 || len(bits)%n != 0 {
		return nil, 0, fmt.Errorf("pws: %v decoded bits is not a multiple of %vx%v", len(bits), width, height)
	}
	bpp := len(bits) / n

	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := 0; i < n; i++ {
		var count int
		for bit := 0; bit < bpp; bit++ {
			if bits[i+bit*n] {
				count++
			}
		}
		img.Pix[i] = uint8(min(count*255/bpp, 255))
	}
	return img, bpp, nil
}
