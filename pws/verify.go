package pws

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Verify decompresses every layer of f and compresses it again,
// checking that the result is byte-for-byte identical. Up to workers
// layers are processed at once (runtime.NumCPU() if workers <= 0).
// The first failing layer aborts the remaining work.
func Verify(ctx context.Context, f *File, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	width, height := int(f.Header.Width), int(f.Header.Height)
	bpp := int(f.Header.BitsPerPixel)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range f.Layers {
		i, data := i, f.Layers[i].Data
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, planes, err := data.Image(width, height)
			if err != nil {
				return fmt.Errorf("layer %v: %w", i, err)
			}
			if planes != bpp {
				return fmt.Errorf("layer %v: found %v planes, header says %v", i, planes, bpp)
			}
			re, err := CompressImage(img, bpp)
			if err != nil {
				return fmt.Errorf("layer %v: %w", i, err)
			}
			if !bytes.Equal(re, data) {
				return &MismatchError{Layer: i, Got: re, Want: data}
			}
			return nil
		})
	}
	return g.Wait()
}

// MismatchError reports a layer whose recompression differs from the
// stored data.
type MismatchError struct {
	Layer int
	Got   Bitstream
	Want  Bitstream
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pws: recompression did not yield same result on layer %v (%v bytes, stored %v bytes)", e.Layer, len(e.Got), len(e.Want))
}
