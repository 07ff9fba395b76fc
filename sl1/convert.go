package sl1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"runtime"

	"github.com/disintegration/gift"
	"github.com/gmlewis/sla-format-tools/pws"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ErrImageSize reports a layer image whose size differs from the printer.
var ErrImageSize = errors.New("sl1: image size mismatch")

// Printer describes the target printer.
type Printer struct {
	PixelSize    float32 // in microns
	Width        int     // in pixels
	Height       int     // in pixels
	OffTime      float32 // in seconds
	LiftDistance float32 // in mm
	LiftSpeed    float32 // in mm/s
	DropSpeed    float32 // in mm/s
	ResinType    uint32

	PreviewWidth  int
	PreviewHeight int
}

// DefaultPrinter is the AnyCubic Photon S.
var DefaultPrinter = Printer{
	PixelSize:     47.25,
	Width:         1440,
	Height:        2560,
	OffTime:       1,
	LiftDistance:  6,
	LiftSpeed:     1.5,
	DropSpeed:     3,
	ResinType:     36,
	PreviewWidth:  224,
	PreviewHeight: 168,
}

// Options control Convert.
type Options struct {
	// BitsPerPixel is the antialiasing depth: 1, 2, 4 or 8.
	BitsPerPixel int
	// Printer defaults to DefaultPrinter when zero.
	Printer Printer
	// Workers bounds the number of layers processed at once;
	// runtime.NumCPU() when <= 0.
	Workers int
	// Preview replaces the archive thumbnail when set.
	Preview image.Image
	// Logf defaults to log.Printf.
	Logf func(format string, args ...interface{})
}

// Convert builds a .pws file from an SL1 archive. Layers are compressed
// in parallel and stored in archive order. The first failing layer
// aborts the conversion.
func Convert(ctx context.Context, a *Archive, opts Options) (*pws.File, error) {
	bpp := opts.BitsPerPixel
	if !pws.ValidBitsPerPixel(bpp) {
		return nil, fmt.Errorf("%w, got %v", pws.ErrBitDepth, bpp)
	}
	p := opts.Printer
	if p == (Printer{}) {
		p = DefaultPrinter
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("sl1: invalid printer size %vx%v", p.Width, p.Height)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	logf("Num layers: %v, Slow: %v, Fade: %v", cfg.NumLayers(), cfg.NumSlow, cfg.NumFade)

	header := pws.Header{
		PixelSize:            p.PixelSize,
		LayerHeight:          cfg.LayerHeight,
		ExposureTime:         cfg.ExpTime,
		OffTime:              p.OffTime,
		BottomExposureTime:   cfg.ExpTimeFirst,
		BottomLayers:         float32(cfg.NumSlow + cfg.NumFade),
		LiftDistance:         p.LiftDistance,
		LiftSpeed:            p.LiftSpeed,
		DropSpeed:            p.DropSpeed,
		BitsPerPixel:         uint32(bpp),
		Width:                uint32(p.Width),
		Height:               uint32(p.Height),
		ResinType:            p.ResinType,
		IndividualParameters: true,
	}

	src := opts.Preview
	if src == nil {
		if src, err = a.thumbnailImage(); err != nil {
			return nil, err
		}
	}
	preview := Preview(src, p.PreviewWidth, p.PreviewHeight)

	layers := make([]pws.Layer, cfg.NumLayers())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range layers {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := LayerName(cfg.JobDir, i)
			buf, err := a.ReadFile(name)
			if err != nil {
				return err
			}
			img, err := decodeLayer(buf, p.Width, p.Height)
			if err != nil {
				return fmt.Errorf("%v: %w", name, err)
			}
			data, err := pws.CompressImage(img, bpp)
			if err != nil {
				return fmt.Errorf("%v: %w", name, err)
			}
			logf("layer %v is %v bytes", i, len(data))

			layers[i] = pws.Layer{
				LiftDistance: header.LiftDistance,
				LiftSpeed:    header.LiftSpeed,
				ExposureTime: cfg.ExposureTime(i),
				LayerHeight:  header.LayerHeight,
				Data:         data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &pws.File{
		Header:  header,
		Preview: preview,
		Layers:  layers,
	}, nil
}

// decodeLayer decodes a layer PNG to 8-bit gray, checking its size
// before decoding the pixels.
func decodeLayer(buf []byte, width, height int) (*image.Gray, error) {
	c, err := png.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	if c.Width != width || c.Height != height {
		return nil, fmt.Errorf("%w: got %vx%v, want %vx%v", ErrImageSize, c.Width, c.Height, width, height)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	g := image.NewGray(img.Bounds())
	gift.New(gift.Grayscale()).Draw(g, img)
	return g, nil
}

func (a *Archive) thumbnailImage() (image.Image, error) {
	name, err := a.Thumbnail()
	if err != nil || name == "" {
		return nil, err
	}
	buf, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("sl1: thumbnail %q: %w", name, err)
	}
	return img, nil
}

// Preview returns a width x height opaque preview with src scaled to fit
// and centered on black. A nil src gives an all black preview.
func Preview(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if src == nil {
		return dst
	}

	sb := src.Bounds()
	if sb.Empty() || width <= 0 || height <= 0 {
		return dst
	}
	// Fit inside dst, keeping the aspect ratio.
	w, h := width, sb.Dy()*width/sb.Dx()
	if h > height {
		w, h = sb.Dx()*height/sb.Dy(), height
	}
	x0, y0 := (width-w)/2, (height-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, sb, draw.Over, nil)
	return dst
}
