package sl1

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/gmlewis/sla-format-tools/pws"
	"github.com/klauspost/compress/zip"
)

// Writer writes an SL1 archive.
type Writer struct {
	w      *zip.Writer
	jobDir string
}

// NewWriter returns a Writer whose layers are stored under jobDir.
func NewWriter(w io.Writer, jobDir string) *Writer {
	return &Writer{w: zip.NewWriter(w), jobDir: jobDir}
}

func (sw *Writer) create(name string) (io.Writer, error) {
	fh := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	f, err := sw.w.CreateHeader(fh)
	if err != nil {
		return nil, fmt.Errorf("Unable to create ZIP file %q: %v", name, err)
	}
	return f, nil
}

// WriteConfig writes config.ini. The job directory of c is replaced by
// the Writer's.
func (sw *Writer) WriteConfig(c Config) error {
	f, err := sw.create(configName)
	if err != nil {
		return err
	}
	c.JobDir = sw.jobDir
	_, err = c.WriteTo(f)
	return err
}

// WriteLayer writes layer n.
func (sw *Writer) WriteLayer(n int, img image.Image) error {
	return sw.writePNG(LayerName(sw.jobDir, n), img)
}

// WriteThumbnail writes a thumbnail named after its size.
func (sw *Writer) WriteThumbnail(img image.Image) error {
	b := img.Bounds()
	return sw.writePNG(fmt.Sprintf("%vthumbnail%vx%v.png", thumbnailPrefix, b.Dx(), b.Dy()), img)
}

func (sw *Writer) writePNG(name string, img image.Image) error {
	f, err := sw.create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("PNG encode: %v", err)
	}
	return nil
}

// Close finishes the archive.
func (sw *Writer) Close() error {
	if err := sw.w.Close(); err != nil {
		return fmt.Errorf("Unable to close ZIP writer: %v", err)
	}
	return nil
}

// FromPWS writes f as an SL1 archive: the bottom layers become slow
// layers and every layer image is decompressed to a grayscale PNG.
func FromPWS(w io.Writer, f *pws.File, jobDir string) error {
	h := f.Header
	numSlow := min(max(int(h.BottomLayers), 0), len(f.Layers))
	layerHeight := h.LayerHeight
	if len(f.Layers) > 0 && f.Layers[0].LayerHeight != 0 {
		layerHeight = f.Layers[0].LayerHeight
	}
	cfg := Config{
		ExpTime:      h.ExposureTime,
		ExpTimeFirst: h.BottomExposureTime,
		LayerHeight:  layerHeight,
		NumSlow:      numSlow,
		NumFast:      len(f.Layers) - numSlow,
	}

	sw := NewWriter(w, jobDir)
	if err := sw.WriteConfig(cfg); err != nil {
		return err
	}
	if f.Preview != nil {
		if err := sw.WriteThumbnail(f.Preview); err != nil {
			return err
		}
	}
	for i, l := range f.Layers {
		img, _, err := l.Data.Image(int(h.Width), int(h.Height))
		if err != nil {
			return fmt.Errorf("layer %v: %w", i, err)
		}
		if err := sw.WriteLayer(i, img); err != nil {
			return err
		}
	}
	return sw.Close()
}
