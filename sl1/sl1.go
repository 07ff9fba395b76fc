// Package sl1 reads and writes Prusa SL1 (.sl1) job archives and converts
// them to AnyCubic .pws files.
//
// An SL1 archive is a ZIP holding config.ini plus one grayscale PNG per
// layer, named {jobDir}{index:05}.png, and optional thumbnails.
package sl1

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

const (
	configName      = "config.ini"
	thumbnailPrefix = "thumbnail/"
)

// LayerName returns the archive path of layer index.
func LayerName(jobDir string, index int) string {
	return fmt.Sprintf("%v%05d.png", jobDir, index)
}

// Archive is an open SL1 archive. It is safe for concurrent use; reads
// of archive members are serialized.
type Archive struct {
	mu     sync.Mutex
	z      *zip.Reader
	closer io.Closer
}

// Open opens the SL1 archive at name.
func Open(name string) (*Archive, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("sl1: %w", err)
	}
	return &Archive{z: &rc.Reader, closer: rc}, nil
}

// NewArchive reads an SL1 archive of the given size from r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	z, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("sl1: %w", err)
	}
	return &Archive{z: z}, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Names lists the archive members.
func (a *Archive) Names() []string {
	var names []string
	for _, f := range a.z.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadFile returns the contents of the archive member name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range a.z.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("sl1: open %q: %w", name, err)
		}
		defer rc.Close()
		buf, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("sl1: read %q: %w", name, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("sl1: %q not found in archive", name)
}

// Config parses the archive's config.ini.
func (a *Archive) Config() (*Config, error) {
	buf, err := a.ReadFile(configName)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

// Thumbnail returns the name of the largest PNG thumbnail in the
// archive, or "" if there is none.
func (a *Archive) Thumbnail() (string, error) {
	var names []string
	for _, name := range a.Names() {
		if strings.HasPrefix(name, thumbnailPrefix) && strings.HasSuffix(name, ".png") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var best string
	var bestArea int
	for _, name := range names {
		buf, err := a.ReadFile(name)
		if err != nil {
			return "", err
		}
		c, err := png.DecodeConfig(bytes.NewReader(buf))
		if err != nil {
			return "", fmt.Errorf("sl1: thumbnail %q: %w", name, err)
		}
		if area := c.Width * c.Height; area > bestArea {
			best, bestArea = name, area
		}
	}
	return best, nil
}
