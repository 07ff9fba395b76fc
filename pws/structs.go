package pws

// On-disk layouts, little-endian.

type tag [12]byte

var (
	fileTag     = tag{'A', 'N', 'Y', 'C', 'U', 'B', 'I', 'C'}
	headerTag   = tag{'H', 'E', 'A', 'D', 'E', 'R'}
	previewTag  = tag{'P', 'R', 'E', 'V', 'I', 'E', 'W'}
	layerDefTag = tag{'L', 'A', 'Y', 'E', 'R', 'D', 'E', 'F'}

	previewMarker = [4]byte{'*'}
)

const (
	fileVersion = 1
	fileArea    = 4

	fileHeaderSize = 48 // binFileHeader

	headerSectionSize = 96 // binHeader
	headerLength      = headerSectionSize - 16

	previewHeaderSize = 28 // binPreviewHeader
	previewLengthBase = previewHeaderSize - 16

	layerDefsHeaderSize = 20 // binLayerDefsHeader
	layerDefsLengthBase = layerDefsHeaderSize - 16
	layerDefSize        = 32 // binLayerDef
)

type binFileHeader struct {
	Tag            tag
	Version        uint32 // Always 1
	Area           uint32 // Always 4 (number of sections)
	HeaderOffset   uint32
	Reserved1      uint32
	PreviewOffset  uint32
	Reserved2      uint32
	LayerDefOffset uint32
	Reserved3      uint32
	LayersOffset   uint32
}

type binHeader struct {
	Tag                  tag
	Length               uint32 // Always 80
	PixelSize            float32
	LayerHeight          float32
	ExposureTime         float32
	OffTime              float32
	BottomExposureTime   float32
	BottomLayers         float32
	LiftDistance         float32
	LiftSpeed            float32
	DropSpeed            float32
	Volume               float32
	BitsPerPixel         uint32
	Width                uint32
	Height               uint32
	Weight               float32
	Price                float32
	ResinType            uint32
	IndividualParameters uint32 // 0 or 1
	Reserved             [12]byte
}

type binPreviewHeader struct {
	Tag    tag
	Length uint32 // 12 + 2*Width*Height
	Width  uint32
	Marker [4]byte // Always "*\0\0\0"
	Height uint32
}

type binLayerDefsHeader struct {
	Tag    tag
	Length uint32 // 4 + 32*Count
	Count  uint32
}

type binLayerDef struct {
	Offset       uint32
	Length       uint32
	LiftDistance float32
	LiftSpeed    float32
	ExposureTime float32
	LayerHeight  float32
	Reserved     [8]byte
}

func previewSectionSize(width, height uint64) uint64 {
	return previewHeaderSize + 2*width*height
}

func layerDefsSectionSize(count uint64) uint64 {
	return layerDefsHeaderSize + layerDefSize*count
}
