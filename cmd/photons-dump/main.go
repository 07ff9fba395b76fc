// photons-dump writes the thumbnail and every layer of a ChiTu .photons
// file as PNG images and checks that each layer compresses back to its
// stored bytes. On a mismatch, the run tokens of both streams are
// logged.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/gmlewis/sla-format-tools/photons"
	"github.com/gmlewis/sla-format-tools/rle"
)

var outDir = flag.String("o", ".", "Output directory")

func main() {
	flag.Parse()

	check("MkdirAll: %v", os.MkdirAll(*outDir, 0755))

	for _, arg := range flag.Args() {
		log.Printf("Dumping %q...", arg)
		buf, err := os.ReadFile(arg)
		check("ReadFile: %v", err)

		f, rest, err := photons.Parse(buf)
		check("%v: %v", arg, err)
		if rest != 0 {
			log.Printf("%v: %v bytes of unused data", arg, rest)
		}
		log.Printf("exposure %vs, bottom %vs x %v layers, %v layers", f.ExposureTime, f.BottomExposureTime, f.BottomLayers, len(f.Layers))

		writePNG(filepath.Join(*outDir, "thumbnail.png"), f.Thumbnail)

		var bad int
		for i := range f.Layers {
			l := &f.Layers[i]
			writePNG(filepath.Join(*outDir, fmt.Sprintf("layer%05d.png", i)), l.Image())

			if got, ok := l.Recompress(); !ok {
				bad++
				log.Printf("layer %v: recompression did not yield same result (ones %v, want %v)", i, got.Ones, l.Data.Ones)
				log.Printf("  got:  %v", rle.Tokens(rle.ChiTu, got))
				log.Printf("  want: %v", rle.Tokens(rle.ChiTu, l.Data))
			}
		}
		if bad > 0 {
			log.Fatalf("%v: %v of %v layers did not recompress", arg, bad, len(f.Layers))
		}
	}

	log.Println("Done.")
}

func writePNG(name string, img image.Image) {
	w, err := os.Create(name)
	check("Create: %v", err)
	check("PNG encode: %v", png.Encode(w, img))
	check("Close: %v", w.Close())
}

func check(fmtStr string, args ...interface{}) {
	err := args[len(args)-1]
	if err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
