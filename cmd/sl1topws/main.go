// sl1topws converts a Prusa SL1 job archive to an AnyCubic Photon S
// .pws file.
//
// Layers are converted in parallel with -aa bits of antialiasing.
// The preview comes from the largest thumbnail in the archive unless
// -preview names a PNG to use instead.
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/gmlewis/sla-format-tools/sl1"
)

var (
	inFile  = flag.String("i", "", "Input .sl1 file")
	outFile = flag.String("o", "", "Output .pws file (default is the input name with a .pws extension)")
	aa      = flag.Int("aa", 1, "Antialiasing bits per pixel: 1, 2, 4 or 8")
	preview = flag.String("preview", "", "PNG image to use as the preview")
	workers = flag.Int("workers", 0, "Layers to convert at once (default is the number of CPUs)")
)

func main() {
	flag.Parse()

	if *inFile == "" {
		log.Fatalf("-i must be supplied")
	}
	out := *outFile
	if out == "" {
		out = strings.TrimSuffix(*inFile, ".sl1") + ".pws"
	}

	a, err := sl1.Open(*inFile)
	check("Open: %v", err)
	defer a.Close()

	opts := sl1.Options{
		BitsPerPixel: *aa,
		Printer:      sl1.DefaultPrinter,
		Workers:      *workers,
	}
	if *preview != "" {
		f, err := os.Open(*preview)
		check("Open: %v", err)
		img, err := png.Decode(f)
		check("%v: %v", *preview, err)
		f.Close()
		opts.Preview = img
	}

	log.Printf("Converting %q with %v bits of antialiasing...", *inFile, *aa)
	f, err := sl1.Convert(context.Background(), a, opts)
	check("Convert: %v", err)

	w, err := os.Create(out)
	check("Create: %v", err)
	n, err := f.WriteTo(w)
	check("WriteTo: %v", err)
	check("Close: %v", w.Close())

	log.Printf("Wrote %v layers (%v bytes) to %q.", len(f.Layers), n, out)
	log.Println("Done.")
}

func check(fmtStr string, args ...interface{}) {
	err := args[len(args)-1]
	if err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
