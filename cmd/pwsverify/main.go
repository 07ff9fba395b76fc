// pwsverify checks that each .pws file parses cleanly, that every layer
// compresses back to its stored bytes, and that re-encoding the file
// reproduces it exactly.
package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"os"

	"github.com/gmlewis/sla-format-tools/pws"
)

var workers = flag.Int("workers", 0, "Layers to verify at once (default is the number of CPUs)")

func main() {
	flag.Parse()

	for _, arg := range flag.Args() {
		log.Printf("Verifying %q...", arg)
		buf, err := os.ReadFile(arg)
		check("ReadFile: %v", err)

		f, rest, err := pws.Parse(buf)
		check("%v: %v", arg, err)
		if rest != 0 {
			log.Fatalf("%v: %v bytes of unused data", arg, rest)
		}
		h := f.Header
		log.Printf("%vx%v, %v bits per pixel, %v layers", h.Width, h.Height, h.BitsPerPixel, len(f.Layers))

		err = pws.Verify(context.Background(), f, *workers)
		check("%v: %v", arg, err)

		re, err := f.Encode()
		check("Encode: %v", err)
		if !bytes.Equal(re, buf) {
			log.Fatalf("%v: re-encoding did not yield same file (%v bytes, want %v)", arg, len(re), len(buf))
		}
	}

	log.Println("Done.")
}

func check(fmtStr string, args ...interface{}) {
	err := args[len(args)-1]
	if err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
