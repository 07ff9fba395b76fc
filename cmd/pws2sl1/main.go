// pws2sl1 writes an AnyCubic .pws file back out as a Prusa SL1 archive
// of grayscale layer PNGs.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gmlewis/sla-format-tools/pws"
	"github.com/gmlewis/sla-format-tools/sl1"
)

var outFile = flag.String("o", "", "Output .sl1 file (default is the input name with a .sl1 extension)")

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: pws2sl1 [-o out.sl1] file.pws")
	}
	arg := flag.Arg(0)
	baseName := strings.TrimSuffix(arg, ".pws")
	out := *outFile
	if out == "" {
		out = baseName + ".sl1"
	}

	buf, err := os.ReadFile(arg)
	check("ReadFile: %v", err)
	f, rest, err := pws.Parse(buf)
	check("%v: %v", arg, err)
	if rest != 0 {
		log.Printf("%v: ignoring %v bytes of unused data", arg, rest)
	}

	log.Printf("Writing %v layers to %q...", len(f.Layers), out)
	w, err := os.Create(out)
	check("Create: %v", err)
	err = sl1.FromPWS(w, f, filepath.Base(baseName))
	check("FromPWS: %v", err)
	check("Close: %v", w.Close())

	log.Println("Done.")
}

func check(fmtStr string, args ...interface{}) {
	err := args[len(args)-1]
	if err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
