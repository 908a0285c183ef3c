// Command lmconv converts an ARPA text language model to the gob binary
// format the recognizer loads fastest.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ieee0824/cuedspeech-go/language"
)

func main() {
	inPath := flag.String("in", "", "input language model (ARPA text)")
	outPath := flag.String("out", "", "output binary model path")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: lmconv -in MODEL.arpa -out MODEL.bin")
		flag.PrintDefaults()
		os.Exit(1)
	}

	model, err := language.LoadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := model.SaveBinary(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (order %d, %d unigrams)\n", *outPath, model.Order, len(model.Unigrams))
}
