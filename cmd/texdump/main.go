package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/tex"
	"scene-exporter/internal/texture"
)

func main() {
	gameDir := flag.String("game", "", "Read game paths from this extracted tree instead of the local filesystem")
	outDir := flag.String("out", ".", "Directory to write decoded images into")
	format := flag.String("format", "png", "Output encoding: png or webp")
	mip := flag.Int("mip", 0, "Mip level to decode")
	allSlices := flag.Bool("slices", false, "Write every array slice, not only the first")
	flag.Parse()

	enc, err := texture.ParseEncoding(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: texdump [-game dir] [-out dir] file.tex...")
		os.Exit(2)
	}

	sink := texture.NewDirSink(*outDir, enc)
	errors := 0
	for _, p := range flag.Args() {
		if err := dump(sink, *gameDir, p, *mip, *allSlices); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %s: %v\n", p, err)
			errors++
		}
	}
	if errors > 0 {
		fmt.Printf("\nDone with %d error(s).\n", errors)
		os.Exit(1)
	}
	fmt.Println("\nDone. All textures decoded.")
}

func dump(sink *texture.DirSink, gameDir, p string, mip int, allSlices bool) error {
	var data []byte
	var err error
	if gameDir != "" {
		data, err = assetstore.Dir{Root: gameDir}.ReadFile(context.Background(), p)
	} else {
		data, err = os.ReadFile(p)
	}
	if err != nil {
		return err
	}

	f, err := tex.Parse(data)
	if err != nil {
		return err
	}
	if mip < 0 || mip >= f.Mips() {
		return fmt.Errorf("mip %d out of range, file has %d", mip, f.Mips())
	}
	slices := 1
	if allSlices {
		slices = f.Slices()
	}

	stem := strings.TrimSuffix(path.Base(strings.ReplaceAll(p, "\\", "/")), path.Ext(p))
	for s := 0; s < slices; s++ {
		img, err := f.Image(mip, s)
		if err != nil {
			return fmt.Errorf("slice %d: %w", s, err)
		}
		name := stem
		if slices > 1 {
			name = fmt.Sprintf("%s_%d", stem, s)
		}
		ref, err := sink.CacheTexture(img, name)
		if err != nil {
			return err
		}
		b := img.Bounds()
		fmt.Printf("OK  %s -> %s  (%s, %dx%d)\n", p, ref, f.Header.Format, b.Dx(), b.Dy())
	}
	return nil
}
