// storydump prints the header and entry-point disassembly of a compiled
// story file, Z-machine or Glulx.
//
// Usage:
//
//	storydump [-n count] story.z5
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

func main() {
	count := flag.Int("n", 32, "maximum number of instructions to disassemble")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: storydump [-n count] storyfile\n")
		os.Exit(1)
	}
	img, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "storydump: %v\n", err)
		os.Exit(1)
	}
	if len(img) < zcode.HeaderSize {
		fmt.Fprintf(os.Stderr, "storydump: %s: too short to be a story file\n", flag.Arg(0))
		os.Exit(1)
	}

	if glulx.Word(img, glulx.HdrMagic) == glulx.Magic {
		dumpGlulx(img, *count)
		return
	}
	dumpZ(img, *count)
}

func dumpZ(img []byte, count int) {
	version := int(img[zcode.HdrVersion])
	if version < 1 || version > 8 {
		fmt.Fprintf(os.Stderr, "storydump: unrecognised Z-machine version %d\n", version)
		os.Exit(1)
	}
	fmt.Printf("Z-machine story file, version %d\n", version)
	fmt.Printf("  release %d, serial %s\n",
		zcode.Word(img, zcode.HdrRelease), img[zcode.HdrSerial:zcode.HdrSerial+6])
	length := int32(zcode.Word(img, zcode.HdrFileLength)) * zcode.LengthScale(version)
	if length > int32(len(img)) {
		length = int32(len(img))
	}
	sum := zcode.Word(img, zcode.HdrChecksum)
	verdict := "bad"
	if zcode.Checksum(img[:length]) == sum {
		verdict = "ok"
	}
	fmt.Printf("  length %d, checksum %#04x (%s)\n", length, sum, verdict)
	fmt.Printf("  dynamic [0, %#x), static [%#x, %#x), high [%#x, %d)\n",
		zcode.Word(img, zcode.HdrStaticMem), zcode.Word(img, zcode.HdrStaticMem),
		zcode.Word(img, zcode.HdrHighMem), zcode.Word(img, zcode.HdrHighMem), len(img))
	fmt.Printf("  dictionary %#x, objects %#x, globals %#x, abbreviations %#x\n",
		zcode.Word(img, zcode.HdrDictionary), zcode.Word(img, zcode.HdrObjects),
		zcode.Word(img, zcode.HdrGlobals), zcode.Word(img, zcode.HdrAbbrevs))

	pc := int32(zcode.Word(img, zcode.HdrInitialPC))
	fmt.Printf("\nentry point %#x:\n", pc)
	for i := 0; i < count; i++ {
		in, err := zcode.DecodeInst(img, pc, version)
		if err != nil {
			fmt.Printf("  %#06x  %v\n", pc, err)
			return
		}
		fmt.Printf("  %#06x  %s\n", in.Addr, in)
		if in.Op.EndsFlow() {
			return
		}
		pc = in.Next
	}
}

func dumpGlulx(img []byte, count int) {
	v := glulx.Word(img, glulx.HdrVersion)
	fmt.Printf("Glulx story file, specification %d.%d.%d\n",
		v>>16, (v>>8)&0xFF, v&0xFF)
	fmt.Printf("  ramstart %#x, extstart %#x, endmem %#x, stack %d\n",
		glulx.Word(img, glulx.HdrRAMStart), glulx.Word(img, glulx.HdrExtStart),
		glulx.Word(img, glulx.HdrEndMem), glulx.Word(img, glulx.HdrStackSize))
	sum := glulx.Word(img, glulx.HdrChecksum)
	verdict := "bad"
	if glulx.Checksum(img) == sum {
		verdict = "ok"
	}
	fmt.Printf("  checksum %#08x (%s)\n", sum, verdict)

	start := int32(glulx.Word(img, glulx.HdrStartFunc))
	h, err := glulx.DecodeFunc(img, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storydump: start function: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nstart function %#x, %d locals:\n", start, h.Locals)
	pc := h.Code
	for i := 0; i < count; i++ {
		in, err := glulx.DecodeInst(img, pc)
		if err != nil {
			fmt.Printf("  %#06x  %v\n", pc, err)
			return
		}
		fmt.Printf("  %#06x  %s\n", in.Addr, in)
		if info := glulx.Info(in.Op); info != nil && info.EndsFlow {
			return
		}
		pc = in.Next
	}
}
