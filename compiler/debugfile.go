package compiler

import (
	"bufio"
	"io"
)

// Debug-file record tags. The stream opens with a magic word and a
// format version, then carries fixed-width records; only names are
// variable, stored NUL-terminated.
const (
	dbgMagic   = 0xDEBF
	dbgVersion = 1

	dbgEOF     = 0
	dbgFile    = 1
	dbgGlobal  = 2
	dbgRoutine = 3
	dbgHeader  = 4
)

type debugWriter struct {
	w   *bufio.Writer
	err error
}

func (d *debugWriter) byte(b byte) {
	if d.err == nil {
		d.err = d.w.WriteByte(b)
	}
}

func (d *debugWriter) word16(v int32) {
	d.byte(byte(v >> 8))
	d.byte(byte(v))
}

func (d *debugWriter) word32(v int32) {
	d.byte(byte(v >> 24))
	d.byte(byte(v >> 16))
	d.byte(byte(v >> 8))
	d.byte(byte(v))
}

func (d *debugWriter) name(s string) {
	if d.err == nil {
		_, d.err = d.w.WriteString(s)
	}
	d.byte(0)
}

// WriteDebug emits the debug-information stream for the finished
// compilation. img is the generated image, whose header is echoed in
// the HEADER record.
func (c *Compiler) WriteDebug(w io.Writer, img []byte) error {
	d := &debugWriter{w: bufio.NewWriter(w)}
	d.word16(dbgMagic)
	d.word16(dbgVersion)

	for i, name := range c.files {
		d.byte(dbgFile)
		d.byte(byte(i + 1))
		d.name(name)
	}

	for _, g := range c.Globals {
		d.byte(dbgGlobal)
		d.word16(g.Number)
		d.name(c.Syms.Get(g.Sym).Name)
	}

	for i := range c.Routines {
		r := &c.Routines[i]
		if c.Stripper.Omitted(r.Start) {
			continue
		}
		start := c.Stripper.AddressForAddress(r.Start)
		d.byte(dbgRoutine)
		d.word16(int32(i))
		d.word32(start)
		d.word32(start + (r.End - r.Start))
		d.name(r.Name)
		d.byte(byte(len(r.Locals)))
		for _, l := range r.Locals {
			d.name(l)
		}
		d.word16(int32(len(r.SeqPoints)))
		for _, sp := range r.SeqPoints {
			d.byte(byte(sp.Loc.File))
			d.word16(int32(sp.Loc.Line))
			d.word32(c.Stripper.AddressForAddress(sp.Offset))
		}
	}

	headerLen := 64
	if c.Opts.Target == TargetGlulx {
		headerLen = 36
	}
	if len(img) >= headerLen {
		d.byte(dbgHeader)
		d.word16(int32(headerLen))
		for _, b := range img[:headerLen] {
			d.byte(b)
		}
	}

	d.byte(dbgEOF)
	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}
