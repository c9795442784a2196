package compiler

import "fmt"

// Generate lays out and backpatches the output image. It must follow
// Compile; a fatal diagnostic unwinds to here. The image is withheld
// whenever any error was reported.
func (c *Compiler) Generate() (img []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			bail, ok := p.(fatalBail)
			if !ok {
				panic(p)
			}
			img, err = nil, fmt.Errorf("%s", bail.msg)
		}
	}()

	c.Stripper.Compute()
	if c.Opts.Target == TargetZ {
		img = c.generateZ()
	} else {
		img = c.generateG()
	}
	if !c.Errs.Succeeded() {
		return nil, fmt.Errorf("compilation failed with %d error(s)", c.Errs.ErrorCount)
	}
	return img, nil
}

// strippedCode copies the code area, dropping omitted functions.
func (c *Compiler) strippedCode() []byte {
	all := c.Asm.CodeBytes()
	funcs := c.Stripper.Functions()
	if len(funcs) == 0 {
		return append([]byte(nil), all...)
	}
	out := make([]byte, 0, c.Stripper.StrippedSize(int32(len(all))))
	for i := range funcs {
		f := &funcs[i]
		if !f.Omitted {
			out = append(out, all[f.Addr:f.Addr+f.Len]...)
		}
	}
	return out
}

// mainAddress returns the pre-strip code offset of Main, diagnosing
// its absence once.
func (c *Compiler) mainAddress() int32 {
	if c.mainChecked {
		return c.mainAddr
	}
	c.mainChecked = true
	c.mainAddr = -1
	id := c.Syms.Lookup("Main")
	if id < 0 || c.Syms.Get(id).Type != RoutineSym || c.Syms.Get(id).Flags&UnknownFlag != 0 {
		c.Errs.Error("there is no Main routine")
		return -1
	}
	c.mainAddr = c.Syms.Get(id).Value
	return c.mainAddr
}

func sysConstName(code int32) string {
	for name, v := range systemConstNames {
		if int32(v) == code {
			return name
		}
	}
	return "???"
}

func alignTo(pos, align int32) int32 {
	if r := pos % align; r != 0 {
		pos += align - r
	}
	return pos
}
