// inform6 compiles Inform 6 source to a Z-machine or Glulx story file.
//
// Usage:
//
//	inform6 [-G] [-o story] [-s switches] [-D NAME=VALUE] [-I dir] source.inf [$SETTING=value ...]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DavidKinder/Inform6-sub000/compiler"
)

// repeatable flag values, for -D and -I
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var defines, includes stringList
	glulx := flag.Bool("G", false, "compile for the Glulx virtual machine")
	output := flag.String("o", "", "output story file (default: source basename + target extension)")
	debugOut := flag.String("k", "", "write debug information to this file")
	switches := flag.String("s", "", "Inform switch characters, as in a Switches directive")
	flag.Var(&defines, "D", "define NAME or NAME=VALUE as a constant (repeatable)")
	flag.Var(&includes, "I", "directory to search for Include files (repeatable)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: inform6 [-G] [-o story] [-s switches] [-D NAME=VALUE] [-I dir] source.inf [$SETTING=value ...]\n")
		os.Exit(1)
	}
	source := flag.Arg(0)

	// G in the switch string is the same as the -G flag; it has to be
	// known before the compiler exists, so pull it out here.
	sw := *switches
	if i := strings.IndexByte(sw, 'G'); i >= 0 {
		*glulx = true
		sw = sw[:i] + sw[i+1:]
	}

	target := compiler.TargetZ
	if *glulx {
		target = compiler.TargetGlulx
	}
	opts := compiler.DefaultOptions(target)

	for _, pair := range defines {
		if err := opts.Define(pair); err != nil {
			fmt.Fprintf(os.Stderr, "inform6: -D %s: %v\n", pair, err)
			os.Exit(1)
		}
	}
	for _, arg := range flag.Args()[1:] {
		if err := applySetting(&opts, arg); err != nil {
			fmt.Fprintf(os.Stderr, "inform6: %v\n", err)
			os.Exit(1)
		}
	}

	c := compiler.NewCompiler(opts, os.Stdout)
	if sw != "" {
		c.ApplySwitches(sw)
	}

	searchDirs := append([]string{filepath.Dir(source)}, includes...)
	c.IncludeOpen = func(name string) (io.Reader, error) {
		return openInclude(name, searchDirs)
	}

	src, err := os.Open(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inform6: %v\n", err)
		os.Exit(1)
	}
	compileErr := c.Compile(filepath.Base(source), src)
	src.Close()
	if compileErr != nil {
		fmt.Fprintf(os.Stderr, "inform6: %v\n", compileErr)
		os.Exit(1)
	}

	img, err := c.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "inform6: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		base := filepath.Base(source)
		*output = strings.TrimSuffix(base, ".inf") + storyExt(c.Opts)
	}
	if err := os.WriteFile(*output, img, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "inform6: %v\n", err)
		os.Exit(1)
	}

	if *debugOut != "" || c.Opts.Debugging {
		name := *debugOut
		if name == "" {
			name = "gameinfo.dbg"
		}
		f, err := os.Create(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "inform6: %v\n", err)
			os.Exit(1)
		}
		if err := c.WriteDebug(f, img); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "inform6: debug file: %v\n", err)
			os.Exit(1)
		}
		f.Close()
	}

	fmt.Printf("inform6: %s -> %s (%d bytes, %d warning(s))\n",
		source, *output, len(img), c.Errs.WarningCount)
}

// storyExt gives the conventional output extension for the target.
func storyExt(opts *compiler.Options) string {
	if opts.Target == compiler.TargetGlulx {
		return ".ulx"
	}
	return fmt.Sprintf(".z%d", opts.Version)
}

// applySetting handles a $NAME=VALUE command-line argument.
func applySetting(opts *compiler.Options, arg string) error {
	if !strings.HasPrefix(arg, "$") {
		return fmt.Errorf("unexpected argument %q (settings start with '$')", arg)
	}
	body := arg[1:]
	i := strings.IndexByte(body, '=')
	if i < 0 {
		return fmt.Errorf("%s: expected $NAME=VALUE", arg)
	}
	name, val := body[:i], body[i+1:]
	n, err := strconv.ParseInt(val, 0, 32)
	if err != nil {
		return fmt.Errorf("%s: bad value: %v", arg, err)
	}
	return opts.Set(name, int(n), compiler.LevelCommand)
}

// openInclude resolves an Include directive name against the search
// path. A leading '>' restricts the search to the source directory.
func openInclude(name string, dirs []string) (*os.File, error) {
	if strings.HasPrefix(name, ">") {
		return os.Open(filepath.Join(dirs[0], name[1:]))
	}
	var firstErr error
	for _, dir := range dirs {
		f, err := os.Open(filepath.Join(dir, name))
		if err == nil {
			return f, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
