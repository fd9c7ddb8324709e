// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/beevik/c8asm/asm"
	"github.com/beevik/c8asm/chip8"
	"github.com/beevik/c8asm/disasm"
	"github.com/beevik/c8asm/host"
	"github.com/beevik/term"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

var (
	origin       uint16
	pad          bool
	verbose      bool
	output       string
	disasmOrigin uint16
)

var rootCmd = &cobra.Command{
	Use:   "c8asm",
	Short: "A two-pass CHIP-8 macro assembler",
	Long: `c8asm assembles CHIP-8 source code into ROM images.

Source files may define constants ($NAME value), register and operand
aliases (.set/.name), labels, raw data (.data) and address assertions
(.assert_addr). Each assembled file produces a .ch8 ROM image and a .map
source map next to it.`,
	SilenceUsage: true,
}

var assembleCmd = &cobra.Command{
	Use:   "assemble sourceFile...",
	Short: "Assemble one or more source files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  assembleAct,
}

var disasmCmd = &cobra.Command{
	Use:   "disasm romFile",
	Short: "Print a disassembly listing of a ROM file",
	Args:  cobra.ExactArgs(1),
	RunE:  disasmAct,
}

var shellCmd = &cobra.Command{
	Use:   "shell [script...]",
	Short: "Run the interactive assembler shell",
	Long: `Shell runs the commands contained in each script file, then reads
commands from standard input. A prompt is displayed only when standard
input is a terminal.`,
	RunE: shellAct,
}

func init() {
	assembleCmd.Flags().Uint16Var(&origin, "origin", chip8.ProgramStart, "load address of the assembled code")
	assembleCmd.Flags().BoolVar(&pad, "pad", false, "zero-pad the ROM to the end of memory")
	assembleCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "display a trace of each assembler pass")
	assembleCmd.Flags().StringVarP(&output, "output", "o", "", "ROM output file (single source file only)")

	disasmCmd.Flags().Uint16Var(&disasmOrigin, "origin", chip8.ProgramStart, "load address of the ROM, if it has no source map")

	rootCmd.AddCommand(assembleCmd, disasmCmd, shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func assembleAct(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if output != "" && len(args) > 1 {
		return errors.New("-o requires a single source file, got %d", len(args))
	}

	var options asm.Option
	if pad {
		options |= asm.PadImage
	}
	if verbose {
		options |= asm.Verbose
	}

	// Each file is an independent job. Verbose traces are not interleaved.
	var g errgroup.Group
	if verbose {
		g.SetLimit(1)
	}

	for _, a := range args {
		g.Go(func() error {
			rom := output
			if rom == "" {
				rom = replaceExt(a, ".ch8")
			}

			err := assembleFile(ctx, a, rom, options)
			if err != nil {
				return errors.Wrap(err, "assemble %v", a)
			}
			return nil
		})
	}

	return g.Wait()
}

// Assemble a source file, writing the ROM image to romPath and the source
// map next to it.
func assembleFile(ctx context.Context, path, romPath string, options asm.Option) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	assembly, sourceMap, err := asm.Assemble(in, path, origin, os.Stdout, options)
	if err != nil {
		return err
	}

	err = writeFile(romPath, assembly)
	if err != nil {
		return err
	}

	mapPath := replaceExt(romPath, ".map")
	err = writeFile(mapPath, sourceMap)
	if err != nil {
		return err
	}

	tlog.SpanFromContext(ctx).Printw("assembled",
		"file", path,
		"rom", romPath,
		"map", mapPath,
		"origin", fmt.Sprintf("0x%03X", sourceMap.Origin),
		"size", sourceMap.Size,
		"labels", len(sourceMap.Labels))
	return nil
}

type writerTo interface {
	WriteTo(w io.Writer) (int64, error)
}

func writeFile(path string, v writerTo) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = v.WriteTo(f)
	if err != nil {
		f.Close()
		return errors.Wrap(err, "write %v", path)
	}
	return f.Close()
}

func disasmAct(cmd *cobra.Command, args []string) error {
	path, w := args[0], cmd.OutOrStdout()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "disasm")
	}
	defer f.Close()

	var rom asm.Assembly
	_, err = rom.ReadFrom(f)
	if err != nil {
		return errors.Wrap(err, "read %v", path)
	}

	sourceMap := readSourceMap(replaceExt(path, ".map"), rom.Code)

	addr := disasmOrigin
	if sourceMap != nil && !cmd.Flags().Changed("origin") {
		addr = sourceMap.Origin
	}

	if int(addr)+len(rom.Code) > chip8.MemorySize {
		return errors.New("%v does not fit in memory at 0x%03X", path, addr)
	}

	m := chip8.NewFlatMemory()
	m.StoreBytes(addr, rom.Code)

	end := int(addr) + len(rom.Code)
	for a := int(addr); a < end; {
		if sourceMap != nil {
			if label, ok := sourceMap.Label(uint16(a)); ok {
				fmt.Fprintf(w, "%s:\n", label)
			}
		}

		line, next := disasm.Disassemble(m, uint16(a))
		str := fmt.Sprintf("%03X-   %02X %02X   %s", a, m.LoadByte(uint16(a)), m.LoadByte(uint16(a+1)), line)
		if sourceMap != nil && sourceMap.Contains(uint16(a)) {
			if file, n := sourceMap.Search(a); n >= 0 {
				str = fmt.Sprintf("%-32s ; %s:%d", str, filepath.Base(file), n)
			}
		}
		fmt.Fprintln(w, str)
		a = int(next)
	}
	return nil
}

// Read the source map that belongs to a ROM image. Returns nil if there
// is none or if it describes different code.
func readSourceMap(path string, code []byte) *asm.SourceMap {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	sourceMap := &asm.SourceMap{}
	_, err = sourceMap.ReadFrom(f)
	if err != nil {
		tlog.Printw("ignoring source map", "file", path, "err", err)
		return nil
	}
	if sourceMap.CRC != crc32.ChecksumIEEE(code) {
		tlog.Printw("ignoring source map", "file", path, "err", "checksum mismatch")
		return nil
	}
	return sourceMap
}

func shellAct(cmd *cobra.Command, args []string) error {
	h := host.New()

	// Run commands contained in command-line files.
	for _, filename := range args {
		file, err := os.Open(filename)
		if err != nil {
			return errors.Wrap(err, "shell")
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands from standard input.
	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	return nil
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func replaceExt(path, ext string) string {
	return path[:len(path)-len(filepath.Ext(path))] + ext
}
