// Copyright 2018 Brett Vickers.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that wraps the CHIP-8
// assembler in an interactive shell with a 4K memory image.
//
// Within the host it is possible to assemble source files or typed-in
// code into memory, load ROM files and their source maps, dump and modify
// the contents of memory, disassemble the contents of memory, and list the
// label addresses of the current program.
package host

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/beevik/c8asm/asm"
	"github.com/beevik/c8asm/chip8"
	"github.com/beevik/c8asm/disasm"
	"github.com/beevik/cmd"
	"tlog.app/go/errors"
)

var errQuit = errors.New("exiting program")

// A Host represents a CHIP-8 assembler shell and the 4K memory image it
// assembles and loads programs into.
type Host struct {
	mu          sync.Mutex // guards output and interactive for Break
	input       *bufio.Scanner
	output      *syncWriter
	interactive bool
	mem         *chip8.FlatMemory
	lastCmd     *cmd.Selection
	sourceMap   *asm.SourceMap
	settings    *settings
}

// New creates a new CHIP-8 host environment.
func New() *Host {
	return &Host{
		mem:      chip8.NewFlatMemory(),
		settings: newSettings(),
	}
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.mu.Lock()
	h.output = newSyncWriter(w)
	h.interactive = interactive
	h.mu.Unlock()

	if interactive {
		h.println()
	}

	h.processCommands()
	h.flush()
}

// Break abandons the command being typed and displays a fresh prompt. It
// may be called from another goroutine while commands are running.
func (h *Host) Break() {
	h.mu.Lock()
	out, interactive := h.output, h.interactive
	h.mu.Unlock()

	if out == nil {
		return
	}
	fmt.Fprintln(out)
	if interactive {
		fmt.Fprint(out, "* ")
	}
	out.Flush()
}

// Process commands until the input is exhausted or a quit command is
// issued. Returns errQuit if the user asked to quit.
func (h *Host) processCommands() error {
	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return nil
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		hc, ok := c.Command.Data.(*command)
		if !ok {
			h.println("Command is incomplete.")
			continue
		}
		h.lastCmd = &c

		err = hc.fn(h, c)
		if err != nil {
			return err
		}
	}
}

func (h *Host) setInteractive(interactive bool) {
	h.mu.Lock()
	h.interactive = interactive
	h.mu.Unlock()
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return strings.TrimSpace(h.input.Text()), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) cmdAssembleFile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command.Data.(*command))
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	verbose := h.settings.Verbose
	if len(c.Args) >= 2 {
		v, err := stringToBool(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		verbose = v
	}

	var options asm.Option
	if verbose {
		options |= asm.Verbose
	}

	err := asm.AssembleFileAt(filename, h.settings.Origin, options, h.output)
	if err != nil {
		h.printf("Failed to assemble '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	h.flush()
	return nil
}

func (h *Host) cmdAssembleInteractive(c cmd.Selection) error {
	origin := h.settings.Origin
	if len(c.Args) > 0 {
		addr, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = addr
	}

	h.println("Enter assembly language instructions.")
	h.println("Type END on its own line to assemble.")

	var lines []string
	for {
		if h.interactive {
			h.printf("%03X: ", origin)
		}

		line, err := h.getLine()
		if err != nil {
			h.println("Assembly cancelled.")
			return nil
		}
		if strings.EqualFold(line, "END") {
			break
		}
		lines = append(lines, line)
	}

	r := strings.NewReader(strings.Join(lines, "\n"))
	assembly, sourceMap, err := asm.Assemble(r, "interactive", origin, h.output, 0)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.mem.StoreBytes(origin, assembly.Code)
	h.sourceMap = sourceMap
	h.settings.NextDisasmAddr = origin

	if len(assembly.Code) > 0 {
		h.printf("Assembled code to $%03X..$%03X.\n", origin, int(origin)+len(assembly.Code)-1)
	} else {
		h.println("No code assembled.")
	}
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
		if addr == 0 {
			addr = h.settings.Origin
		}

	default:
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseValue(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = l
	}

	for i := 0; i < lines; i++ {
		if h.sourceMap != nil {
			if label, ok := h.sourceMap.Label(addr); ok {
				h.printf("%s:\n", label)
			}
		}
		d, next := h.disassemble(addr)
		h.println(d)
		addr = next & chip8.MaxAddress
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdExecute(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command.Data.(*command))
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("%v\n", errors.Wrap(err, "execute"))
		return nil
	}
	defer file.Close()

	input, interactive, lastCmd := h.input, h.interactive, h.lastCmd
	h.input, h.lastCmd = bufio.NewScanner(file), nil
	h.setInteractive(false)
	err = h.processCommands()
	h.input, h.lastCmd = input, lastCmd
	h.setInteractive(interactive)
	return err
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands("")
		return nil
	}

	name := strings.Join(c.Args, " ")
	s, err := cmds.Lookup(name)
	var hc *command
	if err == nil && s.Command != nil {
		hc, _ = s.Command.Data.(*command)
	}

	switch {
	case hc == nil && (err == nil || err == cmd.ErrNotFound):
		// The name may refer to a command group rather than a command.
		if !h.displayCommands(name) {
			h.println("Command not found.")
		}
	case err != nil:
		h.printf("%v\n", err)
	default:
		if hc.usage != "" {
			h.printf("Syntax: %s\n\n", hc.usage)
		}
		switch {
		case hc.description != "":
			h.printf("Description:\n%s\n\n", indentWrap(3, hc.description))
		case hc.brief != "":
			h.printf("Description:\n%s.\n\n", indentWrap(3, hc.brief))
		}
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command.Data.(*command))
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".ch8"
	}

	loadAddr := -1
	if len(c.Args) >= 2 {
		addr, err := h.parseAddr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		loadAddr = int(addr)
	}

	err := h.load(filename, loadAddr)
	if err != nil {
		h.printf("%v\n", err)
	}
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
		if addr == 0 {
			addr = h.settings.Origin
		}

	default:
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(c.Args) >= 2 {
		var err error
		bytes, err = h.parseValue(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(int(addr), bytes)

	h.settings.NextMemDumpAddr = uint16(int(addr)+bytes) & chip8.MaxAddress
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command.Data.(*command))
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(c.Args)-1)
	for _, s := range c.Args[1:] {
		v, err := h.parseValue(s)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if v > 0xff {
			h.printf("Value '%s' does not fit in a byte.\n", s)
			return nil
		}
		b = append(b, byte(v))
	}

	h.mem.StoreBytes(addr, b)
	h.printf("Stored %d byte(s) at $%03X.\n", len(b), addr)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c.Command.Data.(*command))

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = errors.New("setting '%s' not found", key)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int
			v, err = h.parseValue(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
		} else {
			h.printf("%v\n", err)
		}
	}

	return nil
}

func (h *Host) cmdSymbols(c cmd.Selection) error {
	if h.sourceMap == nil || len(h.sourceMap.Labels) == 0 {
		h.println("No symbols.")
		return nil
	}
	for _, l := range h.sourceMap.Labels {
		h.printf("%-16s $%03X\n", l.Name, l.Address)
	}
	return nil
}

// Load a ROM file into memory, along with its source map if one exists.
// Without an explicit address, the ROM is loaded at the origin recorded
// in its source map or else at the default origin.
func (h *Host) load(filename string, addr int) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "load")
	}
	defer file.Close()

	a := &asm.Assembly{}
	_, err = a.ReadFrom(file)
	if err != nil {
		return errors.Wrap(err, "read '%s'", filepath.Base(filename))
	}

	ext := filepath.Ext(filename)
	mapFilename := filename[:len(filename)-len(ext)] + ".map"
	sourceMap, err := readSourceMap(mapFilename)
	switch {
	case err != nil:
		h.printf("Ignoring source map: %v\n", err)
		sourceMap = nil
	case sourceMap != nil && sourceMap.CRC != crc32.ChecksumIEEE(a.Code):
		h.printf("Ignoring source map '%s': checksum mismatch\n", filepath.Base(mapFilename))
		sourceMap = nil
	}

	origin := int(h.settings.Origin)
	switch {
	case addr >= 0:
		origin = addr
	case sourceMap != nil:
		origin = int(sourceMap.Origin)
	}

	if origin+len(a.Code) > chip8.MemorySize {
		return errors.New("'%s' does not fit in memory at $%03X", filepath.Base(filename), origin)
	}

	h.mem.StoreBytes(uint16(origin), a.Code)
	h.printf("Loaded '%s' to $%03X..$%03X\n", filepath.Base(filename), origin, origin+len(a.Code)-1)

	h.sourceMap = sourceMap
	if sourceMap != nil {
		h.printf("Loaded '%s' source map\n", filepath.Base(mapFilename))
	}

	h.settings.NextDisasmAddr = uint16(origin)
	h.settings.NextMemDumpAddr = uint16(origin)
	return nil
}

// Read a source map file. A missing file is not an error.
func readSourceMap(filename string) (*asm.SourceMap, error) {
	file, err := os.Open(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sourceMap := &asm.SourceMap{}
	_, err = sourceMap.ReadFrom(file)
	if err != nil {
		return nil, errors.Wrap(err, "read '%s'", filepath.Base(filename))
	}
	return sourceMap, nil
}

// Parse an address typed at the shell. Label names from the current
// source map are accepted alongside numeric literals.
func (h *Host) parseAddr(s string) (uint16, error) {
	if h.sourceMap != nil {
		for _, l := range h.sourceMap.Labels {
			if l.Name == s {
				return l.Address, nil
			}
		}
	}

	v, err := h.parseValue(s)
	if err != nil {
		return 0, err
	}
	if v > chip8.MaxAddress {
		return 0, errors.New("address '%s' exceeds $%03X", s, chip8.MaxAddress)
	}
	return uint16(v), nil
}

// Parse a numeric value typed at the shell. In hex mode, unprefixed
// numbers are hexadecimal.
func (h *Host) parseValue(s string) (int, error) {
	if h.settings.HexMode && !hasRadixPrefix(s) {
		s = "0x" + s
	}
	return asm.ParseLiteral(s)
}

func hasRadixPrefix(s string) bool {
	if len(s) < 2 || s[0] != '0' {
		return false
	}
	switch s[1] {
	case 'x', 'X', 'b', 'B':
		return true
	}
	return false
}

func (h *Host) disassemble(addr uint16) (str string, next uint16) {
	var line string
	line, next = disasm.Disassemble(h.mem, addr)

	b := make([]byte, 2)
	h.mem.LoadBytes(addr, b)

	str = fmt.Sprintf("%03X-   %-5s   %s", addr, codeString(b), line)

	// Annotate code that came from the current program with its source
	// line.
	if h.sourceMap != nil && h.sourceMap.Contains(addr) {
		if file, n := h.sourceMap.Search(int(addr)); n >= 0 {
			str = fmt.Sprintf("%-32s ; %s:%d", str, filepath.Base(file), n)
		}
	}
	return str, next
}

func (h *Host) dumpMemory(addr0, bytes int) {
	if bytes <= 0 {
		return
	}

	addr1 := addr0 + bytes - 1
	if addr1 > chip8.MaxAddress {
		addr1 = chip8.MaxAddress
	}

	buf := []byte("   -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(uint16(addr0), buf[0:3])
		for a, c1, c2 := addr0, 5, 31; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(strings.TrimRight(string(buf), " "))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := addr0 &^ 7
	stop := min((addr1+8)&^7, chip8.MemorySize)

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(a), buf[0:3])
		for c1, c2 := 5, 31; c1 < 28; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := h.mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(strings.TrimRight(string(buf), " "))
	}
}

func (h *Host) displayHelpText(c *command) {
	if c.usage != "" {
		h.printf("Syntax: %s\n", c.usage)
	} else {
		h.println("<no help text>")
	}
}

// Display the commands whose path begins with the group name. Returns
// false if there are none.
func (h *Host) displayCommands(group string) bool {
	var list []*command
	for _, c := range commands {
		if c.brief == "" {
			continue
		}
		if group == "" || strings.HasPrefix(c.path, group+" ") {
			list = append(list, c)
		}
	}
	if len(list) == 0 {
		return false
	}

	if group == "" {
		h.println("Commands:")
	} else {
		h.printf("%s commands:\n", strings.ToUpper(group[:1])+group[1:])
	}
	for _, c := range list {
		h.printf("    %-20s  %s\n", c.path, c.brief)
	}
	return true
}
