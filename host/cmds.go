// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
)

// A command describes a host command and the handler that runs it.
type command struct {
	path        string // full command name, e.g. "memory dump"
	brief       string
	description string
	usage       string
	fn          func(h *Host, c cmd.Selection) error
}

var (
	cmds     *cmd.Tree
	commands []*command // all commands in registration order
)

// Register a command under the group prefix and return the descriptor
// used to add it to the command tree.
func describe(prefix string, c *command) cmd.CommandDescriptor {
	c.path = strings.TrimSpace(prefix + " " + c.path)
	commands = append(commands, c)
	return cmd.CommandDescriptor{
		Name:        lastWord(c.path),
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	}
}

func lastWord(s string) string {
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "c8asm"})
	root.AddCommand(describe("", &command{
		path:        "help",
		description: "Display help for a command.",
		usage:       "help [<command>]",
		fn:          (*Host).cmdHelp,
	}))

	// Assemble commands
	as := root.AddSubtree(cmd.TreeDescriptor{Name: "assemble", Brief: "Assemble commands"})
	as.AddCommand(describe("assemble", &command{
		path:  "file",
		brief: "Assemble a file from disk and save the ROM to disk",
		description: "Run the assembler on the specified file," +
			" producing a ROM file and source map file if successful." +
			" If you want verbose output, specify true as a second parameter.",
		usage: "assemble file <filename> [<verbose>]",
		fn:    (*Host).cmdAssembleFile,
	}))
	as.AddCommand(describe("assemble", &command{
		path:  "interactive",
		brief: "Start interactive assembly mode",
		description: "Start interactive assembler mode. A new prompt will" +
			" appear, allowing you to enter assembly language instructions" +
			" interactively. Once you type END, the instructions will be" +
			" assembled and stored in memory at the specified address.",
		usage: "assemble interactive [<address>]",
		fn:    (*Host).cmdAssembleInteractive,
	}))

	root.AddCommand(describe("", &command{
		path:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		usage: "disassemble [<address>] [<lines>]",
		fn:    (*Host).cmdDisassemble,
	}))
	root.AddCommand(describe("", &command{
		path:  "execute",
		brief: "Execute a script file",
		description: "Load a script file from disk and execute the" +
			" commands it contains.",
		usage: "execute <filename>",
		fn:    (*Host).cmdExecute,
	}))
	root.AddCommand(describe("", &command{
		path:  "load",
		brief: "Load a ROM file",
		description: "Load the contents of a ROM file into memory. If the" +
			" file has an associated source map, it will be loaded too and" +
			" the ROM is placed at the origin recorded in the map. Otherwise" +
			" the ROM is loaded at the specified address, or at the default" +
			" origin.",
		usage: "load <filename> [<address>]",
		fn:    (*Host).cmdLoad,
	}))

	// Memory commands
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	me.AddCommand(describe("memory", &command{
		path:  "dump",
		brief: "Dump memory at address",
		description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		usage: "memory dump [<address>] [<bytes>]",
		fn:    (*Host).cmdMemoryDump,
	}))
	me.AddCommand(describe("memory", &command{
		path:  "set",
		brief: "Set memory at address",
		description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values.",
		usage: "memory set <address> <byte> [<byte> ...]",
		fn:    (*Host).cmdMemorySet,
	}))

	root.AddCommand(describe("", &command{
		path:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		fn:          (*Host).cmdQuit,
	}))
	root.AddCommand(describe("", &command{
		path:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		usage: "set [<var> <value>]",
		fn:    (*Host).cmdSet,
	}))
	root.AddCommand(describe("", &command{
		path:  "symbols",
		brief: "List label addresses",
		description: "Display the address of every label recorded in the" +
			" source map of the most recently assembled or loaded program.",
		usage: "symbols",
		fn:    (*Host).cmdSymbols,
	}))

	// Add command shortcuts.
	root.AddShortcut("a", "assemble file")
	root.AddShortcut("ai", "assemble interactive")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("?", "help")

	cmds = root
}
