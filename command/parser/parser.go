/*
 * m68kemu - Command parser
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package parser is the monitor REPL's command dispatch table: a command
// name matches on an abbreviation down to a minimum length, the same way
// the teacher's command parser worked, generalized from S/370 device
// attach/set/show commands to 68000 step/trace/dump/disas/break commands.
package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/m68kemu/monitor"
)

type cmd struct {
	name    string // Command name.
	min     int    // Minimum abbreviation length.
	process func(*cmdLine, *monitor.Machine) (bool, error)
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

var cmdList = []cmd{
	{name: "step", min: 1, process: step},
	{name: "continue", min: 1, process: cont},
	{name: "reset", min: 3, process: reset},
	{name: "trace", min: 2, process: trace},
	{name: "dump", min: 1, process: dump},
	{name: "disas", min: 2, process: disas},
	{name: "break", min: 2, process: brk},
	{name: "show", min: 2, process: show},
	{name: "quit", min: 1, process: quit},
}

// ProcessCommand executes one REPL line against m. Returns true when the
// REPL should exit.
func ProcessCommand(commandLine string, m *monitor.Machine) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)
	if name == "" {
		return false, nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, m)
}

// CompleteCmd returns every command name the in-progress line could
// still expand to, for the REPL's tab completion.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)
	if !line.isEOL() {
		return nil
	}
	match := matchList(name)
	names := make([]string, len(match))
	for i, m := range match {
		names[i] = m.name
	}
	return names
}

func matchList(name string) []cmd {
	name = strings.ToLower(name)
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// matchCommand checks name against c.name as a prefix at least c.min
// characters long -- "tr" matches "trace" but "t" alone doesn't.
func matchCommand(c cmd, name string) bool {
	if len(name) < c.min || len(name) > len(c.name) {
		return false
	}
	return c.name[:len(name)] == name
}

func (l *cmdLine) isEOL() bool { return l.pos >= len(l.line) }

func (l *cmdLine) skipSpace() {
	for !l.isEOL() && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

// getWord reads the next whitespace-delimited token, folded to lowercase
// unless keepCase is set for a literal (a filename, say).
func (l *cmdLine) getWord(keepCase bool) string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	word := l.line[start:l.pos]
	if !keepCase {
		word = strings.ToLower(word)
	}
	return word
}

// getHex reads the next token as a hex number (no 0x prefix expected).
func (l *cmdLine) getHex() (uint32, error) {
	word := l.getWord(false)
	if word == "" {
		return 0, errors.New("expected a hex value")
	}
	v, err := strconv.ParseUint(word, 16, 32)
	if err != nil {
		return 0, errors.New("invalid hex value: " + word)
	}
	return uint32(v), nil
}

// getDecimal reads the next token as a decimal number, or def if the
// line has nothing left.
func (l *cmdLine) getDecimal(def int) (int, error) {
	l.skipSpace()
	if l.isEOL() {
		return def, nil
	}
	word := l.getWord(false)
	v, err := strconv.Atoi(word)
	if err != nil {
		return 0, errors.New("invalid decimal value: " + word)
	}
	return v, nil
}
