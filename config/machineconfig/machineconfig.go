/*
 * m68kemu - Machine configuration
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

// Package machineconfig registers the config lines that describe a
// machine's chip RAM size and Zorro-II board list -- "ram <size>",
// "filesystem", "debugboard", "hdfile path=..." and "sharedfolder
// path=..." -- and builds the boards main wants once the config file
// has been fully parsed. Registration happens in init the same way
// every config/* package hangs its lines off configparser; Build is
// the one part that can't run during parsing, since boards need a
// *memory.Bus and an *autoconfig.Bus that only exist once main has
// chosen a RAM size.
package machineconfig

import (
	"errors"
	"strings"

	config "github.com/rcornwell/m68kemu/config/configparser"
)

const defaultRAMSize = 512 << 10

var (
	ramSize        uint32 = defaultRAMSize
	wantFilesystem bool
	wantDebugBoard bool
	diskPaths      []string
	sharedFolders  []string
)

func init() {
	config.RegisterModel("RAM", config.TypeModel, setRAMSize)
	config.RegisterSwitch("FILESYSTEM", addFilesystem)
	config.RegisterSwitch("DEBUGBOARD", addDebugBoard)
	config.RegisterModel("HDFILE", config.TypeOptions, addHDFile)
	config.RegisterModel("SHAREDFOLDER", config.TypeOptions, addSharedFolder)
}

func setRAMSize(size uint32, _ string, _ []config.Option) error {
	if size == config.NoValue {
		return errors.New("ram requires a size")
	}
	ramSize = size
	return nil
}

func addFilesystem(_ uint32, _ string, _ []config.Option) error {
	wantFilesystem = true
	return nil
}

func addDebugBoard(_ uint32, _ string, _ []config.Option) error {
	wantDebugBoard = true
	return nil
}

func pathOption(opts []config.Option) (string, error) {
	for _, o := range opts {
		if strings.EqualFold(o.Name, "path") && o.EqualOpt != "" {
			return o.EqualOpt, nil
		}
	}
	return "", errors.New("requires path=\"...\"")
}

func addHDFile(_ uint32, _ string, opts []config.Option) error {
	path, err := pathOption(opts)
	if err != nil {
		return err
	}
	diskPaths = append(diskPaths, path)
	return nil
}

func addSharedFolder(_ uint32, _ string, opts []config.Option) error {
	path, err := pathOption(opts)
	if err != nil {
		return err
	}
	sharedFolders = append(sharedFolders, path)
	return nil
}

// RAMSize is the chip RAM size named by the config file, or
// defaultRAMSize if no "ram" line appeared.
func RAMSize() uint32 { return ramSize }

// WantFilesystem reports whether a "filesystem" line was parsed.
func WantFilesystem() bool { return wantFilesystem }

// WantDebugBoard reports whether a "debugboard" line was parsed.
func WantDebugBoard() bool { return wantDebugBoard }

// DiskPaths is every "hdfile" path parsed, in file order.
func DiskPaths() []string { return diskPaths }

// SharedFolders is every "sharedfolder" path parsed, in file order.
func SharedFolders() []string { return sharedFolders }
