/*
 * S370 - Main process.
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

package main

import (
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/rcornwell/m68kemu/autoconfig"
	reader "github.com/rcornwell/m68kemu/command/reader"
	config "github.com/rcornwell/m68kemu/config/configparser"
	"github.com/rcornwell/m68kemu/config/machineconfig"
	"github.com/rcornwell/m68kemu/cpu"
	"github.com/rcornwell/m68kemu/expansion"
	"github.com/rcornwell/m68kemu/memory"
	"github.com/rcornwell/m68kemu/monitor"
	logger "github.com/rcornwell/m68kemu/util/logger"

	_ "github.com/rcornwell/m68kemu/config/debugconfig"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "m68kemu.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optTrace := getopt.BoolLong("trace", 't', "Trace every instruction from power-on")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	debug := false
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debug))
	slog.SetDefault(Logger)

	Logger.Info("m68kemu started")
	if optConfig == nil || *optConfig == "" {
		Logger.Error("Please specify a configuration file")
		os.Exit(0)
	}

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		Logger.Error("Configuration file can't be found", "file", *optConfig)
		os.Exit(0)
	}

	if err := config.LoadConfigFile(*optConfig); err != nil {
		Logger.Error(err.Error())
		os.Exit(0)
	}

	mem := memory.New(machineconfig.RAMSize())

	autoBus, err := autoconfig.New(mem, Logger)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	if machineconfig.WantFilesystem() {
		_, dev, err := expansion.New(mem, Logger, machineconfig.DiskPaths(), machineconfig.SharedFolders())
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		autoBus.Add(dev)
	}

	if machineconfig.WantDebugBoard() {
		_, dev, err := expansion.NewDebugBoard(Logger)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		autoBus.Add(dev)
	}

	c := cpu.New(mem)
	c.Reset()
	if *optTrace {
		c.Trace(os.Stdout)
	}

	m := monitor.New(c, mem)
	reader.ConsoleReader(m)

	Logger.Info("m68kemu exiting")
}
