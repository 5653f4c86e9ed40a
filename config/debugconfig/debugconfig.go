/*
 * m68kemu - Debug options configuration.
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

package debugconfig

import (
	"errors"
	"strings"

	config "github.com/rcornwell/m68kemu/config/configparser"
	"github.com/rcornwell/m68kemu/cpu"
)

// register a config line on initialize: "debug <category> <option>...".
func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
}

// setDebug dispatches a "debug <category> <option>..." line. Only CPU
// categories exist today (boards are wired directly in main, not looked
// up by a registered number the way S/370 channel devices were), so
// CATEGORY is just CPU for now; more arrive as more subsystems grow
// their own Debug(opt string) error switch.
func setDebug(_ uint32, category string, options []config.Option) error {
	switch strings.ToUpper(category) {
	case "CPU":
		for _, opt := range options {
			if err := cpu.Debug(strings.ToUpper(opt.Name)); err != nil {
				return err
			}
			for _, value := range opt.Value {
				if err := cpu.Debug(strings.ToUpper(*value)); err != nil {
					return err
				}
			}
		}
	default:
		return errors.New("debug category invalid: " + category)
	}
	return nil
}
