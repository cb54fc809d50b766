// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Linux counter subsystem device

package io

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const counterBaseDir = "/sys/bus/counter/devices/"

// Counter provides access to a hardware pulse counter through the
// Linux counter subsystem. The count register is bounded by the
// device ceiling and wraps; tracking wraps is left to the caller.
type Counter struct {
	unit    int
	base    string
	count   *os.File
	buf     []byte
	ceiling int
}

// NewCounter opens count 0 of a counter device, selecting the count
// function where one signal line provides pulses and the other
// selects the count direction.
func NewCounter(unit int) (*Counter, error) {
	c := new(Counter)
	c.unit = unit
	c.base = fmt.Sprintf("%scounter%d/count0", counterBaseDir, unit)
	c.buf = make([]byte, 32)
	if err := writeFile(c.base+"/function", "pulse-direction"); err != nil {
		return nil, fmt.Errorf("counter%d: function: %v", unit, err)
	}
	var err error
	c.count, err = os.OpenFile(c.base+"/count", os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("counter%d: %v", unit, err)
	}
	b, err := os.ReadFile(c.base + "/ceiling")
	if err == nil {
		c.ceiling, err = strconv.Atoi(strings.TrimSpace(string(b)))
	}
	if err != nil {
		// Not every device exposes a ceiling; assume a 16 bit register.
		c.ceiling = 0xFFFF
	}
	err = writeFile(c.base+"/enable", "1")
	if err != nil && !os.IsNotExist(err) {
		c.count.Close()
		return nil, fmt.Errorf("counter%d: enable: %v", unit, err)
	}
	return c, nil
}

// Value returns the current count register.
func (c *Counter) Value() (int, error) {
	n, err := c.count.ReadAt(c.buf, 0)
	if n == 0 && err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(c.buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("counter%d: %v", c.unit, err)
	}
	return v, nil
}

// Range returns the number of counts before the register wraps.
func (c *Counter) Range() int {
	return c.ceiling + 1
}

// Zero clears the count register. Not every device supports writing
// the count, so the error is returned for the caller to judge.
func (c *Counter) Zero() error {
	_, err := c.count.WriteAt([]byte("0"), 0)
	return err
}

// Close disables the counter and releases it.
func (c *Counter) Close() {
	writeFile(c.base+"/enable", "0")
	c.count.Close()
}
