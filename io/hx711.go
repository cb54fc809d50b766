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

// HX711 load cell converter driver

package io

import (
	"fmt"
)

// HX711 is a bit-serial driver for the HX711 24-bit load cell
// converter. The converter signals a conversion is ready by driving
// the data line low; the sample is then shifted out MSB first by
// pulsing the clock line once per bit. A 25th pulse selects channel A
// at gain 128 for the next conversion.
type HX711 struct {
	name string
	clk  Setter
	data Getter
}

// NewHX711 creates a HX711 driver from a clock output and a data input.
func NewHX711(name string, clk Setter, data Getter) (*HX711, error) {
	h := new(HX711)
	h.name = name
	h.clk = clk
	h.data = data
	// The converter runs whenever the clock line is low.
	if err := clk.Set(0); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return h, nil
}

// Sample shifts in one conversion if the converter has one ready,
// returning the sign-extended value. At most one conversion is read
// per call. A non-nil error means a pin failed and the converter
// input can no longer be trusted.
func (h *HX711) Sample() (int32, bool, error) {
	v, err := h.data.Get()
	if err != nil {
		return 0, false, fmt.Errorf("%s: data: %v", h.name, err)
	}
	if v != 0 {
		return 0, false, nil
	}
	var raw int32
	for i := 0; i < 24; i++ {
		if err := h.clk.Set(1); err != nil {
			h.clk.Set(0)
			return 0, false, fmt.Errorf("%s: clock: %v", h.name, err)
		}
		b, berr := h.data.Get()
		if err := h.clk.Set(0); err != nil {
			return 0, false, fmt.Errorf("%s: clock: %v", h.name, err)
		}
		if berr != nil {
			return 0, false, fmt.Errorf("%s: data: %v", h.name, berr)
		}
		raw = raw<<1 | int32(b)
	}
	// Gain select pulse (channel A, gain 128).
	if err := h.clk.Set(1); err != nil {
		return 0, false, fmt.Errorf("%s: clock: %v", h.name, err)
	}
	if err := h.clk.Set(0); err != nil {
		return 0, false, fmt.Errorf("%s: clock: %v", h.name, err)
	}
	// Sign extend the 24 bit two's complement value.
	if raw&0x800000 != 0 {
		raw |= -0x1000000
	}
	return raw, true, nil
}
