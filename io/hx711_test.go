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

package io

import (
	"errors"
	"testing"
)

type fakeClk struct {
	level  int
	pulses int
}

func (c *fakeClk) Set(v int) error {
	if v == 1 && c.level == 0 {
		c.pulses++
	}
	c.level = v
	return nil
}

// wedgedClk accepts being driven low but fails to drive high, the way
// an unexported or reclaimed pin behaves.
type wedgedClk struct {
	fakeClk
}

func (c *wedgedClk) Set(v int) error {
	if v == 1 {
		return errors.New("pin gone")
	}
	return c.fakeClk.Set(v)
}

type fakeData struct {
	reads []int
	i     int
}

func (d *fakeData) Get() (int, error) {
	if d.i >= len(d.reads) {
		// Line idles high once the script runs out.
		return 1, nil
	}
	v := d.reads[d.i]
	d.i++
	return v, nil
}

type deadData struct{}

func (d deadData) Get() (int, error) { return 0, errors.New("pin gone") }

// conversion scripts the data line for one conversion: the ready
// level followed by 24 bits MSB first.
func conversion(raw uint32) []int {
	r := []int{0}
	for i := 23; i >= 0; i-- {
		r = append(r, int(raw>>i)&1)
	}
	return r
}

func TestHXSignExtend(t *testing.T) {
	tests := []struct {
		raw  uint32
		want int32
	}{
		{0x000000, 0},
		{0x000123, 0x123},
		{0x7FFFFF, 8388607},
		{0x800000, -8388608},
		{0xFFFFFF, -1},
		{0xFFFFD8, -40},
	}
	for _, tt := range tests {
		clk := &fakeClk{}
		data := &fakeData{reads: conversion(tt.raw)}
		h, err := NewHX711("test", clk, data)
		if err != nil {
			t.Fatalf("NewHX711: %v", err)
		}
		v, ok, err := h.Sample()
		if err != nil {
			t.Fatalf("raw %06x: %v", tt.raw, err)
		}
		if !ok {
			t.Fatalf("raw %06x: no conversion read", tt.raw)
		}
		if v != tt.want {
			t.Errorf("raw %06x: got %d, want %d", tt.raw, v, tt.want)
		}
	}
}

// 24 bit pulses plus the gain select pulse.
func TestHXPulseCount(t *testing.T) {
	clk := &fakeClk{}
	data := &fakeData{reads: conversion(0x123456)}
	h, err := NewHX711("test", clk, data)
	if err != nil {
		t.Fatalf("NewHX711: %v", err)
	}
	if _, ok, _ := h.Sample(); !ok {
		t.Fatalf("no conversion read")
	}
	if clk.pulses != 25 {
		t.Fatalf("%d clock pulses, want 25", clk.pulses)
	}
	if clk.level != 0 {
		t.Fatalf("clock left high after conversion")
	}
}

func TestHXNotReady(t *testing.T) {
	clk := &fakeClk{}
	data := &fakeData{}
	h, err := NewHX711("test", clk, data)
	if err != nil {
		t.Fatalf("NewHX711: %v", err)
	}
	if _, ok, _ := h.Sample(); ok {
		t.Fatalf("conversion read from an idle converter")
	}
	if clk.pulses != 0 {
		t.Fatalf("clock pulsed while not ready")
	}
}

func TestHXOneConversionPerCall(t *testing.T) {
	clk := &fakeClk{}
	data := &fakeData{reads: conversion(42)}
	h, err := NewHX711("test", clk, data)
	if err != nil {
		t.Fatalf("NewHX711: %v", err)
	}
	if v, ok, _ := h.Sample(); !ok || v != 42 {
		t.Fatalf("got %d,%v, want 42,true", v, ok)
	}
	if _, ok, _ := h.Sample(); ok {
		t.Fatalf("second conversion read with none pending")
	}
}

// A failed pin surfaces as an error rather than a silent miss.
func TestHXPinFailure(t *testing.T) {
	clk := &wedgedClk{}
	data := &fakeData{reads: conversion(42)}
	h, err := NewHX711("test", clk, data)
	if err != nil {
		t.Fatalf("NewHX711: %v", err)
	}
	if _, ok, err := h.Sample(); err == nil || ok {
		t.Fatalf("clock failure not reported")
	}
	if clk.level != 0 {
		t.Fatalf("clock left high after failure")
	}

	h, err = NewHX711("test", &fakeClk{}, deadData{})
	if err != nil {
		t.Fatalf("NewHX711: %v", err)
	}
	if _, ok, err := h.Sample(); err == nil || ok {
		t.Fatalf("data failure not reported")
	}
}
