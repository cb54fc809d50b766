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

// Hardware pulse counter decoder

package encoder

import (
	"log"
	"sync"
	"time"
)

// The counter peripheral counts one pulse per quadrature cycle.
// Positions are scaled to the x4 edge resolution of the software
// decoder so the two variants report in the same units.
const quadScale = 4

// Device is the hardware pulse counter a Counter reads. Value
// returns the bounded count register, Range the span of the register
// before it wraps, and Zero clears the register.
type Device interface {
	Value() (int, error)
	Range() int
	Zero() error
}

// Counter tracks position through a hardware pulse counting
// peripheral. The peripheral decodes the phase lines itself, so no
// edges are seen in software and no edge timing is available; speed
// estimation degrades to the window estimate. The bounded register
// is widened with an overflow count, maintained by detecting
// half-range jumps between consecutive register reads, so the
// register must be sampled at least twice per half-range of counts.
type Counter struct {
	name string
	dev  Device

	mu       sync.Mutex // Guards register shadow and overflow count
	primed   bool
	last     int
	overflow int64
}

// NewCounter creates a decoder reading a hardware counter device.
func NewCounter(name string, dev Device) *Counter {
	c := new(Counter)
	c.name = name
	c.dev = dev
	return c
}

// Watch samples the register often enough that a wrap cannot be
// missed. Normally started as a goroutine.
func (c *Counter) Watch(every time.Duration) {
	tick := time.NewTicker(every)
	for range tick.C {
		c.mu.Lock()
		err := c.sample()
		c.mu.Unlock()
		if err != nil {
			log.Fatalf("%s: counter read: %v", c.name, err)
		}
	}
}

// sample reads the register and folds any wrap since the previous
// read into the overflow count. The first read only establishes the
// baseline; whatever count the device held at bring-up is not a wrap.
// Called with the lock held.
func (c *Counter) sample() error {
	v, err := c.dev.Value()
	if err != nil {
		return err
	}
	if c.primed {
		r := c.dev.Range()
		d := v - c.last
		if d > r/2 {
			c.overflow--
		} else if d < -r/2 {
			c.overflow++
		}
	}
	c.primed = true
	c.last = v
	return nil
}

// position combines the overflow count and register. Called with the
// lock held.
func (c *Counter) position() int64 {
	return (c.overflow*int64(c.dev.Range()) + int64(c.last)) * quadScale
}

// Position returns the current position in counts.
// A failed register read falls back on the last good reading.
func (c *Counter) Position() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample()
	return c.position()
}

// Snapshot returns the decoder state. Edge timing is never available
// from the peripheral.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample()
	return Snapshot{Position: c.position(), Dir: 1}
}

// Reset sets the position to zero.
func (c *Counter) Reset() {
	c.Set(0)
}

// Set moves the position to a known value, as closely as the
// hardware allows. The register is cleared and the value is carried
// in the overflow count, so any part of the position below one
// register span is lost. When the device cannot clear the register,
// the current count becomes the baseline instead, so a stale count
// can never be mistaken for a wrap.
func (c *Counter) Set(pos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = 0
	c.primed = true
	if err := c.dev.Zero(); err != nil {
		log.Printf("%s: zero: %v", c.name, err)
		if v, verr := c.dev.Value(); verr == nil {
			c.last = v
		} else {
			// Register state unknown; the next good read re-primes.
			c.primed = false
		}
	}
	c.overflow = (pos/quadScale - int64(c.last)) / int64(c.dev.Range())
}
