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

// Package loadcell samples strain gauge load cells.

package loadcell

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Source supplies raw samples from a load cell converter. Sample
// returns the next conversion if one is ready, reading at most one
// conversion per call. A non-nil error means the converter input has
// failed.
type Source interface {
	Sample() (int32, bool, error)
}

// Cell is one load cell channel. Raw samples are averaged in batches
// to knock down converter noise, the average is scaled to kilograms
// against a tare offset, and the result is low-pass filtered. The
// first average ever seen becomes the tare offset, so an idle rig
// reads zero before it is ever tared explicitly. Cells are fully
// independent of each other.
type Cell struct {
	name   string
	src    Source
	target int     // Samples per average
	flush  uint32  // Max microseconds between averages
	beta   float64 // Filter coefficient

	mu        sync.Mutex // Guards accumulator and filter state
	sum       int64
	count     int
	offset    int32
	scale     float64 // Counts per kg
	tared     bool
	lastRaw   int32
	kg        float64
	lastFlush uint32
}

// New creates a load cell channel. The scale is an initial counts
// per kg figure, normally replaced by calibration.
func New(name string, src Source, target int, flush time.Duration, beta, scale float64) *Cell {
	c := new(Cell)
	c.name = name
	c.src = src
	c.target = target
	c.flush = uint32(flush.Microseconds())
	c.beta = beta
	c.scale = scale
	return c
}

// Poll advances the channel: at most one conversion is read, and the
// batch is averaged into the filtered reading once it is full or the
// flush interval has passed.
func (c *Cell) Poll(now uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok, err := c.src.Sample()
	if err != nil {
		log.Fatalf("%s: sample: %v", c.name, err)
	}
	if ok {
		c.sum += int64(v)
		c.count++
	}
	if c.count >= c.target || elapsed(now, c.lastFlush) > c.flush {
		if c.count > 0 {
			avg := int32(c.sum / int64(c.count))
			c.lastRaw = avg
			if !c.tared {
				// First reading establishes the tare baseline.
				c.offset = avg
				c.tared = true
			}
			var inst float64
			if c.scale > 0 {
				inst = float64(avg-c.offset) / c.scale
			}
			c.kg = c.beta*inst + (1-c.beta)*c.kg
			c.lastFlush = now
		}
		c.sum = 0
		c.count = 0
	}
}

// Tare captures the current raw reading as the zero reference.
func (c *Cell) Tare() {
	c.mu.Lock()
	c.offset = c.lastRaw
	c.tared = true
	c.mu.Unlock()
}

// Calibrate derives the scale factor from the current raw reading
// and a known weight on the cell. A non-positive weight is rejected
// and the previous scale kept.
func (c *Cell) Calibrate(kg float64) error {
	if kg <= 0 {
		return fmt.Errorf("%s: weight must be positive", c.name)
	}
	c.mu.Lock()
	c.scale = float64(c.lastRaw-c.offset) / kg
	c.mu.Unlock()
	return nil
}

// Kg returns the filtered force reading.
func (c *Cell) Kg() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kg
}

// Raw returns the last averaged raw reading.
func (c *Cell) Raw() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRaw
}

// Scale returns the scale factor in counts per kg.
func (c *Cell) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// elapsed is the interval between two microsecond timestamps, valid
// across wrap of the 32 bit clock.
func elapsed(now, since uint32) uint32 {
	return now - since
}
