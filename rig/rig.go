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

// Package rig assembles a dynamometer instrument from a quadrature
// decoder, index detector, speed estimator and load cells, and
// exposes the readings as plain accessors.

package rig

import (
	"fmt"
	"time"

	"github.com/aamcrae/dyno/encoder"
	"github.com/aamcrae/dyno/loadcell"
)

// Rig is one instrument: a shaft position/speed measurement and any
// number of load cell channels. All methods are safe to call from
// any goroutine. Load cell accessors taking a cell number return
// zero values for a cell that does not exist.
type Rig struct {
	name  string
	dec   encoder.Decoder
	idx   *encoder.Index
	speed *encoder.Speed
	cells []*loadcell.Cell
	cpr   int // Counts per revolution (x4 decode)
	clock func() uint32
}

// New assembles a rig from its parts. idx may be nil when no index
// line is wired.
func New(name string, dec encoder.Decoder, idx *encoder.Index, speed *encoder.Speed, cells []*loadcell.Cell, cpr int) *Rig {
	r := new(Rig)
	r.name = name
	r.dec = dec
	r.idx = idx
	r.speed = speed
	r.cells = cells
	r.cpr = cpr
	r.clock = Clock()
	return r
}

// Clock returns a microsecond clock starting at zero. The value
// wraps at 32 bits; all rig interval arithmetic is wrap safe.
func Clock() func() uint32 {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Microseconds())
	}
}

// Now returns the rig's clock, for feeding back into Poll. Timestamps
// must come from this clock so they compare against the timestamps
// the input watchers record.
func (r *Rig) Now() uint32 {
	return r.clock()
}

// Poll advances the load cell channels and the speed estimator.
func (r *Rig) Poll(now uint32) {
	for _, c := range r.cells {
		c.Poll(now)
	}
	r.speed.Update(now)
}

// Position returns the shaft position in counts.
func (r *Rig) Position() int64 {
	return r.dec.Position()
}

// CPS returns the smoothed shaft speed in counts per second.
func (r *Rig) CPS() float64 {
	return r.speed.CPS()
}

// RPM returns the smoothed shaft speed in revolutions per minute.
func (r *Rig) RPM() float64 {
	return r.speed.RPM()
}

// IndexSeen reports whether the index was crossed since the last
// call, clearing the flag. Always false when no index line is wired.
func (r *Rig) IndexSeen() bool {
	if r.idx == nil {
		return false
	}
	return r.idx.Seen()
}

// Position changes go through the speed estimator, which moves the
// decoder and its own window baseline together; a poll landing in
// between would otherwise read the jump as speed.

// Zero resets the shaft position to zero.
func (r *Rig) Zero() {
	r.speed.Set(0)
}

// SetPosition moves the shaft position to a known value.
func (r *Rig) SetPosition(pos int64) {
	r.speed.Set(pos)
}

// Cells returns the number of load cell channels.
func (r *Rig) Cells() int {
	return len(r.cells)
}

// CPR returns the encoder resolution in counts per revolution.
func (r *Rig) CPR() int {
	return r.cpr
}

// Tare zeroes a load cell channel.
func (r *Rig) Tare(cell int) error {
	c := r.cell(cell)
	if c == nil {
		return fmt.Errorf("%s: no cell %d", r.name, cell)
	}
	c.Tare()
	return nil
}

// Calibrate derives a load cell scale factor from a known weight.
func (r *Rig) Calibrate(cell int, kg float64) error {
	c := r.cell(cell)
	if c == nil {
		return fmt.Errorf("%s: no cell %d", r.name, cell)
	}
	return c.Calibrate(kg)
}

// Force returns the filtered force reading of a cell in kg.
func (r *Rig) Force(cell int) float64 {
	if c := r.cell(cell); c != nil {
		return c.Kg()
	}
	return 0
}

// Raw returns the last averaged raw reading of a cell.
func (r *Rig) Raw(cell int) int32 {
	if c := r.cell(cell); c != nil {
		return c.Raw()
	}
	return 0
}

// Scale returns the scale factor of a cell in counts per kg.
func (r *Rig) Scale(cell int) float64 {
	if c := r.cell(cell); c != nil {
		return c.Scale()
	}
	return 0
}

func (r *Rig) cell(i int) *loadcell.Cell {
	if i < 0 || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}
