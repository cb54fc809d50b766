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

// Software quadrature decoder

package encoder

import (
	"log"
	"sync"
	"time"
)

// quadTable maps a 4 bit index (previous state << 2 | new state) to a
// position delta. Each state is (A << 1 | B). Transitions where
// neither or both bits change carry no direction and map to 0.
var quadTable = [16]int8{
	0,  // 00 -> 00
	1,  // 00 -> 01
	-1, // 00 -> 10
	0,  // 00 -> 11 both bits changed
	-1, // 01 -> 00
	0,  // 01 -> 01
	0,  // 01 -> 10 both bits changed
	1,  // 01 -> 11
	1,  // 10 -> 00
	0,  // 10 -> 01 both bits changed
	0,  // 10 -> 10
	-1, // 10 -> 11
	0,  // 11 -> 00 both bits changed
	-1, // 11 -> 01
	1,  // 11 -> 10
	0,  // 11 -> 11
}

// Lines is the event source for the software decoder. Wait blocks
// until either phase line changes and returns the level of both.
type Lines interface {
	Wait() (int, int, error)
}

// Quad decodes quadrature phase transitions in software, giving x4
// resolution. Every edge of either phase line is folded through the
// transition table; edges arriving within the glitch interval of the
// last accepted edge are dropped as contact bounce, as are ambiguous
// transitions where both phase bits changed. The interval between
// accepted edges is recorded for edge-based speed estimation.
type Quad struct {
	name   string
	glitch uint32 // Minimum interval between accepted edges

	mu         sync.Mutex // Guards all decoder state
	state      uint8
	pos        int64
	lastEdge   uint32
	edgeMicros uint32
	dir        int
}

// NewQuad creates a software quadrature decoder.
func NewQuad(name string, glitch time.Duration) *Quad {
	q := new(Quad)
	q.name = name
	q.glitch = uint32(glitch.Microseconds())
	q.dir = 1
	return q
}

// Sync sets the phase state to the current line levels without
// counting a transition. Called once before watching so the first
// edge is measured from the true starting state.
func (q *Quad) Sync(a, b int) {
	q.mu.Lock()
	q.state = uint8(a<<1 | b)
	q.mu.Unlock()
}

// Watch services the phase lines, folding each transition into the
// position. It runs until the input fails, and is normally started
// as a goroutine.
func (q *Quad) Watch(l Lines, clock func() uint32) {
	for {
		a, b, err := l.Wait()
		if err != nil {
			log.Fatalf("%s: quadrature input: %v", q.name, err)
		}
		q.Edge(a, b, clock())
	}
}

// Edge folds one phase line transition into the decoder state.
// The phase state always advances to the latest reading, whether or
// not the transition is accepted.
func (q *Quad) Edge(a, b int, now uint32) {
	q.mu.Lock()
	next := uint8(a<<1 | b)
	delta := quadTable[q.state<<2|next]
	q.state = next
	if delta != 0 {
		if Elapsed(now, q.lastEdge) >= q.glitch {
			q.pos += int64(delta)
			q.edgeMicros = Elapsed(now, q.lastEdge)
			q.lastEdge = now
			q.dir = int(delta)
		}
	}
	q.mu.Unlock()
}

// Position returns the current position in counts.
func (q *Quad) Position() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pos
}

// Snapshot returns a coherent copy of the decoder state.
func (q *Quad) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot{
		Position:   q.pos,
		EdgeMicros: q.edgeMicros,
		LastEdge:   q.lastEdge,
		Dir:        q.dir,
		Timed:      true,
	}
}

// Reset sets the position to zero. Edge timing is untouched.
func (q *Quad) Reset() {
	q.mu.Lock()
	q.pos = 0
	q.mu.Unlock()
}

// Set sets the position to a known value.
func (q *Quad) Set(pos int64) {
	q.mu.Lock()
	q.pos = pos
	q.mu.Unlock()
}
