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

package encoder

import (
	"testing"
	"time"
)

// One full forward and reverse cycle of the A/B lines, starting from
// state A=0,B=0.
var fwd = [][2]int{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
var rev = [][2]int{{1, 0}, {1, 1}, {0, 1}, {0, 0}}

// feed runs whole cycles through the decoder, spacing the edges step
// microseconds apart, and returns the final timestamp.
func feed(q *Quad, seq [][2]int, cycles int, start, step uint32) uint32 {
	now := start
	for i := 0; i < cycles; i++ {
		for _, s := range seq {
			now += step
			q.Edge(s[0], s[1], now)
		}
	}
	return now
}

func TestQuadForward(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	feed(q, fwd, 5, 0, 100)
	if p := q.Position(); p != 20 {
		t.Fatalf("position %d, want 20", p)
	}
}

func TestQuadReverse(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	feed(q, rev, 5, 0, 100)
	if p := q.Position(); p != -20 {
		t.Fatalf("position %d, want -20", p)
	}
}

func TestQuadThereAndBack(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	now := feed(q, fwd, 3, 0, 100)
	feed(q, rev, 3, now, 100)
	if p := q.Position(); p != 0 {
		t.Fatalf("position %d, want 0", p)
	}
}

func TestQuadAmbiguous(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	// Both bits changing at once carries no direction.
	q.Edge(1, 1, 100)
	if p := q.Position(); p != 0 {
		t.Fatalf("position %d after 00->11, want 0", p)
	}
	q.Edge(0, 0, 200)
	q.Edge(0, 1, 300)
	q.Edge(1, 0, 400)
	if p := q.Position(); p != 1 {
		t.Fatalf("position %d, want 1", p)
	}
}

func TestQuadRepeatedState(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	q.Edge(0, 1, 100)
	q.Edge(0, 1, 200)
	q.Edge(0, 1, 300)
	if p := q.Position(); p != 1 {
		t.Fatalf("position %d, want 1", p)
	}
}

func TestQuadGlitchFilter(t *testing.T) {
	q := NewQuad("test", 10*time.Microsecond)
	q.Sync(0, 0)
	q.Edge(0, 1, 100)
	// 5us after the last accepted edge; dropped as bounce.
	q.Edge(1, 1, 105)
	if p := q.Position(); p != 1 {
		t.Fatalf("position %d after glitch, want 1", p)
	}
	// The phase state still advanced, so the next edge counts from
	// the rejected state, not the accepted one.
	q.Edge(1, 0, 120)
	if p := q.Position(); p != 2 {
		t.Fatalf("position %d, want 2", p)
	}
	snap := q.Snapshot()
	if snap.EdgeMicros != 20 {
		t.Fatalf("edge interval %d, want 20", snap.EdgeMicros)
	}
	if snap.LastEdge != 120 {
		t.Fatalf("last edge %d, want 120", snap.LastEdge)
	}
}

func TestQuadSnapshot(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	q.Edge(0, 1, 1000)
	q.Edge(1, 1, 1400)
	snap := q.Snapshot()
	if !snap.Timed {
		t.Fatalf("software decoder must report edge timing")
	}
	if snap.Position != 2 {
		t.Fatalf("position %d, want 2", snap.Position)
	}
	if snap.EdgeMicros != 400 {
		t.Fatalf("edge interval %d, want 400", snap.EdgeMicros)
	}
	if snap.Dir != 1 {
		t.Fatalf("direction %d, want 1", snap.Dir)
	}
	// Reversal flips the recorded direction.
	q.Edge(0, 1, 1800)
	if snap = q.Snapshot(); snap.Dir != -1 {
		t.Fatalf("direction %d after reversal, want -1", snap.Dir)
	}
}

func TestQuadResetSet(t *testing.T) {
	q := NewQuad("test", 0)
	q.Sync(0, 0)
	feed(q, fwd, 2, 0, 100)
	q.Reset()
	if p := q.Position(); p != 0 {
		t.Fatalf("position %d after reset, want 0", p)
	}
	q.Set(-555)
	if p := q.Position(); p != -555 {
		t.Fatalf("position %d after set, want -555", p)
	}
	// Edge timing survives a position reset.
	if snap := q.Snapshot(); snap.EdgeMicros != 100 {
		t.Fatalf("edge interval %d after reset, want 100", snap.EdgeMicros)
	}
}

func TestQuadClockWrap(t *testing.T) {
	q := NewQuad("test", 10*time.Microsecond)
	q.Sync(0, 0)
	q.Edge(0, 1, 0xFFFFFFF0)
	// The next edge lands after the 32 bit clock wraps.
	q.Edge(1, 1, 16)
	snap := q.Snapshot()
	if snap.Position != 2 {
		t.Fatalf("position %d across wrap, want 2", snap.Position)
	}
	if snap.EdgeMicros != 32 {
		t.Fatalf("edge interval %d across wrap, want 32", snap.EdgeMicros)
	}
}
