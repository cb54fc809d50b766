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

// Shaft speed estimation

package encoder

import (
	"log"
	"math"
	"sync"
	"time"
)

// Blending thresholds in counts/sec. Below the low threshold the
// edge interval is dominated by jitter; above the high threshold the
// edge interval is more accurate than the window count.
const (
	lowBlend  = 10.0
	highBlend = 1000.0
)

// Weight of the edge estimate in the high speed blend.
const edgeWeight = 0.7

// Speed estimates shaft speed from decoder state, once per sampling
// interval. Two estimates are fused: the window estimate (position
// change over the interval) and the edge estimate (reciprocal of the
// interval between the last two accepted edges). The blend adapts to
// the speed magnitude, the result is smoothed with an exponential
// moving average, and the speed is forced to zero when no edge has
// been accepted within the timeout, so a stalled shaft cannot report
// a stale speed. Decoder variants without edge timing get the window
// estimate alone.
type Speed struct {
	name     string
	dec      Decoder
	ppr      float64
	interval uint32 // Sampling interval in microseconds
	timeout  uint32 // Forced zero after this long without an edge
	alpha    float64

	mu       sync.Mutex // Guards tick state and output
	started  bool
	lastTick uint32
	lastPos  int64
	ema      float64
}

// NewSpeed creates a speed estimator for a decoder.
func NewSpeed(name string, dec Decoder, ppr int, sample, timeout time.Duration, alpha float64) *Speed {
	s := new(Speed)
	s.name = name
	s.dec = dec
	s.ppr = float64(ppr)
	s.interval = uint32(sample.Microseconds())
	s.timeout = uint32(timeout.Microseconds())
	s.alpha = alpha
	log.Printf("%s: ppr %d, sample %s, timeout %s, alpha %.2f", name, ppr, sample, timeout, alpha)
	return s
}

// Update runs one estimate if the sampling interval has elapsed
// since the previous tick. The first call only sets the baseline.
func (s *Speed) Update(now uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		s.lastTick = now
		s.lastPos = s.dec.Position()
		return
	}
	el := Elapsed(now, s.lastTick)
	if el < s.interval {
		return
	}
	snap := s.dec.Snapshot()
	sec := float64(el) / 1e6
	window := float64(snap.Position-s.lastPos) / sec

	// The poll timestamp is captured before the snapshot, so a watcher
	// can stamp an edge after now; the unsigned interval then lands in
	// the top half of the range. Such an edge is current, not stale.
	sinceEdge := Elapsed(now, snap.LastEdge)
	ahead := sinceEdge >= 1<<31

	// The edge estimate is only valid if an edge arrived within this
	// window; an older interval describes motion already counted.
	var edge float64
	if snap.Timed && snap.EdgeMicros > 0 && (ahead || sinceEdge <= el) {
		edge = float64(snap.Dir) * 1e6 / float64(snap.EdgeMicros)
	}

	var blended float64
	aw := math.Abs(window)
	if aw < lowBlend {
		blended = window
	} else if aw > highBlend && edge != 0 {
		blended = edgeWeight*edge + (1-edgeWeight)*window
	} else if window != 0 && edge != 0 {
		blended = (window + edge) / 2
	} else if edge != 0 {
		blended = edge
	} else {
		blended = window
	}
	if snap.Timed && !ahead && sinceEdge > s.timeout {
		blended = 0
	}
	s.ema = s.alpha*blended + (1-s.alpha)*s.ema

	s.lastPos = snap.Position
	s.lastTick = now
}

// Set moves the decoder to a known position and rebases the speed
// window in the same critical section, so a concurrent update can
// never fold the jump into the estimate. The smoothed output carries
// over.
func (s *Speed) Set(pos int64) {
	s.mu.Lock()
	s.dec.Set(pos)
	s.lastPos = pos
	s.mu.Unlock()
}

// CPS returns the smoothed speed in counts per second.
func (s *Speed) CPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ema
}

// RPS returns the smoothed speed in revolutions per second.
func (s *Speed) RPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ema / s.ppr
}

// RPM returns the smoothed speed in revolutions per minute.
func (s *Speed) RPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ema * 60 / s.ppr
}
