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

// Simulated dyno rig

package main

import (
	"flag"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/aamcrae/dyno/console"
	"github.com/aamcrae/dyno/encoder"
	"github.com/aamcrae/dyno/loadcell"
	"github.com/aamcrae/dyno/rig"
)

var port = flag.Int("port", 8080, "Web server port number")
var ppr = flag.Int("ppr", 1024, "Encoder pulses per revolution")
var peak = flag.Float64("peak", 3000, "Peak shaft speed (RPM)")
var sweep = flag.Duration("sweep", 20*time.Second, "Speed sweep period")
var report = flag.Duration("report", 500*time.Millisecond, "Status report interval")

const tick = 2 * time.Millisecond
const brakeKg = 25.0    // Brake load at peak speed
const cellScale = 420.0 // Simulated cell sensitivity (counts/kg)
const cellOffset = 123456
const convMicros = 12500 // ~80 conversions/sec

// Forward transition sequence for the A/B lines.
var quadSeq = [4][2]int{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// simSource feeds synthetic load cell samples paced by the virtual
// clock. The load tracks the square of the shaft speed, the way a
// brake dynamometer loads up.
type simSource struct {
	now  uint32
	last uint32
	kg   float64
}

func (s *simSource) Sample() (int32, bool, error) {
	if encoder.Elapsed(s.now, s.last) < convMicros {
		return 0, false, nil
	}
	s.last = s.now
	raw := cellOffset + int32(s.kg*cellScale) + int32(rand.Intn(21)-10)
	return raw, true, nil
}

// The simulator runs the production decoder, estimator, sampler and
// console against a motion model on a virtual microsecond clock.
// Edges are injected with timestamps interpolated inside each tick so
// that the edge interval measurements behave as they would from the
// line watchers. No glitch filter; the simulated signal is clean, and
// at peak speed real edges arrive faster than the hardware filter
// window.
func main() {
	flag.Parse()
	cpr := *ppr * 4
	dec := encoder.NewQuad("sim", 0)
	idx := encoder.NewIndex("sim")
	spd := encoder.NewSpeed("sim", dec, *ppr, 10*time.Millisecond, 500*time.Millisecond, 0.4)
	src := &simSource{}
	cell := loadcell.New("sim", src, 8, 100*time.Millisecond, 0.15, cellScale)
	r := rig.New("sim", dec, idx, spd, []*loadcell.Cell{cell}, cpr)
	go rig.Serve(r, *port)
	go console.Run(r, os.Stdin, os.Stdout, *report)

	tickUs := uint32(tick / time.Microsecond)
	tickSec := tick.Seconds()
	var now uint32
	var carry float64
	var count int64
	var elapsed float64
	for {
		time.Sleep(tick)
		rpm := *peak * (1 + math.Sin(2*math.Pi*elapsed/sweep.Seconds())) / 2
		cps := rpm / 60 * float64(cpr)
		edges := cps*tickSec + carry
		n := int(edges)
		carry = edges - float64(n)
		for i := 0; i < n; i++ {
			ts := now + uint32(float64(tickUs)*float64(i+1)/float64(n))
			count++
			s := quadSeq[count%4]
			dec.Edge(s[0], s[1], ts)
			if count%int64(cpr) == 0 {
				idx.Mark()
			}
		}
		now += tickUs
		elapsed += tickSec
		src.now = now
		src.kg = brakeKg * (rpm / *peak) * (rpm / *peak)
		r.Poll(now)
	}
}
