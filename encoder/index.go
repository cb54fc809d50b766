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

// Encoder index pulse detector

package encoder

import (
	"log"
	"sync"
)

// Line is a single edge triggered input. Get blocks until the line
// changes and returns the new level.
type Line interface {
	Get() (int, error)
}

// Index latches the encoder index pulse. However many pulses arrive
// between polls, one crossing is reported, and reading the flag
// clears it. There is no debounce.
type Index struct {
	name string
	mu   sync.Mutex
	seen bool
}

// NewIndex creates an index pulse detector.
func NewIndex(name string) *Index {
	x := new(Index)
	x.name = name
	return x
}

// Watch services the index line, latching rising edges. It runs
// until the input fails, and is normally started as a goroutine.
func (x *Index) Watch(l Line) {
	for {
		v, err := l.Get()
		if err != nil {
			log.Fatalf("%s: index input: %v", x.name, err)
		}
		if v == 1 {
			x.Mark()
		}
	}
}

// Mark latches an index crossing.
func (x *Index) Mark() {
	x.mu.Lock()
	x.seen = true
	x.mu.Unlock()
}

// Seen reports whether the index was crossed since the last call,
// and clears the flag.
func (x *Index) Seen() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := x.seen
	x.seen = false
	return s
}
