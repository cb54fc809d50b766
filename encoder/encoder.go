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

// Package encoder derives shaft position and speed from a quadrature encoder.

package encoder

// Snapshot is a coherent copy of decoder state, captured in a single
// critical section so that position and edge timing belong to the
// same instant.
type Snapshot struct {
	Position   int64  // Accumulated position in counts
	EdgeMicros uint32 // Interval between the last two accepted edges
	LastEdge   uint32 // Timestamp of the last accepted edge
	Dir        int    // Sign of the last accepted edge, +1 or -1
	Timed      bool   // True when the decoder records edge timing
}

// Decoder is the contract shared by the quadrature decoder variants.
// Position and Snapshot may be called from any goroutine. Set is
// best-effort on variants backed by a bounded hardware register.
type Decoder interface {
	Position() int64
	Snapshot() Snapshot
	Reset()
	Set(int64)
}

// Elapsed returns the interval between two microsecond timestamps.
// The clock wraps at 32 bits; unsigned subtraction keeps the result
// valid across a wrap.
func Elapsed(now, since uint32) uint32 {
	return now - since
}
