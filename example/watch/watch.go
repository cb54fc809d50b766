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

// Program to demonstrate watching a quadrature phase pair

package main

import (
	"flag"
	"log"

	"github.com/aamcrae/dyno/io"
)

var pinA = flag.Int("a", 20, "GPIO pin for phase A")
var pinB = flag.Int("b", 21, "GPIO pin for phase B")

func main() {
	flag.Parse()
	a, err := io.Pin(*pinA)
	if err != nil {
		log.Fatalf("Pin %d: %v", *pinA, err)
	}
	defer a.Close()
	b, err := io.Pin(*pinB)
	if err != nil {
		log.Fatalf("Pin %d: %v", *pinB, err)
	}
	defer b.Close()
	pair, err := io.NewPair(a, b)
	if err != nil {
		log.Fatalf("Pair %d/%d: %v", *pinA, *pinB, err)
	}
	for {
		va, vb, err := pair.Wait()
		if err != nil {
			log.Fatalf("Pair %d/%d: %v", *pinA, *pinB, err)
		}
		log.Printf("A=%d B=%d", va, vb)
	}
}
