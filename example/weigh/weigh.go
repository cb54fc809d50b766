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

// Program to demonstrate reading raw load cell samples

package main

import (
	"flag"
	"log"
	"time"

	"github.com/aamcrae/dyno/io"
)

var sck = flag.Int("sck", 5, "GPIO pin for converter clock")
var dout = flag.Int("dout", 6, "GPIO pin for converter data")

func main() {
	flag.Parse()
	clk, err := io.OutputPin(*sck)
	if err != nil {
		log.Fatalf("Pin %d: %v", *sck, err)
	}
	defer clk.Close()
	data, err := io.Pin(*dout)
	if err != nil {
		log.Fatalf("Pin %d: %v", *dout, err)
	}
	defer data.Close()
	hx, err := io.NewHX711("hx711", clk, data)
	if err != nil {
		log.Fatalf("hx711: %v", err)
	}
	for {
		raw, ok, err := hx.Sample()
		if err != nil {
			log.Fatalf("hx711: %v", err)
		}
		if ok {
			log.Printf("raw = %d", raw)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
