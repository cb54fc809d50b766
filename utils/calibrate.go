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

// Load cell calibration utility

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aamcrae/config"
	"github.com/aamcrae/dyno/rig"
)

var configFile = flag.String("config", "dyno.conf", "Configuration file")
var cell = flag.Int("cell", 0, "Load cell to calibrate")
var poll = flag.Duration("poll", 2*time.Millisecond, "Sampling poll interval")

// Interactive calibration against real hardware. Tare with the rig
// unloaded, hang a known weight, let the reading settle, calibrate,
// then copy the printed scale factor into the config file.
func main() {
	flag.Parse()
	conf, err := config.ParseFile(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	rc, err := rig.Config(conf)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	r, err := rig.NewRig(rc)
	if err != nil {
		log.Fatalf("%s: %v", rc.Name, err)
	}
	if *cell < 0 || *cell >= r.Cells() {
		log.Fatalf("%s: no cell %d", rc.Name, *cell)
	}
	go func() {
		tick := time.NewTicker(*poll)
		defer tick.Stop()
		for range tick.C {
			r.Poll(r.Now())
		}
	}()
	// Let the first flush land before printing readings.
	time.Sleep(500 * time.Millisecond)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("raw %d force %.3fkg scale %.3f\n", r.Raw(*cell), r.Force(*cell), r.Scale(*cell))
		fmt.Print("Enter command ('help' for help) ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		switch {
		case text == "help":
			fmt.Println("  help - print help")
			fmt.Println("  t - tare with no weight applied")
			fmt.Println("  c KG - calibrate against a known weight")
			fmt.Println("  r - print the current readings")
			fmt.Println("  q - quit")
		case text == "q":
			fmt.Printf("Set scale=%.3f in the cell%d section of %s\n", r.Scale(*cell), *cell, *configFile)
			return
		case text == "t":
			if err := r.Tare(*cell); err != nil {
				fmt.Printf("Tare: %v\n", err)
				break
			}
			fmt.Println("Tared; hang the known weight and wait for the reading to settle")
		case text == "r":
			// Readings print at the top of the loop.
		case strings.HasPrefix(text, "c"):
			var kg float64
			n, err := fmt.Sscanf(text, "c %f", &kg)
			if err != nil || n != 1 {
				fmt.Println("Unrecognised input")
				break
			}
			if err := r.Calibrate(*cell, kg); err != nil {
				fmt.Printf("Calibrate: %v\n", err)
				break
			}
			fmt.Printf("Scale factor %.3f counts/kg\n", r.Scale(*cell))
		default:
			fmt.Println("Unrecognised input")
		}
	}
}
