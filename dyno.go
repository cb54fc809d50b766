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

// Dyno acquisition daemon

package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/aamcrae/config"
	"github.com/aamcrae/dyno/console"
	"github.com/aamcrae/dyno/rig"
	"go.bug.st/serial"
)

var configFile = flag.String("config", "dyno.conf", "Configuration file")
var port = flag.Int("port", 8080, "Port for status server")
var device = flag.String("serial", "", "Serial device for the console (default stdio)")
var baud = flag.Int("baud", 115200, "Baud rate for the serial console")
var poll = flag.Duration("poll", 2*time.Millisecond, "Sampling poll interval")
var report = flag.Duration("report", 100*time.Millisecond, "Status report interval")

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
	go poller(r, *poll)
	go rig.Serve(r, *port)
	if len(*device) > 0 {
		p, err := serial.Open(*device, &serial.Mode{BaudRate: *baud})
		if err != nil {
			log.Fatalf("%s: %v", *device, err)
		}
		defer p.Close()
		console.Run(r, p, p, *report)
	} else {
		console.Run(r, os.Stdin, os.Stdout, *report)
	}
}

// poller drives the sampling domain; load cells and the speed
// estimator only advance from here.
func poller(r *rig.Rig, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		r.Poll(r.Now())
	}
}
