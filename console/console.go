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

// Package console implements the text command interface and the
// periodic status report for a rig. Commands are line oriented and
// case insensitive; responses and report lines use a fixed format so
// that client programs can parse them.
package console

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aamcrae/dyno/rig"
)

type console struct {
	r  *rig.Rig
	mu sync.Mutex // Guards w against reporter/command interleaving
	w  io.Writer
}

type command struct {
	name  string
	usage string
	run   func(c *console, args []string)
}

var commands = []command{
	{"TARE", "TARE [cell]", tare},
	{"CAL", "CAL [cell] <kg>", cal},
	{"RAW", "RAW [cell]", raw},
	{"SCALE", "SCALE [cell]", scale},
	{"ZERO", "ZERO", zero},
	{"SET", "SET <position>", set},
}

// Run reads commands from rd, writing responses and a periodic status
// report to wr. It returns when rd is exhausted. A report interval of
// zero disables the reporter.
func Run(r *rig.Rig, rd io.Reader, wr io.Writer, report time.Duration) {
	c := &console{r: r, w: wr}
	c.printf("Commands: %s\n", available())
	if report > 0 {
		stop := make(chan struct{})
		go c.reporter(report, stop)
		defer close(stop)
	}
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		c.dispatch(line)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("console: %v", err)
	}
}

func (c *console) dispatch(line string) {
	f := strings.Fields(line)
	name := strings.ToUpper(f[0])
	for _, cmd := range commands {
		if cmd.name == name {
			cmd.run(c, f[1:])
			return
		}
	}
	c.printf("Unknown command. Available: %s\n", available())
}

func available() string {
	var u []string
	for _, cmd := range commands {
		u = append(u, cmd.usage)
	}
	return strings.Join(u, ", ")
}

func tare(c *console, args []string) {
	cell, _ := cellArg(args)
	if err := c.r.Tare(cell); err != nil {
		c.printf("TARE ERR - %v\n", err)
		return
	}
	c.printf("TARE OK\n")
}

func cal(c *console, args []string) {
	var cell int
	var kgArg string
	switch len(args) {
	case 1:
		kgArg = args[0]
	case 2:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			c.printf("Usage: CAL [cell] <kg>\n")
			return
		}
		cell = n
		kgArg = args[1]
	default:
		c.printf("Usage: CAL [cell] <kg>\n")
		return
	}
	kg, err := strconv.ParseFloat(kgArg, 64)
	if err != nil {
		c.printf("Usage: CAL [cell] <kg>\n")
		return
	}
	if kg <= 0 {
		c.printf("CAL ERR - Weight must be positive\n")
		return
	}
	if err := c.r.Calibrate(cell, kg); err != nil {
		c.printf("CAL ERR - %v\n", err)
		return
	}
	c.printf("CAL OK scale counts/kg=%.3f\n", c.r.Scale(cell))
}

func raw(c *console, args []string) {
	cell, _ := cellArg(args)
	c.printf("RAW=%d\n", c.r.Raw(cell))
}

func scale(c *console, args []string) {
	cell, _ := cellArg(args)
	c.printf("SCALE=%.3f\n", c.r.Scale(cell))
}

func zero(c *console, args []string) {
	c.r.Zero()
	c.printf("Encoder position reset to zero\n")
}

func set(c *console, args []string) {
	if len(args) != 1 {
		c.printf("Usage: SET <position>\n")
		return
	}
	pos, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printf("Usage: SET <position>\n")
		return
	}
	c.r.SetPosition(pos)
	c.printf("Encoder position set to %d\n", pos)
}

// cellArg interprets an optional leading cell number, defaulting to 0.
func cellArg(args []string) (int, []string) {
	if len(args) == 0 {
		return 0, args
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, args
	}
	return n, args[1:]
}

func (c *console) reporter(interval time.Duration, stop chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			c.report()
		}
	}
}

// report writes one status line. The index marker and the trailing
// Force line are part of the format clients parse, so both lines are
// written under one lock.
func (c *console) report() {
	var b strings.Builder
	fmt.Fprintf(&b, "Pos=%d cps=%.1f rpm=%.2f", c.r.Position(), c.r.CPS(), c.r.RPM())
	if c.r.IndexSeen() {
		b.WriteString(" Z")
	}
	if c.r.Cells() > 0 {
		fmt.Fprintf(&b, " force=%.3fkg", c.r.Force(0))
		for i := 1; i < c.r.Cells(); i++ {
			fmt.Fprintf(&b, " force%d=%.3fkg", i, c.r.Force(i))
		}
		b.WriteByte('\n')
		fmt.Fprintf(&b, "Force=%.3fkg", c.r.Force(0))
	}
	b.WriteByte('\n')
	c.printf("%s", b.String())
}

func (c *console) printf(f string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, f, args...)
}
