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

// Rig configuration and hardware bring-up

package rig

import (
	"fmt"
	"time"

	"github.com/aamcrae/config"
	"github.com/aamcrae/dyno/encoder"
	"github.com/aamcrae/dyno/io"
	"github.com/aamcrae/dyno/loadcell"
	gpio "github.com/aamcrae/gpio"
)

// RigConfig is the rig configuration, read from a configuration file.
type RigConfig struct {
	Name    string
	Mode    string // Decoder variant, "quad" or "counter"
	PinA    int
	PinB    int
	Index   int // GPIO of index line, -1 when not wired
	Unit    int // Counter device unit
	Scan    time.Duration
	PPR     int
	Sample  time.Duration
	Alpha   float64
	Glitch  time.Duration
	Timeout time.Duration
	Cells   []CellConfig
}

// CellConfig is the configuration of one load cell channel.
type CellConfig struct {
	Name    string
	Sck     int
	Dout    int
	Samples int
	Flush   time.Duration
	Beta    float64
	Scale   float64
}

// Config reads and validates a rig config from a config file.
// Sample config:
//  [encoder]
//  mode=quad       # quad (software decode) or counter (hardware device)
//  pins=16,17      # GPIOs for phase lines A and B
//  index=18        # GPIO for index line (omit if not wired)
//  ppr=1024        # Encoder pulses per revolution
//  sample=10ms     # Speed sampling interval
//  alpha=0.4       # Speed smoothing factor
//  glitch=10us     # Minimum accepted inter-edge interval
//  timeout=500ms   # Zero the speed after this long with no edge
//
//  [cell0]
//  sck=41          # GPIO for converter clock
//  dout=40         # GPIO for converter data
//  samples=8       # Oversampling per average
//  iir=0.15        # Force filter coefficient
//  scale=1000.0    # Initial counts per kg, replaced by calibration
//
// In counter mode the phase pins are wired to the counter device
// instead, and the [encoder] section gives the device unit:
//  mode=counter
//  counter=0       # Counter device unit number
//  scan=5ms        # Register scan interval
func Config(conf *config.Config) (*RigConfig, error) {
	s := conf.GetSection("encoder")
	if s == nil {
		return nil, fmt.Errorf("no encoder config")
	}
	rc := new(RigConfig)
	rc.Name = "encoder"
	rc.Mode = "quad"
	if m, err := s.GetArg("mode"); err == nil {
		rc.Mode = m
	}
	switch rc.Mode {
	case "quad":
		n, err := s.Parse("pins", "%d,%d", &rc.PinA, &rc.PinB)
		if err != nil {
			return nil, fmt.Errorf("pins: %v", err)
		}
		if n != 2 {
			return nil, fmt.Errorf("invalid pins arguments")
		}
	case "counter":
		n, err := s.Parse("counter", "%d", &rc.Unit)
		if err != nil {
			return nil, fmt.Errorf("counter: %v", err)
		}
		if n != 1 {
			return nil, fmt.Errorf("counter: argument count")
		}
	default:
		return nil, fmt.Errorf("%s: unknown mode", rc.Mode)
	}
	var err error
	rc.Index, err = optInt(s, "index", -1)
	if err != nil {
		return nil, err
	}
	rc.PPR, err = optInt(s, "ppr", 1024)
	if err != nil {
		return nil, err
	}
	if rc.PPR <= 0 {
		return nil, fmt.Errorf("ppr: must be positive")
	}
	rc.Sample, err = optDuration(s, "sample", 10*time.Millisecond)
	if err != nil {
		return nil, err
	}
	// Intervals shorter than the microsecond clock resolution would
	// estimate over zero elapsed time.
	if rc.Sample < time.Millisecond {
		return nil, fmt.Errorf("sample: must be at least 1ms")
	}
	rc.Alpha, err = optFloat(s, "alpha", 0.4)
	if err != nil {
		return nil, err
	}
	if rc.Alpha <= 0 || rc.Alpha > 1 {
		return nil, fmt.Errorf("alpha: must be in (0,1]")
	}
	rc.Glitch, err = optDuration(s, "glitch", 10*time.Microsecond)
	if err != nil {
		return nil, err
	}
	rc.Timeout, err = optDuration(s, "timeout", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	rc.Scan, err = optDuration(s, "scan", 5*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if rc.Scan < time.Millisecond {
		return nil, fmt.Errorf("scan: must be at least 1ms")
	}
	for i := 0; ; i++ {
		name := fmt.Sprintf("cell%d", i)
		cs := conf.GetSection(name)
		if cs == nil {
			break
		}
		cc := CellConfig{Name: name}
		n, err := cs.Parse("sck", "%d", &cc.Sck)
		if err != nil {
			return nil, fmt.Errorf("%s: sck: %v", name, err)
		}
		if n != 1 {
			return nil, fmt.Errorf("%s: sck: argument count", name)
		}
		n, err = cs.Parse("dout", "%d", &cc.Dout)
		if err != nil {
			return nil, fmt.Errorf("%s: dout: %v", name, err)
		}
		if n != 1 {
			return nil, fmt.Errorf("%s: dout: argument count", name)
		}
		cc.Samples, err = optInt(cs, "samples", 8)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		if cc.Samples <= 0 {
			return nil, fmt.Errorf("%s: samples: must be positive", name)
		}
		cc.Beta, err = optFloat(cs, "iir", 0.15)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		if cc.Beta <= 0 || cc.Beta > 1 {
			return nil, fmt.Errorf("%s: iir: must be in (0,1]", name)
		}
		cc.Flush, err = optDuration(cs, "flush", 100*time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		cc.Scale, err = optFloat(cs, "scale", 1000.0)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		rc.Cells = append(rc.Cells, cc)
	}
	return rc, nil
}

// NewRig initialises the I/O and builds the rig from the
// configuration, starting the input watchers.
func NewRig(rc *RigConfig) (*Rig, error) {
	clock := Clock()
	var dec encoder.Decoder
	switch rc.Mode {
	case "quad":
		a, err := io.Pin(rc.PinA)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %v", rc.PinA, err)
		}
		b, err := io.Pin(rc.PinB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("pin %d: %v", rc.PinB, err)
		}
		pair, err := io.NewPair(a, b)
		if err != nil {
			a.Close()
			b.Close()
			return nil, fmt.Errorf("%s: %v", rc.Name, err)
		}
		q := encoder.NewQuad(rc.Name, rc.Glitch)
		av, err := a.Read()
		if err != nil {
			pair.Close()
			return nil, fmt.Errorf("pin %d: %v", rc.PinA, err)
		}
		bv, err := b.Read()
		if err != nil {
			pair.Close()
			return nil, fmt.Errorf("pin %d: %v", rc.PinB, err)
		}
		q.Sync(av, bv)
		go q.Watch(pair, clock)
		dec = q
	case "counter":
		dev, err := io.NewCounter(rc.Unit)
		if err != nil {
			return nil, err
		}
		ctr := encoder.NewCounter(rc.Name, dev)
		// Clear any count left from before this run.
		ctr.Reset()
		go ctr.Watch(rc.Scan)
		dec = ctr
	default:
		return nil, fmt.Errorf("%s: unknown mode", rc.Mode)
	}
	var idx *encoder.Index
	if rc.Index >= 0 {
		z, err := io.Pin(rc.Index)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %v", rc.Index, err)
		}
		if err := z.Edge(io.RISING); err != nil {
			z.Close()
			return nil, fmt.Errorf("pin %d: %v", rc.Index, err)
		}
		idx = encoder.NewIndex(rc.Name)
		go idx.Watch(z)
	}
	speed := encoder.NewSpeed(rc.Name, dec, rc.PPR, rc.Sample, rc.Timeout, rc.Alpha)
	var cells []*loadcell.Cell
	for _, cc := range rc.Cells {
		sck, err := gpio.OutputPin(cc.Sck)
		if err != nil {
			return nil, fmt.Errorf("%s: pin %d: %v", cc.Name, cc.Sck, err)
		}
		dout, err := gpio.Pin(cc.Dout)
		if err != nil {
			sck.Close()
			return nil, fmt.Errorf("%s: pin %d: %v", cc.Name, cc.Dout, err)
		}
		hx, err := io.NewHX711(cc.Name, sck, dout)
		if err != nil {
			sck.Close()
			dout.Close()
			return nil, err
		}
		cells = append(cells, loadcell.New(cc.Name, hx, cc.Samples, cc.Flush, cc.Beta, cc.Scale))
	}
	r := New(rc.Name, dec, idx, speed, cells, rc.PPR*4)
	r.clock = clock
	return r, nil
}

// Optional keys fall back to a default when absent.

func optInt(s *config.Section, key string, def int) (int, error) {
	if _, err := s.GetArg(key); err != nil {
		return def, nil
	}
	var v int
	n, err := s.Parse(key, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("%s: argument count", key)
	}
	return v, nil
}

func optFloat(s *config.Section, key string, def float64) (float64, error) {
	if _, err := s.GetArg(key); err != nil {
		return def, nil
	}
	var v float64
	n, err := s.Parse(key, "%f", &v)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("%s: argument count", key)
	}
	return v, nil
}

func optDuration(s *config.Section, key string, def time.Duration) (time.Duration, error) {
	v, err := s.GetArg(key)
	if err != nil {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return d, nil
}
