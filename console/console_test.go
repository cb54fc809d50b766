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

package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aamcrae/dyno/encoder"
	"github.com/aamcrae/dyno/loadcell"
	"github.com/aamcrae/dyno/rig"
)

type testDec struct {
	snap encoder.Snapshot
}

func (f *testDec) Position() int64 { return f.snap.Position }

func (f *testDec) Snapshot() encoder.Snapshot { return f.snap }

func (f *testDec) Reset() { f.snap.Position = 0 }

func (f *testDec) Set(p int64) { f.snap.Position = p }

type testSource struct {
	vals []int32
	i    int
}

func (f *testSource) Sample() (int32, bool, error) {
	if f.i >= len(f.vals) {
		return 0, false, nil
	}
	v := f.vals[f.i]
	f.i++
	return v, true, nil
}

func newRig(cells int) (*rig.Rig, *testDec, *encoder.Index) {
	dec := &testDec{}
	spd := encoder.NewSpeed("test", dec, 1000, 10*time.Millisecond, 500*time.Millisecond, 1.0)
	idx := encoder.NewIndex("test")
	var cc []*loadcell.Cell
	for i := 0; i < cells; i++ {
		src := &testSource{vals: []int32{1000, 6000, 6000}}
		cc = append(cc, loadcell.New("cell", src, 1, 100*time.Millisecond, 1.0, 100.0))
	}
	return rig.New("test", dec, idx, spd, cc, 4096), dec, idx
}

func TestConsoleCommands(t *testing.T) {
	r, _, _ := newRig(0)
	var out bytes.Buffer
	in := strings.NewReader("SET 250\nzero\nSET 100\nFOO\n")
	Run(r, in, &out, 0)
	s := out.String()
	for _, want := range []string{
		"Commands: ",
		"Encoder position set to 250",
		"Encoder position reset to zero",
		"Encoder position set to 100",
		"Unknown command. Available: ",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if p := r.Position(); p != 100 {
		t.Fatalf("position %d after commands, want 100", p)
	}
}

func TestConsoleLoadCell(t *testing.T) {
	r, _, _ := newRig(1)
	r.Poll(10)
	r.Poll(20)
	var out bytes.Buffer
	in := strings.NewReader("RAW\nSCALE\nCAL 10\nSCALE\nTARE\nTARE 1\nCAL 0\nCAL 1 5\n")
	Run(r, in, &out, 0)
	s := out.String()
	for _, want := range []string{
		"RAW=6000\n",
		"SCALE=100.000\n",
		"CAL OK scale counts/kg=500.000\n",
		"SCALE=500.000\n",
		"TARE OK\n",
		"TARE ERR - test: no cell 1\n",
		"CAL ERR - Weight must be positive\n",
		"CAL ERR - test: no cell 1\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestConsoleBadArgs(t *testing.T) {
	r, _, _ := newRig(1)
	var out bytes.Buffer
	in := strings.NewReader("SET\nSET abc\nCAL\nCAL x y\n")
	Run(r, in, &out, 0)
	s := out.String()
	if n := strings.Count(s, "Usage: SET <position>"); n != 2 {
		t.Errorf("%d SET usage lines, want 2:\n%s", n, s)
	}
	if n := strings.Count(s, "Usage: CAL [cell] <kg>"); n != 2 {
		t.Errorf("%d CAL usage lines, want 2:\n%s", n, s)
	}
}

func TestConsoleReport(t *testing.T) {
	r, dec, idx := newRig(1)
	dec.snap.Position = 4242
	r.Poll(10)
	r.Poll(20)
	var out bytes.Buffer
	c := &console{r: r, w: &out}
	c.report()
	want := "Pos=4242 cps=0.0 rpm=0.00 force=50.000kg\nForce=50.000kg\n"
	if out.String() != want {
		t.Fatalf("report %q, want %q", out.String(), want)
	}
	// An index crossing shows once and is consumed.
	idx.Mark()
	out.Reset()
	c.report()
	want = "Pos=4242 cps=0.0 rpm=0.00 Z force=50.000kg\nForce=50.000kg\n"
	if out.String() != want {
		t.Fatalf("report %q, want %q", out.String(), want)
	}
	out.Reset()
	c.report()
	if strings.Contains(out.String(), " Z") {
		t.Fatalf("index marker not consumed: %q", out.String())
	}
}

func TestConsoleReportNoCells(t *testing.T) {
	r, _, _ := newRig(0)
	var out bytes.Buffer
	c := &console{r: r, w: &out}
	c.report()
	if out.String() != "Pos=0 cps=0.0 rpm=0.00\n" {
		t.Fatalf("report %q", out.String())
	}
}

func TestConsoleReportTwoCells(t *testing.T) {
	r, _, _ := newRig(2)
	r.Poll(10)
	var out bytes.Buffer
	c := &console{r: r, w: &out}
	c.report()
	want := "Pos=0 cps=0.0 rpm=0.00 force=0.000kg force1=0.000kg\nForce=0.000kg\n"
	if out.String() != want {
		t.Fatalf("report %q, want %q", out.String(), want)
	}
}
