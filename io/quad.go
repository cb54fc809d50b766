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

// Paired edge-triggered inputs for quadrature phase lines

package io

import (
	"golang.org/x/sys/unix"
)

// Pair couples two edge-triggered input pins so that a single wait
// covers a transition on either pin. A quadrature decoder needs the
// level of both phase lines after every edge, so waiting on the pins
// one at a time is not sufficient.
type Pair struct {
	a, b   *Gpio
	pollfd []unix.PollFd
}

// NewPair creates a Pair from two input pins, enabling edge
// detection on both.
func NewPair(a, b *Gpio) (*Pair, error) {
	if err := a.Edge(BOTH); err != nil {
		return nil, err
	}
	if err := b.Edge(BOTH); err != nil {
		return nil, err
	}
	p := new(Pair)
	p.a = a
	p.b = b
	p.pollfd = []unix.PollFd{
		{Fd: int32(a.value.Fd()), Events: unix.POLLPRI | unix.POLLERR},
		{Fd: int32(b.value.Fd()), Events: unix.POLLPRI | unix.POLLERR},
	}
	return p, nil
}

// Wait blocks until either pin changes, then returns the current
// level of both.
func (p *Pair) Wait() (int, int, error) {
	p.pollfd[0].Revents = 0
	p.pollfd[1].Revents = 0
	_, err := unix.Poll(p.pollfd, -1)
	if err != nil {
		return 0, 0, err
	}
	a, err := p.a.Read()
	if err != nil {
		return 0, 0, err
	}
	b, err := p.b.Read()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// Close closes both pins.
func (p *Pair) Close() {
	p.a.Close()
	p.b.Close()
}
