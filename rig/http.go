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

// HTTP server for rig status

package rig

import (
	"fmt"
	"image/jpeg"
	"log"
	"math"
	"net/http"

	"github.com/fogleman/gg"
)

const dialSize = 480

// Serve runs the HTTP status server for a rig. /dial.jpg renders the
// shaft position as a dial, /status returns the readings as text.
func Serve(r *Rig, port int) {
	http.Handle("/dial.jpg", http.HandlerFunc(dial(r)))
	http.Handle("/status", http.HandlerFunc(status(r)))
	url := fmt.Sprintf(":%d", port)
	log.Printf("Starting server on %s", url)
	server := &http.Server{Addr: url}
	log.Fatal(server.ListenAndServe())
}

func dial(r *Rig) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		c := gg.NewContext(dialSize, dialSize)
		mid := float64(dialSize) / 2
		c.SetRGB(1, 1, 1)
		c.Clear()
		c.SetRGB(0, 0, 0)
		c.SetLineWidth(3)
		c.DrawCircle(mid, mid, mid-10)
		c.Stroke()
		c.SetLineWidth(2)
		for i := 0; i < 12; i++ {
			rad := float64(i) * math.Pi / 6
			x := math.Sin(rad)
			y := math.Cos(rad)
			c.DrawLine(mid+x*(mid-28), mid+y*(mid-28), mid+x*(mid-14), mid+y*(mid-14))
		}
		c.Stroke()
		// Needle at the shaft angle within one revolution.
		pos := r.Position()
		cpr := int64(r.CPR())
		frac := float64(((pos%cpr)+cpr)%cpr) / float64(cpr)
		rad := frac * 2 * math.Pi
		c.SetRGB(1, 0, 0)
		c.SetLineWidth(4)
		c.DrawLine(mid, mid, mid+math.Sin(rad)*(mid-40), mid-math.Cos(rad)*(mid-40))
		c.Stroke()
		c.SetRGB(0, 0, 0)
		c.DrawStringAnchored(fmt.Sprintf("%d counts", pos), mid, mid+50, 0.5, 0.5)
		c.DrawStringAnchored(fmt.Sprintf("%.2f rpm", r.RPM()), mid, mid+70, 0.5, 0.5)
		if r.Cells() > 0 {
			c.DrawStringAnchored(fmt.Sprintf("%.3f kg", r.Force(0)), mid, mid+90, 0.5, 0.5)
		}
		err := jpeg.Encode(w, c.Image(), nil)
		if err != nil {
			log.Printf("Error writing image: %v", err)
		}
	}
}

// status writes the readings as one key=value per line. The index
// flag is not reported here; reading it clears it, and the flag
// belongs to the console.
func status(r *Rig) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "pos=%d\ncps=%.1f\nrpm=%.2f\n", r.Position(), r.CPS(), r.RPM())
		for i := 0; i < r.Cells(); i++ {
			fmt.Fprintf(w, "force%d=%.3fkg raw%d=%d scale%d=%.3f\n", i, r.Force(i), i, r.Raw(i), i, r.Scale(i))
		}
	}
}
