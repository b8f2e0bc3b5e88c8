// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package capture_test

import (
	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/capture"
)

type ppmSuite struct{}

var _ = Suite(&ppmSuite{})

func (s *ppmSuite) TestParsePPM(c *C) {
	col, err := capture.ParsePPM([]byte("P6\n1 1\n255\n\x00\xff\x33"))
	c.Assert(err, IsNil)
	c.Check(col, Equals, capture.Color{R: 0, G: 1, B: 0.2})
}

func (s *ppmSuite) TestParsePPMComments(c *C) {
	col, err := capture.ParsePPM([]byte("P6\n# made by grim\n2 1\n# depth\n255\n\xff\xff\xff\x00\x00\x00"))
	c.Assert(err, IsNil)
	c.Check(col, Equals, capture.Color{R: 1, G: 1, B: 1})
}

func (s *ppmSuite) TestParsePPMWide(c *C) {
	col, err := capture.ParsePPM([]byte("P6 1 1 65535\n\xff\xff\x00\x00\x80\x00"))
	c.Assert(err, IsNil)
	c.Check(col.R, Equals, 1.0)
	c.Check(col.G, Equals, 0.0)
	c.Check(col.B, Equals, float64(0x8000)/65535)
}

func (s *ppmSuite) TestParsePPMErrors(c *C) {
	for _, tc := range []struct {
		in, err string
	}{
		{"", "cannot parse pixmap: truncated header"},
		{"P6\n1 1\n", "cannot parse pixmap: truncated header"},
		{"P3\n1 1\n255\n0 0 0", `cannot parse pixmap: unsupported format "P3"`},
		{"P6\n1 x\n255\n\x00\x00\x00", `cannot parse pixmap: invalid header value "x"`},
		{"P6\n0 1\n255\n\x00\x00\x00", `cannot parse pixmap: invalid header value "0"`},
		{"P6\n1 1\n70000\n\x00\x00\x00", `cannot parse pixmap: invalid maximum value 70000`},
		{"P6\n1 1\n255", "cannot parse pixmap: no pixel data"},
		{"P6\n1 1\n255\n\x00\x00", "cannot parse pixmap: no pixel data"},
	} {
		_, err := capture.ParsePPM([]byte(tc.in))
		c.Check(err, ErrorMatches, tc.err, Commentf("%q", tc.in))
	}
}
