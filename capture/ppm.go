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

package capture

import (
	"bytes"
	"fmt"
	"strconv"
)

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// ParsePPM returns the color of the first pixel of a binary (P6)
// portable pixmap.
func ParsePPM(data []byte) (Color, error) {
	var fields [4]string
	rest := data
	for i := range fields {
		var tok []byte
		tok, rest = ppmToken(rest)
		if tok == nil {
			return Color{}, fmt.Errorf("cannot parse pixmap: truncated header")
		}
		fields[i] = string(tok)
	}
	if fields[0] != "P6" {
		return Color{}, fmt.Errorf("cannot parse pixmap: unsupported format %q", fields[0])
	}
	var dims [3]int
	for i, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil || v <= 0 {
			return Color{}, fmt.Errorf("cannot parse pixmap: invalid header value %q", f)
		}
		dims[i] = v
	}
	maxval := dims[2]
	if maxval > 65535 {
		return Color{}, fmt.Errorf("cannot parse pixmap: invalid maximum value %d", maxval)
	}
	// exactly one whitespace byte separates the header from the raster
	if len(rest) == 0 {
		return Color{}, fmt.Errorf("cannot parse pixmap: no pixel data")
	}
	rest = rest[1:]

	sample := 1
	if maxval > 255 {
		sample = 2
	}
	if len(rest) < 3*sample {
		return Color{}, fmt.Errorf("cannot parse pixmap: no pixel data")
	}
	var rgb [3]float64
	for i := range rgb {
		v := int(rest[i*sample])
		if sample == 2 {
			v = v<<8 | int(rest[i*sample+1])
		}
		rgb[i] = float64(v) / float64(maxval)
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func isPPMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// ppmToken returns the next header token, skipping whitespace and
// comments, and what follows it.
func ppmToken(data []byte) (tok, rest []byte) {
	for len(data) > 0 {
		switch {
		case isPPMSpace(data[0]):
			data = data[1:]
		case data[0] == '#':
			nl := bytes.IndexByte(data, '\n')
			if nl < 0 {
				return nil, nil
			}
			data = data[nl+1:]
		default:
			end := 0
			for end < len(data) && !isPPMSpace(data[end]) && data[end] != '#' {
				end++
			}
			return data[:end], data[end:]
		}
	}
	return nil, nil
}
