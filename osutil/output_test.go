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

package osutil_test

import (
	"errors"

	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/osutil"
)

type outputSuite struct{}

var _ = Suite(&outputSuite{})

func (s *outputSuite) TestOutputErr(c *C) {
	err := errors.New("exit status 1")

	c.Check(osutil.OutputErr(nil, err), Equals, err)
	c.Check(osutil.OutputErr([]byte("  \n"), err), Equals, err)
	c.Check(osutil.OutputErr([]byte("no outputs\n"), err), ErrorMatches, "no outputs")
	c.Check(osutil.OutputErr([]byte("one\ntwo\n"), err), ErrorMatches, "\n-----\none\ntwo\n-----")
}

func (s *outputSuite) TestOutputErrCombine(c *C) {
	err := errors.New("exit status 1")

	c.Check(osutil.OutputErrCombine([]byte("data"), nil, err), Equals, err)
	c.Check(osutil.OutputErrCombine([]byte("data"), []byte("bad geometry\n"), err), ErrorMatches, "bad geometry")
}
