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
	"net"
	"os"
	"path/filepath"

	"gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/osutil"
)

type statSuite struct{}

var _ = check.Suite(&statSuite{})

func (s *statSuite) TestFileExists(c *check.C) {
	d := c.MkDir()
	p := filepath.Join(d, "foo")
	c.Check(osutil.FileExists(p), check.Equals, false)
	c.Assert(os.WriteFile(p, nil, 0644), check.IsNil)
	c.Check(osutil.FileExists(p), check.Equals, true)
	c.Check(osutil.RegularFileExists(p), check.Equals, true)
	c.Check(osutil.IsDirectory(p), check.Equals, false)
	c.Check(osutil.IsDirectory(d), check.Equals, true)
	c.Check(osutil.RegularFileExists(d), check.Equals, false)
}

func (s *statSuite) TestIsUnixSocket(c *check.C) {
	p := filepath.Join(c.MkDir(), "sock")
	c.Check(osutil.IsUnixSocket(p), check.Equals, false)

	l, err := net.Listen("unix", p)
	c.Assert(err, check.IsNil)
	defer l.Close()
	c.Check(osutil.IsUnixSocket(p), check.Equals, true)
}

func (s *statSuite) TestExecutableExists(c *check.C) {
	oldPath := os.Getenv("PATH")
	defer os.Setenv("PATH", oldPath)
	d := c.MkDir()
	os.Setenv("PATH", d)
	c.Check(osutil.ExecutableExists("xyzzy"), check.Equals, false)

	fname := filepath.Join(d, "xyzzy")
	c.Assert(os.WriteFile(fname, []byte{}, 0644), check.IsNil)
	c.Check(osutil.ExecutableExists("xyzzy"), check.Equals, false)

	c.Assert(os.Chmod(fname, 0755), check.IsNil)
	c.Check(osutil.ExecutableExists("xyzzy"), check.Equals, true)
}

func (s *statSuite) TestIsTestBinary(c *check.C) {
	c.Check(osutil.IsTestBinary(), check.Equals, true)
}
