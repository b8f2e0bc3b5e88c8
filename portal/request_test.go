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

package portal_test

import (
	"context"

	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portal/portaltest"
)

type requestSuite struct {
	conn   *portaltest.Conn
	server *portal.Server
}

var _ = Suite(&requestSuite{})

func (s *requestSuite) SetUpTest(c *C) {
	s.conn = portaltest.NewConn()
	s.server = portal.NewServer(s.conn)
}

func (s *requestSuite) TestCloseManyTimes(c *C) {
	req, err := portal.NewRequest(s.server, "/org/freedesktop/portal/desktop/request/1_42/t", nil)
	c.Assert(err, IsNil)
	c.Check(req.Path(), Equals, portalPath("/org/freedesktop/portal/desktop/request/1_42/t"))

	for i := 0; i < 3; i++ {
		out, err := s.conn.Call(req.Path(), portal.RequestInterface, "Close")
		c.Assert(err, IsNil)
		c.Check(out, HasLen, 0)
	}
	c.Check(req.Close(), IsNil)
	c.Check(req.Closed(), Equals, true)
}

func (s *requestSuite) TestCloseCancels(c *C) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	req, err := portal.NewRequest(s.server, "/request/1", func() {
		n++
		cancel()
	})
	c.Assert(err, IsNil)
	c.Check(ctx.Err(), IsNil)

	c.Check(req.Close(), IsNil)
	c.Check(ctx.Err(), Equals, context.Canceled)
	c.Check(req.Close(), IsNil)
	// only the first close reaches the backend
	c.Check(n, Equals, 1)
}

func (s *requestSuite) TestDone(c *C) {
	req, err := portal.NewRequest(s.server, "/request/1", nil)
	c.Assert(err, IsNil)
	c.Check(s.conn.Exported("/request/1", portal.RequestInterface), Equals, true)

	req.Done()
	req.Done()
	c.Check(s.conn.Exported("/request/1", portal.RequestInterface), Equals, false)
	_, err = s.conn.Call("/request/1", portal.RequestInterface, "Close")
	c.Check(err, ErrorMatches, "No such object /request/1")

	// still fine to close from the backend side
	c.Check(req.Close(), IsNil)
}

func (s *requestSuite) TestDuplicateHandle(c *C) {
	_, err := portal.NewRequest(s.server, "/request/1", nil)
	c.Assert(err, IsNil)
	_, err = portal.NewRequest(s.server, "/request/1", nil)
	c.Check(err, ErrorMatches, "cannot serve org.freedesktop.impl.portal.Request at /request/1: already served")
}
