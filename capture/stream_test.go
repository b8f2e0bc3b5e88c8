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
	"context"
	"time"

	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/capture"
	"github.com/snapcore/desktop-portal/testutil"
)

type streamSuite struct {
	testutil.BaseTest
}

var _ = Suite(&streamSuite{})

func (s *streamSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	s.AddCleanup(capture.MockStreamStopTimeout(2 * time.Second))
}

func (s *streamSuite) mockHelper(c *C, script string) *testutil.MockCmd {
	mock := testutil.MockCommand(c, "cast-helper", script)
	s.AddCleanup(mock.Restore)
	return mock
}

func (s *streamSuite) TestStartStop(c *C) {
	helper := s.mockHelper(c, "echo 42\necho streaming\nexec sleep 9999")

	stream, err := capture.StartStream(context.Background(), "cast-helper", capture.StreamOptions{
		Output:     "DP-1",
		ShowCursor: true,
	})
	c.Assert(err, IsNil)
	c.Check(stream.NodeID, Equals, uint32(42))
	c.Check(helper.Calls(), DeepEquals, [][]string{
		{"cast-helper", "--output", "DP-1", "--cursor"},
	})

	select {
	case <-stream.Dead():
		c.Fatal("stream died early")
	default:
	}

	c.Check(stream.Stop(), IsNil)
	select {
	case <-stream.Dead():
	default:
		c.Fatal("stream still running")
	}
	// stopping again is harmless
	c.Check(stream.Stop(), IsNil)
}

func (s *streamSuite) TestHelperExits(c *C) {
	s.mockHelper(c, "echo 7\nexec sleep 0.2")

	stream, err := capture.StartStream(context.Background(), "cast-helper", capture.StreamOptions{Output: "DP-1"})
	c.Assert(err, IsNil)
	c.Check(stream.NodeID, Equals, uint32(7))

	select {
	case <-stream.Dead():
	case <-time.After(5 * time.Second):
		c.Fatal("stream did not notice the helper exiting")
	}
}

func (s *streamSuite) TestHelperFailsEarly(c *C) {
	s.mockHelper(c, "echo 'no such output' >&2\nexit 3")

	_, err := capture.StartStream(context.Background(), "cast-helper", capture.StreamOptions{Output: "DP-9"})
	c.Check(err, ErrorMatches, "cannot start screen cast: screen cast helper failed: exit status 3")
}

func (s *streamSuite) TestHelperInvalidNodeID(c *C) {
	s.mockHelper(c, "echo nope\nexec sleep 9999")

	_, err := capture.StartStream(context.Background(), "cast-helper", capture.StreamOptions{Output: "DP-1"})
	c.Check(err, ErrorMatches, `cannot start screen cast: invalid node id "nope"`)
}

func (s *streamSuite) TestHelperMissing(c *C) {
	_, err := capture.StartStream(context.Background(), "/does/not/exist", capture.StreamOptions{Output: "DP-1"})
	c.Check(err, ErrorMatches, "cannot start screen cast helper: .*")
}

func (s *streamSuite) TestStartCancelled(c *C) {
	s.mockHelper(c, "exec sleep 9999")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := capture.StartStream(ctx, "cast-helper", capture.StreamOptions{Output: "DP-1"})
	c.Check(err, Equals, context.DeadlineExceeded)
}
