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

package ui_test

import (
	"os"

	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/desktop/ui"
)

type uiSuite struct {
	oldDesktop string
}

var _ = Suite(&uiSuite{})

func (s *uiSuite) SetUpTest(c *C) {
	s.oldDesktop = os.Getenv("XDG_CURRENT_DESKTOP")
}

func (s *uiSuite) TearDownTest(c *C) {
	os.Setenv("XDG_CURRENT_DESKTOP", s.oldDesktop)
}

func (s *uiSuite) mock(zenity, kdialog bool) func() {
	r1 := ui.MockHasZenityExecutable(func() bool { return zenity })
	r2 := ui.MockHasKDialogExecutable(func() bool { return kdialog })
	return func() {
		r2()
		r1()
	}
}

func (s *uiSuite) TestNew(c *C) {
	for _, tc := range []struct {
		zenity, kdialog bool
		desktop         string
		expected        ui.UI
	}{
		{true, false, "GNOME", &ui.Zenity{}},
		{false, true, "GNOME", &ui.KDialog{}},
		{true, true, "ubuntu:GNOME", &ui.Zenity{}},
		{true, true, "KDE", &ui.KDialog{}},
	} {
		restore := s.mock(tc.zenity, tc.kdialog)
		os.Setenv("XDG_CURRENT_DESKTOP", tc.desktop)

		u, err := ui.New()
		c.Check(err, IsNil)
		c.Check(u, DeepEquals, tc.expected, Commentf("%+v", tc))
		restore()
	}
}

func (s *uiSuite) TestNewNothingInstalled(c *C) {
	defer s.mock(false, false)()

	_, err := ui.New()
	c.Check(err, ErrorMatches, "cannot create a UI: please install zenity or kdialog")
}
