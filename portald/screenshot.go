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

package portald

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/capture"
	"github.com/snapcore/desktop-portal/desktop/notification"
	"github.com/snapcore/desktop-portal/i18n"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portalconf"
	"github.com/snapcore/desktop-portal/wayland"
)

// ScreenshotInterface is the screenshot backend interface.
const ScreenshotInterface = "org.freedesktop.impl.portal.Screenshot"

const screenshotVersion uint32 = 2

const screenshotIntrospectionXML = `
<interface name="org.freedesktop.impl.portal.Screenshot">
	<method name="Screenshot">
		<arg type="o" name="handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="s" name="parent_window" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
	<method name="PickColor">
		<arg type="o" name="handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="s" name="parent_window" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
	<property name="version" type="u" access="read"/>
</interface>`

var timeNow = time.Now

// Screenshot takes screenshots and picks colors from the screen.
type Screenshot struct {
	backend

	capturer *capture.Capturer
	conf     *portalconf.Config
}

// NewScreenshot returns the screenshot backend. Saved screenshots are
// announced through notes unless it is nil.
func NewScreenshot(server *portal.Server, helper wayland.Helper, conf *portalconf.Config, notes Notifier) *Screenshot {
	return &Screenshot{
		backend:  backend{server: server, helper: helper, notifier: notes},
		capturer: capture.New(conf.ScreenshotCommand, conf.SelectCommand),
		conf:     conf,
	}
}

// Interface returns the name of the interface this object implements
func (s *Screenshot) Interface() string {
	return ScreenshotInterface
}

// IntrospectionData gives the XML formatted introspection description
// of the interface.
func (s *Screenshot) IntrospectionData() string {
	return screenshotIntrospectionXML
}

// Methods returns the D-Bus method table of the interface.
func (s *Screenshot) Methods() map[string]interface{} {
	return map[string]interface{}{
		"Screenshot": s.Screenshot,
		"PickColor":  s.PickColor,
	}
}

// Properties returns the read-only properties of the interface.
func (s *Screenshot) Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"version": dbus.MakeVariant(screenshotVersion),
	}
}

// Screenshot implements the 'Screenshot' method of the
// 'org.freedesktop.impl.portal.Screenshot' interface.
func (s *Screenshot) Screenshot(handle dbus.ObjectPath, appID, parentWindow string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := s.run(handle, "serve screenshot request", func(ctx context.Context) (portal.Results, error) {
		return s.screenshot(ctx, appID, options)
	})
	return portal.Reply(resp)
}

func (s *Screenshot) screenshot(ctx context.Context, appID string, options map[string]dbus.Variant) (portal.Results, error) {
	interactive, err := optBool(options, "interactive")
	if err != nil {
		return nil, err
	}
	if len(s.helper.Outputs()) == 0 {
		return nil, errors.New("compositor has no outputs")
	}

	var region *capture.Region
	if interactive {
		r, err := s.capturer.SelectRegion(ctx)
		if err != nil {
			return nil, err
		}
		region = &r
	}

	dir := s.conf.ScreenshotDirectory()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create screenshot directory: %v", err)
	}
	path := capture.ScreenshotPath(dir, timeNow())
	if err := s.capturer.Screenshot(ctx, path, region); err != nil {
		return nil, err
	}
	s.notifySaved(appID, path)

	uri := url.URL{Scheme: "file", Path: path}
	return portal.Results{
		"uri": dbus.MakeVariant(uri.String()),
	}, nil
}

func (s *Screenshot) notifySaved(appID, path string) {
	hints := []notification.Hint{
		notification.WithUrgency(notification.LowUrgency),
		notification.WithCategory(notification.TransferCompleteCategory),
		notification.WithImageFile(path),
		notification.WithTransient(),
	}
	if appID != "" {
		hints = append(hints, notification.WithDesktopEntry(appID))
	}
	s.notify(&notification.Message{
		AppName:       notificationAppName,
		Icon:          "camera-photo",
		Title:         i18n.G("Screenshot taken"),
		Body:          fmt.Sprintf(i18n.G("Saved to %s"), path),
		ExpireTimeout: notification.ServerSelectedExpireTimeout,
		Hints:         hints,
	})
}

// PickColor implements the 'PickColor' method of the
// 'org.freedesktop.impl.portal.Screenshot' interface.
func (s *Screenshot) PickColor(handle dbus.ObjectPath, appID, parentWindow string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := s.run(handle, "serve pick color request", func(ctx context.Context) (portal.Results, error) {
		pt, err := s.capturer.SelectPoint(ctx)
		if err != nil {
			return nil, err
		}
		col, err := s.capturer.PickColor(ctx, pt)
		if err != nil {
			return nil, err
		}
		return portal.Results{
			"color": dbus.MakeVariant(col),
		}, nil
	})
	return portal.Reply(resp)
}
