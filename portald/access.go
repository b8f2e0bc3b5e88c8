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
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/desktop/desktopentry"
	"github.com/snapcore/desktop-portal/desktop/ui"
	"github.com/snapcore/desktop-portal/i18n"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/wayland"
)

// AccessInterface is the access dialog backend interface.
const AccessInterface = "org.freedesktop.impl.portal.Access"

const accessIntrospectionXML = `
<interface name="org.freedesktop.impl.portal.Access">
	<method name="AccessDialog">
		<arg type="o" name="handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="s" name="parent_window" direction="in"/>
		<arg type="s" name="title" direction="in"/>
		<arg type="s" name="subtitle" direction="in"/>
		<arg type="s" name="body" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
</interface>`

// choice is a selected (id, value) pair of the a(ss) choices result.
type choice struct {
	ID    string
	Value string
}

// Access asks the user to grant or deny access to something.
type Access struct {
	backend

	ui      ui.UI
	timeout time.Duration
}

// NewAccess returns the access backend. A nil dialogs means no dialog
// tool is available and every request fails.
func NewAccess(server *portal.Server, helper wayland.Helper, dialogs ui.UI, timeout time.Duration) *Access {
	return &Access{
		backend: backend{server: server, helper: helper},
		ui:      dialogs,
		timeout: timeout,
	}
}

// Interface returns the name of the interface this object implements
func (a *Access) Interface() string {
	return AccessInterface
}

// IntrospectionData gives the XML formatted introspection description
// of the interface.
func (a *Access) IntrospectionData() string {
	return accessIntrospectionXML
}

// Methods returns the D-Bus method table of the interface.
func (a *Access) Methods() map[string]interface{} {
	return map[string]interface{}{
		"AccessDialog": a.AccessDialog,
	}
}

// AccessDialog implements the 'AccessDialog' method of the
// 'org.freedesktop.impl.portal.Access' interface.
func (a *Access) AccessDialog(handle dbus.ObjectPath, appID, parentWindow, title, subtitle, body string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := a.run(handle, "show access dialog", func(ctx context.Context) (portal.Results, error) {
		return a.accessDialog(ctx, appID, title, subtitle, body, options)
	})
	return portal.Reply(resp)
}

func (a *Access) accessDialog(ctx context.Context, appID, title, subtitle, body string, options map[string]dbus.Variant) (portal.Results, error) {
	if a.ui == nil {
		return nil, errors.New("no dialog tool available")
	}
	grantLabel, err := optString(options, "grant_label")
	if err != nil {
		return nil, err
	}
	denyLabel, err := optString(options, "deny_label")
	if err != nil {
		return nil, err
	}
	if grantLabel == "" {
		grantLabel = i18n.G("Allow")
	}
	if denyLabel == "" {
		denyLabel = i18n.G("Deny")
	}

	dialogTitle := i18n.G("Access request")
	if name := desktopentry.AppName(appID); name != "" {
		dialogTitle = name
	}
	opts := &ui.DialogOptions{
		Title:    dialogTitle,
		Footer:   body,
		Timeout:  a.timeout,
		YesLabel: grantLabel,
		NoLabel:  denyLabel,
	}
	if !a.ui.YesNo(ctx, title, subtitle, opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errCancelled
	}
	return portal.Results{
		"choices": dbus.MakeVariant([]choice{}),
	}, nil
}
