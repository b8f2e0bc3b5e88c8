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

// Package notification sends desktop notifications through the
// org.freedesktop.Notifications service.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	dBusName          = "org.freedesktop.Notifications"
	dBusObjectPath    = "/org/freedesktop/Notifications"
	dBusInterfaceName = "org.freedesktop.Notifications"
)

// ServerSelectedExpireTimeout lets the server pick how long a message is
// shown.
const ServerSelectedExpireTimeout = time.Millisecond * -1

// ID is the identifier the server assigned to a message.
type ID uint32

// Hint is an extra piece of information about a message.
type Hint struct {
	Name  string
	Value interface{}
}

// Message is a notification message.
type Message struct {
	AppName string
	Icon    string
	Title   string
	Body    string
	// ExpireTimeout of zero keeps the message until it is dismissed.
	ExpireTimeout time.Duration
	Hints         []Hint
}

// Client sends messages to the notification server of the session.
type Client struct {
	obj dbus.BusObject
}

// New returns a client using the given session bus connection.
func New(conn *dbus.Conn) *Client {
	return &Client{obj: conn.Object(dBusName, dBusObjectPath)}
}

// Notify shows msg. A non-zero replaces updates that message in place.
func (c *Client) Notify(ctx context.Context, replaces ID, msg *Message) (ID, error) {
	hints := make(map[string]dbus.Variant, len(msg.Hints))
	for _, hint := range msg.Hints {
		if hint.Value == nil {
			continue
		}
		hints[hint.Name] = dbus.MakeVariant(hint.Value)
	}
	expire := int32(msg.ExpireTimeout.Milliseconds())

	var id uint32
	call := c.obj.CallWithContext(ctx, dBusInterfaceName+".Notify", 0,
		msg.AppName, uint32(replaces), msg.Icon, msg.Title, msg.Body,
		[]string{}, hints, expire)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("cannot send notification: %v", err)
	}
	return ID(id), nil
}

// Close withdraws a message.
func (c *Client) Close(ctx context.Context, id ID) error {
	call := c.obj.CallWithContext(ctx, dBusInterfaceName+".CloseNotification", 0, uint32(id))
	if call.Err != nil {
		return fmt.Errorf("cannot close notification %d: %v", id, call.Err)
	}
	return nil
}
