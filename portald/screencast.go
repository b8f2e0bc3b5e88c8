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
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/capture"
	"github.com/snapcore/desktop-portal/desktop/desktopentry"
	"github.com/snapcore/desktop-portal/desktop/notification"
	"github.com/snapcore/desktop-portal/i18n"
	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portalconf"
	"github.com/snapcore/desktop-portal/wayland"
)

// ScreenCastInterface is the screen cast backend interface.
const ScreenCastInterface = "org.freedesktop.impl.portal.ScreenCast"

const screenCastVersion uint32 = 4

// Source types and cursor modes are bit masks.
const (
	sourceTypeMonitor uint32 = 1

	cursorModeHidden   uint32 = 1
	cursorModeEmbedded uint32 = 2
)

const (
	availableSourceTypes = sourceTypeMonitor
	availableCursorModes = cursorModeHidden | cursorModeEmbedded
)

const screenCastIntrospectionXML = `
<interface name="org.freedesktop.impl.portal.ScreenCast">
	<method name="CreateSession">
		<arg type="o" name="handle" direction="in"/>
		<arg type="o" name="session_handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
	<method name="SelectSources">
		<arg type="o" name="handle" direction="in"/>
		<arg type="o" name="session_handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
	<method name="Start">
		<arg type="o" name="handle" direction="in"/>
		<arg type="o" name="session_handle" direction="in"/>
		<arg type="s" name="app_id" direction="in"/>
		<arg type="s" name="parent_window" direction="in"/>
		<arg type="a{sv}" name="options" direction="in"/>
		<arg type="u" name="response" direction="out"/>
		<arg type="a{sv}" name="results" direction="out"/>
	</method>
	<property name="version" type="u" access="read"/>
	<property name="AvailableSourceTypes" type="u" access="read"/>
	<property name="AvailableCursorModes" type="u" access="read"/>
</interface>`

// streamInfo is one element of the a(ua{sv}) streams result.
type streamInfo struct {
	NodeID     uint32
	Properties map[string]dbus.Variant
}

// point is a (ii) pair.
type point struct {
	X, Y int32
}

// castSession is the state behind one screen cast session handle.
type castSession struct {
	session *portal.Session
	appID   string

	mu         sync.Mutex
	types      uint32
	multiple   bool
	cursorMode uint32
	started    bool
	closed     bool
	streams    []*capture.Stream
	note       notification.ID
	done       chan struct{}
}

// stop stops every stream of the session and returns the notification
// to withdraw. It runs once, as the teardown callback of the session
// handle.
func (cs *castSession) stop() notification.ID {
	cs.mu.Lock()
	cs.closed = true
	streams := cs.streams
	cs.streams = nil
	note := cs.note
	cs.note = 0
	close(cs.done)
	cs.mu.Unlock()

	for _, st := range streams {
		if err := st.Stop(); err != nil {
			logger.Noticef("cannot stop screen cast of session %s: %v", cs.session.Path(), err)
		}
	}
	return note
}

// ScreenCast streams outputs of the compositor.
type ScreenCast struct {
	backend

	capturer   *capture.Capturer
	streamHelp string

	mu       sync.Mutex
	sessions map[dbus.ObjectPath]*castSession
}

// NewScreenCast returns the screen cast backend. Running screen casts
// are announced through notes unless it is nil.
func NewScreenCast(server *portal.Server, helper wayland.Helper, conf *portalconf.Config, notes Notifier) *ScreenCast {
	return &ScreenCast{
		backend:    backend{server: server, helper: helper, notifier: notes},
		capturer:   capture.New(conf.ScreenshotCommand, conf.SelectCommand),
		streamHelp: conf.ScreencastHelper,
		sessions:   make(map[dbus.ObjectPath]*castSession),
	}
}

// Interface returns the name of the interface this object implements
func (s *ScreenCast) Interface() string {
	return ScreenCastInterface
}

// IntrospectionData gives the XML formatted introspection description
// of the interface.
func (s *ScreenCast) IntrospectionData() string {
	return screenCastIntrospectionXML
}

// Methods returns the D-Bus method table of the interface.
func (s *ScreenCast) Methods() map[string]interface{} {
	return map[string]interface{}{
		"CreateSession": s.CreateSession,
		"SelectSources": s.SelectSources,
		"Start":         s.Start,
	}
}

// Properties returns the read-only properties of the interface.
func (s *ScreenCast) Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"version":              dbus.MakeVariant(screenCastVersion),
		"AvailableSourceTypes": dbus.MakeVariant(availableSourceTypes),
		"AvailableCursorModes": dbus.MakeVariant(availableCursorModes),
	}
}

func (s *ScreenCast) lookup(path dbus.ObjectPath) (*castSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[path]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", path)
	}
	return cs, nil
}

// CreateSession implements the 'CreateSession' method of the
// 'org.freedesktop.impl.portal.ScreenCast' interface.
func (s *ScreenCast) CreateSession(handle, sessionHandle dbus.ObjectPath, appID string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := s.run(handle, "create screen cast session", func(ctx context.Context) (portal.Results, error) {
		cs := &castSession{
			appID:      appID,
			types:      sourceTypeMonitor,
			cursorMode: cursorModeHidden,
			done:       make(chan struct{}),
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.sessions[sessionHandle]; ok {
			return nil, fmt.Errorf("session %s already exists", sessionHandle)
		}
		session, err := portal.NewSession(s.server, sessionHandle, func() {
			s.forget(sessionHandle)
			s.withdraw(cs.stop())
		})
		if err != nil {
			return nil, err
		}
		cs.session = session
		s.sessions[sessionHandle] = cs
		return portal.Results{
			"session_id": dbus.MakeVariant(string(sessionHandle)),
		}, nil
	})
	return portal.Reply(resp)
}

func (s *ScreenCast) forget(path dbus.ObjectPath) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, path)
}

// SelectSources implements the 'SelectSources' method of the
// 'org.freedesktop.impl.portal.ScreenCast' interface.
func (s *ScreenCast) SelectSources(handle, sessionHandle dbus.ObjectPath, appID string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := s.run(handle, "select screen cast sources", func(ctx context.Context) (portal.Results, error) {
		cs, err := s.lookup(sessionHandle)
		if err != nil {
			return nil, err
		}
		types, err := optUint32(options, "types", sourceTypeMonitor)
		if err != nil {
			return nil, err
		}
		if types&^availableSourceTypes != 0 || types == 0 {
			return nil, fmt.Errorf("unsupported source types %d", types)
		}
		multiple, err := optBool(options, "multiple")
		if err != nil {
			return nil, err
		}
		cursorMode, err := optUint32(options, "cursor_mode", cursorModeHidden)
		if err != nil {
			return nil, err
		}
		if cursorMode != cursorModeHidden && cursorMode != cursorModeEmbedded {
			return nil, fmt.Errorf("unsupported cursor mode %d", cursorMode)
		}

		cs.mu.Lock()
		defer cs.mu.Unlock()
		if cs.started {
			return nil, errors.New("cannot select sources of a started session")
		}
		cs.types = types
		cs.multiple = multiple
		cs.cursorMode = cursorMode
		return nil, nil
	})
	return portal.Reply(resp)
}

// Start implements the 'Start' method of the
// 'org.freedesktop.impl.portal.ScreenCast' interface.
func (s *ScreenCast) Start(handle, sessionHandle dbus.ObjectPath, appID, parentWindow string, options map[string]dbus.Variant) (uint32, portal.Results, *dbus.Error) {
	resp := s.run(handle, "start screen cast session", func(ctx context.Context) (portal.Results, error) {
		cs, err := s.lookup(sessionHandle)
		if err != nil {
			return nil, err
		}
		return s.start(ctx, cs)
	})
	return portal.Reply(resp)
}

func (s *ScreenCast) start(ctx context.Context, cs *castSession) (portal.Results, error) {
	cs.mu.Lock()
	if cs.started {
		cs.mu.Unlock()
		return nil, fmt.Errorf("session %s already started", cs.session.Path())
	}
	cs.started = true
	multiple := cs.multiple
	showCursor := cs.cursorMode == cursorModeEmbedded
	cs.mu.Unlock()

	outputs, err := s.pickOutputs(ctx, multiple)
	if err != nil {
		return nil, err
	}

	var streams []*capture.Stream
	stopAll := func() {
		for _, st := range streams {
			st.Stop()
		}
	}
	infos := make([]streamInfo, 0, len(outputs))
	for _, o := range outputs {
		st, err := capture.StartStream(ctx, s.streamHelp, capture.StreamOptions{
			Output:     o.Name,
			ShowCursor: showCursor,
		})
		if err != nil {
			stopAll()
			return nil, err
		}
		streams = append(streams, st)
		infos = append(infos, streamInfo{
			NodeID: st.NodeID,
			Properties: map[string]dbus.Variant{
				"size":        dbus.MakeVariant(logicalSize(o)),
				"position":    dbus.MakeVariant(point{o.X, o.Y}),
				"source_type": dbus.MakeVariant(sourceTypeMonitor),
			},
		})
	}

	note := s.notifyRunning(cs.appID)

	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		stopAll()
		s.withdraw(note)
		return nil, errCancelled
	}
	cs.streams = streams
	cs.note = note
	cs.mu.Unlock()

	for _, st := range streams {
		go s.watch(cs, st)
	}
	return portal.Results{
		"streams":      dbus.MakeVariant(infos),
		"persist_mode": dbus.MakeVariant(uint32(0)),
	}, nil
}

func (s *ScreenCast) notifyRunning(appID string) notification.ID {
	name := desktopentry.AppName(appID)
	if name == "" {
		name = i18n.G("An application")
	}
	hints := []notification.Hint{
		notification.WithUrgency(notification.CriticalUrgency),
		notification.WithCategory(notification.DeviceCategory),
		notification.WithResident(),
	}
	if appID != "" {
		hints = append(hints, notification.WithDesktopEntry(appID))
	}
	return s.notify(&notification.Message{
		AppName: notificationAppName,
		Icon:    "media-record",
		Title:   i18n.G("Screen sharing"),
		Body:    fmt.Sprintf(i18n.G("%s is recording the screen"), name),
		Hints:   hints,
	})
}

// watch closes the session when the stream ends on its own.
func (s *ScreenCast) watch(cs *castSession, st *capture.Stream) {
	select {
	case <-st.Dead():
		logger.Noticef("screen cast of session %s ended", cs.session.Path())
		cs.session.Close()
	case <-cs.done:
	}
}

func (s *ScreenCast) pickOutputs(ctx context.Context, multiple bool) ([]wayland.Output, error) {
	outputs := s.helper.Outputs()
	switch {
	case len(outputs) == 0:
		return nil, errors.New("compositor has no outputs")
	case multiple || len(outputs) == 1:
		return outputs, nil
	}

	r, err := s.capturer.SelectOutput(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range outputs {
		if o.X == r.X && o.Y == r.Y {
			return []wayland.Output{o}, nil
		}
	}
	return nil, fmt.Errorf("no output at %d,%d", r.X, r.Y)
}

func logicalSize(o wayland.Output) point {
	scale := o.Scale
	if scale < 1 {
		scale = 1
	}
	return point{o.Width / scale, o.Height / scale}
}

// CloseAll closes every open session.
func (s *ScreenCast) CloseAll() {
	s.mu.Lock()
	sessions := make([]*castSession, 0, len(s.sessions))
	for _, cs := range s.sessions {
		sessions = append(sessions, cs)
	}
	s.mu.Unlock()

	for _, cs := range sessions {
		cs.session.Close()
	}
}
