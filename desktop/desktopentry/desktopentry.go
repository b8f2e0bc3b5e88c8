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

// Package desktopentry looks up the desktop entries of applications
// asking for portal access.
package desktopentry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvo5/goconfigparser"

	"github.com/snapcore/desktop-portal/dirs"
	"github.com/snapcore/desktop-portal/i18n"
)

const desktopEntryGroup = "Desktop Entry"

// ErrNotFound is returned by Find when no desktop file exists for an
// application.
var ErrNotFound = errors.New("desktop file not found")

// DesktopEntry is the [Desktop Entry] group of a desktop file.
type DesktopEntry struct {
	Filename string
	Name     string
	Icon     string
	Exec     string

	cfg *goconfigparser.ConfigParser
}

// Parse reads a desktop file.
func Parse(filename string, r io.Reader) (*DesktopEntry, error) {
	cfg := goconfigparser.New()
	if err := cfg.Read(r); err != nil {
		return nil, fmt.Errorf("cannot parse desktop file %q: %v", filename, err)
	}
	de := &DesktopEntry{
		Filename: filename,
		cfg:      cfg,
	}
	var err error
	if de.Name, err = cfg.Get(desktopEntryGroup, "Name"); err != nil {
		return nil, fmt.Errorf("desktop file %q has no name: %v", filename, err)
	}
	de.Icon, _ = cfg.Get(desktopEntryGroup, "Icon")
	de.Exec, _ = cfg.Get(desktopEntryGroup, "Exec")
	return de, nil
}

// Read reads the desktop file at path.
func Read(path string) (*DesktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(path, f)
}

// LocalizedName returns the name of the entry for the given locale,
// trying the full locale (e.g. es_ES) first, then the language.
func (de *DesktopEntry) LocalizedName(locale string) string {
	if locale != "" {
		candidates := []string{locale}
		if lang := strings.Split(locale, "_")[0]; lang != locale {
			candidates = append(candidates, lang)
		}
		for _, loc := range candidates {
			key := fmt.Sprintf("Name[%s]", loc)
			if name, err := de.cfg.Get(desktopEntryGroup, key); err == nil && name != "" {
				return name
			}
		}
	}
	return de.Name
}

func validAppID(appID string) bool {
	if appID == "" || appID == "." || appID == ".." {
		return false
	}
	return !strings.ContainsAny(appID, "/\x00")
}

// Find returns the desktop entry of the application, searching the
// applications directory of every XDG data directory in order.
func Find(appID string) (*DesktopEntry, error) {
	if !validAppID(appID) {
		return nil, fmt.Errorf("invalid application id %q", appID)
	}
	for _, dir := range dirs.DataDirs {
		path := filepath.Join(dir, "applications", appID+".desktop")
		de, err := Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return de, nil
	}
	return nil, ErrNotFound
}

// AppName returns a human readable name for the application, falling
// back to the application id. Unsandboxed callers have an empty id.
func AppName(appID string) string {
	if appID == "" {
		return ""
	}
	de, err := Find(appID)
	if err != nil {
		return appID
	}
	if name := de.LocalizedName(i18n.CurrentLocale()); name != "" {
		return name
	}
	return appID
}
