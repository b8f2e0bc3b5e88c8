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

// Package portalconf reads the configuration of the portal backend.
package portalconf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mvo5/goconfigparser"

	"github.com/snapcore/desktop-portal/dirs"
)

const (
	DefaultScreenshotCommand = "grim"
	DefaultSelectCommand     = "slurp"
	DefaultScreencastHelper  = "desktop-portal-screencast"
	DefaultDialogTimeout     = 5 * time.Minute
)

// Config is the portal configuration.
type Config struct {
	// ScreenshotCommand captures outputs or regions to files.
	ScreenshotCommand string
	// SelectCommand lets the user pick a region or a point.
	SelectCommand string
	// ScreenshotDir is where screenshots are saved; empty means the
	// pictures directory of the user.
	ScreenshotDir string

	// ScreencastHelper streams an output to PipeWire.
	ScreencastHelper string

	// DialogTimeout dismisses unanswered dialogs, zero disables it.
	DialogTimeout time.Duration

	// Notifications tells the user about saved screenshots and
	// running screen casts.
	Notifications bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ScreenshotCommand: DefaultScreenshotCommand,
		SelectCommand:     DefaultSelectCommand,
		ScreencastHelper:  DefaultScreencastHelper,
		DialogTimeout:     DefaultDialogTimeout,
		Notifications:     true,
	}
}

// Path returns the location of the configuration file.
func Path() string {
	return filepath.Join(dirs.PortalConfDir, "portal.conf")
}

// Load reads the configuration file, using the defaults when it does
// not exist.
func Load() (*Config, error) {
	f, err := os.Open(Path())
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func get(cfg *goconfigparser.ConfigParser, section, option string, value *string) {
	if v, err := cfg.Get(section, option); err == nil && v != "" {
		*value = v
	}
}

// Parse reads an ini formatted configuration, missing keys keep
// their defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := goconfigparser.New()
	if err := cfg.Read(r); err != nil {
		return nil, fmt.Errorf("cannot parse portal configuration: %v", err)
	}

	conf := Default()
	get(cfg, "screenshot", "command", &conf.ScreenshotCommand)
	get(cfg, "screenshot", "select-command", &conf.SelectCommand)
	get(cfg, "screenshot", "directory", &conf.ScreenshotDir)
	get(cfg, "screencast", "helper", &conf.ScreencastHelper)

	var timeout string
	get(cfg, "dialog", "timeout", &timeout)
	if timeout != "" {
		secs, err := strconv.Atoi(timeout)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("cannot parse portal configuration: invalid dialog timeout %q", timeout)
		}
		conf.DialogTimeout = time.Duration(secs) * time.Second
	}

	var notify string
	get(cfg, "notifications", "enabled", &notify)
	if notify != "" {
		enabled, err := strconv.ParseBool(notify)
		if err != nil {
			return nil, fmt.Errorf("cannot parse portal configuration: invalid notifications setting %q", notify)
		}
		conf.Notifications = enabled
	}

	if conf.ScreenshotDir != "" {
		conf.ScreenshotDir = expandHome(conf.ScreenshotDir)
	}
	return conf, nil
}

func expandHome(path string) string {
	switch {
	case path == "~" || path == "$HOME":
		return dirs.HomeDir
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(dirs.HomeDir, path[2:])
	case strings.HasPrefix(path, "$HOME/"):
		return filepath.Join(dirs.HomeDir, path[6:])
	}
	return path
}

// PicturesDir returns the XDG pictures directory of the user as set in
// user-dirs.dirs, defaulting to ~/Pictures.
func PicturesDir() string {
	dflt := filepath.Join(dirs.HomeDir, "Pictures")

	cfg := goconfigparser.New()
	cfg.AllowNoSectionHeader = true
	if err := cfg.ReadFile(dirs.UserDirsFile); err != nil {
		return dflt
	}
	v, err := cfg.Get("", "XDG_PICTURES_DIR")
	if err != nil {
		return dflt
	}
	v = strings.Trim(strings.TrimSpace(v), `"`)
	v = expandHome(v)
	// the home directory itself means the directory is disabled
	if !filepath.IsAbs(v) || filepath.Clean(v) == filepath.Clean(dirs.HomeDir) {
		return dflt
	}
	return v
}

// ScreenshotDirectory returns where screenshots are saved.
func (c *Config) ScreenshotDirectory() string {
	if c.ScreenshotDir != "" {
		return c.ScreenshotDir
	}
	return PicturesDir()
}
