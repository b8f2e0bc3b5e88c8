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

package dirs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// the various file paths
var (
	GlobalRootDir string

	XdgRuntimeDir string
	HomeDir       string

	UserConfigDir string
	PortalConfDir string
	UserDirsFile  string

	// DataDirs holds $XDG_DATA_HOME followed by $XDG_DATA_DIRS, in
	// lookup order.
	DataDirs []string

	LocaleDir string
)

func init() {
	SetRootDir("/")
}

// StripRootDir remove the configured root dir from the given dir
func StripRootDir(dir string) string {
	if !filepath.IsAbs(dir) {
		panic(fmt.Sprintf("supplied path is not absolute %q", dir))
	}
	if !strings.HasPrefix(dir, GlobalRootDir) {
		panic(fmt.Sprintf("supplied path is not related to global root %q", dir))
	}
	result, err := filepath.Rel(GlobalRootDir, dir)
	if err != nil {
		panic(err)
	}
	return "/" + result
}

func getenvOr(root, key, dflt string) string {
	// tests run against a fake root and must not pick up the
	// environment of whoever runs them
	if root != "/" {
		return dflt
	}
	if v := os.Getenv(key); v != "" && filepath.IsAbs(v) {
		return v
	}
	return dflt
}

// SetRootDir allows settings a new global root directory, this is useful
// for e.g. chroot operations
func SetRootDir(rootdir string) {
	if rootdir == "" {
		rootdir = "/"
	}
	GlobalRootDir = rootdir

	home := filepath.Join(rootdir, "home", "user")
	if rootdir == "/" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	HomeDir = home

	XdgRuntimeDir = getenvOr(rootdir, "XDG_RUNTIME_DIR",
		filepath.Join(rootdir, "run", "user", fmt.Sprint(os.Getuid())))

	UserConfigDir = getenvOr(rootdir, "XDG_CONFIG_HOME", filepath.Join(HomeDir, ".config"))
	PortalConfDir = filepath.Join(UserConfigDir, "desktop-portal")
	UserDirsFile = filepath.Join(UserConfigDir, "user-dirs.dirs")

	dataHome := getenvOr(rootdir, "XDG_DATA_HOME", filepath.Join(HomeDir, ".local", "share"))
	DataDirs = []string{dataHome}
	systemDataDirs := []string{
		filepath.Join(rootdir, "usr", "local", "share"),
		filepath.Join(rootdir, "usr", "share"),
	}
	if rootdir == "/" {
		if v := os.Getenv("XDG_DATA_DIRS"); v != "" {
			systemDataDirs = nil
			for _, d := range strings.Split(v, ":") {
				if filepath.IsAbs(d) {
					systemDataDirs = append(systemDataDirs, d)
				}
			}
		}
	}
	DataDirs = append(DataDirs, systemDataDirs...)

	LocaleDir = filepath.Join(rootdir, "usr", "share", "locale")
}
