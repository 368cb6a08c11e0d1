//go:build !windows

package filebrowser

import (
	"os"
	"path/filepath"
)

func volumeRoots() []string {
	out := []string{"/"}
	patterns := []string{"/mnt/*", "/media/*", "/Volumes/*"}
	if user := os.Getenv("USER"); user != "" {
		patterns = append(patterns, filepath.Join("/media", user, "*"))
	}
	return append(out, globDirs(patterns...)...)
}

func volumeLabel(root string) string {
	if root == "/" {
		return "Sistem Diski"
	}
	return filepath.Base(root) + " Diski"
}

func defaultRecentDir(home string) string {
	return filepath.Join(home, ".local", "share", "RecentDocuments")
}

func defaultShortcutExt() string { return ".desktop" }
