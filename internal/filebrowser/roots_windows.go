package filebrowser

import (
	"os"
	"path/filepath"
	"strings"
)

func volumeRoots() []string {
	var out []string
	for l := 'A'; l <= 'Z'; l++ {
		drive := string(l) + `:\`
		if _, err := os.Stat(drive); err == nil {
			out = append(out, drive)
		}
	}
	return out
}

func volumeLabel(root string) string {
	return strings.TrimSuffix(filepath.VolumeName(root), ":") + " Diski"
}

func defaultRecentDir(home string) string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "Microsoft", "Windows", "Recent")
	}
	return filepath.Join(home, "AppData", "Roaming", "Microsoft", "Windows", "Recent")
}

func defaultShortcutExt() string { return ".lnk" }
