package filebrowser

import (
	"os"
	"path/filepath"
)

// Root is a labelled quick-access folder.
type Root struct {
	Label string
	Path  string
}

var userFolders = []Root{
	{Label: "Masaüstü", Path: "Desktop"},
	{Label: "Belgelerim", Path: "Documents"},
	{Label: "İndirilenler", Path: "Downloads"},
	{Label: "Resimler", Path: "Pictures"},
	{Label: "Müzik", Path: "Music"},
	{Label: "Videolarım", Path: "Videos"},
	{Label: "Bu Bilgisayar", Path: ""},
}

// QuickAccessRoots returns the well-known user folders followed by volume
// roots, keeping only paths that exist and that the validator accepts.
// Labels are unique; the first occurrence wins.
func (b *Browser) QuickAccessRoots() []Root {
	var candidates []Root
	if b.home != "" {
		for _, f := range userFolders {
			candidates = append(candidates, Root{Label: f.Label, Path: filepath.Join(b.home, f.Path)})
		}
	}
	for _, v := range b.volumes() {
		candidates = append(candidates, Root{Label: volumeLabel(v), Path: v})
	}

	seen := make(map[string]bool)
	var out []Root
	for _, c := range candidates {
		if seen[c.Label] {
			continue
		}
		info, err := b.fsys.Stat(c.Path)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := b.validator.Resolve(c.Path); err != nil {
			continue
		}
		seen[c.Label] = true
		out = append(out, c)
	}
	return out
}

// VolumeRoots lists the discovered volume roots of this host.
func VolumeRoots() []string { return volumeRoots() }

// globDirs expands each pattern and keeps directories.
func globDirs(patterns ...string) []string {
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				out = append(out, m)
			}
		}
	}
	return out
}
