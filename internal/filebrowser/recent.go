package filebrowser

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRecentLimit caps RecentFiles when no limit is given.
const DefaultRecentLimit = 20

// RecentResult is the outcome of RecentFiles.
type RecentResult struct {
	Success bool
	Message string
	Files   []Entry
}

// RecentFiles lists the most recently used documents from the platform's
// recent-shortcuts directory, newest first.
func (b *Browser) RecentFiles(limit int) RecentResult {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	dir, err := b.validator.Resolve(b.recentDir)
	if err != nil {
		return RecentResult{Message: "Son kullanılan dosyalar alınamadı: " + err.Error()}
	}
	items, err := b.fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RecentResult{Message: "Son kullanılanlar klasörü bulunamadı."}
		}
		return RecentResult{Message: "Son kullanılan dosyalar alınamadı: " + err.Error()}
	}

	var recent []Entry
	for _, item := range items {
		if !strings.HasSuffix(item.Name(), b.shortcutExt) {
			continue
		}
		full := filepath.Join(dir, item.Name())
		info, err := b.fsys.Stat(full)
		if err != nil {
			continue
		}
		recent = append(recent, Entry{
			Type:    TypeFile,
			Name:    strings.TrimSuffix(item.Name(), b.shortcutExt),
			Path:    full,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].ModTime.After(recent[j].ModTime) })
	recent = capEntries(recent, limit)

	var sb strings.Builder
	sb.WriteString("*Son Kullanılan Dosyalar*\n\n")
	for i, f := range recent {
		fmt.Fprintf(&sb, "%d\\. %s\n", i+1, EscapeMarkdown(f.Name))
	}
	return RecentResult{Success: true, Message: sb.String(), Files: recent}
}
