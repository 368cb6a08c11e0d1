package filebrowser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Listing caps. Entries beyond these are counted but not numbered.
const (
	MaxFolders = 20
	MaxFiles   = 30
)

// EntryType distinguishes listing rows.
type EntryType string

const (
	TypeFolder EntryType = "folder"
	TypeFile   EntryType = "file"
	TypeParent EntryType = "parent"
)

// Entry is one row of a directory listing.
type Entry struct {
	Type    EntryType
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ListingResult is the outcome of ListDirectory. On failure Success is false,
// Message explains why and no entries are set.
type ListingResult struct {
	Success      bool
	Message      string
	CurrentPath  string
	Folders      []Entry
	Files        []Entry
	TotalFolders int
	TotalFiles   int
	// HasParent is set when the "go up" row leads somewhere browsable.
	HasParent bool
}

// Filesystem is the read side of the OS filesystem used by the browser.
type Filesystem interface {
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (os.FileInfo, error)
}

type osFS struct{}

func (osFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }
func (osFS) Stat(name string) (os.FileInfo, error)     { return os.Stat(name) }

// OSFilesystem returns the Filesystem backed by package os.
func OSFilesystem() Filesystem { return osFS{} }

// Browser lists directories and runs file operations confined by a
// PathValidator.
type Browser struct {
	validator   PathValidator
	fsys        Filesystem
	lang        language.Tag
	recentDir   string
	shortcutExt string
	sendLimit   int64
	home        string
	volumes     func() []string
}

// BrowserOpts holds parameters for creating a Browser.
type BrowserOpts struct {
	Validator PathValidator // required
	FS        Filesystem    // defaults to OSFilesystem()
	// Language drives listing collation. Defaults to Turkish.
	Language language.Tag
	// RecentDir overrides the platform recent-documents directory.
	RecentDir string
	// ShortcutExt overrides the platform shortcut extension.
	ShortcutExt string
	// SendLimit is the largest file SendCheck accepts. Defaults to 50 MB.
	SendLimit int64
	// Home overrides the user home directory used for quick-access roots.
	Home string
}

// DefaultSendLimit is the transport upload ceiling.
const DefaultSendLimit int64 = 50 * 1024 * 1024

// NewBrowser creates a Browser.
func NewBrowser(opts BrowserOpts) (*Browser, error) {
	if opts.Validator == nil {
		return nil, fmt.Errorf("filebrowser: validator is required")
	}
	b := &Browser{
		validator:   opts.Validator,
		fsys:        opts.FS,
		lang:        opts.Language,
		recentDir:   opts.RecentDir,
		shortcutExt: opts.ShortcutExt,
		sendLimit:   opts.SendLimit,
		home:        opts.Home,
		volumes:     volumeRoots,
	}
	if b.fsys == nil {
		b.fsys = OSFilesystem()
	}
	if b.lang == language.Und {
		b.lang = language.Turkish
	}
	if b.home == "" {
		b.home, _ = os.UserHomeDir()
	}
	if b.recentDir == "" {
		b.recentDir = defaultRecentDir(b.home)
	}
	if b.shortcutExt == "" {
		b.shortcutExt = defaultShortcutExt()
	}
	if b.sendLimit <= 0 {
		b.sendLimit = DefaultSendLimit
	}
	return b, nil
}

// Validator returns the browser's path validator.
func (b *Browser) Validator() PathValidator { return b.validator }

// ListDirectory lists the immediate children of path. Folders and files are
// sorted independently and capped at MaxFolders and MaxFiles.
func (b *Browser) ListDirectory(path string) ListingResult {
	safe, err := b.validator.Resolve(path)
	if err != nil {
		return ListingResult{Message: "Klasör içeriği listelenemedi: " + err.Error()}
	}
	if _, err := b.fsys.Stat(safe); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ListingResult{Message: "Klasör bulunamadı."}
		}
		return ListingResult{Message: "Klasör içeriği listelenemedi: " + err.Error()}
	}

	items, err := b.fsys.ReadDir(safe)
	if err != nil {
		return ListingResult{Message: "Klasör içeriği listelenemedi: " + err.Error()}
	}

	var folders, files []Entry
	for _, item := range items {
		full := filepath.Join(safe, item.Name())
		info, err := b.fsys.Stat(full)
		if err != nil {
			continue
		}
		if info.IsDir() {
			folders = append(folders, Entry{Type: TypeFolder, Name: item.Name(), Path: full})
			continue
		}
		files = append(files, Entry{
			Type:    TypeFile,
			Name:    item.Name(),
			Path:    full,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	b.sortEntries(folders)
	b.sortEntries(files)

	res := ListingResult{
		Success:      true,
		CurrentPath:  safe,
		Folders:      capEntries(folders, MaxFolders),
		Files:        capEntries(files, MaxFiles),
		TotalFolders: len(folders),
		TotalFiles:   len(files),
	}
	_, res.HasParent = b.Parent(safe)
	res.Message = renderListing(res)
	return res
}

// sortEntries orders entries by name, ignoring case, with the browser's
// language collation. Byte order breaks ties so the result is stable.
func (b *Browser) sortEntries(entries []Entry) {
	// Collators are not safe for concurrent use.
	c := collate.New(b.lang, collate.IgnoreCase)
	sort.SliceStable(entries, func(i, j int) bool {
		if r := c.CompareString(entries[i].Name, entries[j].Name); r != 0 {
			return r < 0
		}
		return entries[i].Name < entries[j].Name
	})
}

func capEntries(entries []Entry, max int) []Entry {
	if len(entries) > max {
		return entries[:max]
	}
	return entries
}

// Parent returns the folder above p when it is not a filesystem root and
// still lies inside the allowed folders.
func (b *Browser) Parent(p string) (string, bool) {
	if p == "" || IsRoot(p) {
		return "", false
	}
	safe, err := b.validator.Resolve(filepath.Dir(p))
	if err != nil {
		return "", false
	}
	return safe, true
}

// IsRoot reports whether p is a filesystem root.
func IsRoot(p string) bool {
	return filepath.Dir(p) == p
}

func renderListing(res ListingResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n\n", EscapeMarkdown(filepath.Base(res.CurrentPath)))

	if res.HasParent {
		sb.WriteString("0\\. \\.\\./ \\(Yukarı\\)\n\n")
	}

	if len(res.Folders) > 0 {
		sb.WriteString("*Klasörler:*\n")
		for i, f := range res.Folders {
			fmt.Fprintf(&sb, "%d\\. %s/\n", i+1, EscapeMarkdown(f.Name))
		}
		sb.WriteString("\n")
	}

	if len(res.Files) > 0 {
		sb.WriteString("*Dosyalar:*\n")
		start := len(res.Folders) + 1
		for i, f := range res.Files {
			fmt.Fprintf(&sb, "%d\\. %s \\(%s KB\\)\n",
				start+i, EscapeMarkdown(f.Name), EscapeMarkdown(fmt.Sprintf("%.1f", float64(f.Size)/1024)))
		}
	}

	if res.TotalFolders == 0 && res.TotalFiles == 0 {
		sb.WriteString("Klasör boş\\.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, c := range `_*[]()~` + "`" + `>#+=|{}.!-` {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown escapes Telegram MarkdownV2 control characters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
