package filebrowser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxSearchResults caps Search output.
const MaxSearchResults = 30

// ErrTooLarge is returned by SendCheck for files above the send limit.
var ErrTooLarge = errors.New("file exceeds send limit")

const trTimeLayout = "02.01.2006 15:04:05"

// Info describes a file: size and its creation, modification and access
// times where the platform reports them.
func (b *Browser) Info(path string) (string, error) {
	safe, err := b.validator.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := b.fsys.Stat(safe)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "Dosya bulunamadı.", nil
		}
		return "", fmt.Errorf("filebrowser: info: %w", err)
	}

	created, accessed := fileTimes(info)
	var sb strings.Builder
	sb.WriteString("*Dosya Bilgisi*\n\n")
	fmt.Fprintf(&sb, "*Dosya:* %s\n", filepath.Base(safe))
	fmt.Fprintf(&sb, "*Boyut:* %.2f KB\n", float64(info.Size())/1024)
	if !created.IsZero() {
		fmt.Fprintf(&sb, "*Oluşturulma:* %s\n", created.Local().Format(trTimeLayout))
	}
	fmt.Fprintf(&sb, "*Değiştirilme:* %s\n", info.ModTime().Local().Format(trTimeLayout))
	if !accessed.IsZero() {
		fmt.Fprintf(&sb, "*Erişim:* %s\n", accessed.Local().Format(trTimeLayout))
	}
	return sb.String(), nil
}

// Delete removes a single file.
func (b *Browser) Delete(path string) (string, error) {
	safe, err := b.validator.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := b.fsys.Stat(safe)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "Dosya bulunamadı.", nil
		}
		return "", fmt.Errorf("filebrowser: delete: %w", err)
	}
	if info.IsDir() {
		return "Dosya silinemedi: klasörler silinemez", nil
	}
	if err := os.Remove(safe); err != nil {
		return "Dosya silinemedi: " + err.Error(), nil
	}
	return "Dosya silindi: " + safe, nil
}

var codeEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// Search walks dir for files whose name matches pattern, ignoring case.
// A pattern without '*' matches anywhere in the name. At most
// MaxSearchResults paths are reported. The reply is MarkdownV2.
func (b *Browser) Search(ctx context.Context, dir, pattern string) (string, error) {
	safe, err := b.validator.Resolve(dir)
	if err != nil {
		return "", err
	}
	pattern = strings.TrimSpace(pattern)
	glob := pattern
	if !strings.Contains(glob, "*") {
		glob = "*" + glob + "*"
	}
	glob = strings.ToLower(glob)
	if _, err := filepath.Match(glob, ""); err != nil {
		return "", fmt.Errorf("filebrowser: search: bad pattern %q: %w", pattern, err)
	}

	var found []string
	walkErr := filepath.WalkDir(safe, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable subtrees are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(glob, strings.ToLower(d.Name())); ok {
			found = append(found, p)
			if len(found) >= MaxSearchResults {
				return fs.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("filebrowser: search: %w", walkErr)
	}

	if len(found) == 0 {
		return EscapeMarkdown(fmt.Sprintf("Eşleşen dosya bulunamadı.\n\nArama: %s\nKonum: %s", pattern, safe)), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Arama Sonuçları (%s)*\n\n", EscapeMarkdown(pattern))
	for i, p := range found {
		fmt.Fprintf(&sb, "%d\\. `%s`\n", i+1, codeEscaper.Replace(p))
	}
	if len(found) >= MaxSearchResults {
		sb.WriteString("\n💡 İlk 30 sonuç gösteriliyor\\.")
	}
	return sb.String(), nil
}

// SendCheck validates path for sending and returns its size. Files above
// the send limit yield ErrTooLarge along with a user-facing message.
func (b *Browser) SendCheck(path string) (string, int64, error) {
	safe, err := b.validator.Resolve(path)
	if err != nil {
		return "", 0, err
	}
	info, err := b.fsys.Stat(safe)
	if err != nil {
		return "", 0, fmt.Errorf("filebrowser: send: %w", err)
	}
	if info.Size() > b.sendLimit {
		mb := float64(info.Size()) / (1024 * 1024)
		limit := float64(b.sendLimit) / (1024 * 1024)
		return fmt.Sprintf("*Dosya Çok Büyük*\n\nDosya boyutu: %.2f MB\nTelegram limiti: %.0f MB\n\nDaha küçük bir dosya gönderin.", mb, limit),
			info.Size(), ErrTooLarge
	}
	return safe, info.Size(), nil
}

// PrepareUploadDir validates dir as an upload destination and creates it
// when missing.
func (b *Browser) PrepareUploadDir(dir string) (string, error) {
	safe, err := b.validator.Resolve(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(safe, 0o755); err != nil {
		return "", fmt.Errorf("filebrowser: upload dir: %w", err)
	}
	return safe, nil
}

// UploadPath joins a sanitized file name onto dir. Names that would escape
// dir are reduced to their base.
func UploadPath(dir, name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if name == "/" || name == "." || name == "" {
		name = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	return filepath.Join(dir, name)
}
