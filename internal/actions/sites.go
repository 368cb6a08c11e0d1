package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
)

// ErrInvalidDomain is returned by ValidateDomain.
var ErrInvalidDomain = errors.New("invalid domain")

const (
	invalidDomainMsg = "Geçersiz domain formatı. Lütfen geçerli bir domain girin (örnek: example.com)\n\nÖzel karakterler ve boşluk kullanılamaz."
	hostsReadMsg     = "Hosts dosyası okunamadı: Yönetici yetkisi gerekiyor.\n\nProgramı yönetici olarak çalıştırın."
	hostsWriteMsg    = "Hosts dosyası yazılamadı: Yönetici yetkisi gerekiyor.\n\nProgramı yönetici olarak çalıştırın."
)

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// ValidateDomain normalizes a domain name and rejects anything that is not a
// plain host name.
func ValidateDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" || len(d) > 253 || !domainPattern.MatchString(d) {
		return "", fmt.Errorf("actions: %w: %q", ErrInvalidDomain, raw)
	}
	return d, nil
}

// DefaultHostsPath returns the platform hosts file.
func DefaultHostsPath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return root + `\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

var blockedLine = regexp.MustCompile(`^127\.0\.0\.1\s+(.+)`)

// Sites blocks websites through the hosts file.
type Sites struct {
	path string
	inv  *Invoker
	mu   sync.Mutex
}

// NewSites creates a Sites editing the hosts file at path.
func NewSites(path string, inv *Invoker) (*Sites, error) {
	if inv == nil {
		return nil, fmt.Errorf("actions: sites: invoker is required")
	}
	if path == "" {
		path = DefaultHostsPath()
	}
	return &Sites{path: path, inv: inv}, nil
}

func (s *Sites) flushDNS(ctx context.Context) bool {
	_, err := s.inv.Output(ctx, CmdFlushDNS, nil)
	return err == nil
}

// Block maps domain and www.domain to the loopback address.
func (s *Sites) Block(ctx context.Context, raw string) (string, error) {
	domain, err := ValidateDomain(raw)
	if err != nil {
		return invalidDomainMsg, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return hostsReadMsg, nil
	}
	entry := "127.0.0.1 " + domain
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return domain + " zaten engellenmiş.", nil
		}
	}
	content := string(data) + "\n" + entry + "\n127.0.0.1 www." + domain + "\n"
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return hostsWriteMsg, nil
	}
	if !s.flushDNS(ctx) {
		return fmt.Sprintf("%s engellendi.\n\nwww.%s da engellendi.\n\nUyarı: DNS cache temizlenemedi.", domain, domain), nil
	}
	return fmt.Sprintf("%s engellendi.\n\nwww.%s da engellendi.\nDNS cache temizlendi.", domain, domain), nil
}

// Unblock removes the entries Block added.
func (s *Sites) Unblock(ctx context.Context, raw string) (string, error) {
	domain, err := ValidateDomain(raw)
	if err != nil {
		return invalidDomainMsg, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return hostsReadMsg, nil
	}
	drop := map[string]bool{"127.0.0.1 " + domain: true, "127.0.0.1 www." + domain: true}
	lines := strings.Split(string(data), "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if !drop[strings.TrimSpace(line)] {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return domain + " zaten engellenmemiş.", nil
	}
	if err := os.WriteFile(s.path, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return hostsWriteMsg, nil
	}
	if !s.flushDNS(ctx) {
		return domain + " engeli kaldırıldı.\n\nUyarı: DNS cache temizlenemedi.", nil
	}
	return domain + " engeli kaldırıldı.\nDNS cache temizlendi.", nil
}

// Blocked returns the loopback-mapped names except localhost.
func (s *Sites) Blocked() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("actions: sites: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := blockedLine.FindStringSubmatch(line); m != nil && !strings.Contains(m[1], "localhost") {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out, nil
}

// List renders the blocked names.
func (s *Sites) List(ctx context.Context) (string, error) {
	sites, err := s.Blocked()
	if err != nil {
		return hostsReadMsg, nil
	}
	if len(sites) == 0 {
		return "*Engellenen Websiteler:*\n\nHenüz engellenmiş website yok.", nil
	}
	var sb strings.Builder
	sb.WriteString("*Engellenen Websiteler:*\n\n")
	for i, site := range sites {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, site)
	}
	return sb.String(), nil
}
