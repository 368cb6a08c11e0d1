package actions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"
)

// ErrUnknownCommand is returned by Invoke for names missing from the table.
var ErrUnknownCommand = errors.New("unknown command")

// Command names understood by the default table.
const (
	CmdLock           = "power.lock"
	CmdUnlock         = "power.unlock"
	CmdSleep          = "power.sleep"
	CmdReboot         = "power.reboot"
	CmdShutdown       = "power.shutdown"
	CmdCancelShutdown = "power.cancel_shutdown"
	CmdDisplayOff     = "display.off"
	CmdBrightness     = "display.brightness"
	CmdShowDesktop    = "desktop.show"
	CmdUnmute         = "audio.unmute"
	CmdMute           = "audio.mute"
	CmdVolumeUp       = "audio.up"
	CmdVolumeDown     = "audio.down"
	CmdVolumeSet      = "audio.set"
	CmdAudioDevices   = "audio.devices"
	CmdAudioSwitch    = "audio.switch"
	CmdSay            = "voice.say"
	CmdMediaPlay      = "media.play"
	CmdMediaNext      = "media.next"
	CmdMediaPrevious  = "media.previous"
	CmdMediaStatus    = "media.status"
	CmdOpenApp        = "media.open"
	CmdMouseMove      = "input.move"
	CmdMouseClick     = "input.click"
	CmdDoubleClick    = "input.double"
	CmdScroll         = "input.scroll"
	CmdMousePosition  = "input.position"
	CmdTypeText       = "input.type"
	CmdKey            = "input.key"
	CmdCombo          = "input.combo"
	CmdNotifyList     = "notify.list"
	CmdNotifyTest     = "notify.test"
	CmdNotifySend     = "notify.send"
	CmdSecurityCheck  = "security.check"
	CmdSecurityReport = "security.report"
	CmdAntivirus      = "security.antivirus"
	CmdFirewall       = "security.firewall"
	CmdUSBDevices     = "security.usb"
	CmdStartup        = "system.startup"
	CmdDiskAnalyze    = "disk.analyze"
	CmdDiskClean      = "disk.clean"
	CmdWiFi           = "net.wifi"
	CmdWiFiPassword   = "net.wifi_password"
	CmdARP            = "net.arp"
	CmdFlushDNS       = "net.flush_dns"
	CmdPing           = "net.ping"
	CmdWebcamStatus   = "privacy.webcam"
	CmdMicStatus      = "privacy.mic"
	CmdClipboardFile  = "clipboard.file"
	CmdEmptyTrash     = "trash.empty"
	CmdActiveWindow   = "window.active"
	CmdBattery        = "battery.status"
	CmdLaunch         = "program.launch"
	CmdKill           = "program.kill"
)

// Command is one entry of the command table. Run, Reply and Fail are
// text/template sources. Run sees .Args; Reply sees .Args and .Output;
// Fail sees .Args and .Err.
type Command struct {
	Run     string        `yaml:"run"`
	Reply   string        `yaml:"reply"`
	Fail    string        `yaml:"fail"`
	Timeout time.Duration `yaml:"timeout"`
	// Detach starts the command without waiting for it.
	Detach bool `yaml:"detach"`
}

// Args are the named parameters of one invocation.
type Args map[string]string

// replyTexts holds the operator-facing texts shared by every platform.
var replyTexts = map[string]Command{
	CmdLock:           {Reply: "Bilgisayar kilitlendi.", Fail: "Kilitleme başarısız: {{.Err}}"},
	CmdUnlock:         {Reply: "Kilit açma komutu gönderildi.", Fail: "Kilit açma başarısız: {{.Err}}"},
	CmdSleep:          {Reply: "Bilgisayar uyku moduna alınıyor...", Fail: "Uyku modu başarısız: {{.Err}}"},
	CmdReboot:         {Reply: "Sistem 60 saniye içinde yeniden başlatılacak...", Fail: "Yeniden başlatma başarısız: {{.Err}}"},
	CmdShutdown:       {Reply: `{{if eq .Args.minutes "0"}}Bilgisayar hemen kapatılıyor...{{else}}Bilgisayar {{.Args.minutes}} dakika sonra kapatılacak.{{end}}`, Fail: "Kapatma başarısız: {{.Err}}"},
	CmdCancelShutdown: {Reply: "Kapatma işlemi iptal edildi.", Fail: "İptal başarısız: {{.Err}}"},
	CmdDisplayOff:     {Reply: "Ekran kapatıldı. Hareket ettirdiğinizde açılacak.", Fail: "Ekran kapatma başarısız: {{.Err}}"},
	CmdBrightness:     {Reply: "Ekran parlaklığı %{{.Args.level}} olarak ayarlandı.", Fail: "Parlaklık ayarlama hatası: {{.Err}}"},
	CmdShowDesktop:    {Reply: "Tüm pencereler minimize edildi. Masaüstü gösteriliyor.", Fail: "Masaüstü gösterme başarısız: {{.Err}}"},
	CmdUnmute:         {Reply: "Ses açıldı.", Fail: "Ses kontrolü başarısız: {{.Err}}"},
	CmdMute:           {Reply: "Ses kapatıldı.", Fail: "Ses kontrolü başarısız: {{.Err}}"},
	CmdVolumeUp:       {Reply: "Ses yükseltildi (+2).", Fail: "Ses yükseltme başarısız: {{.Err}}"},
	CmdVolumeDown:     {Reply: "Ses azaltıldı (-2).", Fail: "Ses azaltma başarısız: {{.Err}}"},
	CmdVolumeSet:      {Reply: "Ses seviyesi %{{.Args.level}} olarak ayarlandı.", Fail: "Ses ayarlama başarısız: {{.Err}}"},
	CmdAudioDevices:   {Reply: "*Ses Cihazları*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Ses cihazları listelenemedi: {{.Err}}"},
	CmdAudioSwitch:    {Reply: "Ses ayarları paneli açıldı.\n\nAçılan pencereden ses cihazınızı değiştirebilirsiniz.", Fail: "Ses ayarları paneli açılıyor..."},
	CmdSay:            {Reply: `Sesli komut çalındı: "{{.Args.text}}"`, Fail: "Sesli komut başarısız: {{.Err}}"},
	CmdMediaPlay:      {Reply: "Medya kontrolü: Oynat", Fail: "Medya kontrolü başarısız: {{.Err}}"},
	CmdMediaNext:      {Reply: "Medya kontrolü: Sonraki", Fail: "Medya kontrolü başarısız: {{.Err}}"},
	CmdMediaPrevious:  {Reply: "Medya kontrolü: Önceki", Fail: "Medya kontrolü başarısız: {{.Err}}"},
	CmdMediaStatus:    {Reply: "*Müzik Durumu*\n\n{{if .Output}}{{.Output}}{{else}}Müzik çalar bulunamadı.{{end}}", Fail: "*Müzik Durumu*\n\nMüzik çalar bulunamadı."},
	CmdOpenApp:        {Reply: "{{.Args.app}} açılıyor...", Fail: "{{.Args.app}} açılamadı: {{.Err}}", Detach: true},
	CmdMouseMove:      {Reply: "Fare {{.Args.x}},{{.Args.y}} koordinatına taşındı.", Fail: "Fare taşıma başarısız: {{.Err}}"},
	CmdMouseClick:     {Reply: "{{.Args.label}} tıklama simüle edildi.", Fail: "Mouse tıklama başarısız: {{.Err}}"},
	CmdDoubleClick:    {Reply: "Çift tıklama yapıldı.", Fail: "Çift tıklama başarısız: {{.Err}}"},
	CmdScroll:         {Reply: "{{.Args.label}} scroll yapıldı ({{.Args.amount}}x).", Fail: "Mouse scroll başarısız: {{.Err}}"},
	CmdMousePosition:  {Reply: "*Mouse Pozisyonu*\n\nX: {{kv \"X\" .Output}}\nY: {{kv \"Y\" .Output}}", Fail: "Mouse pozisyonu alınamadı: {{.Err}}"},
	CmdTypeText:       {Reply: `Metin yazıldı: "{{trunc 50 .Args.text}}"`, Fail: "Metin yazma başarısız: {{.Err}}"},
	CmdKey:            {Reply: "Tuş basıldı: {{.Args.key}}", Fail: "Tuş basma başarısız: {{.Err}}"},
	CmdCombo:          {Reply: "Kombinasyon basıldı: {{.Args.combo}}", Fail: "Tuş kombinasyonu başarısız: {{.Err}}"},
	CmdNotifyList:     {Reply: "{{if .Output}}*Bildirimler*\n\n{{trunc 3000 .Output}}{{else}}Bildirim bulunamadı.{{end}}", Fail: "Bildirimler alınamadı: {{.Err}}"},
	CmdNotifyTest:     {Reply: "Test bildirimi gönderildi!", Fail: "Test bildirimi gönderilemedi: {{.Err}}"},
	CmdNotifySend:     {Reply: "Bildirim gönderildi: {{.Args.title}}", Fail: "Bildirim gönderilemedi: {{.Err}}"},
	CmdSecurityCheck:  {Reply: "*Güvenlik Kontrolü*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Güvenlik kontrolü başarısız: {{.Err}}"},
	CmdSecurityReport: {Reply: "*Güvenlik Raporu*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Güvenlik raporu oluşturulamadı: {{.Err}}"},
	CmdAntivirus:      {Reply: "*Antivirüs Durumu*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Antivirüs kontrolü başarısız: {{.Err}}"},
	CmdFirewall:       {Reply: "*Güvenlik Duvarı*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Güvenlik duvarı kontrolü başarısız: {{.Err}}"},
	CmdUSBDevices:     {Reply: "*USB Cihazları*\n\n{{if .Output}}```\n{{trunc 3000 .Output}}\n```{{else}}USB cihaz bulunamadı.{{end}}", Fail: "USB cihazlar tespit edilemedi: {{.Err}}"},
	CmdStartup:        {Reply: "*Başlangıçta Çalışan Programlar:*\n\n```\n{{trunc 3000 .Output}}\n```", Fail: "Başlangıç programları listelenemedi: {{.Err}}"},
	CmdDiskAnalyze:    {Reply: "*Disk Analizi*\n\n```\n{{tail 15 .Output}}\n```", Fail: "Disk analizi başarısız: {{.Err}}", Timeout: 90 * time.Second},
	CmdDiskClean:      {Reply: "Disk temizliği tamamlandı.\n\n{{trunc 1000 .Output}}", Fail: "Disk temizliği başarısız: {{.Err}}"},
	CmdWiFi:           {Reply: "*WiFi Bilgisi*\n\n{{if .Output}}{{.Output}}{{else}}WiFi bağlantısı yok.{{end}}", Fail: "WiFi bilgisi alınamadı: {{.Err}}"},
	CmdWiFiPassword:   {Reply: "{{if .Output}}*WiFi Bilgileri*\n\n{{.Output}}{{else}}WiFi bağlantısı yok.{{end}}", Fail: "WiFi şifresi alınamadı: {{.Err}}"},
	CmdARP:            {Reply: "{{.Output}}"},
	CmdFlushDNS:       {Reply: "DNS cache temizlendi."},
	CmdPing:           {Reply: "{{.Output}}", Timeout: 5 * time.Second},
	CmdWebcamStatus:   {Reply: "{{if .Output}}*Webcam Durumu*\n\n{{.Output}}{{else}}Webcam kullanımda değil.{{end}}", Fail: "Webcam kontrolü başarısız: {{.Err}}"},
	CmdMicStatus:      {Reply: "{{if .Output}}*Mikrofon Durumu*\n\n{{.Output}}{{else}}Mikrofon kullanabilecek uygulama çalışmıyor.{{end}}", Fail: "Mikrofon kontrolü başarısız: {{.Err}}"},
	CmdClipboardFile:  {Reply: "{{if .Output}}*Panodaki Dosya:*\n\n`{{.Output}}`{{else}}Panoda dosya yok.{{end}}", Fail: "Panoda dosya yok."},
	CmdEmptyTrash:     {Reply: "Geri dönüşüm kutusu boşaltıldı.", Fail: "Geri dönüşüm kutusu boşaltma işlemi tamamlandı."},
	CmdActiveWindow:   {Reply: "{{.Output}}", Timeout: 5 * time.Second},
	CmdBattery:        {Reply: "{{.Output}}", Timeout: 5 * time.Second},
	CmdLaunch:         {Reply: "Program başlatıldı: {{.Args.name}}", Fail: "Program başlatılamadı: {{.Err}}", Detach: true},
	CmdKill:           {Reply: "Program sonlandırıldı: {{.Args.name}}", Fail: "Program sonlandırılamadı: {{.Err}}"},
}

// DefaultCommands returns the built-in table for this platform.
func DefaultCommands() map[string]Command {
	runs := platformRuns()
	out := make(map[string]Command, len(replyTexts))
	for name, c := range replyTexts {
		c.Run = runs[name]
		out[name] = c
	}
	return out
}

// Invoker runs named commands from a table of templates.
type Invoker struct {
	runner Runner

	mu       sync.RWMutex
	table    map[string]Command
	compiled map[string]*compiledCommand
}

type compiledCommand struct {
	Command
	run, reply, fail *template.Template
}

// NewInvoker builds an Invoker over the default table with overrides
// applied field by field. Every template is parsed up front.
func NewInvoker(runner Runner, overrides map[string]Command) (*Invoker, error) {
	if runner == nil {
		return nil, fmt.Errorf("actions: invoker: runner is required")
	}
	table := DefaultCommands()
	for name, o := range overrides {
		c := table[name]
		if o.Run != "" {
			c.Run = o.Run
		}
		if o.Reply != "" {
			c.Reply = o.Reply
		}
		if o.Fail != "" {
			c.Fail = o.Fail
		}
		if o.Timeout > 0 {
			c.Timeout = o.Timeout
		}
		if o.Detach {
			c.Detach = true
		}
		table[name] = c
	}

	inv := &Invoker{runner: runner, table: table, compiled: make(map[string]*compiledCommand, len(table))}
	for name, c := range table {
		cc := &compiledCommand{Command: c}
		var err error
		if cc.run, err = parseTemplate(name+".run", c.Run); err != nil {
			return nil, err
		}
		if cc.reply, err = parseTemplate(name+".reply", c.Reply); err != nil {
			return nil, err
		}
		if cc.fail, err = parseTemplate(name+".fail", c.Fail); err != nil {
			return nil, err
		}
		inv.compiled[name] = cc
	}
	return inv, nil
}

// Names returns the table's command names, sorted.
func (i *Invoker) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.compiled))
	for n := range i.compiled {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether name has a command line on this platform.
func (i *Invoker) Supported(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.compiled[name]
	return ok && c.run != nil
}

// Invoke renders and runs the named command and returns the reply text.
// Process failures are rendered through the command's Fail template when it
// has one.
func (i *Invoker) Invoke(ctx context.Context, name string, args Args) (string, error) {
	out, err := i.Output(ctx, name, args)
	i.mu.RLock()
	c := i.compiled[name]
	i.mu.RUnlock()
	if c == nil {
		return "", err
	}
	if err != nil {
		if c.fail != nil && !errors.Is(err, ErrUnknownCommand) {
			return render(c.fail, map[string]any{"Args": args, "Err": err.Error()})
		}
		return "", err
	}
	if c.reply == nil {
		return out, nil
	}
	return render(c.reply, map[string]any{"Args": args, "Output": out})
}

// Output renders and runs the named command and returns its trimmed stdout
// without applying the reply template.
func (i *Invoker) Output(ctx context.Context, name string, args Args) (string, error) {
	i.mu.RLock()
	c := i.compiled[name]
	i.mu.RUnlock()
	if c == nil {
		return "", fmt.Errorf("actions: %s: %w", name, ErrUnknownCommand)
	}
	if c.run == nil {
		return "", fmt.Errorf("actions: %s: not supported on %s", name, runtime.GOOS)
	}
	if args == nil {
		args = Args{}
	}
	line, err := render(c.run, map[string]any{"Args": args})
	if err != nil {
		return "", err
	}
	if c.Detach {
		argv := DefaultShell()
		return "", i.runner.Start(argv[0], append(argv[1:], line)...)
	}
	res, err := i.runner.Shell(ctx, line, c.Timeout)
	return strings.TrimSpace(res.Stdout), err
}

func parseTemplate(name, src string) (*template.Template, error) {
	if src == "" {
		return nil, nil
	}
	t, err := template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("actions: template %s: %w", name, err)
	}
	return t, nil
}

func render(t *template.Template, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("actions: render %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}

var templateFuncs = template.FuncMap{
	"shq":   ShellQuote,
	"psq":   PowerShellQuote,
	"cmdq":  CmdQuote,
	"trunc": func(n int, s string) string { return Truncate(s, n, "...") },
	"tail":  tailLines,
	"kv":    keyValue,
}

// ShellQuote quotes s as a single POSIX shell word.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// PowerShellQuote quotes s as a PowerShell single-quoted string.
func PowerShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var cmdUnsafe = strings.NewReplacer(`"`, "", "%", "", "^", "", "&", "", "|", "", "<", "", ">", "")

// CmdQuote quotes s as one cmd.exe argument, dropping metacharacters that
// cannot be escaped inside double quotes.
func CmdQuote(s string) string {
	return `"` + cmdUnsafe.Replace(s) + `"`
}

func tailLines(n int, s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// keyValue extracts KEY from KEY=VALUE lines.
func keyValue(key, s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if ok && strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return "?"
}
