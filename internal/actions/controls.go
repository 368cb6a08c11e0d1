package actions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// MaxSpeechLength caps the text handed to the speech engine.
const MaxSpeechLength = 500

// ErrEmptyMessage is returned when a speech text is empty after sanitizing.
var ErrEmptyMessage = errors.New("message is empty")

// Controls exposes the typed host controls. Each method prepares the
// arguments its command templates expect and returns the reply text.
type Controls struct {
	inv *Invoker
}

// NewControls wraps an Invoker.
func NewControls(inv *Invoker) (*Controls, error) {
	if inv == nil {
		return nil, fmt.Errorf("actions: controls: invoker is required")
	}
	return &Controls{inv: inv}, nil
}

// Invoker returns the underlying command table.
func (c *Controls) Invoker() *Invoker { return c.inv }

// Do runs an argument-free command.
func (c *Controls) Do(ctx context.Context, name string) (string, error) {
	return c.inv.Invoke(ctx, name, nil)
}

// Shutdown schedules a power-off after minutes; zero means now.
func (c *Controls) Shutdown(ctx context.Context, minutes int) (string, error) {
	if minutes < 0 {
		minutes = 0
	}
	return c.inv.Invoke(ctx, CmdShutdown, Args{
		"minutes": strconv.Itoa(minutes),
		"seconds": strconv.Itoa(minutes * 60),
	})
}

// ParsePercent parses a 0-100 value.
func ParsePercent(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// SetVolume sets the master volume to level percent.
func (c *Controls) SetVolume(ctx context.Context, level int) (string, error) {
	return c.inv.Invoke(ctx, CmdVolumeSet, Args{
		"level": strconv.Itoa(level),
		// nircmd scale.
		"units": strconv.Itoa(level * 65535 / 100),
	})
}

// SetBrightness sets the display brightness to level percent.
func (c *Controls) SetBrightness(ctx context.Context, level int) (string, error) {
	return c.inv.Invoke(ctx, CmdBrightness, Args{
		"level":    strconv.Itoa(level),
		"fraction": strconv.FormatFloat(float64(level)/100, 'f', 2, 64),
	})
}

var coordPattern = regexp.MustCompile(`^\s*(\d+)\s*,\s*(\d+)\s*$`)

// ParseCoordinates parses "x,y" screen coordinates.
func ParseCoordinates(text string) (x, y int, ok bool) {
	m := coordPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(m[1])
	y, errY := strconv.Atoi(m[2])
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

// MoveMouse moves the pointer to x,y.
func (c *Controls) MoveMouse(ctx context.Context, x, y int) (string, error) {
	return c.inv.Invoke(ctx, CmdMouseMove, Args{"x": strconv.Itoa(x), "y": strconv.Itoa(y)})
}

// MouseButton identifies a button for Click.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

var buttonInfo = map[MouseButton]struct{ label, x11 string }{
	ButtonLeft:   {"Sol", "1"},
	ButtonRight:  {"Sağ", "3"},
	ButtonMiddle: {"Orta", "2"},
}

// Click presses and releases a mouse button.
func (c *Controls) Click(ctx context.Context, b MouseButton) (string, error) {
	info, ok := buttonInfo[b]
	if !ok {
		return "", fmt.Errorf("actions: click: unknown button %q", b)
	}
	return c.inv.Invoke(ctx, CmdMouseClick, Args{"name": string(b), "label": info.label, "button": info.x11})
}

// ScrollTicks is the wheel step count per scroll action.
const ScrollTicks = 3

// Scroll turns the wheel up or down.
func (c *Controls) Scroll(ctx context.Context, up bool) (string, error) {
	args := Args{"amount": strconv.Itoa(ScrollTicks)}
	if up {
		args["label"], args["button"], args["delta"] = "Yukarı", "4", strconv.Itoa(120*ScrollTicks)
	} else {
		args["label"], args["button"], args["delta"] = "Aşağı", "5", strconv.Itoa(-120*ScrollTicks)
	}
	return c.inv.Invoke(ctx, CmdScroll, args)
}

// TypeText types text at the focused window.
func (c *Controls) TypeText(ctx context.Context, text string) (string, error) {
	return c.inv.Invoke(ctx, CmdTypeText, Args{"text": text})
}

// PressKey presses one named key. Names are lower-cased.
func (c *Controls) PressKey(ctx context.Context, key string) (string, error) {
	return c.inv.Invoke(ctx, CmdKey, Args{"key": strings.ToLower(key)})
}

// PressCombo presses a modifier combination such as "ctrl+c".
func (c *Controls) PressCombo(ctx context.Context, combo string) (string, error) {
	return c.inv.Invoke(ctx, CmdCombo, Args{"combo": strings.ToLower(combo)})
}

// Notify shows a desktop notification.
func (c *Controls) Notify(ctx context.Context, title, body string) (string, error) {
	return c.inv.Invoke(ctx, CmdNotifySend, Args{"title": title, "body": body})
}

// Apps maps the entertainment menu to launch targets.
var Apps = map[string]string{
	"Netflix": "https://www.netflix.com",
	"Spotify": "spotify",
	"Steam":   "steam",
	"Discord": "discord",
}

// OpenApp launches one of Apps detached.
func (c *Controls) OpenApp(ctx context.Context, app string) (string, error) {
	target, ok := Apps[app]
	if !ok {
		return "", fmt.Errorf("actions: open: unknown app %q", app)
	}
	exec := target
	if opener := urlOpener(); opener != "" && strings.HasPrefix(target, "https://") {
		exec = opener + " " + target
	}
	return c.inv.Invoke(ctx, CmdOpenApp, Args{"app": app, "exec": exec})
}

var speechDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?'"\-:;ĞÜŞİÖÇğüşıöç]`)

// SanitizeSpeech strips characters the speech backends cannot take safely
// and caps the length.
func SanitizeSpeech(text string) (string, error) {
	clean := strings.TrimSpace(speechDisallowed.ReplaceAllString(text, ""))
	clean = Truncate(clean, MaxSpeechLength, "")
	if clean == "" {
		return "", ErrEmptyMessage
	}
	return clean, nil
}

// Say speaks text aloud.
func (c *Controls) Say(ctx context.Context, text string) (string, error) {
	clean, err := SanitizeSpeech(text)
	if err != nil {
		return "Sesli uyarı başarısız: Geçersiz mesaj (güvenlik kontrolü)", nil
	}
	return c.inv.Invoke(ctx, CmdSay, Args{"text": clean})
}

// VoicePresets are the canned voice lines. Entries with several texts pick
// one at random.
var VoicePresets = map[string][]string{
	"hello":   {"Merhaba! Bilgisayarımda Oturan Kişi Size nasıl yardımcı olabilirim?"},
	"warning": {"Dikkat! Bilgisayarınız uzaktan kontrol ediliyor. Lütfen dikkatli olun."},
	"joke": {
		"Bilgisayarlar neden asla üşümez? Çünkü onların Windows'u var!",
		"Bilgisayarım bana dedi ki, sen olmadan yapamam. Güç kablosunu çektim, gerçekten yapamadı.",
		"Bilgisayarımın şifresi yanlış diye uyarı veriyordu. Şifreyi değiştirdim, şimdi doğru diye uyarı veriyor.",
		"Bilgisayarıma virüs bulaşmış. Doktora götürdüm, format atmamı söyledi.",
	},
	"scare":    {"Dikkat! Sistem tehlikede! Kritik güvenlik açığı tespit edildi! Tüm veriler risk altında!"},
	"shutdown": {"Dikkat! Bilgisayar 10 saniye içinde kapatılacak. Lütfen çalışmalarınızı kaydedin."},
	"hacker":   {"Uyarı! Bilgisayarınıza izinsiz erişim tespit edildi. Sistem güvenliği tehlikede!"},
	"motivation": {
		"Bugün harika bir gün olacak! Tüm hedeflerine ulaşacaksın!",
		"Asla pes etme! Her zorluk, seni daha güçlü yapar!",
		"Başarı, düştükten sonra tekrar ayağa kalkmaktır!",
		"İmkansız diye bir şey yoktur, sadece zaman alır!",
		"Hayallerine ulaşmak için her gün bir adım at!",
	},
	"congrats": {"Tebrikler! Harika bir iş çıkardın! Seninle gurur duyuyorum!"},
}

// SayPreset speaks a canned line. Unknown presets are spoken verbatim.
func (c *Controls) SayPreset(ctx context.Context, preset string) (string, error) {
	lines, ok := VoicePresets[preset]
	if !ok {
		return c.Say(ctx, preset)
	}
	return c.Say(ctx, lines[rand.Intn(len(lines))])
}
