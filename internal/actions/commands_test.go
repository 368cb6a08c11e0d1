package actions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every process request. shell and run decide the
// result; both default to empty success.
type fakeRunner struct {
	mu      sync.Mutex
	lines   []string
	runs    [][]string
	started [][]string

	shell func(line string) (Result, error)
	run   func(name string, args []string) (Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.runs = append(f.runs, append([]string{name}, args...))
	fn := f.run
	f.mu.Unlock()
	if fn == nil {
		return Result{}, nil
	}
	return fn(name, args)
}

func (f *fakeRunner) Shell(ctx context.Context, line string, timeout time.Duration) (Result, error) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	fn := f.shell
	f.mu.Unlock()
	if fn == nil {
		return Result{}, nil
	}
	return fn(line)
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, append([]string{name}, args...))
	return nil
}

func (f *fakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeRunner) Runs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.runs...)
}

// setupInvoker builds an Invoker whose run lines are fixed so tests do not
// depend on the host platform.
func setupInvoker(t *testing.T, r *fakeRunner, overrides map[string]Command) *Invoker {
	t.Helper()
	base := map[string]Command{
		CmdMouseMove:     {Run: "move {{.Args.x}} {{.Args.y}}"},
		CmdMouseClick:    {Run: "click {{.Args.button}}"},
		CmdScroll:        {Run: "scroll {{.Args.button}} {{.Args.amount}}"},
		CmdMousePosition: {Run: "where"},
		CmdSay:           {Run: "say {{shq .Args.text}}"},
		CmdShutdown:      {Run: "shutdown {{.Args.minutes}}"},
		CmdVolumeSet:     {Run: "vol {{.Args.level}} {{.Args.units}}"},
		CmdBrightness:    {Run: "bright {{.Args.fraction}}"},
		CmdOpenApp:       {Run: "{{.Args.exec}}"},
		CmdLaunch:        {Run: "{{.Args.name}}"},
		CmdKill:          {Run: "kill {{shq .Args.name}}"},
		CmdFlushDNS:      {Run: "flush"},
		CmdPing:          {Run: "ping {{.Args.host}}"},
		CmdBattery:       {Run: "battery"},
		CmdActiveWindow:  {Run: "window"},
		CmdUSBDevices:    {Run: "usb"},
		CmdARP:           {Run: "arp"},
	}
	for k, v := range overrides {
		base[k] = v
	}
	inv, err := NewInvoker(r, base)
	require.NoError(t, err)
	return inv
}

// --- Invoker tests ---

func TestNewInvoker_RequiresRunner(t *testing.T) {
	_, err := NewInvoker(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runner is required")
}

func TestNewInvoker_BadTemplate(t *testing.T) {
	_, err := NewInvoker(&fakeRunner{}, map[string]Command{CmdLock: {Run: "{{.Args.x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power.lock.run")
}

func TestInvoke_RendersReply(t *testing.T) {
	r := &fakeRunner{}
	inv := setupInvoker(t, r, nil)

	got, err := inv.Invoke(context.Background(), CmdMouseMove, Args{"x": "10", "y": "20"})
	require.NoError(t, err)
	assert.Equal(t, "Fare 10,20 koordinatına taşındı.", got)
	assert.Equal(t, []string{"move 10 20"}, r.Lines())
}

func TestInvoke_FailTemplateOnError(t *testing.T) {
	r := &fakeRunner{shell: func(string) (Result, error) { return Result{}, errors.New("boom") }}
	inv := setupInvoker(t, r, nil)

	got, err := inv.Invoke(context.Background(), CmdMouseMove, Args{"x": "1", "y": "2"})
	require.NoError(t, err)
	assert.Equal(t, "Fare taşıma başarısız: boom", got)
}

func TestInvoke_UnknownCommand(t *testing.T) {
	inv := setupInvoker(t, &fakeRunner{}, nil)
	_, err := inv.Invoke(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestInvoke_OverrideReplyOnly(t *testing.T) {
	r := &fakeRunner{}
	inv := setupInvoker(t, r, map[string]Command{CmdFlushDNS: {Run: "flush", Reply: "ok {{.Output}}"}})
	r.shell = func(string) (Result, error) { return Result{Stdout: "done\n"}, nil }

	got, err := inv.Invoke(context.Background(), CmdFlushDNS, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok done", got)
}

func TestInvoke_KeyValueOutput(t *testing.T) {
	r := &fakeRunner{shell: func(string) (Result, error) {
		return Result{Stdout: "X=640\nY=480\nSCREEN=0\n"}, nil
	}}
	inv := setupInvoker(t, r, nil)
	got, err := inv.Invoke(context.Background(), CmdMousePosition, nil)
	require.NoError(t, err)
	assert.Equal(t, "*Mouse Pozisyonu*\n\nX: 640\nY: 480", got)
}

func TestOutput_DetachUsesStart(t *testing.T) {
	r := &fakeRunner{}
	inv := setupInvoker(t, r, nil)
	_, err := inv.Output(context.Background(), CmdLaunch, Args{"name": "gedit"})
	require.NoError(t, err)
	require.Len(t, r.started, 1)
	assert.Equal(t, "gedit", r.started[0][len(r.started[0])-1])
	assert.Empty(t, r.Lines())
}

func TestNames_Sorted(t *testing.T) {
	inv := setupInvoker(t, &fakeRunner{}, nil)
	names := inv.Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	assert.True(t, inv.Supported(CmdMouseMove))
	assert.False(t, inv.Supported("nope"))
}

// --- quoting tests ---

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
	assert.Equal(t, `'$(rm -rf /)'`, ShellQuote("$(rm -rf /)"))
}

func TestPowerShellQuote(t *testing.T) {
	assert.Equal(t, `'it''s'`, PowerShellQuote("it's"))
}

func TestCmdQuote(t *testing.T) {
	assert.Equal(t, `"hello world"`, CmdQuote(`hello "world"`))
	assert.NotContains(t, CmdQuote("x & y | z > w"), "&")
}

func TestTailLines(t *testing.T) {
	assert.Equal(t, "c\nd", tailLines(2, "a\nb\nc\nd\n"))
	assert.Equal(t, "a", tailLines(5, "a"))
}

func TestKeyValue_Missing(t *testing.T) {
	assert.Equal(t, "?", keyValue("X", "nothing"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ğüş...", Truncate("ğüşiöç", 3, "..."))
	assert.Equal(t, "short", Truncate("short", 10, "..."))
}

// --- Controls tests ---

func setupControls(t *testing.T) (*Controls, *fakeRunner) {
	t.Helper()
	r := &fakeRunner{}
	c, err := NewControls(setupInvoker(t, r, nil))
	require.NoError(t, err)
	return c, r
}

func TestParseCoordinates(t *testing.T) {
	x, y, ok := ParseCoordinates("500,300")
	require.True(t, ok)
	assert.Equal(t, 500, x)
	assert.Equal(t, 300, y)

	x, y, ok = ParseCoordinates(" 12 , 7 ")
	require.True(t, ok)
	assert.Equal(t, []int{12, 7}, []int{x, y})

	for _, bad := range []string{"abc", "1,", ",2", "1;2", "-1,5", "1,2,3"} {
		_, _, ok := ParseCoordinates(bad)
		assert.False(t, ok, bad)
	}
}

func TestParsePercent(t *testing.T) {
	for in, want := range map[string]int{"0": 0, "55": 55, " 100 ": 100} {
		n, ok := ParsePercent(in)
		require.True(t, ok, in)
		assert.Equal(t, want, n)
	}
	for _, bad := range []string{"101", "-1", "x", ""} {
		_, ok := ParsePercent(bad)
		assert.False(t, ok, bad)
	}
}

func TestControls_MoveMouse(t *testing.T) {
	c, r := setupControls(t)
	got, err := c.MoveMouse(context.Background(), 500, 300)
	require.NoError(t, err)
	assert.Equal(t, "Fare 500,300 koordinatına taşındı.", got)
	assert.Equal(t, []string{"move 500 300"}, r.Lines())
}

func TestControls_ShutdownMessages(t *testing.T) {
	c, r := setupControls(t)
	got, err := c.Shutdown(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Bilgisayar hemen kapatılıyor...", got)

	got, err = c.Shutdown(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, "Bilgisayar 15 dakika sonra kapatılacak.", got)
	assert.Equal(t, []string{"shutdown 0", "shutdown 15"}, r.Lines())
}

func TestControls_VolumeAndBrightnessArgs(t *testing.T) {
	c, r := setupControls(t)
	_, err := c.SetVolume(context.Background(), 50)
	require.NoError(t, err)
	_, err = c.SetBrightness(context.Background(), 75)
	require.NoError(t, err)
	assert.Equal(t, []string{"vol 50 32767", "bright 0.75"}, r.Lines())
}

func TestControls_ClickAndScroll(t *testing.T) {
	c, r := setupControls(t)
	got, err := c.Click(context.Background(), ButtonRight)
	require.NoError(t, err)
	assert.Equal(t, "Sağ tıklama simüle edildi.", got)

	got, err = c.Scroll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Aşağı scroll yapıldı (3x).", got)
	assert.Equal(t, []string{"click 3", "scroll 5 3"}, r.Lines())

	_, err = c.Click(context.Background(), MouseButton("thumb"))
	assert.Error(t, err)
}

func TestSanitizeSpeech(t *testing.T) {
	got, err := SanitizeSpeech("Merhaba $(reboot) dünya!")
	require.NoError(t, err)
	assert.Equal(t, "Merhaba reboot dünya!", got)

	_, err = SanitizeSpeech("$$$")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	long, err := SanitizeSpeech(strings.Repeat("a", 900))
	require.NoError(t, err)
	assert.Len(t, long, MaxSpeechLength)
}

func TestControls_SayRejectsEmpty(t *testing.T) {
	c, r := setupControls(t)
	got, err := c.Say(context.Background(), "<<>>")
	require.NoError(t, err)
	assert.Equal(t, "Sesli uyarı başarısız: Geçersiz mesaj (güvenlik kontrolü)", got)
	assert.Empty(t, r.Lines())
}

func TestControls_SayPresetPicksKnownLine(t *testing.T) {
	c, r := setupControls(t)
	_, err := c.SayPreset(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, r.Lines(), 1)
	assert.Contains(t, r.Lines()[0], "Merhaba!")
}

func TestControls_OpenAppUnknown(t *testing.T) {
	c, _ := setupControls(t)
	_, err := c.OpenApp(context.Background(), "Winamp")
	assert.Error(t, err)
}
