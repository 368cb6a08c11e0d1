package actions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/pcremote/internal/logger"
)

// Capture defaults.
const (
	DefaultRecordingSeconds = 30
	WebcamRecordingSeconds  = 10
	DefaultSendLimit        = 50 * 1024 * 1024
	screenshotTimeout       = 15 * time.Second
	// AllDisplaysLabel is the keyboard label that picks every display.
	AllDisplaysLabel = "🖥️ Tüm Ekranlar"
)

// Display is one attached monitor.
type Display struct {
	Index  int
	Name   string
	Main   bool
	Width  int
	Height int
	X      int
	Y      int
}

// Label is the keyboard button text for the display.
func (d Display) Label() string {
	return "📺 " + d.title()
}

func (d Display) title() string {
	if d.Main {
		return d.Name + " (Ana Ekran)"
	}
	return d.Name
}

// Caption describes a screenshot of the display.
func (d Display) Caption() string {
	return fmt.Sprintf("📸 %s\n📏 %dx%d", d.title(), d.Width, d.Height)
}

// FindDisplay returns the display whose Label is label.
func FindDisplay(displays []Display, label string) (Display, bool) {
	for _, d := range displays {
		if d.Label() == label {
			return d, true
		}
	}
	return Display{}, false
}

// Codec is one rung of the encoder ladder, tried in order until one works.
type Codec struct {
	Name      string   `yaml:"name"`
	Framerate int      `yaml:"framerate"`
	Args      []string `yaml:"args"`
}

// DefaultCodecs prefers hardware encoders and falls back to libx264.
func DefaultCodecs() []Codec {
	return []Codec{
		{Name: "NVIDIA GPU (NVENC)", Framerate: 60, Args: strings.Fields("-c:v h264_nvenc -preset p4 -tune hq -rc vbr -cq 19 -b:v 8M -maxrate 12M -pix_fmt yuv420p")},
		{Name: "AMD GPU (AMF)", Framerate: 60, Args: strings.Fields("-c:v h264_amf -quality quality -rc vbr_peak -qp_i 18 -qp_p 20 -b:v 8M -pix_fmt yuv420p")},
		{Name: "Intel QuickSync", Framerate: 60, Args: strings.Fields("-c:v h264_qsv -preset medium -global_quality 20 -b:v 8M -pix_fmt yuv420p")},
		{Name: "CPU High Quality", Framerate: 30, Args: strings.Fields("-c:v libx264 -preset medium -crf 18 -b:v 8M -maxrate 12M -bufsize 16M -pix_fmt yuv420p")},
		{Name: "CPU Fast (Fallback)", Framerate: 30, Args: strings.Fields("-c:v libx264 -preset veryfast -crf 23 -pix_fmt yuv420p")},
	}
}

// Recording is the outcome of a detached recording.
type Recording struct {
	Path     string
	Source   string // display title or "Webcam"
	Webcam   bool
	Seconds  int
	Size     int64
	Codec    string
	TooLarge bool
	Err      error
}

// Caption describes a delivered recording.
func (r Recording) Caption() string {
	mb := float64(r.Size) / (1024 * 1024)
	if r.Webcam {
		return fmt.Sprintf("📹 Webcam Kaydı\n⏱️ Süre: %ds\n💾 Boyut: %.2f MB\n⚡ Codec: %s", r.Seconds, mb, r.Codec)
	}
	return fmt.Sprintf("🎥 Ekran Kaydı\n📺 Ekran: %s\n⏱️ Süre: %ds\n💾 Boyut: %.2f MB\n⚡ Codec: %s", r.Source, r.Seconds, mb, r.Codec)
}

// Message is the text reply for a recording that could not be sent as a
// video: an oversize notice or the failure.
func (r Recording) Message(limit int64) string {
	if r.Err != nil {
		what := "Ekran kaydı"
		if r.Webcam {
			what = "Webcam kaydı"
		}
		return fmt.Sprintf("❌ %s oluşturulamadı\n\nHata: %s", what, r.Err.Error())
	}
	return fmt.Sprintf("*⚠️ Video Çok Büyük*\n\n📊 Boyut: %.2f MB\n⚡ Codec: %s\n📱 Telegram limiti: %.0f MB\n\n💡 Daha kısa süre deneyin veya dosyayı manuel gönderin:\n`%s`",
		float64(r.Size)/(1024*1024), r.Codec, float64(limit)/(1024*1024), r.Path)
}

// CaptureOpts configures a Capture.
type CaptureOpts struct {
	Runner       Runner
	FFmpeg       string // binary; defaults to "ffmpeg"
	OutputDir    string // defaults to a pcremote dir under the temp dir
	WebcamDevice string // platform default when empty
	Codecs       []Codec
	SendLimit    int64
}

// Capture takes screenshots, webcam photos and recordings through ffmpeg.
type Capture struct {
	runner    Runner
	ffmpeg    string
	outDir    string
	webcam    string
	codecs    []Codec
	sendLimit int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCapture creates a Capture.
func NewCapture(opts CaptureOpts) (*Capture, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("actions: capture: runner is required")
	}
	c := &Capture{
		runner:    opts.Runner,
		ffmpeg:    opts.FFmpeg,
		outDir:    opts.OutputDir,
		webcam:    opts.WebcamDevice,
		codecs:    opts.Codecs,
		sendLimit: opts.SendLimit,
	}
	if c.ffmpeg == "" {
		c.ffmpeg = "ffmpeg"
	}
	if c.outDir == "" {
		c.outDir = filepath.Join(os.TempDir(), "pcremote")
	}
	if c.webcam == "" {
		c.webcam = defaultWebcamDevice()
	}
	if len(c.codecs) == 0 {
		c.codecs = DefaultCodecs()
	}
	if c.sendLimit <= 0 {
		c.sendLimit = DefaultSendLimit
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// SendLimit is the largest file the transport accepts.
func (c *Capture) SendLimit() int64 { return c.sendLimit }

// Close cancels running recordings and waits for them to finish.
func (c *Capture) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Capture) outPath(prefix, ext string) (string, error) {
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("actions: capture: %w", err)
	}
	return filepath.Join(c.outDir, prefix+"_"+uuid.NewString()+ext), nil
}

// Displays lists attached monitors, main first and then left to right.
// When enumeration fails a single 1920x1080 main display is assumed.
func (c *Capture) Displays(ctx context.Context) []Display {
	displays, err := listDisplays(ctx, c.runner)
	if err != nil || len(displays) == 0 {
		if err != nil {
			logger.Debug("display enumeration failed", "err", err)
		}
		return []Display{{Index: 0, Name: "Ana Ekran", Main: true, Width: 1920, Height: 1080}}
	}
	return SortDisplays(displays)
}

// SortDisplays orders displays main first, then by X, and renumbers them.
func SortDisplays(displays []Display) []Display {
	out := append([]Display(nil), displays...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Main != out[j].Main {
			return out[i].Main
		}
		return out[i].X < out[j].X
	})
	for i := range out {
		out[i].Index = i
		out[i].Name = fmt.Sprintf("Ekran %d", i+1)
	}
	return out
}

var xrandrLine = regexp.MustCompile(`^(\S+) connected (primary )?(\d+)x(\d+)\+(-?\d+)\+(-?\d+)`)

// ParseXrandr reads connected outputs from `xrandr --query`.
func ParseXrandr(out string) []Display {
	var displays []Display
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := xrandrLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		d := Display{Name: m[1], Main: m[2] != ""}
		d.Width, _ = strconv.Atoi(m[3])
		d.Height, _ = strconv.Atoi(m[4])
		d.X, _ = strconv.Atoi(m[5])
		d.Y, _ = strconv.Atoi(m[6])
		displays = append(displays, d)
	}
	return displays
}

// ParseScreenList reads "primary width height x y" rows.
func ParseScreenList(out string) []Display {
	var displays []Display
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) != 5 {
			continue
		}
		nums := make([]int, 4)
		ok := true
		for i, s := range f[1:] {
			n, err := strconv.Atoi(s)
			if err != nil {
				ok = false
				break
			}
			nums[i] = n
		}
		if !ok {
			continue
		}
		displays = append(displays, Display{
			Main:  strings.EqualFold(f[0], "true"),
			Width: nums[0], Height: nums[1], X: nums[2], Y: nums[3],
		})
	}
	return displays
}

func (c *Capture) ffmpegRun(ctx context.Context, timeout time.Duration, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := c.runner.Run(ctx, c.ffmpeg, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	return err
}

// Screenshot grabs one frame of d, or of the whole desktop when d is nil.
// The caller removes the file after sending it.
func (c *Capture) Screenshot(ctx context.Context, d *Display) (string, error) {
	out, err := c.outPath("screenshot", ".png")
	if err != nil {
		return "", err
	}
	args := append(screenInput(d, 1), "-frames:v", "1", "-y", out)
	if err := c.ffmpegRun(ctx, screenshotTimeout, args...); err != nil {
		return "", fmt.Errorf("actions: screenshot: %w", err)
	}
	return out, nil
}

// Shot pairs a display with its screenshot file.
type Shot struct {
	Display Display
	Path    string
}

// ScreenshotAll grabs every display in turn. Displays that fail are
// skipped; an error is returned only when none succeeded.
func (c *Capture) ScreenshotAll(ctx context.Context) ([]Shot, error) {
	var shots []Shot
	var errs []error
	for _, d := range c.Displays(ctx) {
		d := d
		path, err := c.Screenshot(ctx, &d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		shots = append(shots, Shot{Display: d, Path: path})
	}
	if len(shots) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return shots, nil
}

// WebcamPhoto takes one webcam frame.
func (c *Capture) WebcamPhoto(ctx context.Context) (string, error) {
	out, err := c.outPath("webcam", ".jpg")
	if err != nil {
		return "", err
	}
	args := append(webcamInput(c.webcam, ""), "-frames:v", "1", "-y", out)
	if err := c.ffmpegRun(ctx, screenshotTimeout, args...); err != nil {
		return "", fmt.Errorf("actions: webcam photo: %w", err)
	}
	return out, nil
}

// StartRecording records the screen (d nil means every display) for
// seconds in the background and hands the result to deliver. It returns
// once the recording goroutine is started.
func (c *Capture) StartRecording(seconds int, d *Display, deliver func(Recording)) error {
	if seconds <= 0 {
		seconds = DefaultRecordingSeconds
	}
	out, err := c.outPath("recording", ".mp4")
	if err != nil {
		return err
	}
	source := "Tüm Ekranlar"
	if d != nil {
		source = d.title()
	}
	c.detach(func() {
		rec := Recording{Path: out, Source: source, Seconds: seconds}
		rec.Codec, rec.Err = c.encode(seconds, out, func(codec Codec) []string {
			return screenInput(d, codec.Framerate)
		})
		deliver(c.finish(rec))
	})
	return nil
}

// StartWebcamRecording records the webcam in the background.
func (c *Capture) StartWebcamRecording(seconds int, deliver func(Recording)) error {
	if seconds <= 0 {
		seconds = WebcamRecordingSeconds
	}
	out, err := c.outPath("webcam", ".mp4")
	if err != nil {
		return err
	}
	c.detach(func() {
		rec := Recording{Path: out, Source: "Webcam", Webcam: true, Seconds: seconds}
		rec.Codec, rec.Err = c.encode(seconds, out, func(Codec) []string {
			return webcamInput(c.webcam, "30")
		})
		deliver(c.finish(rec))
	})
	return nil
}

func (c *Capture) detach(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// encode walks the codec ladder and returns the first codec that produced
// the file.
func (c *Capture) encode(seconds int, out string, input func(Codec) []string) (string, error) {
	timeout := time.Duration(seconds+15) * time.Second
	var lastErr error
	for _, codec := range c.codecs {
		if c.ctx.Err() != nil {
			return "", c.ctx.Err()
		}
		args := append(input(codec), "-t", strconv.Itoa(seconds))
		args = append(args, codec.Args...)
		args = append(args, "-y", out)
		if err := c.ffmpegRun(c.ctx, timeout, args...); err != nil {
			logger.Debug("codec failed, trying next", "codec", codec.Name, "err", err)
			lastErr = err
			continue
		}
		return codec.Name, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no codecs configured")
	}
	return "", fmt.Errorf("Hiçbir codec çalışmadı: %w", lastErr)
}

func (c *Capture) finish(rec Recording) Recording {
	if rec.Err != nil {
		return rec
	}
	info, err := os.Stat(rec.Path)
	if err != nil {
		rec.Err = fmt.Errorf("kayıt dosyası oluşturulamadı: %w", err)
		return rec
	}
	rec.Size = info.Size()
	rec.TooLarge = rec.Size > c.sendLimit
	return rec
}
