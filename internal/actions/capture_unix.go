//go:build !windows

package actions

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
)

func defaultWebcamDevice() string {
	if runtime.GOOS == "darwin" {
		return "0"
	}
	return "/dev/video0"
}

func listDisplays(ctx context.Context, r Runner) ([]Display, error) {
	if runtime.GOOS == "darwin" {
		return nil, nil
	}
	res, err := r.Run(ctx, "xrandr", "--query")
	if err != nil {
		return nil, fmt.Errorf("actions: xrandr: %w", err)
	}
	return ParseXrandr(res.Stdout), nil
}

// screenInput returns the ffmpeg input args grabbing d, or the whole
// desktop when d is nil.
func screenInput(d *Display, framerate int) []string {
	fps := strconv.Itoa(framerate)
	if runtime.GOOS == "darwin" {
		return []string{"-f", "avfoundation", "-capture_cursor", "1", "-framerate", fps, "-i", "1:none"}
	}
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0"
	}
	args := []string{"-f", "x11grab", "-framerate", fps}
	if d != nil {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", d.Width, d.Height))
		display = fmt.Sprintf("%s+%d,%d", display, d.X, d.Y)
	}
	return append(args, "-i", display)
}

func webcamInput(device, framerate string) []string {
	if runtime.GOOS == "darwin" {
		args := []string{"-f", "avfoundation"}
		if framerate != "" {
			args = append(args, "-framerate", framerate)
		}
		return append(args, "-i", device+":none")
	}
	args := []string{"-f", "v4l2"}
	if framerate != "" {
		args = append(args, "-framerate", framerate)
	}
	return append(args, "-i", device)
}
