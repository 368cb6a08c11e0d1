package actions

import (
	"context"
	"fmt"
	"strconv"
)

const screenListScript = `Add-Type -AssemblyName System.Windows.Forms; ` +
	`[System.Windows.Forms.Screen]::AllScreens | ForEach-Object { ` +
	`"$($_.Primary) $($_.Bounds.Width) $($_.Bounds.Height) $($_.Bounds.X) $($_.Bounds.Y)" }`

func defaultWebcamDevice() string {
	return "Integrated Camera"
}

func listDisplays(ctx context.Context, r Runner) ([]Display, error) {
	res, err := r.Run(ctx, "powershell", "-NoProfile", "-Command", screenListScript)
	if err != nil {
		return nil, fmt.Errorf("actions: screen list: %w", err)
	}
	return ParseScreenList(res.Stdout), nil
}

func screenInput(d *Display, framerate int) []string {
	args := []string{"-f", "gdigrab", "-framerate", strconv.Itoa(framerate)}
	if d != nil {
		args = append(args,
			"-offset_x", strconv.Itoa(d.X),
			"-offset_y", strconv.Itoa(d.Y),
			"-video_size", fmt.Sprintf("%dx%d", d.Width, d.Height))
	}
	return append(args, "-draw_mouse", "1", "-i", "desktop")
}

func webcamInput(device, framerate string) []string {
	args := []string{"-f", "dshow"}
	if framerate != "" {
		args = append(args, "-framerate", framerate)
	}
	return append(args, "-i", "video="+device)
}
