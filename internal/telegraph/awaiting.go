package telegraph

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/state"
)

// notifyTitle is the desktop notification title for one-step notifications.
const notifyTitle = "PC Remote"

// branch consumes text while its input is awaited. handled=false with a nil
// error lets routing continue with the next branch and then the menus.
type branch struct {
	kind   state.AwaitKind
	handle func(ctx context.Context, req *request) (handled bool, err error)
}

// awaitBranches lists the awaited-input handlers in interception priority.
func (r *Router) awaitBranches() []branch {
	return []branch{
		{state.AwaitShutdownTime, r.awaitShutdownTime},
		{state.AwaitCommand, r.consume(state.AwaitCommand, ParseMarkdown, r.runCommand)},
		{state.AwaitProgramName, r.consume(state.AwaitProgramName, ParsePlain, r.launchProgram)},
		{state.AwaitProgramKill, r.consume(state.AwaitProgramKill, ParsePlain, r.killProgram)},
		{state.AwaitClipboardText, r.consume(state.AwaitClipboardText, ParsePlain, r.writeClipboard)},
		{state.AwaitVoiceMessage, r.consume(state.AwaitVoiceMessage, ParsePlain, r.svc.Controls.Say)},
		{state.AwaitWebsiteBlock, r.consume(state.AwaitWebsiteBlock, ParsePlain, r.blockSite)},
		{state.AwaitWebsiteUnblock, r.consume(state.AwaitWebsiteUnblock, ParsePlain, r.unblockSite)},
		{state.AwaitMouseMove, r.awaitMouseMove},
		{state.AwaitTypeText, r.consume(state.AwaitTypeText, ParsePlain, r.svc.Controls.TypeText)},
		{state.AwaitClipboardSelect, r.awaitClipboardSelect},
		{state.AwaitScreenshotDisplay, r.awaitScreenshotDisplay},
		{state.AwaitRecordingDisplay, r.awaitRecordingDisplay},
		{state.AwaitBrightness, r.awaitPercent(state.AwaitBrightness, r.svc.Controls.SetBrightness)},
		{state.AwaitNotificationMessage, r.consume(state.AwaitNotificationMessage, ParsePlain, r.notify)},
		{state.AwaitCustomNotification, r.awaitCustomNotification},
		{state.AwaitCustomVolume, r.awaitPercent(state.AwaitCustomVolume, r.svc.Controls.SetVolume)},
		{state.AwaitScheduledTask, r.awaitScheduledTask},
		{state.AwaitRecurringTask, r.awaitRecurringTask},
		{state.AwaitTaskDelete, r.awaitTaskDelete},
		{state.AwaitFileBrowse, r.awaitFileBrowse},
		{state.AwaitQuickFolder, r.awaitQuickFolder},
		{state.AwaitFileUpload, r.awaitFileUpload},
		{state.AwaitFileAction, r.awaitFileAction},
		{state.AwaitFileSearch, r.awaitFileSearch},
	}
}

// consume builds the common one-shot branch: clear the await, pass the
// text to fn and reply with its result.
func (r *Router) consume(kind state.AwaitKind, mode ParseMode, fn func(ctx context.Context, text string) (string, error)) func(context.Context, *request) (bool, error) {
	return func(ctx context.Context, req *request) (bool, error) {
		r.store.ClearAwaiting(req.principal(), kind)
		out, err := fn(ctx, req.text)
		if err != nil {
			return true, err
		}
		return true, r.send(ctx, req, OutboundMessage{Text: out, ParseMode: mode})
	}
}

func (r *Router) awaitShutdownTime(ctx context.Context, req *request) (bool, error) {
	minutes, err := strconv.Atoi(req.text)
	if err != nil || minutes <= 0 {
		return false, nil
	}
	r.store.ClearAwaiting(req.principal(), state.AwaitShutdownTime)
	out, err := r.svc.Controls.Shutdown(ctx, minutes)
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

func (r *Router) awaitMouseMove(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitMouseMove)
	x, y, ok := actions.ParseCoordinates(req.text)
	if !ok {
		return true, r.reply(ctx, req, "Geçersiz format! Örnek: 500,300")
	}
	out, err := r.svc.Controls.MoveMouse(ctx, x, y)
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

// awaitClipboardSelect falls through on non-numeric input so menu labels
// still work; the await is cleared either way.
func (r *Router) awaitClipboardSelect(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitClipboardSelect)
	idx, err := strconv.Atoi(req.text)
	if err != nil {
		return false, nil
	}
	if r.svc.Clipboard == nil {
		return true, errUnavailable
	}
	out, err := r.svc.Clipboard.Select(ctx, idx)
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

func (r *Router) awaitPercent(kind state.AwaitKind, set func(ctx context.Context, level int) (string, error)) func(context.Context, *request) (bool, error) {
	return func(ctx context.Context, req *request) (bool, error) {
		r.store.ClearAwaiting(req.principal(), kind)
		level, ok := actions.ParsePercent(req.text)
		if !ok {
			return true, r.reply(ctx, req, "Geçersiz değer! 0-100 arası bir sayı girin.")
		}
		out, err := set(ctx, level)
		if err != nil {
			return true, err
		}
		return true, r.reply(ctx, req, out)
	}
}

// awaitCustomNotification takes the title first and the body second.
func (r *Router) awaitCustomNotification(ctx context.Context, req *request) (bool, error) {
	title := req.st.NotificationTitle
	if title == "" {
		r.store.Update(req.principal(), func(st *state.ConversationState) {
			st.NotificationTitle = req.text
		})
		return true, r.reply(ctx, req, "Şimdi bildirim mesajını yazın:")
	}
	r.store.ClearAwaiting(req.principal(), state.AwaitCustomNotification)
	out, err := r.svc.Controls.Notify(ctx, title, req.text)
	if err != nil {
		return true, err
	}
	return true, r.replyMarkdown(ctx, req, out)
}

// --- display pickers ---

func (r *Router) clearDisplayPrompt(req *request, kind state.AwaitKind) {
	r.store.Update(req.principal(), func(st *state.ConversationState) {
		if st.Await == kind {
			st.Await = state.AwaitNone
		}
		st.Displays = nil
		st.RecordingDuration = 0
	})
}

// awaitScreenshotDisplay falls through on labels that name no display, so
// "Geri" still reaches the menus.
func (r *Router) awaitScreenshotDisplay(ctx context.Context, req *request) (bool, error) {
	if r.svc.Capture == nil {
		return true, errUnavailable
	}
	if req.text == actions.AllDisplaysLabel {
		if err := r.reply(ctx, req, "Tüm ekranların görüntüsü alınıyor..."); err != nil {
			return true, err
		}
		shots, err := r.svc.Capture.ScreenshotAll(ctx)
		if err != nil {
			return true, err
		}
		for _, shot := range shots {
			err := r.sendFile(ctx, req, shot.Path, FilePhoto, shot.Display.Caption())
			removeQuiet(shot.Path)
			if err != nil {
				return true, err
			}
		}
		r.clearDisplayPrompt(req, state.AwaitScreenshotDisplay)
		return true, r.replyMenu(ctx, req, screenMenu)
	}

	d, ok := actions.FindDisplay(req.st.Displays, req.text)
	if !ok {
		return false, nil
	}
	if err := r.reply(ctx, req, d.Name+" ekran görüntüsü alınıyor..."); err != nil {
		return true, err
	}
	path, err := r.svc.Capture.Screenshot(ctx, &d)
	if err != nil {
		return true, err
	}
	err = r.sendFile(ctx, req, path, FilePhoto, d.Caption())
	removeQuiet(path)
	if err != nil {
		return true, err
	}
	r.clearDisplayPrompt(req, state.AwaitScreenshotDisplay)
	return true, r.replyMenu(ctx, req, screenMenu)
}

func (r *Router) awaitRecordingDisplay(ctx context.Context, req *request) (bool, error) {
	if r.svc.Capture == nil {
		return true, errUnavailable
	}
	seconds := req.st.RecordingSeconds()
	var target *actions.Display
	var start string
	if req.text == actions.AllDisplaysLabel {
		start = fmt.Sprintf("Tüm ekranların %d saniyelik kaydı başlatılıyor...", seconds)
	} else {
		d, ok := actions.FindDisplay(req.st.Displays, req.text)
		if !ok {
			return false, nil
		}
		target = &d
		start = fmt.Sprintf("%s ekranının %d saniyelik kaydı başlatılıyor...", d.Name, seconds)
	}
	if err := r.reply(ctx, req, start); err != nil {
		return true, err
	}
	if err := r.svc.Capture.StartRecording(seconds, target, r.deliverRecording(ctx, req)); err != nil {
		return true, err
	}
	if err := r.reply(ctx, req, fmt.Sprintf("Kayıt başlatıldı. %d saniye sonra video gönderilecek.", seconds)); err != nil {
		return true, err
	}
	r.clearDisplayPrompt(req, state.AwaitRecordingDisplay)
	return true, r.replyMenu(ctx, req, screenMenu)
}

// deliverRecording returns the callback that ships a finished recording.
// It runs after the request is done, so it must not use the request's
// cancellation.
func (r *Router) deliverRecording(ctx context.Context, req *request) func(actions.Recording) {
	ctx = context.WithoutCancel(ctx)
	limit := r.svc.Capture.SendLimit()
	return func(rec actions.Recording) {
		defer removeQuiet(rec.Path)
		var err error
		switch {
		case rec.Err != nil:
			err = r.reply(ctx, req, rec.Message(limit))
		case rec.TooLarge:
			err = r.replyMarkdown(ctx, req, rec.Message(limit))
		default:
			err = r.sendFile(ctx, req, rec.Path, FileVideo, rec.Caption())
		}
		if err != nil {
			logger.Error("deliver recording", "source", rec.Source, "err", err)
		}
	}
}

// --- automation ---

func (r *Router) awaitScheduledTask(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitScheduledTask)
	if r.svc.Automation == nil {
		return true, errUnavailable
	}
	command, minutes, ok := actions.ParseTaskInput(req.text)
	if !ok {
		return true, r.replyMarkdown(ctx, req, "Geçersiz format! Örnek: `shutdown /s /t 0|30`")
	}
	out, err := r.svc.Automation.AddOnce(ctx, command, minutes)
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

// awaitRecurringTask accepts "cmd|minutes" or "cmd|<cron expression>".
func (r *Router) awaitRecurringTask(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitRecurringTask)
	if r.svc.Automation == nil {
		return true, errUnavailable
	}
	var out string
	var err error
	if command, interval, ok := actions.ParseTaskInput(req.text); ok {
		out, err = r.svc.Automation.AddRecurring(ctx, command, interval)
	} else if command, spec, ok := strings.Cut(req.text, "|"); ok && strings.Count(spec, " ") >= 4 {
		out, err = r.svc.Automation.AddCron(ctx, strings.TrimSpace(command), spec)
	} else {
		return true, r.replyMarkdown(ctx, req, "Geçersiz format! Örnek: `echo test|10`")
	}
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

func (r *Router) awaitTaskDelete(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitTaskDelete)
	if r.svc.Automation == nil {
		return true, errUnavailable
	}
	id, err := strconv.ParseUint(req.text, 10, 64)
	if err != nil {
		return true, r.reply(ctx, req, "Geçersiz görev ID'si!")
	}
	out, err := r.svc.Automation.Remove(ctx, uint(id))
	if err != nil {
		return true, err
	}
	return true, r.reply(ctx, req, out)
}

// --- optional service adapters for consume ---

func (r *Router) runCommand(ctx context.Context, text string) (string, error) {
	if r.svc.Programs == nil {
		return "", errUnavailable
	}
	return r.svc.Programs.RunCommand(ctx, text)
}

func (r *Router) launchProgram(ctx context.Context, text string) (string, error) {
	if r.svc.Programs == nil {
		return "", errUnavailable
	}
	return r.svc.Programs.Launch(ctx, text)
}

func (r *Router) killProgram(ctx context.Context, text string) (string, error) {
	if r.svc.Programs == nil {
		return "", errUnavailable
	}
	return r.svc.Programs.Kill(ctx, text)
}

func (r *Router) writeClipboard(ctx context.Context, text string) (string, error) {
	if r.svc.Clipboard == nil {
		return "", errUnavailable
	}
	return r.svc.Clipboard.Write(ctx, text)
}

func (r *Router) blockSite(ctx context.Context, text string) (string, error) {
	if r.svc.Sites == nil {
		return "", errUnavailable
	}
	return r.svc.Sites.Block(ctx, text)
}

func (r *Router) unblockSite(ctx context.Context, text string) (string, error) {
	if r.svc.Sites == nil {
		return "", errUnavailable
	}
	return r.svc.Sites.Unblock(ctx, text)
}

func (r *Router) notify(ctx context.Context, text string) (string, error) {
	return r.svc.Controls.Notify(ctx, notifyTitle, text)
}

func removeQuiet(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove temp file", "path", path, "err", err)
	}
}
