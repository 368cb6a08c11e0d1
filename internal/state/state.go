// Package state holds the per-principal conversation state that drives
// multi-step chat flows ("send me a value, then I act on it").
package state

import (
	"time"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/filebrowser"
)

// AwaitKind names the input a principal is expected to send next. The
// declaration order is the interception priority used by the router.
type AwaitKind int

const (
	AwaitNone AwaitKind = iota
	AwaitShutdownTime
	AwaitCommand
	AwaitProgramName
	AwaitProgramKill
	AwaitClipboardText
	AwaitVoiceMessage
	AwaitWebsiteBlock
	AwaitWebsiteUnblock
	AwaitMouseMove
	AwaitTypeText
	AwaitClipboardSelect
	AwaitScreenshotDisplay
	AwaitRecordingDisplay
	AwaitBrightness
	AwaitNotificationMessage
	AwaitCustomNotification
	AwaitCustomVolume
	AwaitScheduledTask
	AwaitRecurringTask
	AwaitTaskDelete
	AwaitFileBrowse
	AwaitQuickFolder
	// AwaitFileUpload is never the primary await. It reports the upload
	// overlay, which can only be active on top of AwaitFileBrowse.
	AwaitFileUpload
	AwaitFileAction
	AwaitFileSearch
)

var awaitNames = map[AwaitKind]string{
	AwaitNone:                "none",
	AwaitShutdownTime:        "shutdown-time",
	AwaitCommand:             "command",
	AwaitProgramName:         "program-name",
	AwaitProgramKill:         "program-kill",
	AwaitClipboardText:       "clipboard-text",
	AwaitVoiceMessage:        "voice-message",
	AwaitWebsiteBlock:        "website-block",
	AwaitWebsiteUnblock:      "website-unblock",
	AwaitMouseMove:           "mouse-move",
	AwaitTypeText:            "type-text",
	AwaitClipboardSelect:     "clipboard-select",
	AwaitScreenshotDisplay:   "screenshot-display",
	AwaitRecordingDisplay:    "recording-display",
	AwaitBrightness:          "brightness",
	AwaitNotificationMessage: "notification-message",
	AwaitCustomNotification:  "custom-notification",
	AwaitCustomVolume:        "custom-volume",
	AwaitScheduledTask:       "scheduled-task",
	AwaitRecurringTask:       "recurring-task",
	AwaitTaskDelete:          "task-delete",
	AwaitFileBrowse:          "file-browse",
	AwaitQuickFolder:         "quick-folder",
	AwaitFileUpload:          "file-upload",
	AwaitFileAction:          "file-action",
	AwaitFileSearch:          "file-search",
}

func (k AwaitKind) String() string {
	if name, ok := awaitNames[k]; ok {
		return name
	}
	return "unknown"
}

// DefaultRecordingDuration is used when a recording display is picked but
// no duration was stored with the prompt.
const DefaultRecordingDuration = 30

// ConversationState is the mutable record kept for one principal.
type ConversationState struct {
	Principal string

	// IsLocked mirrors the outcome of the last lock/unlock action. The
	// router only displays it.
	IsLocked bool

	// Await is the primary awaited input. At most one is active.
	Await AwaitKind

	// UploadTarget is the upload overlay. Non-empty means upload mode is on
	// and inbound files land in this folder.
	UploadTarget string

	// NotificationTitle holds step one of the two-step custom notification.
	NotificationTitle string

	// Browse listing.
	CurrentPath    string
	CurrentFolders []filebrowser.Entry
	CurrentFiles   []filebrowser.Entry
	SelectedFile   *filebrowser.Entry
	QuickFolders   []filebrowser.Root

	// Display capture prompt context.
	Displays          []actions.Display
	RecordingDuration int

	LastActivity time.Time
	CreatedAt    time.Time
}

// Awaiting reports whether the given input is currently expected.
func (s *ConversationState) Awaiting(kind AwaitKind) bool {
	if kind == AwaitFileUpload {
		return s.UploadTarget != ""
	}
	return s.Await == kind
}

// AwaitingAny reports whether any input is expected, overlay included.
func (s *ConversationState) AwaitingAny() bool {
	return s.Await != AwaitNone || s.UploadTarget != ""
}

// QuickFolder looks up a quick-access label cached with the prompt.
func (s *ConversationState) QuickFolder(label string) (string, bool) {
	for _, r := range s.QuickFolders {
		if r.Label == label {
			return r.Path, true
		}
	}
	return "", false
}

// SetListing replaces the cached browse listing.
func (s *ConversationState) SetListing(res filebrowser.ListingResult) {
	s.CurrentPath = res.CurrentPath
	s.CurrentFolders = res.Folders
	s.CurrentFiles = res.Files
}

// ClearListing drops the cached browse listing and path.
func (s *ConversationState) ClearListing() {
	s.CurrentPath = ""
	s.CurrentFolders = nil
	s.CurrentFiles = nil
}

// RecordingSeconds returns the stored recording duration or the default.
func (s *ConversationState) RecordingSeconds() int {
	if s.RecordingDuration <= 0 {
		return DefaultRecordingDuration
	}
	return s.RecordingDuration
}

func (s *ConversationState) clearAwaiting(kind AwaitKind) {
	switch kind {
	case AwaitFileUpload:
		s.UploadTarget = ""
	case AwaitCustomNotification:
		if s.Await == kind {
			s.Await = AwaitNone
		}
		s.NotificationTitle = ""
	default:
		if s.Await == kind {
			s.Await = AwaitNone
		}
		// The overlay cannot outlive the browse await it sits on.
		if kind == AwaitFileBrowse {
			s.UploadTarget = ""
		}
	}
}

func (s *ConversationState) clearAll() {
	s.Await = AwaitNone
	s.UploadTarget = ""
	s.NotificationTitle = ""
}
