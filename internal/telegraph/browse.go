package telegraph

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/zulandar/pcremote/internal/filebrowser"
	"github.com/zulandar/pcremote/internal/state"
)

var browseHint = "\n\n💡 Numara ile seçim yap\n💡 " +
	filebrowser.EscapeMarkdown("Geri ile menüye dön | Dosya Yükle ile dosya yükle")

// sendListing lists path, caches the listing and sends it with the browse
// keyboard. A failed listing leaves the cache untouched and reports why.
func (r *Router) sendListing(ctx context.Context, req *request, path string) (filebrowser.ListingResult, error) {
	res := r.svc.Browser.ListDirectory(path)
	if !res.Success {
		return res, r.reply(ctx, req, res.Message)
	}
	r.store.Update(req.principal(), func(st *state.ConversationState) {
		st.SetListing(res)
	})
	return res, r.send(ctx, req, OutboundMessage{
		Text:      res.Message + browseHint,
		ParseMode: ParseMarkdownV2,
		Keyboard:  browseKeyboard,
	})
}

// awaitFileBrowse handles navigation inside a listing. While the upload
// overlay is on it defers so the upload branch sees the text.
func (r *Router) awaitFileBrowse(ctx context.Context, req *request) (bool, error) {
	if req.st.Awaiting(state.AwaitFileUpload) {
		return false, nil
	}
	switch req.text {
	case LabelBack, LabelCancel:
		r.store.Update(req.principal(), func(st *state.ConversationState) {
			st.Await = state.AwaitNone
			st.UploadTarget = ""
			st.ClearListing()
		})
		return true, r.replyMenu(ctx, req, fileMenu)
	case LabelUpload:
		target := req.st.CurrentPath
		r.store.EnterUpload(req.principal(), target)
		return true, r.send(ctx, req, OutboundMessage{
			Text:      fmt.Sprintf("*Dosya Yükleme Modu*\n\nHedef klasör: `%s`\n\n💡 Dosya, fotoğraf veya video gönder\nİptal ile vazgeç", target),
			ParseMode: ParseMarkdown,
			Keyboard:  uploadKeyboard,
		})
	}

	for _, root := range r.svc.Browser.QuickAccessRoots() {
		if root.Label == req.text {
			_, err := r.sendListing(ctx, req, root.Path)
			return true, err
		}
	}

	n, err := strconv.Atoi(req.text)
	if err != nil {
		return true, r.reply(ctx, req, `❌ Geçersiz giriş! Lütfen bir numara girin veya "Geri" yazın.`)
	}
	sel := filebrowser.ResolveSelection(n, req.st.CurrentFolders, req.st.CurrentFiles)
	switch {
	case !sel.Found:
		return true, r.reply(ctx, req, "❌ Geçersiz numara!")
	case sel.IsParent():
		parent, ok := r.svc.Browser.Parent(req.st.CurrentPath)
		if !ok {
			return true, r.reply(ctx, req, "❌ Geçersiz numara!")
		}
		_, err := r.sendListing(ctx, req, parent)
		return true, err
	case sel.Entry.Type == filebrowser.TypeFolder:
		_, err := r.sendListing(ctx, req, sel.Entry.Path)
		return true, err
	}

	entry := sel.Entry
	r.store.Update(req.principal(), func(st *state.ConversationState) {
		st.SelectedFile = &entry
		st.Await = state.AwaitFileAction
	})
	return true, r.send(ctx, req, OutboundMessage{
		Text:      fmt.Sprintf("*Seçildi:* %s\n\nNe yapalım?", entry.Name),
		ParseMode: ParseMarkdown,
		Keyboard:  fileActionKeyboard,
	})
}

// awaitQuickFolder consumes the quick-access pick. Unknown labels are
// swallowed so the picker stays up.
func (r *Router) awaitQuickFolder(ctx context.Context, req *request) (bool, error) {
	if req.text == LabelBack {
		r.store.Update(req.principal(), func(st *state.ConversationState) {
			st.Await = state.AwaitNone
			st.QuickFolders = nil
		})
		return true, r.replyMenu(ctx, req, fileMenu)
	}
	path, ok := req.st.QuickFolder(req.text)
	if !ok {
		return true, nil
	}
	res, err := r.sendListing(ctx, req, path)
	if res.Success {
		r.store.Update(req.principal(), func(st *state.ConversationState) {
			st.Await = state.AwaitFileBrowse
			st.QuickFolders = nil
		})
	}
	return true, err
}

// awaitFileUpload only accepts the cancel label while a file is expected.
func (r *Router) awaitFileUpload(ctx context.Context, req *request) (bool, error) {
	if req.text != LabelCancel {
		return true, r.reply(ctx, req, "⚠️ Lütfen dosya gönder veya İptal ile vazgeç")
	}
	r.store.ClearAwaiting(req.principal(), state.AwaitFileUpload)
	return true, r.relist(ctx, req)
}

// relist re-sends the listing being browsed, or the file menu when there
// is none.
func (r *Router) relist(ctx context.Context, req *request) error {
	if req.st.CurrentPath == "" {
		return r.replyMenu(ctx, req, fileMenu)
	}
	_, err := r.sendListing(ctx, req, req.st.CurrentPath)
	return err
}

func (r *Router) awaitFileAction(ctx context.Context, req *request) (bool, error) {
	selected := req.st.SelectedFile
	done := func() {
		r.store.Update(req.principal(), func(st *state.ConversationState) {
			if st.Await == state.AwaitFileAction {
				st.Await = state.AwaitNone
			}
			st.SelectedFile = nil
		})
	}

	var err error
	switch req.text {
	case "Gönder":
		done()
		if selected != nil {
			err = r.sendSelected(ctx, req, selected.Path)
		}
	case "Bilgi":
		done()
		if selected != nil {
			var info string
			if info, err = r.svc.Browser.Info(selected.Path); err == nil {
				err = r.replyMarkdown(ctx, req, info)
			}
		}
	case "Sil":
		done()
		if selected != nil {
			var out string
			if out, err = r.svc.Browser.Delete(selected.Path); err == nil {
				err = r.reply(ctx, req, out)
			}
		}
	case LabelCancel:
		done()
	default:
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return true, r.replyMenu(ctx, req, fileMenu)
}

func (r *Router) sendSelected(ctx context.Context, req *request, path string) error {
	safe, _, err := r.svc.Browser.SendCheck(path)
	if errors.Is(err, filebrowser.ErrTooLarge) {
		return r.replyMarkdown(ctx, req, safe)
	}
	if err != nil {
		return err
	}
	if err := r.sendFile(ctx, req, safe, FileDocument, ""); err != nil {
		return r.reply(ctx, req, "Dosya gönderilemedi: "+err.Error())
	}
	return r.reply(ctx, req, "Dosya gönderildi: "+filepath.Base(safe))
}

func (r *Router) awaitFileSearch(ctx context.Context, req *request) (bool, error) {
	r.store.ClearAwaiting(req.principal(), state.AwaitFileSearch)
	dir := req.st.CurrentPath
	if dir == "" {
		dir = r.searchRoot
	}
	out, err := r.svc.Browser.Search(ctx, dir, req.text)
	if err != nil {
		return true, err
	}
	if err := r.send(ctx, req, OutboundMessage{Text: out, ParseMode: ParseMarkdownV2}); err != nil {
		return true, err
	}
	return true, r.replyMenu(ctx, req, fileMenu)
}

// --- file menu entries ---

func (r *Router) openQuickFolders(ctx context.Context, req *request) error {
	roots := r.svc.Browser.QuickAccessRoots()
	r.store.Arm(req.principal(), state.AwaitQuickFolder)
	r.store.Update(req.principal(), func(st *state.ConversationState) {
		st.QuickFolders = roots
	})
	return r.replyMenu(ctx, req, QuickFoldersMenu(roots))
}

func (r *Router) recentFiles(ctx context.Context, req *request) error {
	res := r.svc.Browser.RecentFiles(0)
	if !res.Success {
		return r.reply(ctx, req, res.Message)
	}
	return r.send(ctx, req, OutboundMessage{Text: res.Message, ParseMode: ParseMarkdownV2})
}
