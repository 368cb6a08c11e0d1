package telegraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zulandar/pcremote/internal/filebrowser"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/state"
)

// handleUpload stores an inbound attachment. Files land in the upload
// overlay's folder when it is on, and in the download folder otherwise.
// Unauthorized senders are ignored without a reply.
func (r *Router) handleUpload(ctx context.Context, msg InboundMessage) {
	if !r.authorized(msg) {
		fmt.Fprintf(r.out, "telegraph: router: upload from unauthorized user %s ignored\n", msg.UserID)
		logger.Warn("unauthorized upload ignored", "user", msg.UserID)
		return
	}
	if r.isStale(msg) {
		fmt.Fprintf(r.out, "telegraph: router: → stale upload, dropped\n")
		r.metrics.routed("stale")
		return
	}
	r.metrics.routed("upload")

	req := &request{msg: msg, st: r.store.GetOrCreate(msg.UserID)}
	r.store.Update(msg.UserID, func(*state.ConversationState) {})
	r.run(ctx, req, "upload:"+string(msg.Attachment.Kind), r.upload)
}

func (r *Router) upload(ctx context.Context, req *request) error {
	dl, ok := r.adapter.(FileDownloader)
	if !ok {
		return errUnavailable
	}
	att := *req.msg.Attachment
	uploading := req.st.Awaiting(state.AwaitFileUpload)
	dir := r.downloadDir
	if uploading {
		dir = req.st.UploadTarget
	}
	dir, err := r.svc.Browser.PrepareUploadDir(dir)
	if err != nil {
		return err
	}

	dest := filebrowser.UploadPath(dir, uploadName(att))
	fmt.Fprintf(r.out, "telegraph: router: download %s → %s\n", att.Kind, dest)
	n, err := dl.Download(ctx, att, dest)
	if err != nil {
		return r.reply(ctx, req, "Dosya indirilemedi: "+err.Error())
	}
	logger.Info("file received", "path", dest, "bytes", n)

	reply := fmt.Sprintf("*Dosya İndirildi*\n\nDosya: `%s`\nBoyut: %.2f KB\nKonum: `%s`",
		markdownCode(baseName(dest)), float64(n)/1024, markdownCode(dest))
	if err := r.replyMarkdown(ctx, req, reply); err != nil {
		return err
	}
	if !uploading {
		return nil
	}
	r.store.ClearAwaiting(req.principal(), state.AwaitFileUpload)
	return r.relist(ctx, req)
}

// uploadName picks the stored file name. Photos and videos often arrive
// without one.
func uploadName(att Attachment) string {
	if att.Name != "" {
		return att.Name
	}
	id := uuid.NewString()
	switch att.Kind {
	case FilePhoto:
		return "photo_" + id + ".jpg"
	case FileVideo:
		return "video_" + id + ".mp4"
	default:
		return "file_" + id
	}
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// markdownCode keeps a value inside a legacy-Markdown code span.
func markdownCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
