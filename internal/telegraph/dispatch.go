package telegraph

import (
	"context"
	"fmt"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/state"
)

const (
	unsupportedCategoryText = "Bu özellik artık desteklenmiyor. Kategori ayarları .env dosyasından yönetilir."
	configReloadText        = "Bu özellik artık desteklenmiyor. .env dosyasını düzenleyin ve botu yeniden başlatın."
)

// menuHandlers maps every keyboard label to its action.
func (r *Router) menuHandlers() map[string]handler {
	sys := r.svc.System
	ctl := r.svc.Controls
	m := map[string]handler{
		// main menu
		"Sistem":       r.show(systemMenu),
		"Güç":          r.show(powerMenu),
		"Güvenlik":     r.show(securityMenu),
		"Disk":         r.show(diskMenu),
		"Ekran":        r.show(screenMenu),
		"Ses":          r.show(audioMenu),
		"Ağ":           r.show(networkMenu),
		"Dosya":        r.show(fileMenu),
		"Otomasyon":    r.show(automationMenu),
		"Performans":   r.show(performanceMenu),
		"Eğlence":      r.show(entertainmentMenu),
		"Bildirimler":  r.show(notificationMenu),
		"Ayarlar":      r.show(settingsMenu),
		"Mouse/Klavye": r.show(inputMenu),
		"Pano":         r.show(clipboardMenu),
		"Pano Menü":    r.show(clipboardMenu),
		"İzleme":       r.show(monitoringMenu),
		"Ses Menüsü":   r.showMain,
		LabelBack:      r.showMain,

		// system
		"Sistem Bilgisi":        r.markdown(sys.Info),
		"Sıcaklık":              r.markdown(sys.Temperature),
		"Çalışan Programlar":    r.markdown(sys.Processes),
		"Program Listesi (TXT)": r.processesFile,
		"CPU Kullanımı":         r.markdown(sys.CPU),
		"RAM Kullanımı":         r.markdown(sys.RAM),
		"Komut Çalıştır":        r.prompt(state.AwaitCommand, ParsePlain, "Lütfen çalıştırılacak komutu yazın:"),
		"Program Başlat":        r.prompt(state.AwaitProgramName, ParseMarkdown, launchPrompt),
		"Program Kapat":         r.prompt(state.AwaitProgramKill, ParseMarkdown, killPrompt),
		"Ekran Kapat":           r.do(actions.CmdDisplayOff),
		"Masaüstü Göster":       r.do(actions.CmdShowDesktop),

		// power
		"Kilitle":        r.setLock(actions.CmdLock, true),
		"Kilidi Aç":      r.setLock(actions.CmdUnlock, false),
		"Uyku Modu":      r.do(actions.CmdSleep),
		"Yeniden Başlat": r.do(actions.CmdReboot),
		"Kapat":          r.show(shutdownMenu),
		"Hemen Kapat":    r.shutdown(0),
		"1 Dakika":       r.shutdown(1),
		"5 Dakika":       r.shutdown(5),
		"15 Dakika":      r.shutdown(15),
		"30 Dakika":      r.shutdown(30),
		"1 Saat":         r.shutdown(60),
		"Özel Süre":      r.prompt(state.AwaitShutdownTime, ParsePlain, "Kapatma süresini dakika cinsinden yazın (örn: 45):"),

		// screen
		"Ekran Görüntüsü":    r.screenshot,
		"Ekran Kaydı":        r.record(30),
		"Ekran Kaydı (30sn)": r.record(30),
		"Ekran Kaydı (60sn)": r.record(60),
		"Webcam Fotoğraf":    r.webcamPhoto,
		"Webcam Video":       r.webcamVideo,

		// network
		"IP Bilgisi":         r.markdown(sys.IPInfo),
		"WiFi Bilgisi":       r.doMarkdown(actions.CmdWiFi),
		"Ağ Trafiği":         r.markdown(sys.Traffic),
		"Ağ Taraması":        r.notice("Ağ taranıyor...", ParsePlain, r.markdown(sys.ScanNetwork)),
		"Website Engelle":    r.prompt(state.AwaitWebsiteBlock, ParsePlain, "Engellenecek domain adını yazın (örn: facebook.com):"),
		"Engeli Kaldır":      r.prompt(state.AwaitWebsiteUnblock, ParsePlain, "Engeli kaldırılacak domain adını yazın:"),
		"Engellenen Siteler": r.blockedSites,

		// audio
		"Ses Aç":            r.do(actions.CmdUnmute),
		"Sessize Al":        r.do(actions.CmdMute),
		"Sesi Kapat":        r.do(actions.CmdMute),
		"Ses Yükselt":       r.do(actions.CmdVolumeUp),
		"Ses Azalt":         r.do(actions.CmdVolumeDown),
		"Ses %0":            r.volume(0),
		"Ses %50":           r.volume(50),
		"Ses %100":          r.volume(100),
		"Özel Ses Seviyesi": r.prompt(state.AwaitCustomVolume, ParseMarkdown, "*Özel Ses Seviyesi*\n\nİstediğiniz ses seviyesini girin (0-100):"),
		"Çalan Müzik":       r.doMarkdown(actions.CmdMediaStatus),
		"Ses Cihazları":     r.doMarkdown(actions.CmdAudioDevices),
		"Cihaz Listesi":     r.doMarkdown(actions.CmdAudioDevices),
		"Cihaz Değiştir":    r.do(actions.CmdAudioSwitch),
		"Sesli Komutlar":    r.show(voiceMenu),

		// voice
		"Merhaba De":              r.say("hello"),
		"Uyarı Ver":               r.say("warning"),
		"Şaka Yap":                r.say("joke"),
		"Korkut":                  r.say("scare"),
		"Bilgisayarı Kapatıyorum": r.say("shutdown"),
		"Hacker Uyarısı":          r.say("hacker"),
		"Motivasyon":              r.say("motivation"),
		"Tebrikler":               r.say("congrats"),
		"Özel Mesaj":              r.prompt(state.AwaitVoiceMessage, ParsePlain, "Söylememi istediğiniz metni yazın:"),

		// security
		"Güvenlik Kontrolü": r.doMarkdown(actions.CmdSecurityCheck),
		"Güvenlik Raporu":   r.doMarkdown(actions.CmdSecurityReport),
		"Antivirüs":         r.doMarkdown(actions.CmdAntivirus),
		"Güvenlik Duvarı":   r.doMarkdown(actions.CmdFirewall),
		"USB Cihazları":     r.doMarkdown(actions.CmdUSBDevices),

		// disk
		"Disk Kullanımı":  r.markdown(sys.Disk),
		"Disk Analizi":    r.notice(diskAnalysisNotice, ParseMarkdown, r.markdown(sys.AnalyzeDisk)),
		"Disk Temizliği":  r.notice("Disk temizliği başlatılıyor...", ParsePlain, r.doMarkdown(actions.CmdDiskClean)),
		"Geçici Dosyalar": r.notice("Disk temizliği başlatılıyor...", ParsePlain, r.doMarkdown(actions.CmdDiskClean)),

		// performance
		"Performans Grafiği": r.chart,
		"Sistem Sağlığı":     r.markdown(sys.Health),
		"Başlangıç":          r.doMarkdown(actions.CmdStartup),

		// automation
		"Zamanlanmış Görev": r.prompt(state.AwaitScheduledTask, ParseMarkdown, scheduledPrompt),
		"Tekrarlı Görev":    r.prompt(state.AwaitRecurringTask, ParseMarkdown, recurringPrompt),
		"Görev Listesi":     r.taskList,
		"Görev Sil":         r.prompt(state.AwaitTaskDelete, ParsePlain, "Silmek istediğiniz görev ID'sini yazın:"),
		"Cron Yardım":       r.markdown(func(context.Context) (string, error) { return actions.CronHelp(), nil }),

		// files
		"Gözat":             r.openQuickFolders,
		"Son Kullanılanlar": r.recentFiles,
		"Son Dosyalar":      r.recentFiles,
		"Dosya Ara":         r.prompt(state.AwaitFileSearch, ParsePlain, "Aramak istediğin dosya adını yaz (örnek: *.pdf veya rapor*)"),

		// activity
		"Aktivite":        r.activity(ParseMarkdown, (*actions.Activity).Report),
		"Aktivite Raporu": r.activity(ParseMarkdown, (*actions.Activity).Report),
		"İzlemeyi Başlat": r.activity(ParsePlain, (*actions.Activity).Start),
		"İzlemeyi Durdur": r.activity(ParsePlain, (*actions.Activity).Stop),

		// entertainment
		"Netflix Aç":     r.openApp("Netflix"),
		"Spotify Aç":     r.openApp("Spotify"),
		"Steam Aç":       r.openApp("Steam"),
		"Discord Aç":     r.openApp("Discord"),
		"Medya Oynat":    r.do(actions.CmdMediaPlay),
		"Medya Duraklat": r.do(actions.CmdMediaPlay),
		"Sonraki":        r.do(actions.CmdMediaNext),
		"Önceki":         r.do(actions.CmdMediaPrevious),

		// notifications
		"Bildirimleri Göster":  r.doMarkdown(actions.CmdNotifyList),
		"Test Bildirimi":       r.do(actions.CmdNotifyTest),
		"Özel Bildirim Gönder": r.customNotification,
		"Bildirim Gönder":      r.prompt(state.AwaitNotificationMessage, ParseMarkdown, "*Bildirim Gönder*\n\nGöndermek istediğiniz bildirimi yazın:"),

		// settings
		"Tüm Ayarlar":   r.rendered(r.settings),
		"Bot Bilgisi":   r.rendered(r.botInfo),
		"Tümünü Aç":     r.fixed(unsupportedCategoryText),
		"Tümünü Kapat":  r.fixed(unsupportedCategoryText),
		"Config Yenile": r.fixed(configReloadText),

		// input
		"Mouse Taşı":       r.prompt(state.AwaitMouseMove, ParsePlain, "Fareyi taşımak için koordinatları girin (x,y):\n\nÖrnek: 500,300"),
		"Mouse Tıkla":      r.show(mouseClickMenu),
		"Sol Tık":          r.click(actions.ButtonLeft),
		"Sağ Tık":          r.click(actions.ButtonRight),
		"Orta Tık":         r.click(actions.ButtonMiddle),
		"Çift Tık":         r.do(actions.CmdDoubleClick),
		"Scroll":           r.show(scrollMenu),
		"Yukarı Scroll":    r.scroll(true),
		"Aşağı Scroll":     r.scroll(false),
		"Mouse Konum":      r.doMarkdown(actions.CmdMousePosition),
		"Metin Yaz":        r.prompt(state.AwaitTypeText, ParsePlain, "Yazmak istediğiniz metni girin:"),
		"Tuş Bas":          r.show(keyMenu),
		"Tuş Kombinasyonu": r.show(comboMenu),

		// clipboard
		"Panoyu Oku":      r.clipboard(ParseMarkdown, (*actions.Clipboard).Read),
		"Panoyu Göster":   r.clipboard(ParseMarkdown, (*actions.Clipboard).Read),
		"Panoya Yaz":      r.prompt(state.AwaitClipboardText, ParsePlain, "Lütfen panoya yazılacak metni gönderin:"),
		"Pano Geçmişi":    r.clipboard(ParseMarkdown, (*actions.Clipboard).History),
		"Geçmişten Seç":   r.prompt(state.AwaitClipboardSelect, ParsePlain, "Geçmişten hangi numarayı seçmek istersiniz? (1-10)\n\nÖnce \"Pano Geçmişi\" ile listeyi görün."),
		"Panoyu Temizle":  r.clipboard(ParsePlain, (*actions.Clipboard).Clear),
		"Geçmişi Temizle": r.clipboard(ParsePlain, (*actions.Clipboard).ClearHistory),
		"Panodaki Dosya":  r.doMarkdown(actions.CmdClipboardFile),
		"İzleme Başlat":   r.clipboard(ParsePlain, func(c *actions.Clipboard, _ context.Context) (string, error) { return c.StartWatch() }),
		"İzleme Durdur":   r.clipboard(ParsePlain, func(c *actions.Clipboard, _ context.Context) (string, error) { return c.StopWatch(), nil }),

		// event monitoring
		"USB İzleme":        r.show(usbMonitorMenu),
		"Pil İzleme":        r.show(batteryMonitorMenu),
		"İnternet İzleme":   r.show(networkMonitorMenu),
		"CPU İzleme":        r.show(cpuMonitorMenu),
		"Başlat":            r.monitor(ParsePlain, (*actions.Monitoring).StartUSB),
		"Başlat (%20)":      r.monitor(ParsePlain, func(m *actions.Monitoring) string { return m.StartBatteryAt(20) }),
		"Başlat (%10)":      r.monitor(ParsePlain, func(m *actions.Monitoring) string { return m.StartBatteryAt(10) }),
		"Başlat (%90, 5dk)": r.monitor(ParsePlain, func(m *actions.Monitoring) string { return m.StartCPUAt(90, 5) }),
		"Başlat (%80, 3dk)": r.monitor(ParsePlain, func(m *actions.Monitoring) string { return m.StartCPUAt(80, 3) }),
		"Durdur":            r.monitor(ParsePlain, (*actions.Monitoring).StopAll),
		"Tümünü Başlat":     r.monitor(ParsePlain, (*actions.Monitoring).StartAll),
		"Tümünü Durdur":     r.monitor(ParsePlain, (*actions.Monitoring).StopAll),
		"İzleme Durumu":     r.monitor(ParseMarkdown, (*actions.Monitoring).Status),
		"WiFi Şifresi":      r.doMarkdown(actions.CmdWiFiPassword),
		"Webcam Kontrol":    r.doMarkdown(actions.CmdWebcamStatus),
		"Mikrofon Kontrol":  r.doMarkdown(actions.CmdMicStatus),

		// quick actions
		"Parlaklık":           r.prompt(state.AwaitBrightness, ParseMarkdown, "*Parlaklık Ayarı*\n\nİstediğiniz parlaklık seviyesini girin (0-100):"),
		"Geri Dönüşüm Boşalt": r.do(actions.CmdEmptyTrash),
	}

	for _, key := range []string{"Enter", "Tab", "Esc", "Backspace", "Delete", "Home", "End", "PageUp", "PageDown", "Up", "Down", "Left", "Right"} {
		m[key] = r.text(ParsePlain, func(ctx context.Context) (string, error) { return ctl.PressKey(ctx, key) })
	}
	for _, combo := range []string{"Ctrl+C", "Ctrl+V", "Ctrl+X", "Ctrl+A", "Ctrl+S", "Ctrl+Z", "Ctrl+Y", "Ctrl+F", "Alt+Tab", "Alt+F4", "Win+D", "Win+L"} {
		m[combo] = r.text(ParsePlain, func(ctx context.Context) (string, error) { return ctl.PressCombo(ctx, combo) })
	}
	return m
}

const launchPrompt = "*Program Başlat*\n\n" +
	"Program adını veya yolunu yazın:\n\n" +
	"*Örnekler:*\n" +
	"• `notepad` - Not Defteri\n" +
	"• `calc` - Hesap Makinesi\n" +
	"• `mspaint` - Paint\n" +
	"• `cmd` - Komut İstemi\n" +
	"• `chrome` - Google Chrome\n" +
	"• `firefox` - Mozilla Firefox\n" +
	"• `explorer` - Dosya Gezgini\n" +
	"• `control` - Kontrol Paneli\n" +
	"• `taskmgr` - Görev Yöneticisi\n" +
	"• `snippingtool` - Ekran Alıntısı Aracı\n" +
	"• `C:\\Program Files\\App\\app.exe` - Tam yol"

const killPrompt = "*Program Kapat*\n\n" +
	"Kapatılacak programın adını yazın:\n\n" +
	"*Örnekler:*\n" +
	"• `notepad.exe` - Not Defteri\n" +
	"• `chrome.exe` - Google Chrome\n" +
	"• `firefox.exe` - Mozilla Firefox\n" +
	"• `explorer.exe` - Dosya Gezgini\n" +
	"• `Telegram.exe` - Telegram\n" +
	"• `Discord.exe` - Discord\n" +
	"• `Spotify.exe` - Spotify\n" +
	"• `Code.exe` - VS Code\n" +
	"• `javaw.exe` - Java uygulamaları\n\n" +
	"*İpucu:* Çalışan Programlar'dan tam adını görebilirsiniz."

const diskAnalysisNotice = "*Disk Analizi Başlatıldı*\n\n" +
	"Tüm diskler taranıyor...\nBüyük dosyalar tespit ediliyor...\n\n" +
	"Bu işlem 30-60 saniye sürebilir, lütfen bekleyin."

const scheduledPrompt = "*Zamanlanmış Görev Ekle*\n\n" +
	"Komut ve zaman bilgisini şu formatta yazın:\n`komut|dakika`\n\n" +
	"Örnek: `shutdown /s /t 0|30` (30 dakika sonra kapat)"

const recurringPrompt = "*Tekrarlı Görev Ekle*\n\n" +
	"Komut ve tekrar süresini şu formatta yazın:\n`komut|interval_dakika`\n\n" +
	"Örnek: `echo test|10` (her 10 dakikada bir)\n" +
	"Cron ifadesi de olur: `echo test|0 9 * * 1-5`"

// --- handler builders ---

func (r *Router) show(m Menu) handler {
	return func(ctx context.Context, req *request) error { return r.replyMenu(ctx, req, m) }
}

func (r *Router) prompt(kind state.AwaitKind, mode ParseMode, text string) handler {
	return func(ctx context.Context, req *request) error { return r.arm(ctx, req, kind, text, mode) }
}

func (r *Router) fixed(text string) handler {
	return func(ctx context.Context, req *request) error { return r.reply(ctx, req, text) }
}

// text replies with the result of fn in the given parse mode.
func (r *Router) text(mode ParseMode, fn func(ctx context.Context) (string, error)) handler {
	return func(ctx context.Context, req *request) error {
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		return r.send(ctx, req, OutboundMessage{Text: out, ParseMode: mode})
	}
}

func (r *Router) markdown(fn func(ctx context.Context) (string, error)) handler {
	return r.text(ParseMarkdown, fn)
}

// notice sends a progress line before running a slow handler.
func (r *Router) notice(text string, mode ParseMode, next handler) handler {
	return func(ctx context.Context, req *request) error {
		if err := r.send(ctx, req, OutboundMessage{Text: text, ParseMode: mode}); err != nil {
			return err
		}
		return next(ctx, req)
	}
}

func (r *Router) do(cmd string) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.Do(ctx, cmd) })
}

func (r *Router) doMarkdown(cmd string) handler {
	return r.markdown(func(ctx context.Context) (string, error) { return r.svc.Controls.Do(ctx, cmd) })
}

func (r *Router) shutdown(minutes int) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.Shutdown(ctx, minutes) })
}

func (r *Router) volume(level int) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.SetVolume(ctx, level) })
}

func (r *Router) say(preset string) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.SayPreset(ctx, preset) })
}

func (r *Router) openApp(app string) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.OpenApp(ctx, app) })
}

func (r *Router) click(b actions.MouseButton) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.Click(ctx, b) })
}

func (r *Router) scroll(up bool) handler {
	return r.text(ParsePlain, func(ctx context.Context) (string, error) { return r.svc.Controls.Scroll(ctx, up) })
}

// setLock runs the lock command and records the advisory status.
func (r *Router) setLock(cmd string, locked bool) handler {
	return func(ctx context.Context, req *request) error {
		out, err := r.svc.Controls.Do(ctx, cmd)
		if err != nil {
			return err
		}
		r.store.Update(req.principal(), func(st *state.ConversationState) { st.IsLocked = locked })
		return r.reply(ctx, req, out)
	}
}

func (r *Router) rendered(fn func() string) handler {
	return func(ctx context.Context, req *request) error {
		if fn == nil {
			return errUnavailable
		}
		return r.replyMarkdown(ctx, req, fn())
	}
}

func (r *Router) customNotification(ctx context.Context, req *request) error {
	r.store.Update(req.principal(), func(st *state.ConversationState) { st.NotificationTitle = "" })
	return r.arm(ctx, req, state.AwaitCustomNotification, "Bildirim başlığını yazın (sonra mesajı soracağım):", ParsePlain)
}

// --- optional services ---

func (r *Router) clipboard(mode ParseMode, fn func(c *actions.Clipboard, ctx context.Context) (string, error)) handler {
	return r.text(mode, func(ctx context.Context) (string, error) {
		if r.svc.Clipboard == nil {
			return "", errUnavailable
		}
		return fn(r.svc.Clipboard, ctx)
	})
}

func (r *Router) monitor(mode ParseMode, fn func(m *actions.Monitoring) string) handler {
	return r.text(mode, func(context.Context) (string, error) {
		if r.svc.Monitoring == nil {
			return "", errUnavailable
		}
		return fn(r.svc.Monitoring), nil
	})
}

func (r *Router) activity(mode ParseMode, fn func(a *actions.Activity) string) handler {
	return r.text(mode, func(context.Context) (string, error) {
		if r.svc.Activity == nil {
			return "", errUnavailable
		}
		return fn(r.svc.Activity), nil
	})
}

func (r *Router) blockedSites(ctx context.Context, req *request) error {
	if r.svc.Sites == nil {
		return errUnavailable
	}
	return r.markdown(r.svc.Sites.List)(ctx, req)
}

func (r *Router) taskList(ctx context.Context, req *request) error {
	if r.svc.Automation == nil {
		return errUnavailable
	}
	return r.markdown(r.svc.Automation.List)(ctx, req)
}

func (r *Router) chart(ctx context.Context, req *request) error {
	if r.svc.Sampler == nil {
		return errUnavailable
	}
	return r.replyMarkdown(ctx, req, r.svc.Sampler.Chart())
}

func (r *Router) processesFile(ctx context.Context, req *request) error {
	if err := r.reply(ctx, req, "Program listesi hazırlanıyor..."); err != nil {
		return err
	}
	path, err := r.svc.System.ProcessesFile(ctx)
	if err != nil {
		return r.reply(ctx, req, "Program listesi dosyası oluşturulamadı: "+err.Error())
	}
	defer removeQuiet(path)
	return r.sendFile(ctx, req, path, FileDocument, "Program listesi TXT dosyası olarak hazırlandı.")
}

// --- capture ---

// pickDisplay arms a display picker when more than one display is attached
// and reports whether it did.
func (r *Router) pickDisplay(ctx context.Context, req *request, kind state.AwaitKind, seconds int, text string) (bool, error) {
	displays := r.svc.Capture.Displays(ctx)
	if len(displays) <= 1 {
		return false, nil
	}
	r.store.Arm(req.principal(), kind)
	r.store.Update(req.principal(), func(st *state.ConversationState) {
		st.Displays = displays
		st.RecordingDuration = seconds
	})
	return true, r.replyMenu(ctx, req, DisplayPicker(text, displays))
}

func (r *Router) screenshot(ctx context.Context, req *request) error {
	if r.svc.Capture == nil {
		return errUnavailable
	}
	picked, err := r.pickDisplay(ctx, req, state.AwaitScreenshotDisplay, 0,
		"*Ekran Seçin*\n\nHangi ekranın görüntüsünü almak istersiniz?")
	if picked || err != nil {
		return err
	}
	if err := r.reply(ctx, req, "Ekran görüntüsü alınıyor..."); err != nil {
		return err
	}
	path, err := r.svc.Capture.Screenshot(ctx, nil)
	if err != nil {
		return err
	}
	defer removeQuiet(path)
	return r.sendFile(ctx, req, path, FilePhoto, "📸 Ekran görüntüsü")
}

func (r *Router) record(seconds int) handler {
	return func(ctx context.Context, req *request) error {
		if r.svc.Capture == nil {
			return errUnavailable
		}
		picked, err := r.pickDisplay(ctx, req, state.AwaitRecordingDisplay, seconds,
			fmt.Sprintf("*Ekran Seçin (%dsn Kayıt)*\n\nHangi ekranı kaydetmek istersiniz?", seconds))
		if picked || err != nil {
			return err
		}
		if err := r.reply(ctx, req, fmt.Sprintf("%d saniyelik ekran kaydı başlatılıyor...", seconds)); err != nil {
			return err
		}
		if err := r.svc.Capture.StartRecording(seconds, nil, r.deliverRecording(ctx, req)); err != nil {
			return err
		}
		return r.reply(ctx, req, fmt.Sprintf("Kayıt başlatıldı. %d saniye sonra video gönderilecek.", seconds))
	}
}

func (r *Router) webcamPhoto(ctx context.Context, req *request) error {
	if r.svc.Capture == nil {
		return errUnavailable
	}
	if err := r.reply(ctx, req, "Webcam fotoğrafı çekiliyor..."); err != nil {
		return err
	}
	path, err := r.svc.Capture.WebcamPhoto(ctx)
	if err != nil {
		return err
	}
	defer removeQuiet(path)
	return r.sendFile(ctx, req, path, FilePhoto, "Webcam fotoğrafı")
}

func (r *Router) webcamVideo(ctx context.Context, req *request) error {
	if r.svc.Capture == nil {
		return errUnavailable
	}
	seconds := actions.WebcamRecordingSeconds
	if err := r.reply(ctx, req, fmt.Sprintf("%d saniyelik webcam video kaydı başlatılıyor...", seconds)); err != nil {
		return err
	}
	if err := r.svc.Capture.StartWebcamRecording(seconds, r.deliverRecording(ctx, req)); err != nil {
		return err
	}
	return r.reply(ctx, req, fmt.Sprintf("Kayıt başlatıldı. %d saniye sonra video gönderilecek.", seconds))
}
