package telegraph

import (
	"time"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/filebrowser"
)

// Menu is a reply text with its keyboard.
type Menu struct {
	Text      string
	ParseMode ParseMode
	Keyboard  [][]string
}

// Shared button labels.
const (
	LabelMainMenu      = "Ana Menü"
	LabelBack          = "Geri"
	LabelCancel        = "İptal"
	LabelUpload        = "Dosya Yükle"
	LabelCancelShutoff = "Kapatmayı İptal Et"
)

var mainKeyboard = [][]string{
	{"Sistem", "Güç", "Güvenlik"},
	{"Disk", "Ekran", "Ses"},
	{"Ağ", "Dosya", "Otomasyon"},
	{"Performans", "Eğlence"},
	{"Mouse/Klavye", "Pano", "İzleme"},
	{"Bildirimler"},
}

// MainMenu renders the welcome screen with the advisory lock status.
func MainMenu(locked bool, now time.Time) Menu {
	status := "Bilgisayar şu anda açık"
	if locked {
		status = "Bilgisayar şu anda kilitli"
	}
	return Menu{
		Text: "*PC Remote - Sistem Kontrol Merkezi*\n\n" +
			"Merhaba! Bilgisayarınızı uzaktan kontrol edebilirsiniz.\n\n" +
			"*Anlık Durum:*\n" + status + "\n" +
			"Son kontrol: " + now.Format("15:04:05") + "\n\n" +
			"Lütfen aşağıdaki menüden bir seçenek seçin:",
		ParseMode: ParseMarkdown,
		Keyboard:  mainKeyboard,
	}
}

func md(text string, rows ...[]string) Menu {
	return Menu{Text: text, ParseMode: ParseMarkdown, Keyboard: rows}
}

func plain(text string, rows ...[]string) Menu {
	return Menu{Text: text, Keyboard: rows}
}

// Static menus keyed by the label that opens them.
var (
	systemMenu = md("*Sistem & Uzaktan Kontrol*\n\nSistem yönetimi ve uzaktan kontrol işlemleri:",
		[]string{"Sistem Bilgisi", "Sıcaklık"},
		[]string{"Çalışan Programlar", "Program Listesi (TXT)"},
		[]string{"Program Başlat", "Program Kapat"},
		[]string{"Komut Çalıştır", "Ekran Kapat"},
		[]string{"Masaüstü Göster", LabelMainMenu})

	securityMenu = md("*Güvenlik & İzleme*\n\nGüvenlik kontrolleri ve izleme işlemleri:",
		[]string{"Güvenlik Kontrolü", "Güvenlik Raporu"},
		[]string{"Antivirüs", "Güvenlik Duvarı"},
		[]string{"USB Cihazları", "Aktivite"},
		[]string{"Website Engelle", "Engeli Kaldır"},
		[]string{LabelMainMenu})

	powerMenu = md("*Güç Yönetimi*\n\nLütfen bir işlem seçin:",
		[]string{"Kilitle", "Kilidi Aç"},
		[]string{"Uyku Modu"},
		[]string{"Yeniden Başlat", "Kapat"},
		[]string{LabelMainMenu})

	shutdownMenu = md("*Kapatma Zamanı Seçin*\n\nBilgisayar ne zaman kapatılsın?",
		[]string{"Hemen Kapat"},
		[]string{"1 Dakika", "5 Dakika"},
		[]string{"15 Dakika", "30 Dakika"},
		[]string{"1 Saat", "Özel Süre"},
		[]string{LabelCancelShutoff, LabelBack})

	diskMenu = md("*Disk Yönetimi*\n\nDisk işlemlerini seçin:",
		[]string{"Disk Kullanımı", "Disk Analizi"},
		[]string{"Disk Temizliği", "Geçici Dosyalar"},
		[]string{LabelMainMenu})

	screenMenu = md("*Ekran & Kamera*\n\nGörüntü yakalama işlemleri:",
		[]string{"Ekran Görüntüsü", "Ekran Kaydı"},
		[]string{"Webcam Fotoğraf", "Webcam Video"},
		[]string{LabelMainMenu})

	audioMenu = md("*Ses Kontrolü*\n\nSes ayarlarını yönetin:",
		[]string{"Ses Aç", "Sessize Al"},
		[]string{"Ses Yükselt", "Ses Azalt"},
		[]string{"Ses %0", "Ses %50", "Ses %100"},
		[]string{"Özel Ses Seviyesi"},
		[]string{"Çalan Müzik", "Ses Cihazları"},
		[]string{"Cihaz Listesi", "Cihaz Değiştir"},
		[]string{"Sesli Komutlar"},
		[]string{LabelMainMenu})

	voiceMenu = md("*Sesli Komutlar*\n\nBilgisayardan sesli mesaj yayınlamak için bir seçenek seçin:",
		[]string{"Merhaba De", "Uyarı Ver"},
		[]string{"Şaka Yap", "Korkut"},
		[]string{"Bilgisayarı Kapatıyorum", "Hacker Uyarısı"},
		[]string{"Motivasyon", "Tebrikler"},
		[]string{"Özel Mesaj"},
		[]string{"Ses Menüsü"})

	networkMenu = md("*Ağ Yönetimi*\n\nAğ işlemlerini seçin:",
		[]string{"Ağ Trafiği", "IP Bilgisi"},
		[]string{"WiFi Bilgisi", "Ağ Taraması"},
		[]string{"Website Engelle", "Engeli Kaldır"},
		[]string{"Engellenen Siteler"},
		[]string{LabelMainMenu})

	performanceMenu = md("*Performans İzleme*\n\nPerformans bilgilerini görüntüleyin:",
		[]string{"Performans Grafiği", "Başlangıç"},
		[]string{"Sistem Bilgisi", "Sıcaklık"},
		[]string{"RAM Kullanımı", "CPU Kullanımı"},
		[]string{LabelMainMenu})

	automationMenu = md("*Otomasyon*\n\nZamanlanmış görev yönetimi:",
		[]string{"Zamanlanmış Görev", "Tekrarlı Görev"},
		[]string{"Görev Listesi", "Görev Sil"},
		[]string{LabelMainMenu})

	entertainmentMenu = md("*Eğlence*\n\nMedya ve uygulama kontrolü:",
		[]string{"Netflix Aç", "Spotify Aç"},
		[]string{"Steam Aç", "Discord Aç"},
		[]string{"Medya Oynat", "Medya Duraklat"},
		[]string{"Sonraki", "Önceki"},
		[]string{LabelMainMenu})

	fileMenu = md("*Dosya Yönetimi*\n\n"+
		"Gözat - Klasörler arası gezin ve dosya seç\n"+
		"Son Kullanılanlar - En son açtığınız dosyalar\n"+
		"Dosya Ara - İsme göre dosya arayın\n\n"+
		"💡 Gözat'ta dosya seçince Gönder/Sil/Bilgi işlemlerini yapabilirsin",
		[]string{"Gözat", "Son Kullanılanlar"},
		[]string{"Dosya Ara"},
		[]string{LabelMainMenu})

	clipboardMenu = md("*Pano Yönetimi*\n\nPanodaki metinleri okuyabilir, yazabilir ve geçmişi görebilirsiniz.",
		[]string{"Panoyu Oku", "Panoya Yaz"},
		[]string{"Pano Geçmişi", "Geçmişten Seç"},
		[]string{"Panodaki Dosya", "Panoyu Temizle"},
		[]string{"Geçmişi Temizle"},
		[]string{"İzleme Başlat", "İzleme Durdur"},
		[]string{"Mouse/Klavye", LabelMainMenu})

	inputMenu = md("*Mouse ve Klavye Kontrolü*\n\nUzaktan mouse ve klavye kontrolü yapabilirsiniz.",
		[]string{"Mouse Taşı", "Mouse Tıkla"},
		[]string{"Çift Tık", "Scroll"},
		[]string{"Mouse Konum", "Metin Yaz"},
		[]string{"Tuş Bas", "Tuş Kombinasyonu"},
		[]string{"Pano Menü", LabelMainMenu})

	mouseClickMenu = plain("Hangi mouse butonuna tıklamak istersiniz?",
		[]string{"Sol Tık", "Sağ Tık", "Orta Tık"},
		[]string{LabelBack})

	scrollMenu = plain("Hangi yöne scroll yapmak istersiniz?",
		[]string{"Yukarı Scroll", "Aşağı Scroll"},
		[]string{LabelBack})

	keyMenu = plain("Hangi tuşa basmak istersiniz?",
		[]string{"Enter", "Tab", "Esc"},
		[]string{"Backspace", "Delete", "Home"},
		[]string{"End", "PageUp", "PageDown"},
		[]string{"Up", "Down", "Left", "Right"},
		[]string{LabelBack})

	comboMenu = plain("Hangi tuş kombinasyonunu kullanmak istersiniz?",
		[]string{"Ctrl+C", "Ctrl+V", "Ctrl+X"},
		[]string{"Ctrl+A", "Ctrl+S", "Ctrl+Z"},
		[]string{"Ctrl+Y", "Ctrl+F", "Alt+Tab"},
		[]string{"Alt+F4", "Win+D", "Win+L"},
		[]string{LabelBack})

	monitoringMenu = md("*Sistem Olayı İzleme*\n\nUSB, Pil, İnternet ve CPU değişikliklerini izleyebilirsiniz.",
		[]string{"USB İzleme", "Pil İzleme"},
		[]string{"İnternet İzleme", "CPU İzleme"},
		[]string{"WiFi Şifresi", "Webcam Kontrol"},
		[]string{"Mikrofon Kontrol"},
		[]string{"Tümünü Başlat", "Tümünü Durdur"},
		[]string{"İzleme Durumu", LabelMainMenu})

	usbMonitorMenu = md("*USB Cihaz İzleme*\n\nUSB cihaz takılıp çıkarıldığında bildirim alırsınız.",
		[]string{"Başlat", "Durdur"},
		[]string{LabelBack})

	batteryMonitorMenu = md("*Pil Seviyesi İzleme*\n\nPil seviyesi düştüğünde bildirim alırsınız.",
		[]string{"Başlat (%20)", "Başlat (%10)"},
		[]string{"Durdur", LabelBack})

	networkMonitorMenu = md("*İnternet Bağlantı İzleme*\n\nBağlantı kesilip geldiğinde bildirim alırsınız.",
		[]string{"Başlat", "Durdur"},
		[]string{LabelBack})

	cpuMonitorMenu = md("*CPU Kullanım İzleme*\n\nYüksek CPU kullanımında bildirim alırsınız.",
		[]string{"Başlat (%90, 5dk)", "Başlat (%80, 3dk)"},
		[]string{"Durdur", LabelBack})

	notificationMenu = md("*Bildirimler*\n\nWindows bildirim yönetimi:",
		[]string{"Bildirimleri Göster", "Test Bildirimi"},
		[]string{"Özel Bildirim Gönder"},
		[]string{LabelMainMenu})

	settingsMenu = md("*Ayarlar*\n\nBot ayarlarını yönetin:",
		[]string{"Tüm Ayarlar", "Bot Bilgisi"},
		[]string{"Tümünü Aç", "Tümünü Kapat"},
		[]string{"Config Yenile"},
		[]string{LabelMainMenu})
)

// QuickFoldersMenu lists the quick-access roots, one per row.
func QuickFoldersMenu(roots []filebrowser.Root) Menu {
	rows := make([][]string, 0, len(roots)+1)
	for _, r := range roots {
		rows = append(rows, []string{r.Label})
	}
	rows = append(rows, []string{LabelBack})
	return md("*Hızlı Klasörler*\n\nBir klasör seçin:", rows...)
}

// DisplayPicker asks which display to capture.
func DisplayPicker(text string, displays []actions.Display) Menu {
	rows := make([][]string, 0, len(displays)+1)
	for _, d := range displays {
		rows = append(rows, []string{d.Label()})
	}
	rows = append(rows, []string{actions.AllDisplaysLabel, LabelBack})
	return md(text, rows...)
}

var (
	browseKeyboard     = [][]string{{LabelBack, LabelUpload}}
	uploadKeyboard     = [][]string{{LabelCancel}}
	fileActionKeyboard = [][]string{{"Gönder", "Bilgi"}, {"Sil", LabelCancel}}
)
