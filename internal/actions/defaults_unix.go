//go:build !windows

package actions

import "runtime"

// platformRuns returns the command lines for Linux desktops (X11 tools,
// PulseAudio, systemd). macOS replaces the entries it can serve natively.
func platformRuns() map[string]string {
	runs := map[string]string{
		CmdLock:           "loginctl lock-session || xdg-screensaver lock",
		CmdUnlock:         "loginctl unlock-session",
		CmdSleep:          "systemctl suspend",
		CmdReboot:         "shutdown -r +1",
		CmdShutdown:       `{{if eq .Args.minutes "0"}}shutdown -h now{{else}}shutdown -h +{{.Args.minutes}}{{end}}`,
		CmdCancelShutdown: "shutdown -c",
		CmdDisplayOff:     "xset dpms force off",
		CmdBrightness:     `xrandr --output "$(xrandr | awk '/ connected/{print $1; exit}')" --brightness {{.Args.fraction}}`,
		CmdShowDesktop:    "xdotool key super+d",
		CmdUnmute:         "pactl set-sink-mute @DEFAULT_SINK@ 0",
		CmdMute:           "pactl set-sink-mute @DEFAULT_SINK@ 1",
		CmdVolumeUp:       "pactl set-sink-volume @DEFAULT_SINK@ +2%",
		CmdVolumeDown:     "pactl set-sink-volume @DEFAULT_SINK@ -2%",
		CmdVolumeSet:      "pactl set-sink-volume @DEFAULT_SINK@ {{.Args.level}}%",
		CmdAudioDevices:   "pactl list short sinks",
		CmdAudioSwitch:    "pavucontrol",
		CmdSay:            "espeak-ng -v tr {{shq .Args.text}} || espeak -v tr {{shq .Args.text}}",
		CmdMediaPlay:      "playerctl play-pause",
		CmdMediaNext:      "playerctl next",
		CmdMediaPrevious:  "playerctl previous",
		CmdMediaStatus:    `playerctl metadata --format '🎵 {{"{{"}}title{{"}}"}}\n👤 {{"{{"}}artist{{"}}"}}\n▶️ {{"{{"}}status{{"}}"}}'`,
		CmdOpenApp:        "{{.Args.exec}}",
		CmdMouseMove:      "xdotool mousemove {{.Args.x}} {{.Args.y}}",
		CmdMouseClick:     "xdotool click {{.Args.button}}",
		CmdDoubleClick:    "xdotool click --repeat 2 1",
		CmdScroll:         "xdotool click --repeat {{.Args.amount}} {{.Args.button}}",
		CmdMousePosition:  "xdotool getmouselocation --shell",
		CmdTypeText:       "xdotool type -- {{shq .Args.text}}",
		CmdKey:            "xdotool key {{shq .Args.key}}",
		CmdCombo:          "xdotool key {{shq .Args.combo}}",
		CmdNotifyList:     "dunstctl history 2>/dev/null | head -c 3000",
		CmdNotifyTest:     "notify-send 'PC Remote' 'Test bildirimi'",
		CmdNotifySend:     "notify-send {{shq .Args.title}} {{shq .Args.body}}",
		CmdSecurityCheck:  "(ufw status 2>/dev/null || echo 'ufw yok'); who; last -n 5",
		CmdSecurityReport: "uname -a; who; last -n 10; ss -tulpn 2>/dev/null | head -40",
		CmdAntivirus:      "(systemctl is-active clamav-daemon && echo 'ClamAV aktif') || echo 'ClamAV bulunamadı'",
		CmdFirewall:       "ufw status verbose 2>/dev/null || iptables -L -n 2>/dev/null | head -40",
		CmdUSBDevices:     "lsusb",
		CmdStartup:        "ls ~/.config/autostart /etc/xdg/autostart 2>/dev/null",
		CmdDiskAnalyze:    "du -ah {{shq .Args.path}} 2>/dev/null | sort -h | tail -n 15",
		CmdDiskClean:      "rm -rf ~/.cache/thumbnails/* /tmp/pcr-* 2>/dev/null; echo 'Önbellek temizlendi.'",
		CmdWiFi:           `nmcli -t -f active,ssid,signal,chan dev wifi | awk -F: '$1=="yes"{printf "• Ağ Adı (SSID): %s\n• Sinyal Gücü: %s%%\n• Kanal: %s", $2, $3, $4}'`,
		CmdWiFiPassword:   `nmcli -s -g 802-11-wireless.ssid,802-11-wireless-security.psk connection show "$(nmcli -t -f NAME connection show --active | head -n1)" | awk 'NR==1{printf "*Ağ:* %s\n", $0} NR==2{printf "*Şifre:* ` + "`%s`" + `", $0}'`,
		CmdARP:            "arp -an || ip neigh",
		CmdFlushDNS:       "resolvectl flush-caches",
		CmdPing:           "ping -c 1 -W 3 {{.Args.host}}",
		CmdWebcamStatus:   "fuser /dev/video* 2>/dev/null",
		CmdMicStatus:      "pactl list short source-outputs",
		CmdClipboardFile:  "xclip -selection clipboard -o -t text/uri-list 2>/dev/null | sed 's#^file://##'",
		CmdEmptyTrash:     "rm -rf ~/.local/share/Trash/files/* ~/.local/share/Trash/info/*",
		CmdActiveWindow:   `xdotool getactivewindow getwindowname getwindowpid | { read -r t; read -r p; printf 'title=%s\nowner=%s\n' "$t" "$(ps -p "$p" -o comm=)"; }`,
		CmdBattery:        "cat /sys/class/power_supply/BAT*/capacity /sys/class/power_supply/BAT*/status 2>/dev/null",
		CmdLaunch:         "{{.Args.name}}",
		CmdKill:           "pkill -f {{shq .Args.name}}",
	}
	if runtime.GOOS == "darwin" {
		for name, line := range darwinRuns {
			runs[name] = line
		}
	}
	return runs
}

var darwinRuns = map[string]string{
	CmdLock:           "pmset displaysleepnow",
	CmdSleep:          "pmset sleepnow",
	CmdReboot:         "osascript -e 'tell app \"System Events\" to restart'",
	CmdDisplayOff:     "pmset displaysleepnow",
	CmdUnmute:         "osascript -e 'set volume without output muted'",
	CmdMute:           "osascript -e 'set volume with output muted'",
	CmdVolumeUp:       "osascript -e 'set volume output volume ((output volume of (get volume settings)) + 2)'",
	CmdVolumeDown:     "osascript -e 'set volume output volume ((output volume of (get volume settings)) - 2)'",
	CmdVolumeSet:      "osascript -e 'set volume output volume {{.Args.level}}'",
	CmdSay:            "say {{shq .Args.text}}",
	CmdNotifyTest:     `osascript -e 'display notification "Test bildirimi" with title "PC Remote"'`,
	CmdNotifySend:     "osascript -e 'on run argv' -e 'display notification (item 1 of argv) with title (item 2 of argv)' -e 'end run' {{shq .Args.body}} {{shq .Args.title}}",
	CmdUSBDevices:     "system_profiler SPUSBDataType",
	CmdFlushDNS:       "dscacheutil -flushcache; killall -HUP mDNSResponder",
	CmdEmptyTrash:     "rm -rf ~/.Trash/*",
	CmdBattery:        "pmset -g batt | grep -Eo '[0-9]+%' | tr -d %",
	CmdClipboardFile:  "osascript -e 'POSIX path of (the clipboard as «class furl»)'",
	CmdAudioSwitch:    "open /System/Library/PreferencePanes/Sound.prefPane",
	CmdActiveWindow:   `osascript -e 'tell application "System Events" to set p to first process whose frontmost is true' -e 'return "owner=" & name of p'`,
	CmdCancelShutdown: "sudo killall shutdown",
}

func urlOpener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}
