//go:build windows

package actions

// urlOpener is empty because start opens URLs itself.
func urlOpener() string { return "" }

// ps wraps a PowerShell script for cmd /C.
func ps(script string) string {
	return `powershell -NoProfile -NonInteractive -Command "` + script + `"`
}

// platformRuns returns the Windows command lines. Input injection and media
// keys go through nircmd, which the installer puts on PATH.
func platformRuns() map[string]string {
	return map[string]string{
		CmdLock:           "rundll32.exe user32.dll,LockWorkStation",
		CmdUnlock:         "nircmd sendkeypress enter",
		CmdSleep:          "rundll32.exe powrprof.dll,SetSuspendState 0,1,0",
		CmdReboot:         "shutdown /r /t 60",
		CmdShutdown:       `{{if eq .Args.minutes "0"}}shutdown /s /t 0{{else}}shutdown /s /t {{.Args.seconds}}{{end}}`,
		CmdCancelShutdown: "shutdown /a",
		CmdDisplayOff:     "nircmd monitor off",
		CmdBrightness:     ps("(Get-WmiObject -Namespace root/WMI -Class WmiMonitorBrightnessMethods).WmiSetBrightness(1,{{.Args.level}})"),
		CmdShowDesktop:    ps("(New-Object -ComObject Shell.Application).MinimizeAll()"),
		CmdUnmute:         "nircmd mutesysvolume 0",
		CmdMute:           "nircmd mutesysvolume 1",
		CmdVolumeUp:       "nircmd changesysvolume 1310",
		CmdVolumeDown:     "nircmd changesysvolume -1310",
		CmdVolumeSet:      "nircmd setsysvolume {{.Args.units}}",
		CmdAudioDevices:   ps("Get-CimInstance Win32_SoundDevice | Select-Object -ExpandProperty Name"),
		CmdAudioSwitch:    "control mmsys.cpl sounds",
		CmdSay:            ps("Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak({{psq .Args.text}})"),
		CmdMediaPlay:      "nircmd sendkeypress 0xB3",
		CmdMediaNext:      "nircmd sendkeypress 0xB0",
		CmdMediaPrevious:  "nircmd sendkeypress 0xB1",
		CmdMediaStatus:    ps("Get-Process Spotify -ErrorAction SilentlyContinue | Where-Object {$_.MainWindowTitle} | Select-Object -First 1 -ExpandProperty MainWindowTitle"),
		CmdOpenApp:        "start \"\" {{.Args.exec}}",
		CmdMouseMove:      "nircmd setcursor {{.Args.x}} {{.Args.y}}",
		CmdMouseClick:     "nircmd sendmouse {{.Args.name}} click",
		CmdDoubleClick:    "nircmd sendmouse left dblclick",
		CmdScroll:         "nircmd sendmouse wheel {{.Args.delta}}",
		CmdMousePosition:  ps("Add-Type -AssemblyName System.Windows.Forms; $p=[System.Windows.Forms.Cursor]::Position; 'X=' + $p.X; 'Y=' + $p.Y"),
		CmdTypeText:       ps("Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait({{psq .Args.text}})"),
		CmdKey:            "nircmd sendkeypress {{.Args.key}}",
		CmdCombo:          "nircmd sendkeypress {{.Args.combo}}",
		CmdNotifyList:     ps("Get-WinEvent -LogName Microsoft-Windows-PushNotification-Platform/Operational -MaxEvents 10 | Select-Object -ExpandProperty Message"),
		CmdNotifyTest:     "nircmd trayballoon \"PC Remote\" \"Test bildirimi\" \"\" 5000",
		CmdNotifySend:     "nircmd trayballoon {{cmdq .Args.title}} {{cmdq .Args.body}} \"\" 10000",
		CmdSecurityCheck:  ps("Get-MpComputerStatus | Select-Object AntivirusEnabled,RealTimeProtectionEnabled,FirewallEnabled | Format-List"),
		CmdSecurityReport: ps("Get-MpComputerStatus | Format-List; Get-NetFirewallProfile | Select-Object Name,Enabled | Format-Table"),
		CmdAntivirus:      ps("Get-MpComputerStatus | Select-Object AntivirusEnabled,AntivirusSignatureLastUpdated,QuickScanAge | Format-List"),
		CmdFirewall:       "netsh advfirewall show allprofiles state",
		CmdUSBDevices:     ps("Get-PnpDevice -PresentOnly | Where-Object { $_.InstanceId -match '^USB' } | Select-Object -ExpandProperty FriendlyName"),
		CmdStartup:        "wmic startup get caption,command",
		CmdDiskAnalyze:    ps("Get-ChildItem -Path {{psq .Args.path}} -Recurse -File -ErrorAction SilentlyContinue | Sort-Object Length -Descending | Select-Object -First 15 @{n='MB';e={[math]::Round($_.Length/1MB,1)}},FullName | Format-Table -AutoSize | Out-String -Width 200"),
		CmdDiskClean:      "del /q /f /s %TEMP%\\* >nul 2>&1 & echo Geçici dosyalar silindi.",
		CmdWiFi:           "netsh wlan show interfaces",
		CmdWiFiPassword:   ps("$n=(netsh wlan show interfaces | Select-String ' SSID' | Select-Object -First 1).ToString().Split(':')[1].Trim(); $k=(netsh wlan show profile name=$n key=clear | Select-String 'Key Content').ToString().Split(':')[1].Trim(); '*Ağ:* ' + $n; '*Şifre:* `' + $k + '`'"),
		CmdARP:            "arp -a",
		CmdFlushDNS:       "ipconfig /flushdns",
		CmdPing:           "ping -n 1 -w 3000 {{.Args.host}}",
		CmdWebcamStatus:   ps("Get-ChildItem HKCU:\\Software\\Microsoft\\Windows\\CurrentVersion\\CapabilityAccessManager\\ConsentStore\\webcam\\NonPackaged | Where-Object { (Get-ItemProperty $_.PSPath).LastUsedTimeStop -eq 0 } | Select-Object -ExpandProperty PSChildName"),
		CmdMicStatus:      ps("Get-ChildItem HKCU:\\Software\\Microsoft\\Windows\\CurrentVersion\\CapabilityAccessManager\\ConsentStore\\microphone\\NonPackaged | Where-Object { (Get-ItemProperty $_.PSPath).LastUsedTimeStop -eq 0 } | Select-Object -ExpandProperty PSChildName"),
		CmdClipboardFile:  ps("Get-Clipboard -Format FileDropList | Select-Object -ExpandProperty FullName"),
		CmdEmptyTrash:     ps("Clear-RecycleBin -Force -ErrorAction SilentlyContinue"),
		CmdActiveWindow:   ps("Add-Type 'using System;using System.Runtime.InteropServices;public class W{[DllImport(\\\"user32.dll\\\")]public static extern IntPtr GetForegroundWindow();[DllImport(\\\"user32.dll\\\")]public static extern int GetWindowThreadProcessId(IntPtr h,out int p);}'; $h=[W]::GetForegroundWindow(); $p=0; [void][W]::GetWindowThreadProcessId($h,[ref]$p); $pr=Get-Process -Id $p; 'title=' + $pr.MainWindowTitle; 'owner=' + $pr.ProcessName"),
		CmdBattery:        ps("(Get-CimInstance Win32_Battery).EstimatedChargeRemaining"),
		CmdLaunch:         "start \"\" {{.Args.name}}",
		CmdKill:           "taskkill /IM {{cmdq .Args.name}} /F",
	}
}
