package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zulandar/pcremote/internal/logger"
)

// Monitoring defaults.
const (
	DefaultBatteryThreshold = 20
	CriticalBatteryLevel    = 10
	DefaultCPUThreshold     = 90
	DefaultCPUMinutes       = 5
	DefaultPingHost         = "8.8.8.8"
)

// AlertFunc delivers a monitoring alert to the operator.
type AlertFunc func(text string)

// MonitorIntervals are the polling periods of the monitors.
type MonitorIntervals struct {
	USB     time.Duration `yaml:"usb"`
	Battery time.Duration `yaml:"battery"`
	Network time.Duration `yaml:"network"`
	CPU     time.Duration `yaml:"cpu"`
}

func (iv *MonitorIntervals) applyDefaults() {
	if iv.USB <= 0 {
		iv.USB = 15 * time.Second
	}
	if iv.Battery <= 0 {
		iv.Battery = 30 * time.Second
	}
	if iv.Network <= 0 {
		iv.Network = 10 * time.Second
	}
	if iv.CPU <= 0 {
		iv.CPU = 10 * time.Second
	}
}

// DefaultDeviceDir is the directory whose entries change when USB devices
// come and go. Empty where no such directory exists.
func DefaultDeviceDir() string {
	if runtime.GOOS == "linux" {
		return "/dev/bus/usb"
	}
	return ""
}

// MonitoringOpts configures a Monitoring.
type MonitoringOpts struct {
	Invoker          *Invoker
	Alert            AlertFunc
	DeviceDir        string // watched with fsnotify; USB falls back to polling when empty
	PingHost         string
	BatteryThreshold int
	CPUThreshold     float64
	CPUMinutes       int
	Intervals        MonitorIntervals
}

// Monitoring watches USB devices, battery, connectivity and CPU load and
// pushes alerts when they change.
type Monitoring struct {
	inv       *Invoker
	alert     AlertFunc
	deviceDir string
	pingHost  string
	batThresh int
	cpuThresh float64
	cpuMins   int
	iv        MonitorIntervals

	usb     usbWatch
	usbPoll loop
	battery loop
	network loop
	cpu     loop

	mu        sync.Mutex
	devices   map[string]bool
	lastLevel int
	online    bool
	highTicks int

	cpuProbe func(ctx context.Context) (float64, error)
	topProcs func(ctx context.Context, n int) ([]ProcessInfo, error)
}

// NewMonitoring creates a Monitoring.
func NewMonitoring(opts MonitoringOpts) (*Monitoring, error) {
	if opts.Invoker == nil {
		return nil, fmt.Errorf("actions: monitoring: invoker is required")
	}
	if opts.Alert == nil {
		return nil, fmt.Errorf("actions: monitoring: alert func is required")
	}
	m := &Monitoring{
		inv:       opts.Invoker,
		alert:     opts.Alert,
		deviceDir: opts.DeviceDir,
		pingHost:  opts.PingHost,
		batThresh: opts.BatteryThreshold,
		cpuThresh: opts.CPUThreshold,
		cpuMins:   opts.CPUMinutes,
		iv:        opts.Intervals,
		lastLevel: 100,
		cpuProbe:  cpuLoad,
		topProcs:  TopProcesses,
	}
	if m.pingHost == "" {
		m.pingHost = DefaultPingHost
	}
	if m.batThresh <= 0 {
		m.batThresh = DefaultBatteryThreshold
	}
	if m.cpuThresh <= 0 {
		m.cpuThresh = DefaultCPUThreshold
	}
	if m.cpuMins <= 0 {
		m.cpuMins = DefaultCPUMinutes
	}
	m.iv.applyDefaults()
	return m, nil
}

// --- USB ---

// usbWatch runs an fsnotify watcher until closed.
type usbWatch struct {
	mu   sync.Mutex
	w    *fsnotify.Watcher
	done chan struct{}
}

func (u *usbWatch) active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.w != nil
}

func (u *usbWatch) stop() bool {
	u.mu.Lock()
	w, done := u.w, u.done
	u.w, u.done = nil, nil
	u.mu.Unlock()
	if w == nil {
		return false
	}
	w.Close()
	<-done
	return true
}

// deviceName turns /dev/bus/usb/001/005 into "Bus 001 Device 005".
func deviceName(path string) string {
	dev := filepath.Base(path)
	bus := filepath.Base(filepath.Dir(path))
	if _, err := strconv.Atoi(dev); err == nil {
		if _, err := strconv.Atoi(bus); err == nil {
			return fmt.Sprintf("Bus %s Device %s", bus, dev)
		}
	}
	return dev
}

// StartUSB alerts when USB devices are attached or removed.
func (m *Monitoring) StartUSB() string {
	if m.usb.active() || m.usbPoll.active() {
		return "USB izleme zaten aktif."
	}
	if m.deviceDir == "" {
		return m.startUSBPoll()
	}
	if err := m.startUSBWatch(); err != nil {
		return "USB izleme başlatılamadı: " + err.Error()
	}
	return "USB izleme başlatıldı. USB cihaz değişikliklerinde bildirim gönderilecek."
}

func (m *Monitoring) startUSBWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(m.deviceDir); err != nil {
		w.Close()
		return err
	}
	// Bus directories hold the device nodes.
	if entries, err := os.ReadDir(m.deviceDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				if err := w.Add(filepath.Join(m.deviceDir, e.Name())); err != nil {
					logger.Warn("usb watch add failed", "dir", e.Name(), "err", err)
				}
			}
		}
	}
	done := make(chan struct{})
	m.usb.mu.Lock()
	if m.usb.w != nil {
		m.usb.mu.Unlock()
		w.Close()
		return nil
	}
	m.usb.w, m.usb.done = w, done
	m.usb.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				m.handleDeviceEvent(w, ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("usb watch error", "err", err)
			}
		}
	}()
	return nil
}

func (m *Monitoring) handleDeviceEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.Add(ev.Name)
			return
		}
		m.alert("*USB Cihaz Takıldı*\n\n" + deviceName(ev.Name))
	case ev.Has(fsnotify.Remove):
		if filepath.Dir(ev.Name) == filepath.Clean(m.deviceDir) {
			return
		}
		m.alert("*USB Cihaz Çıkarıldı*\n\n" + deviceName(ev.Name))
	}
}

func (m *Monitoring) usbDevices(ctx context.Context) (map[string]bool, error) {
	out, err := m.inv.Output(ctx, CmdUSBDevices, nil)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			set[line] = true
		}
	}
	return set, nil
}

func (m *Monitoring) startUSBPoll() string {
	first, err := m.usbDevices(context.Background())
	if err != nil {
		return "USB izleme başlatılamadı: " + err.Error()
	}
	m.mu.Lock()
	m.devices = first
	m.mu.Unlock()
	if !m.usbPoll.start(m.iv.USB, m.usbTick) {
		return "USB izleme zaten aktif."
	}
	return "USB izleme başlatıldı. USB cihaz değişikliklerinde bildirim gönderilecek."
}

func (m *Monitoring) usbTick(ctx context.Context) bool {
	current, err := m.usbDevices(ctx)
	if err != nil {
		logger.Warn("usb poll failed", "err", err)
		return true
	}
	m.mu.Lock()
	prev := m.devices
	m.devices = current
	m.mu.Unlock()
	for d := range current {
		if !prev[d] {
			m.alert("*USB Cihaz Takıldı*\n\n" + d)
		}
	}
	for d := range prev {
		if !current[d] {
			m.alert("*USB Cihaz Çıkarıldı*\n\n" + d)
		}
	}
	return true
}

// StopUSB stops USB monitoring.
func (m *Monitoring) StopUSB() string {
	a, b := m.usb.stop(), m.usbPoll.stop()
	if !a && !b {
		return "USB izleme zaten pasif."
	}
	return "USB izleme durduruldu."
}

// --- battery ---

// ParseBattery reads a charge percentage and an optional status line.
func ParseBattery(out string) (level int, charging, ok bool) {
	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return 0, false, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(lines[0], "%"))
	if err != nil {
		return 0, false, false
	}
	if len(lines) > 1 {
		status := strings.ToLower(lines[1])
		charging = status == "charging" || status == "full"
	}
	return n, charging, true
}

// StartBattery alerts when the battery runs low while discharging.
func (m *Monitoring) StartBattery() string {
	if !m.battery.start(m.iv.Battery, m.batteryTick) {
		return "Pil izleme zaten aktif."
	}
	return fmt.Sprintf("Pil izleme başlatıldı. Pil %%%d'nin altına düşerse bildirim gönderilecek.", m.batteryThreshold())
}

// StartBatteryAt starts battery monitoring with a new threshold. The
// threshold is kept when monitoring is already running.
func (m *Monitoring) StartBatteryAt(threshold int) string {
	if threshold > 0 && !m.battery.active() {
		m.mu.Lock()
		m.batThresh = threshold
		m.mu.Unlock()
	}
	return m.StartBattery()
}

func (m *Monitoring) batteryThreshold() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batThresh
}

func (m *Monitoring) batteryTick(ctx context.Context) bool {
	out, err := m.inv.Output(ctx, CmdBattery, nil)
	if err != nil {
		logger.Debug("battery probe failed", "err", err)
		return true
	}
	level, charging, ok := ParseBattery(out)
	if !ok {
		// No battery on this machine.
		return true
	}
	m.mu.Lock()
	last, thresh := m.lastLevel, m.batThresh
	m.lastLevel = level
	m.mu.Unlock()

	if level <= thresh && !charging && level != last {
		m.alert(fmt.Sprintf("*Düşük Pil Uyarısı!*\n\nPil seviyesi: %%%d\nŞarj durumu: Şarj olmuyor\n\nLütfen şarj cihazını takın!", level))
	}
	if level <= CriticalBatteryLevel && !charging && last > CriticalBatteryLevel {
		m.alert(fmt.Sprintf("*KRİTİK! Pil Bitmek Üzere!*\n\nPil seviyesi: %%%d\n\nHEMEN ŞARJ CİHAZINI TAKIN!", level))
	}
	return true
}

// StopBattery stops battery monitoring.
func (m *Monitoring) StopBattery() string {
	if !m.battery.stop() {
		return "Pil izleme zaten pasif."
	}
	return "Pil izleme durduruldu."
}

// --- network ---

func (m *Monitoring) reachable(ctx context.Context) bool {
	_, err := m.inv.Output(ctx, CmdPing, Args{"host": m.pingHost})
	return err == nil
}

// StartNetwork alerts when internet connectivity drops or returns.
func (m *Monitoring) StartNetwork() string {
	if m.network.active() {
		return "İnternet izleme zaten aktif."
	}
	online := m.reachable(context.Background())
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	if !m.network.start(m.iv.Network, m.networkTick) {
		return "İnternet izleme zaten aktif."
	}
	return "İnternet izleme başlatıldı. Bağlantı değişikliklerinde bildirim gönderilecek."
}

func (m *Monitoring) networkTick(ctx context.Context) bool {
	online := m.reachable(ctx)
	if ctx.Err() != nil {
		return true
	}
	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()
	if !changed {
		return true
	}
	if online {
		m.alert("*İnternet Bağlantısı Geri Geldi!*\n\nİnternet bağlantısı yeniden kuruldu.")
	} else {
		m.alert("*İnternet Bağlantısı Kesildi!*\n\nİnternet bağlantısı yok. Lütfen kontrol edin.")
	}
	return true
}

// StopNetwork stops connectivity monitoring.
func (m *Monitoring) StopNetwork() string {
	if !m.network.stop() {
		return "İnternet izleme zaten pasif."
	}
	return "İnternet izleme durduruldu."
}

// --- CPU ---

// StartCPU alerts when the load stays above the threshold for the
// configured number of minutes.
func (m *Monitoring) StartCPU() string {
	m.mu.Lock()
	m.highTicks = 0
	thresh, mins := m.cpuThresh, m.cpuMins
	m.mu.Unlock()
	if !m.cpu.start(m.iv.CPU, m.cpuTick) {
		return "CPU izleme zaten aktif."
	}
	return fmt.Sprintf("CPU izleme başlatıldı. CPU %%%.0f'ın üzerinde %d dakika kalırsa bildirim gönderilecek.", thresh, mins)
}

// StartCPUAt starts CPU monitoring with a new threshold and duration. Both
// are kept when monitoring is already running.
func (m *Monitoring) StartCPUAt(threshold float64, minutes int) string {
	if threshold > 0 && minutes > 0 && !m.cpu.active() {
		m.mu.Lock()
		m.cpuThresh, m.cpuMins = threshold, minutes
		m.mu.Unlock()
	}
	return m.StartCPU()
}

// cpuTicksNeeded is how many consecutive high samples make an alert.
func (m *Monitoring) cpuTicksNeeded() int {
	n := int(time.Duration(m.cpuMins) * time.Minute / m.iv.CPU)
	return max(n, 1)
}

func (m *Monitoring) cpuTick(ctx context.Context) bool {
	load, err := m.cpuProbe(ctx)
	if err != nil {
		logger.Debug("cpu probe failed", "err", err)
		return true
	}
	m.mu.Lock()
	if load < m.cpuThresh {
		m.highTicks = 0
		m.mu.Unlock()
		return true
	}
	m.highTicks++
	fire := m.highTicks >= m.cpuTicksNeeded()
	if fire {
		m.highTicks = 0
	}
	mins := m.cpuMins
	m.mu.Unlock()
	if !fire {
		return true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Yüksek CPU Kullanımı Uyarısı!*\n\nCPU: %%%.0f\nSüre: %d dakikadan fazla\n\n*En Çok CPU Kullanan İşlemler:*\n", load, mins)
	if procs, err := m.topProcs(ctx, 3); err == nil {
		for i, p := range procs {
			fmt.Fprintf(&sb, "%d. %s (%%%.1f)\n", i+1, p.Name, p.CPU)
		}
	}
	sb.WriteString("\nSistem yavaşlayabilir!")
	m.alert(sb.String())
	return true
}

// StopCPU stops CPU monitoring.
func (m *Monitoring) StopCPU() string {
	if !m.cpu.stop() {
		return "CPU izleme zaten pasif."
	}
	return "CPU izleme durduruldu."
}

// --- all ---

// StartAll starts every monitor.
func (m *Monitoring) StartAll() string {
	return strings.Join([]string{m.StartUSB(), m.StartBattery(), m.StartNetwork(), m.StartCPU()}, "\n")
}

// StopAll stops every monitor.
func (m *Monitoring) StopAll() string {
	return strings.Join([]string{m.StopUSB(), m.StopBattery(), m.StopNetwork(), m.StopCPU()}, "\n")
}

func activeText(on bool) string {
	if on {
		return "Aktif"
	}
	return "Pasif"
}

// Status reports which monitors run.
func (m *Monitoring) Status() string {
	var sb strings.Builder
	sb.WriteString("*İzleme Durumu*\n\n")
	fmt.Fprintf(&sb, "*USB İzleme:* %s\n", activeText(m.usb.active() || m.usbPoll.active()))
	fmt.Fprintf(&sb, "*Pil İzleme:* %s\n", activeText(m.battery.active()))
	fmt.Fprintf(&sb, "*İnternet İzleme:* %s\n", activeText(m.network.active()))
	fmt.Fprintf(&sb, "*CPU İzleme:* %s\n", activeText(m.cpu.active()))
	return sb.String()
}
