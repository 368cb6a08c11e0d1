package actions

import (
	"context"
	"fmt"
	"math"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
)

// FormatBytes renders a byte count with two decimals in B, KB, MB, GB or TB.
func FormatBytes(n uint64) string {
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	return fmt.Sprintf("%.2f %s", float64(n)/math.Pow(1024, float64(i)), units[i])
}

// FormatUptime renders seconds as days, hours and minutes.
func FormatUptime(seconds uint64) string {
	return fmt.Sprintf("%d gün %d saat %d dakika", seconds/86400, (seconds%86400)/3600, (seconds%3600)/60)
}

// System reports host metrics.
type System struct {
	inv     *Invoker
	tempDir string
}

// NewSystem creates a System. Report files are written under tempDir.
func NewSystem(inv *Invoker, tempDir string) (*System, error) {
	if inv == nil {
		return nil, fmt.Errorf("actions: system: invoker is required")
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &System{inv: inv, tempDir: tempDir}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Bilinmiyor"
	}
	return s
}

// Info builds the detailed system report.
func (s *System) Info(ctx context.Context) (string, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return "Sistem bilgisi alınamadı: " + err.Error(), nil
	}
	var sb strings.Builder
	sb.WriteString("*Detaylı Sistem Bilgisi*\n\n")

	sb.WriteString("*İşletim Sistemi:*\n")
	fmt.Fprintf(&sb, "• İsim: %s\n", orUnknown(hi.Platform))
	fmt.Fprintf(&sb, "• Sürüm: %s\n", orUnknown(hi.PlatformVersion))
	fmt.Fprintf(&sb, "• Platform: %s\n", orUnknown(hi.OS))
	fmt.Fprintf(&sb, "• Mimar: %s\n", orUnknown(hi.KernelArch))
	fmt.Fprintf(&sb, "• Çalışma Süresi: %s\n\n", FormatUptime(hi.Uptime))

	sb.WriteString("*İşlemci (CPU):*\n")
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		cores, _ := cpu.CountsWithContext(ctx, false)
		fmt.Fprintf(&sb, "• Üretici: %s\n", orUnknown(infos[0].VendorID))
		fmt.Fprintf(&sb, "• Model: %s\n", orUnknown(infos[0].ModelName))
		fmt.Fprintf(&sb, "• Çekirdek Sayısı: %d\n", cores)
		fmt.Fprintf(&sb, "• Hız: %.2f GHz\n", infos[0].Mhz/1000)
	}
	if t, ok := cpuTemperature(ctx); ok {
		fmt.Fprintf(&sb, "• Sıcaklık: %.0f°C\n\n", t)
	} else {
		sb.WriteString("• Sıcaklık: Sensör yok\n\n")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		free := vm.Total - vm.Used
		sb.WriteString("*Bellek (RAM):*\n")
		fmt.Fprintf(&sb, "• Toplam: %s\n", FormatBytes(vm.Total))
		fmt.Fprintf(&sb, "• Kullanılan: %s (%%%.1f)\n", FormatBytes(vm.Used), vm.UsedPercent)
		fmt.Fprintf(&sb, "• Boş: %s (%%%.1f)\n\n", FormatBytes(free), 100-vm.UsedPercent)
	}

	sb.WriteString("*Disk Kullanımı:*\n")
	for _, d := range diskUsages(ctx) {
		fmt.Fprintf(&sb, "*%s:*\n", d.fs)
		fmt.Fprintf(&sb, "• Toplam: %s\n", FormatBytes(d.total))
		fmt.Fprintf(&sb, "• Kullanılan: %s (%%%.1f)\n", FormatBytes(d.used), d.percent)
		fmt.Fprintf(&sb, "• Boş: %s\n\n", FormatBytes(d.free))
	}
	return sb.String(), nil
}

// CPU reports model, core count and current load.
func (s *System) CPU(ctx context.Context) (string, error) {
	model := "Bilinmiyor"
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		model = infos[0].ModelName
	}
	cores, _ := cpu.CountsWithContext(ctx, true)
	load, err := cpuLoad(ctx)
	if err != nil {
		return "CPU bilgisi alınamadı: " + err.Error(), nil
	}
	return fmt.Sprintf("*CPU Bilgisi*\n\nModel: %s\nÇekirdek: %d\nKullanım: %%%.1f", model, cores, load), nil
}

// RAM reports memory usage in GB.
func (s *System) RAM(ctx context.Context) (string, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return "RAM bilgisi alınamadı: " + err.Error(), nil
	}
	gb := func(n uint64) float64 { return float64(n) / (1024 * 1024 * 1024) }
	return fmt.Sprintf("*RAM Kullanımı*\n\nKullanılan: %.2f GB\nToplam: %.2f GB\nBoş: %.2f GB\nKullanım: %%%.1f",
		gb(vm.Used), gb(vm.Total), gb(vm.Total-vm.Used), vm.UsedPercent), nil
}

// Temperature lists the sensor readings that look like CPU or GPU probes.
func (s *System) Temperature(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("*Sistem Sıcaklıkları*\n\n")
	temps, _ := sensors.TemperaturesWithContext(ctx)
	if t, ok := cpuTemperature(ctx); ok {
		fmt.Fprintf(&sb, "*CPU:* %.0f°C\n", t)
		var sum float64
		var n int
		var hottest float64
		for _, ts := range temps {
			if strings.Contains(strings.ToLower(ts.SensorKey), "core") {
				sum += ts.Temperature
				n++
				hottest = math.Max(hottest, ts.Temperature)
			}
		}
		if n > 0 {
			fmt.Fprintf(&sb, "   • Maksimum: %.0f°C\n", hottest)
			fmt.Fprintf(&sb, "   • Çekirdek Ortalaması: %.1f°C\n", sum/float64(n))
		}
	} else {
		sb.WriteString("*CPU:* Sensör yok\n")
	}
	gpus := 0
	for _, ts := range temps {
		key := strings.ToLower(ts.SensorKey)
		if strings.Contains(key, "gpu") || strings.Contains(key, "amdgpu") || strings.Contains(key, "nouveau") {
			gpus++
			fmt.Fprintf(&sb, "*GPU %d:* %.0f°C (%s)\n", gpus, ts.Temperature, ts.SensorKey)
		}
	}
	if len(temps) == 0 {
		sb.WriteString("\nSistemde sıcaklık sensörü tespit edilemedi.\n")
		sb.WriteString("Masaüstü PC'lerde sıcaklık bilgisi genellikle BIOS/UEFI'den alınır.")
	}
	return sb.String(), nil
}

func cpuTemperature(ctx context.Context) (float64, bool) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return 0, false
	}
	for _, prefix := range []string{"coretemp_package", "k10temp_tctl", "cpu", "coretemp", "acpitz"} {
		for _, t := range temps {
			if strings.HasPrefix(strings.ToLower(t.SensorKey), prefix) && t.Temperature > 0 {
				return t.Temperature, true
			}
		}
	}
	return 0, false
}

func cpuLoad(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, fmt.Errorf("actions: cpu: no samples")
	}
	return pct[0], nil
}

type diskUsage struct {
	fs, fstype        string
	total, used, free uint64
	percent           float64
}

func diskUsages(ctx context.Context) []diskUsage {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil
	}
	var out []diskUsage
	seen := map[string]bool{}
	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		seen[p.Device] = true
		out = append(out, diskUsage{fs: p.Mountpoint, fstype: p.Fstype, total: u.Total, used: u.Used, free: u.Free, percent: u.UsedPercent})
	}
	return out
}

// Disk reports usage per mounted filesystem.
func (s *System) Disk(ctx context.Context) (string, error) {
	usages := diskUsages(ctx)
	if len(usages) == 0 {
		return "Disk bilgisi alınamadı.", nil
	}
	var sb strings.Builder
	sb.WriteString("*Disk Kullanımı*\n\n")
	for _, d := range usages {
		fmt.Fprintf(&sb, "*%s* (%s)\n", d.fs, d.fstype)
		fmt.Fprintf(&sb, "• Toplam: %s\n", FormatBytes(d.total))
		fmt.Fprintf(&sb, "• Kullanılan: %s (%%%.1f)\n", FormatBytes(d.used), d.percent)
		fmt.Fprintf(&sb, "• Boş: %s\n\n", FormatBytes(d.free))
	}
	return sb.String(), nil
}

// AnalyzeDisk lists the largest entries below the first disk.
func (s *System) AnalyzeDisk(ctx context.Context) (string, error) {
	root := "/"
	if usages := diskUsages(ctx); len(usages) > 0 {
		root = usages[0].fs
	}
	return s.inv.Invoke(ctx, CmdDiskAnalyze, Args{"path": root})
}

func level(v, normal, high float64) string {
	switch {
	case v < normal:
		return "Normal"
	case v < high:
		return "Yüksek"
	default:
		return "Kritik"
	}
}

// Health grades CPU, RAM, temperature and disks.
func (s *System) Health(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("*Sistem Sağlığı*\n\n")
	if load, err := cpuLoad(ctx); err == nil {
		fmt.Fprintf(&sb, "CPU: %s (%%%.1f)\n", level(load, 50, 80), load)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fmt.Fprintf(&sb, "RAM: %s (%%%.1f)\n", level(vm.UsedPercent, 70, 90), vm.UsedPercent)
	}
	if t, ok := cpuTemperature(ctx); ok {
		fmt.Fprintf(&sb, "Sıcaklık: %s (%.0f°C)\n", level(t, 70, 85), t)
	}
	for _, d := range diskUsages(ctx) {
		fmt.Fprintf(&sb, "Disk %s: %s (%%%.1f)\n", d.fs, level(d.percent, 80, 95), d.percent)
	}
	return sb.String(), nil
}

// ProcessInfo is one row of a process listing.
type ProcessInfo struct {
	Name string
	PID  int32
	CPU  float64
}

func listProcesses(ctx context.Context, withCPU bool) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		info := ProcessInfo{Name: name, PID: p.Pid}
		if withCPU {
			info.CPU, _ = p.CPUPercentWithContext(ctx)
		}
		out = append(out, info)
	}
	return out, nil
}

// TopProcesses returns the n processes with the highest CPU share.
func TopProcesses(ctx context.Context, n int) ([]ProcessInfo, error) {
	procs, err := listProcesses(ctx, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].CPU > procs[j].CPU })
	if len(procs) > n {
		procs = procs[:n]
	}
	return procs, nil
}

// Processes lists the first 50 running processes.
func (s *System) Processes(ctx context.Context) (string, error) {
	procs, err := listProcesses(ctx, false)
	if err != nil {
		return "Program listesi alınamadı: " + err.Error(), nil
	}
	if len(procs) > 50 {
		procs = procs[:50]
	}
	var sb strings.Builder
	sb.WriteString("*Çalışan Programlar (İlk 50):*\n\n")
	for i, p := range procs {
		fmt.Fprintf(&sb, "%d. %s (PID: %d)\n", i+1, p.Name, p.PID)
	}
	sb.WriteString("\nTüm programları dosya olarak görmek için \"Program Listesi (TXT)\" butonunu kullanın.")
	return sb.String(), nil
}

// ProcessesFile writes every running process to a text report and returns
// its path. The caller removes the file after sending it.
func (s *System) ProcessesFile(ctx context.Context) (string, error) {
	procs, err := listProcesses(ctx, false)
	if err != nil {
		return "", fmt.Errorf("actions: processes file: %w", err)
	}
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("actions: processes file: %w", err)
	}
	path := filepath.Join(s.tempDir, "running_programs.txt")
	var sb strings.Builder
	sb.WriteString("Çalışan Programlar Raporu\n")
	fmt.Fprintf(&sb, "Tarih: %s\n", time.Now().Format(trDateTime))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	fmt.Fprintf(&sb, "%-40s %10s\n", "Program", "PID")
	for _, p := range procs {
		fmt.Fprintf(&sb, "%-40s %10d\n", p.Name, p.PID)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("actions: processes file: %w", err)
	}
	return path, nil
}

const trDateTime = "02.01.2006 15:04:05"

// IPInfo lists the addresses of every non-loopback interface.
func (s *System) IPInfo(ctx context.Context) (string, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return "IP bilgisi alınamadı: " + err.Error(), nil
	}
	var sb strings.Builder
	sb.WriteString("*IP Bilgileri*\n\n")
	for _, iface := range ifaces {
		if containsFold(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			prefix, err := netip.ParsePrefix(a.Addr)
			if err != nil {
				continue
			}
			family := "IPv4"
			if prefix.Addr().Is6() {
				family = "IPv6"
			}
			fmt.Fprintf(&sb, "*%s:*\n", iface.Name)
			fmt.Fprintf(&sb, "• IP: %s\n", prefix.Addr())
			fmt.Fprintf(&sb, "• MAC: %s\n", orUnknown(iface.HardwareAddr))
			fmt.Fprintf(&sb, "• Aile: %s\n\n", family)
		}
	}
	return sb.String(), nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Traffic reports byte counters and the rate over one second per
// interface.
func (s *System) Traffic(ctx context.Context) (string, error) {
	first, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return "Ağ trafiği alınamadı: " + err.Error(), nil
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
	}
	second, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return "Ağ trafiği alınamadı: " + err.Error(), nil
	}
	prev := make(map[string]psnet.IOCountersStat, len(first))
	for _, c := range first {
		prev[c.Name] = c
	}

	var sb strings.Builder
	sb.WriteString("*Ağ Trafiği*\n\n")
	n := 0
	for _, c := range second {
		if c.BytesRecv == 0 && c.BytesSent == 0 {
			continue
		}
		n++
		p := prev[c.Name]
		fmt.Fprintf(&sb, "*Bağlantı %d:* %s\n", n, c.Name)
		fmt.Fprintf(&sb, "• İndirme: %s\n", FormatBytes(c.BytesRecv))
		fmt.Fprintf(&sb, "• Yükleme: %s\n", FormatBytes(c.BytesSent))
		fmt.Fprintf(&sb, "• İndirme Hızı: %s/s\n", FormatBytes(sub(c.BytesRecv, p.BytesRecv)))
		fmt.Fprintf(&sb, "• Yükleme Hızı: %s/s\n\n", FormatBytes(sub(c.BytesSent, p.BytesSent)))
	}
	return sb.String(), nil
}

func sub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

var arpLine = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+)\)?\s+(?:at\s+)?([0-9a-fA-F]{1,2}(?:[:-][0-9a-fA-F]{1,2}){5})`)

// FormatARPScan renders the neighbours found in arp output.
func FormatARPScan(out string) string {
	var sb strings.Builder
	sb.WriteString("*Ağ Taraması*\n\n")
	n := 0
	for _, line := range strings.Split(out, "\n") {
		m := arpLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. %s (%s)\n", n, m[1], m[2])
	}
	fmt.Fprintf(&sb, "\n*Toplam: %d cihaz bulundu*", n)
	return sb.String()
}

// ScanNetwork lists the hosts in the ARP table.
func (s *System) ScanNetwork(ctx context.Context) (string, error) {
	out, err := s.inv.Output(ctx, CmdARP, nil)
	if err != nil {
		return "Ağ taraması başarısız: " + err.Error(), nil
	}
	return FormatARPScan(out), nil
}

// Sample is one CPU and RAM reading.
type Sample struct {
	At  time.Time
	CPU float64
	RAM float64
}

// Sampler keeps a rolling window of performance samples.
type Sampler struct {
	interval time.Duration
	keep     int
	probe    func(ctx context.Context) (Sample, error)

	mu      sync.Mutex
	samples []Sample
}

// Sampler defaults.
const (
	DefaultSampleInterval = 10 * time.Second
	DefaultSampleKeep     = 20
	chartRows             = 10
	chartCells            = 20
)

// NewSampler creates a Sampler reading live host metrics.
func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{interval: interval, keep: DefaultSampleKeep, probe: probeHost}
}

func probeHost(ctx context.Context) (Sample, error) {
	load, err := cpuLoad(ctx)
	if err != nil {
		return Sample{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{At: time.Now(), CPU: load, RAM: vm.UsedPercent}, nil
}

// Collect takes one sample.
func (s *Sampler) Collect(ctx context.Context) error {
	sample, err := s.probe(ctx)
	if err != nil {
		return fmt.Errorf("actions: sampler: %w", err)
	}
	s.add(sample)
	return nil
}

func (s *Sampler) add(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	if len(s.samples) > s.keep {
		s.samples = s.samples[len(s.samples)-s.keep:]
	}
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = s.Collect(ctx)
		}
	}
}

// Samples returns a copy of the window, oldest first.
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.samples...)
}

func bar(pct float64) string {
	filled := int(math.Round(pct / 5))
	filled = max(0, min(chartCells, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", chartCells-filled)
}

// Chart renders the newest samples as bars, newest first.
func (s *Sampler) Chart() string {
	samples := s.Samples()
	if len(samples) == 0 {
		return "Henüz yeterli veri toplanmadı. Lütfen birkaç dakika bekleyin."
	}
	var sb strings.Builder
	sb.WriteString("*Performans Grafiği (Son 10 Kayıt)*\n\n")
	stop := max(0, len(samples)-chartRows)
	for i := len(samples) - 1; i >= stop; i-- {
		smp := samples[i]
		fmt.Fprintf(&sb, "%s\n", smp.At.Format("15:04:05"))
		fmt.Fprintf(&sb, "CPU: %s %.1f%%\n", bar(smp.CPU), smp.CPU)
		fmt.Fprintf(&sb, "RAM: %s %.1f%%\n\n", bar(smp.RAM), smp.RAM)
	}
	return sb.String()
}
