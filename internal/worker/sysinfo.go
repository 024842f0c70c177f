package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// Этапы, на которых снимается состояние системы.
const (
	StageBeforeBrowserStart = "before_browser_start"
	StageAfterBrowserStart  = "after_browser_start"
	StageAfterAutomation    = "after_automation"
	StageAfterBrowserStop   = "after_browser_stop"
)

// SystemInfoFile — имя файла снимков в каталоге сохранения.
const SystemInfoFile = "system_info.jsonl"

const gib = 1 << 30

// SystemInfo — память контейнера (cgroup) и хоста в один момент.
type SystemInfo struct {
	Time   time.Time `json:"time"`
	TaskID string    `json:"task_id"`
	Stage  string    `json:"stage"`

	ContainerMemoryTotalGiB float64 `json:"container_memory_total,omitempty"`
	ContainerMemoryUsedGiB  float64 `json:"container_memory_used,omitempty"`
	ContainerMemoryUsedPct  float64 `json:"percent_container_memory_used,omitempty"`
	HostMemoryTotalGiB      float64 `json:"host_memory_total"`
	HostMemoryUsedGiB       float64 `json:"host_memory_used"`
	HostMemoryUsedPct       float64 `json:"percent_host_memory_used"`
}

// SysInfoRecorder дописывает снимки в JSON lines файл и в лог.
type SysInfoRecorder struct {
	path       string
	cgroupRoot string
	now        func() time.Time
	logger     *slog.Logger
	mu         sync.Mutex
}

// NewSysInfoRecorder создаёт recorder, пишущий в saveDir/system_info.jsonl.
func NewSysInfoRecorder(saveDir string, logger *slog.Logger) *SysInfoRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SysInfoRecorder{
		path:       filepath.Join(saveDir, SystemInfoFile),
		cgroupRoot: "/sys/fs/cgroup",
		now:        time.Now,
		logger:     logger,
	}
}

// Record снимает состояние и сохраняет его. Ошибки только логируются.
func (r *SysInfoRecorder) Record(ctx context.Context, stage, taskID string) SystemInfo {
	info := SystemInfo{Time: r.now().UTC(), TaskID: taskID, Stage: stage}

	if used, total, ok := r.containerMemory(); ok {
		info.ContainerMemoryUsedGiB = round2(float64(used) / gib)
		info.ContainerMemoryTotalGiB = round2(float64(total) / gib)
		info.ContainerMemoryUsedPct = round2(float64(used) / float64(total))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		info.HostMemoryTotalGiB = round2(float64(vm.Total) / gib)
		info.HostMemoryUsedGiB = round2(float64(vm.Used) / gib)
		info.HostMemoryUsedPct = round2(float64(vm.Used) / float64(vm.Total))
	} else if err != nil {
		r.logger.Debug("host memory unavailable", "error", err)
	}

	r.logger.Info("system info",
		"task_id", taskID,
		"stage", stage,
		"container_memory_used", info.ContainerMemoryUsedGiB,
		"host_memory_used", info.HostMemoryUsedGiB,
	)

	if err := r.append(info); err != nil {
		r.logger.Warn("write system info failed", "path", r.path, "error", err)
	}
	return info
}

func (r *SysInfoRecorder) append(info SystemInfo) error {
	line, err := json.Marshal(info)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// containerMemory читает usage и limit из cgroup v2, затем из cgroup v1.
func (r *SysInfoRecorder) containerMemory() (used, total uint64, ok bool) {
	candidates := [][2]string{
		{"memory.current", "memory.max"},
		{"memory/memory.usage_in_bytes", "memory/memory.limit_in_bytes"},
	}
	for _, c := range candidates {
		used, err := readUint(filepath.Join(r.cgroupRoot, c[0]))
		if err != nil {
			continue
		}
		total, err := readUint(filepath.Join(r.cgroupRoot, c[1]))
		if err != nil || total == 0 {
			continue
		}
		return used, total, true
	}
	return 0, 0, false
}

// readUint читает число из файла cgroup. "max" означает отсутствие лимита.
func readUint(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(raw))
	if s == "max" {
		return 0, strconv.ErrRange
	}
	return strconv.ParseUint(s, 10, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
