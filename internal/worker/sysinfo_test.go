package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readLines(t *testing.T, path string) []SystemInfo {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []SystemInfo
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var info SystemInfo
		require.NoError(t, json.Unmarshal(sc.Bytes(), &info))
		out = append(out, info)
	}
	return out
}

func TestSysInfoRecorder_CgroupV2(t *testing.T) {
	saveDir := t.TempDir()
	cgroup := t.TempDir()
	writeFile(t, filepath.Join(cgroup, "memory.current"), "536870912\n")
	writeFile(t, filepath.Join(cgroup, "memory.max"), "2147483648\n")

	r := NewSysInfoRecorder(saveDir, nil)
	r.cgroupRoot = cgroup
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	info := r.Record(context.Background(), StageBeforeBrowserStart, "t1")
	assert.Equal(t, 0.5, info.ContainerMemoryUsedGiB)
	assert.Equal(t, 2.0, info.ContainerMemoryTotalGiB)
	assert.Equal(t, 0.25, info.ContainerMemoryUsedPct)

	r.Record(context.Background(), StageAfterBrowserStop, "t1")

	lines := readLines(t, filepath.Join(saveDir, SystemInfoFile))
	require.Len(t, lines, 2)
	assert.Equal(t, StageBeforeBrowserStart, lines[0].Stage)
	assert.Equal(t, StageAfterBrowserStop, lines[1].Stage)
	assert.Equal(t, "t1", lines[1].TaskID)
}

func TestSysInfoRecorder_CgroupV1(t *testing.T) {
	cgroup := t.TempDir()
	writeFile(t, filepath.Join(cgroup, "memory", "memory.usage_in_bytes"), "1073741824")
	writeFile(t, filepath.Join(cgroup, "memory", "memory.limit_in_bytes"), "4294967296")

	r := NewSysInfoRecorder(t.TempDir(), nil)
	r.cgroupRoot = cgroup

	used, total, ok := r.containerMemory()
	require.True(t, ok)
	assert.Equal(t, uint64(1<<30), used)
	assert.Equal(t, uint64(4<<30), total)
}

func TestSysInfoRecorder_UnlimitedCgroup(t *testing.T) {
	cgroup := t.TempDir()
	writeFile(t, filepath.Join(cgroup, "memory.current"), "1024")
	writeFile(t, filepath.Join(cgroup, "memory.max"), "max")

	r := NewSysInfoRecorder(t.TempDir(), nil)
	r.cgroupRoot = cgroup

	_, _, ok := r.containerMemory()
	assert.False(t, ok)

	info := r.Record(context.Background(), StageAfterAutomation, "t2")
	assert.Zero(t, info.ContainerMemoryTotalGiB)
}
