//go:build unix

package worker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/domain"
)

// processGone сообщает, что процесса нет или он уже зомби и ждёт reap.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return true
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	// pid (comm) state ...
	rest := string(stat)
	if i := strings.LastIndexByte(rest, ')'); i >= 0 {
		rest = rest[i+1:]
	}
	fields := strings.Fields(rest)
	return len(fields) > 0 && fields[0] == "Z"
}

func TestRunner_TimeoutKillsWholeGroup(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	pidFile := filepath.Join(t.TempDir(), "grandchild.pid")

	command := func(RunSpec) (*exec.Cmd, error) {
		cmd := exec.Command("sh", "-c", `sleep 60 & echo $! > "$PID_FILE"; cat >/dev/null; wait`)
		cmd.Env = append(os.Environ(), "PID_FILE="+pidFile)
		return cmd, nil
	}
	r := NewRunner(RunnerConfig{Command: command, Timeout: 500 * time.Millisecond})

	code, err := r.Run(context.Background(), helperSpec())
	require.NoError(t, err)
	assert.Equal(t, domain.ExitCodeTimeout, code)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err, "grandchild pid was not written before the timeout")
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 50*time.Millisecond,
		"grandchild %d survived the group kill", pid)
	_ = syscall.Kill(pid, syscall.SIGKILL)
}
