package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/telemetry"
)

type fakeSession struct {
	port    int
	proxy   string
	stops   []bool // graceful флаги вызовов Stop
	stopErr error
}

func (s *fakeSession) CDPURL() string { return fmt.Sprintf("http://127.0.0.1:%d", s.port) }

func (s *fakeSession) Stop(_ context.Context, graceful bool) error {
	s.stops = append(s.stops, graceful)
	return s.stopErr
}

type fakeLauncher struct {
	launched []*fakeSession
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, port int, proxy string) (BrowserSession, error) {
	if l.err != nil {
		return nil, l.err
	}
	s := &fakeSession{port: port, proxy: proxy}
	l.launched = append(l.launched, s)
	return s, nil
}

func TestSessionManager_NonDedicated(t *testing.T) {
	launcher := &fakeLauncher{}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	m := NewSessionManager(launcher, metrics, nil)
	task := &domain.Task{TaskID: "t1"}

	s, err := m.Acquire(context.Background(), task, 9223, "")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9223", s.CDPURL())

	m.Release(context.Background(), task)
	assert.False(t, m.Active(), "non-dedicated session should be released")
	assert.Equal(t, []bool{true}, launcher.launched[0].stops)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsStarted))
}

func TestSessionManager_DedicatedReuse(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewSessionManager(launcher, nil, nil)
	dedicated := &domain.Task{TaskID: "d", IsDedicated: true}

	first, err := m.Acquire(context.Background(), dedicated, 9222, "")
	require.NoError(t, err)
	m.Release(context.Background(), dedicated)
	second, err := m.Acquire(context.Background(), dedicated, 9222, "")
	require.NoError(t, err)

	assert.Same(t, first, second, "dedicated task should reuse the live session")
	assert.Len(t, launcher.launched, 1)

	// Невыделенный task не получает чужую сессию: она останавливается без graceful.
	_, err = m.Acquire(context.Background(), &domain.Task{TaskID: "n"}, 9222, "")
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, launcher.launched[0].stops)
	assert.Len(t, launcher.launched, 2, "expected a fresh browser")
}

func TestSessionManager_DedicatedProxyChange(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewSessionManager(launcher, nil, nil)
	task := &domain.Task{TaskID: "d", IsDedicated: true}

	_, err := m.Acquire(context.Background(), task, 9222, "")
	require.NoError(t, err)

	task.UseProxy = true
	s, err := m.Acquire(context.Background(), task, 9222, "http://proxy:3128")
	require.NoError(t, err)
	require.Len(t, launcher.launched, 2, "expected relaunch for proxy")
	assert.Equal(t, []bool{false}, launcher.launched[0].stops)
	assert.Equal(t, "http://proxy:3128", s.(*fakeSession).proxy)

	// Тот же прокси — сессия переиспользуется.
	again, err := m.Acquire(context.Background(), task, 9222, "http://proxy:3128")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Len(t, launcher.launched, 2)

	// Обратно без прокси — снова перезапуск.
	task.UseProxy = false
	direct, err := m.Acquire(context.Background(), task, 9222, "")
	require.NoError(t, err)
	assert.Len(t, launcher.launched, 3)
	assert.Empty(t, direct.(*fakeSession).proxy)
}

func TestSessionManager_ReleaseErrorIsLogged(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewSessionManager(launcher, nil, nil)
	task := &domain.Task{TaskID: "t"}

	_, err := m.Acquire(context.Background(), task, 9222, "")
	require.NoError(t, err)
	launcher.launched[0].stopErr = errors.New("already dead")

	m.Release(context.Background(), task)
	assert.False(t, m.Active(), "session should be dropped even if stop failed")
}

func TestSessionManager_Close(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewSessionManager(launcher, nil, nil)

	assert.NoError(t, m.Close(context.Background()), "close without session")

	_, err := m.Acquire(context.Background(), &domain.Task{TaskID: "d", IsDedicated: true}, 9222, "")
	require.NoError(t, err)
	require.NoError(t, m.Close(context.Background()))
	assert.Equal(t, []bool{true}, launcher.launched[0].stops)
}

func TestSessionManager_LaunchErrors(t *testing.T) {
	m := NewSessionManager(nil, nil, nil)
	_, err := m.Acquire(context.Background(), &domain.Task{}, 1, "")
	assert.ErrorIs(t, err, ErrNoLauncher)

	boom := errors.New("no chrome")
	m = NewSessionManager(&fakeLauncher{err: boom}, nil, nil)
	_, err = m.Acquire(context.Background(), &domain.Task{}, 1, "")
	assert.ErrorIs(t, err, boom)
}
