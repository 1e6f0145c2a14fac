package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock types ---

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	stdout, _ := a.Get(0).([]byte)
	stderr, _ := a.Get(1).([]byte)
	return stdout, stderr, a.Error(2)
}

// --- Tests ---

func TestExecutor_Execute(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "/usr/bin/hf", []string{"download", "repo"}, nil).
		Return([]byte("ok"), []byte(""), nil).Once()

	exec := NewExecutorWithRunner("/usr/bin/hf", time.Second, runner)
	stdout, stderr, err := exec.Execute(context.Background(), []string{"download", "repo"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(stdout))
	assert.Empty(t, stderr)
	assert.Equal(t, "/usr/bin/hf", exec.BinaryPath())
	runner.AssertExpectations(t)
}

func TestExecutor_ExecuteAppliesTimeout(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "bin", []string(nil), nil).Return(nil, []byte("boom"), errors.New("exit status 1")).Once()

	_, stderr, err := NewExecutorWithRunner("bin", time.Minute, runner).Execute(context.Background(), nil, nil)
	assert.EqualError(t, err, "exit status 1")
	assert.Equal(t, "boom", string(stderr))
	runner.AssertExpectations(t)
}

func TestNewExecutor_MissingBinary(t *testing.T) {
	_, err := NewExecutor(filepath.Join(t.TempDir(), "missing-binary"), time.Second)
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestExecCommandRunner_Run(t *testing.T) {
	if _, err := NewExecutor("cat", time.Second); err != nil {
		t.Skip("cat not available")
	}

	stdout, _, err := ExecCommandRunner{}.Run(context.Background(), "cat", nil, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(stdout))
}

func TestServerManager_StartMissingBinary(t *testing.T) {
	sm := NewServerManager()
	err := sm.StartServer(context.Background(), ServerConfig{
		Name:    "tts-bridge",
		BinPath: filepath.Join(t.TempDir(), "tts-bridge"),
		Port:    5100,
	})
	assert.ErrorIs(t, err, ErrBinaryNotFound)
	assert.False(t, sm.running("tts-bridge", 5100))
}

func TestServerManager_StopUnknown(t *testing.T) {
	err := NewServerManager().StopServer("tts-bridge", 5100)
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestServerManager_WaitForServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sm := NewServerManager()
	sm.pollInterval = 10 * time.Millisecond

	require.NoError(t, sm.waitForServer(context.Background(), srv.URL+"/health", 2*time.Second))
	assert.Equal(t, int32(3), calls.Load())
}

func TestServerManager_WaitForServerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sm := NewServerManager()
	sm.pollInterval = 10 * time.Millisecond

	err := sm.waitForServer(context.Background(), srv.URL, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestServerManager_WaitForServerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sm := NewServerManager()
	err := sm.waitForServer(ctx, "http://127.0.0.1:1/health", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
