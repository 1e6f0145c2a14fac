package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/ttsapi/internal/backend"
	"github.com/ekisa-team/ttsapi/internal/config"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	return nil, nil, a.Error(0)
}

func newTestDownloader(runner backend.CommandRunner) *HuggingFaceDownloader {
	d := NewHuggingFaceDownloaderWithExecutor(backend.NewExecutorWithRunner("hf", time.Minute, runner))
	d.retryDelay = time.Millisecond
	return d
}

func TestDownload_WritesMarkerAndSkipsSecondTime(t *testing.T) {
	dir := t.TempDir()
	repo := "tensorspeech/tts-tacotron2-ljspeech-en"
	want := filepath.Join(dir, "tensorspeech", "tts-tacotron2-ljspeech-en")

	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf",
		[]string{"download", repo, "--local-dir", want, "--revision", "v1", "--include", "*.h5"},
		nil).Return(nil).Once()

	d := newTestDownloader(runner)
	src := config.HuggingFaceSource{Repo: repo, Revision: "v1", Include: []string{"*.h5"}}

	path, cached, err := d.Download(context.Background(), src, dir)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, want, path)
	assert.FileExists(t, filepath.Join(want, markerFilename))

	path, cached, err = d.Download(context.Background(), src, dir)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, want, path)

	runner.AssertExpectations(t)
}

func TestDownload_RevisionChangeRedownloads(t *testing.T) {
	dir := t.TempDir()
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, nil).Return(nil).Twice()

	d := newTestDownloader(runner)
	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "a/b"}, dir)
	require.NoError(t, err)
	_, cached, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "a/b", Revision: "v2"}, dir)
	require.NoError(t, err)
	assert.False(t, cached)

	runner.AssertExpectations(t)
}

func TestDownload_RetriesThenFails(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, nil).Return(errors.New("network down")).Times(defaultMaxRetries)

	_, _, err := newTestDownloader(runner).Download(context.Background(), config.HuggingFaceSource{Repo: "a/b"}, t.TempDir())
	assert.ErrorContains(t, err, "network down")
	runner.AssertExpectations(t)
}

func TestDownload_SucceedsAfterRetry(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, nil).Return(errors.New("flaky")).Once()
	runner.On("Run", mock.Anything, "hf", mock.Anything, nil).Return(nil).Once()

	_, cached, err := newTestDownloader(runner).Download(context.Background(), config.HuggingFaceSource{Repo: "a/b"}, t.TempDir())
	require.NoError(t, err)
	assert.False(t, cached)
	runner.AssertExpectations(t)
}

func TestDownload_InvalidRepo(t *testing.T) {
	d := newTestDownloader(new(MockRunner))
	for _, repo := range []string{"", "  ", "../etc"} {
		_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: repo}, t.TempDir())
		assert.Error(t, err, repo)
	}
}

func TestDownload_ForceDownloadIgnoresMarker(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(full, 0o755))
	d := newTestDownloader(nil)
	require.NoError(t, os.WriteFile(filepath.Join(full, markerFilename), []byte(d.markerContent("a/b", "")), 0o644))

	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", []string{"download", "a/b", "--local-dir", full, "--force-download"}, nil).Return(nil).Once()

	_, cached, err := newTestDownloader(runner).Download(context.Background(), config.HuggingFaceSource{Repo: "a/b", ForceDownload: true}, dir)
	require.NoError(t, err)
	assert.False(t, cached)
	runner.AssertExpectations(t)
}
