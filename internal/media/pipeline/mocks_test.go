package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
	"github.com/romariotrain/hls-pipeline/internal/media/repository"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Create(ctx context.Context, id string, status models.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *StoreMock) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error) {
	args := m.Called(ctx, id, status)
	if v := args.Get(0); v != nil {
		return v.(*models.VideoStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) GetByID(ctx context.Context, id string) (*models.VideoStatus, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.VideoStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, remotePath, localPath, contentType string) (string, error) {
	args := m.Called(ctx, remotePath, localPath, contentType)
	return args.String(0), args.Error(1)
}

// transition is one successful write to the status store.
type transition struct {
	id     string
	status models.Status
}

// recordingRepo wraps the in-memory store and remembers every write in order.
type recordingRepo struct {
	*repository.MemoryRepository

	mu         sync.Mutex
	history    []transition
	failUpdate func(id string, status models.Status) error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{MemoryRepository: repository.NewMemoryRepository()}
}

func (r *recordingRepo) Create(ctx context.Context, id string, status models.Status) error {
	// Запись под локом, чтобы порядок history совпадал с порядком записей
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.MemoryRepository.Create(ctx, id, status); err != nil {
		return err
	}
	r.history = append(r.history, transition{id: id, status: status})
	return nil
}

func (r *recordingRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		if err := r.failUpdate(id, status); err != nil {
			return nil, err
		}
	}
	v, err := r.MemoryRepository.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	r.history = append(r.history, transition{id: id, status: status})
	return v, nil
}

func (r *recordingRepo) statusesOf(id string) []models.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Status
	for _, tr := range r.history {
		if tr.id == id {
			out = append(out, tr.status)
		}
	}
	return out
}

// indexOf returns the position of the first write of status for id, or -1.
func (r *recordingRepo) indexOf(id string, status models.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tr := range r.history {
		if tr.id == id && tr.status == status {
			return i
		}
	}
	return -1
}

// stubTranscoder writes fake HLS output under root/<job id> and tracks how
// many Encode calls overlap.
type stubTranscoder struct {
	root  string
	files []string
	delay time.Duration
	err   error
	// gate, when set, blocks Encode until it is closed.
	gate chan struct{}

	calls   atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64

	mu    sync.Mutex
	order []string
}

func newStubTranscoder(root string, files ...string) *stubTranscoder {
	if len(files) == 0 {
		files = []string{"master.m3u8", filepath.Join("v0", "prog_index.m3u8")}
	}
	return &stubTranscoder{root: root, files: files}
}

func (s *stubTranscoder) Encode(ctx context.Context, sourcePath string) (string, error) {
	s.calls.Add(1)
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	id := JobID(sourcePath)
	s.mu.Lock()
	s.order = append(s.order, id)
	s.mu.Unlock()

	if s.gate != nil {
		<-s.gate
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	dir := filepath.Join(s.root, id)
	if s.err != nil {
		// Частичный вывод остаётся на диске, как у настоящего ffmpeg
		_ = os.MkdirAll(dir, 0o755)
		_ = os.WriteFile(filepath.Join(dir, "partial.ts"), []byte("x"), 0o644)
		return "", s.err
	}

	for _, f := range s.files {
		p := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte("#EXTM3U\n"), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (s *stubTranscoder) encoded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// funcPublisher adapts a function to Publisher.
type funcPublisher func(ctx context.Context, remotePath, localPath, contentType string) (string, error)

func (f funcPublisher) Publish(ctx context.Context, remotePath, localPath, contentType string) (string, error) {
	return f(ctx, remotePath, localPath, contentType)
}

func okPublisher() funcPublisher {
	return func(_ context.Context, remotePath, _, _ string) (string, error) {
		return "https://cdn.example.com/" + remotePath, nil
	}
}

var errUpload = errors.New("upload failed")
