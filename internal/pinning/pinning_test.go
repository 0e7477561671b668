package pinning_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/JaimeStill/upload-lab/internal/pinning"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
	"github.com/JaimeStill/upload-lab/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newBlobs(t *testing.T) storage.System {
	t.Helper()
	blobs, err := storage.New(&storage.Config{BasePath: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}
	lc := lifecycle.New()
	blobs.Start(lc)
	lc.WaitForStartup()
	return blobs
}

func TestPin_Filesystem(t *testing.T) {
	blobs := newBlobs(t)
	cfg := &pinning.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	sys, err := pinning.New(context.Background(), cfg, blobs, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	pin, err := sys.Pin(ctx, strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Pin() failed: %v", err)
	}

	if pin.Bytes != int64(len("pdf bytes")) {
		t.Errorf("Bytes = %d, want %d", pin.Bytes, len("pdf bytes"))
	}

	stored, err := blobs.Retrieve(ctx, "pins/"+pin.CID)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if string(stored) != "pdf bytes" {
		t.Errorf("stored = %q, want %q", stored, "pdf bytes")
	}

	exists, err := sys.Exists(ctx, pin.CID)
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil", exists, err)
	}

	again, err := sys.Pin(ctx, strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("second Pin() failed: %v", err)
	}
	if again.CID != pin.CID {
		t.Errorf("re-pin CID = %q, want %q", again.CID, pin.CID)
	}
}

func TestExists_InvalidCID(t *testing.T) {
	sys := pinning.NewWithBackend(pinning.NewFilesystem(newBlobs(t), "pins"), testLogger())

	if _, err := sys.Exists(context.Background(), "../../etc/passwd"); !errors.Is(err, pinning.ErrInvalidCID) {
		t.Errorf("Exists() error = %v, want %v", err, pinning.ErrInvalidCID)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if int64(len(data)) != *in.ContentLength {
		return nil, errors.New("content length mismatch")
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestPin_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	sys := pinning.NewWithBackend(pinning.NewS3WithClient(fake, "uploads", "pins"), testLogger())
	ctx := context.Background()

	pin, err := sys.Pin(ctx, strings.NewReader("csv,data\n1,2\n"))
	if err != nil {
		t.Fatalf("Pin() failed: %v", err)
	}

	if got := string(fake.objects["uploads/pins/"+pin.CID]); got != "csv,data\n1,2\n" {
		t.Errorf("object = %q", got)
	}

	if _, err := sys.Pin(ctx, strings.NewReader("csv,data\n1,2\n")); err != nil {
		t.Fatalf("second Pin() failed: %v", err)
	}
	if fake.puts != 1 {
		t.Errorf("puts = %d, want 1 for already pinned content", fake.puts)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     pinning.Config
		wantErr bool
	}{
		{"defaults", pinning.Config{}, false},
		{"s3 without bucket", pinning.Config{Backend: pinning.BackendS3}, true},
		{"s3 with bucket", pinning.Config{Backend: pinning.BackendS3, S3: pinning.S3Config{Bucket: "b"}}, false},
		{"unknown", pinning.Config{Backend: "ipfs"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
