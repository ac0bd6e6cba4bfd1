package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/aws/smithy-go"

	"s3drain/internal/models"
)

// DefaultChunkSize is the flush granularity for streamed downloads.
const DefaultChunkSize = 8 * 1024 * 1024

// ErrSizeExceeded means the local file is longer than the remote object
// says it should be. The file is never truncated to "fix" this.
var ErrSizeExceeded = errors.New("local file exceeds expected object size")

// RangeGetter is the provider capability the engine needs: a streamed
// fetch of bytes [start, end] (inclusive) of one object.
type RangeGetter interface {
	GetObjectRange(ctx context.Context, bucket, key string, start, end int64) (io.ReadCloser, error)
}

// Engine performs resumable single-object downloads. The length of the
// destination file is the only resume state: every append is synced to
// disk before the offset advances, so after a crash the file length
// always equals the bytes durably retrieved.
type Engine struct {
	provider  RangeGetter
	chunkSize int64
	log       *slog.Logger
}

func NewEngine(provider RangeGetter, chunkSize int64, log *slog.Logger) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{provider: provider, chunkSize: chunkSize, log: log}
}

// Transfer downloads obj into destPath, resuming from any partial file
// already there. It returns OutcomeRetry on transient interruptions
// (the caller decides the retry policy), OutcomeFailed with a reason on
// terminal errors, and OutcomeCompleted once the file length equals the
// object size. Re-running a finished transfer performs no network I/O.
func (e *Engine) Transfer(ctx context.Context, obj models.RemoteObject, destPath string) (models.Outcome, error) {
	written, err := localSize(destPath)
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("stat %s: %w", destPath, err)
	}

	if written > obj.Size {
		return models.OutcomeFailed, fmt.Errorf("%s: local file is %d bytes, remote object is %d: %w",
			destPath, written, obj.Size, ErrSizeExceeded)
	}

	if obj.Size == 0 {
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return models.OutcomeFailed, fmt.Errorf("create %s: %w", destPath, err)
		}
		f.Close()
		return models.OutcomeCompleted, nil
	}

	if written == obj.Size {
		e.log.Debug("object already fully downloaded", "key", obj.Key, "path", destPath)
		return models.OutcomeCompleted, nil
	}

	if written > 0 {
		e.log.Debug("resuming partial download", "key", obj.Key, "offset", written, "size", obj.Size)
	}

	body, err := e.provider.GetObjectRange(ctx, obj.Bucket, obj.Key, written, obj.Size-1)
	if err != nil {
		if retryable(err) {
			return models.OutcomeRetry, fmt.Errorf("range request for s3://%s/%s at offset %d: %w",
				obj.Bucket, obj.Key, written, err)
		}
		return models.OutcomeFailed, fmt.Errorf("range request for s3://%s/%s: %w", obj.Bucket, obj.Key, err)
	}
	defer body.Close()

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("open %s for append: %w", destPath, err)
	}
	defer f.Close()

	buf := make([]byte, e.chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if written+int64(n) > obj.Size {
				return models.OutcomeFailed, fmt.Errorf("s3://%s/%s: stream delivered past byte %d: %w",
					obj.Bucket, obj.Key, obj.Size, ErrSizeExceeded)
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return models.OutcomeFailed, fmt.Errorf("append to %s: %w", destPath, werr)
			}
			// Sync before advancing: the externally visible offset must
			// only ever count bytes that are on disk.
			if serr := f.Sync(); serr != nil {
				return models.OutcomeFailed, fmt.Errorf("sync %s: %w", destPath, serr)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return models.OutcomeRetry, fmt.Errorf("stream s3://%s/%s at offset %d: %w",
				obj.Bucket, obj.Key, written, rerr)
		}
	}

	if written < obj.Size {
		// Server closed the stream early. The bytes are synced, so the
		// next attempt resumes from here.
		return models.OutcomeRetry, fmt.Errorf("s3://%s/%s: stream ended at %d of %d bytes",
			obj.Bucket, obj.Key, written, obj.Size)
	}

	return models.OutcomeCompleted, nil
}

func localSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

// retryable classifies provider errors. Server faults, throttling and
// network timeouts resume on the next attempt; client faults such as
// NoSuchKey or AccessDenied are terminal.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Connection resets and the like surface as plain errors from the
	// HTTP transport.
	return true
}
