package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"s3drain/internal/models"
	"s3drain/internal/transfer"
	"s3drain/pkg/utils"
)

// Provider is the storage capability the runner drives. Credentials and
// endpoint resolution are the client's concern.
type Provider interface {
	transfer.RangeGetter
	ListBuckets(ctx context.Context) ([]string, error)
	ListObjects(ctx context.Context, bucket string) ([]models.RemoteObject, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type Options struct {
	Rules               models.IgnoreRules
	TargetPath          string
	DeleteAfterDownload bool
	DryRun              bool

	// Workers bounds the number of objects in flight at once. Distinct
	// objects write to distinct destination paths, so workers share no
	// mutable state beyond the result accumulator.
	Workers int

	// MaxAttempts bounds how often one object's transfer is re-invoked
	// after an interruption; InitialBackoff seeds the exponential wait
	// between attempts.
	MaxAttempts    int
	InitialBackoff time.Duration

	ChunkSize int64
}

// Runner drives the bucket -> filter -> list -> transfer -> delete
// pipeline. One object's failure never halts the run.
type Runner struct {
	provider Provider
	engine   *transfer.Engine
	opts     Options
	log      *slog.Logger
}

func New(provider Provider, opts Options, log *slog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		provider: provider,
		engine:   transfer.NewEngine(provider, opts.ChunkSize, log),
		opts:     opts,
		log:      log,
	}
}

// Run drains every non-ignored bucket into the target directory.
func (r *Runner) Run(ctx context.Context) (*models.DrainResult, error) {
	start := time.Now()

	buckets, err := r.provider.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	result := &models.DrainResult{
		TargetPath:    r.opts.TargetPath,
		DryRun:        r.opts.DryRun,
		OperationTime: utils.FormatTime(start),
	}

	if len(buckets) == 0 {
		r.log.Info("no buckets found")
	}

	for _, bucket := range buckets {
		if ctx.Err() != nil {
			break
		}

		include, rule := transfer.ShouldInclude(bucket, r.opts.Rules)
		if !include {
			r.log.Info("skipping bucket", "bucket", bucket, "rule", rule)
			result.BucketsIgnored++
			continue
		}

		r.log.Info("processing bucket", "bucket", bucket)
		br := r.drainBucket(ctx, bucket)
		result.Buckets = append(result.Buckets, br)
		result.BucketsProcessed++
		result.TotalFiles += br.FilesTotal
		result.TotalCompleted += br.FilesCompleted
		result.TotalFailed += br.FilesFailed
		result.TotalBytes += br.BytesDownloaded
		result.ObjectsDeleted += br.ObjectsDeleted
	}

	result.TotalBytesHuman = utils.FormatBytes(result.TotalBytes)
	result.Duration = time.Since(start).String()
	return result, nil
}

func (r *Runner) drainBucket(ctx context.Context, bucket string) models.BucketResult {
	br := models.BucketResult{BucketName: bucket}

	objects, err := r.provider.ListObjects(ctx, bucket)
	if err != nil {
		r.log.Error("listing objects failed, skipping bucket", "bucket", bucket, "error", err)
		br.Failures = append(br.Failures, models.FailureRecord{
			Bucket: bucket,
			Stage:  "list",
			Reason: err.Error(),
		})
		return br
	}

	files, markers := splitMarkers(objects)
	br.FilesTotal = len(files)

	var totalBytes int64
	for _, obj := range files {
		totalBytes += obj.Size
	}
	r.log.Info("bucket contents",
		"bucket", bucket,
		"files", len(files),
		"total_size", utils.FormatBytes(totalBytes))

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		doneBytes  atomic.Int64
		doneCount  atomic.Int64
		jobs       = make(chan models.RemoteObject)
		totalFiles = len(files)
	)

	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range jobs {
				seq := int(doneCount.Add(1))
				rep := r.drainObject(ctx, obj, seq, totalFiles, &doneBytes, totalBytes)

				mu.Lock()
				if rep.completed {
					br.FilesCompleted++
					br.BytesDownloaded += rep.bytes
				}
				if rep.planned {
					br.FilesPlanned++
				}
				if rep.deleted {
					br.ObjectsDeleted++
				}
				if rep.failure != nil {
					br.FilesFailed++
					br.Failures = append(br.Failures, *rep.failure)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, obj := range files {
		select {
		case jobs <- obj:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Directory markers become local directories and are then eligible
	// for the same post-transfer deletion as files.
	for _, marker := range markers {
		if ctx.Err() != nil {
			break
		}
		if err := r.applyMarker(ctx, marker); err != nil {
			r.log.Error("directory marker failed", "bucket", bucket, "key", marker.Key, "error", err)
			mu.Lock()
			br.Failures = append(br.Failures, models.FailureRecord{
				Bucket: bucket,
				Key:    marker.Key,
				Stage:  "transfer",
				Reason: err.Error(),
			})
			mu.Unlock()
		} else if !r.opts.DryRun && r.opts.DeleteAfterDownload {
			if err := r.provider.DeleteObject(ctx, marker.Bucket, marker.Key); err == nil {
				mu.Lock()
				br.ObjectsDeleted++
				mu.Unlock()
			}
		}
	}

	br.BytesHuman = utils.FormatBytes(br.BytesDownloaded)
	return br
}

// objectReport is what one worker hands back for one object.
type objectReport struct {
	completed bool
	planned   bool
	deleted   bool
	bytes     int64
	failure   *models.FailureRecord
}

// drainObject moves one object end-to-end: destination mapping, resumable
// transfer with bounded retries, then the gated remote delete.
func (r *Runner) drainObject(ctx context.Context, obj models.RemoteObject, seq, total int,
	doneBytes *atomic.Int64, totalBytes int64) (rep objectReport) {

	fail := func(stage string, err error) {
		rep.failure = &models.FailureRecord{
			Bucket: obj.Bucket,
			Key:    obj.Key,
			Stage:  stage,
			Reason: err.Error(),
		}
	}

	dest, err := destinationPath(r.opts.TargetPath, obj.Bucket, obj.Key)
	if err != nil {
		r.log.Error("skipping object", "bucket", obj.Bucket, "key", obj.Key, "error", err)
		fail("transfer", err)
		return
	}

	percentage := 0
	if totalBytes > 0 {
		percentage = int(doneBytes.Load() * 100 / totalBytes)
	}
	r.log.Info(fmt.Sprintf("downloading %s (%d/%d - %d%%)", utils.FormatBytes(obj.Size), seq, total, percentage),
		"key", obj.Key, "dest", dest)

	if r.opts.DryRun {
		rep.planned = true
		doneBytes.Add(obj.Size)
		return
	}

	if err := utils.EnsureDir(filepath.Dir(dest)); err != nil {
		r.log.Error("skipping object", "bucket", obj.Bucket, "key", obj.Key, "error", err)
		fail("transfer", err)
		return
	}

	outcome, terr := r.transferWithRetry(ctx, obj, dest)
	if outcome != models.OutcomeCompleted {
		r.log.Error("download failed", "bucket", obj.Bucket, "key", obj.Key, "error", terr)
		fail("transfer", terr)
		return
	}

	rep.completed = true
	rep.bytes = obj.Size
	doneBytes.Add(obj.Size)
	r.log.Info("download complete", "key", obj.Key, "size", utils.FormatBytes(obj.Size))

	if !r.opts.DeleteAfterDownload {
		return
	}
	if err := r.provider.DeleteObject(ctx, obj.Bucket, obj.Key); err != nil {
		// Never retracts the completed download.
		r.log.Error("remote delete failed, local copy is kept",
			"bucket", obj.Bucket, "key", obj.Key, "error", err)
		fail("delete", err)
		return
	}
	rep.deleted = true
	r.log.Info("deleted remote object", "bucket", obj.Bucket, "key", obj.Key)
	return
}

// transferWithRetry re-invokes the engine while it reports retryable
// interruptions, waiting with exponential backoff between attempts.
// Every attempt resumes from the bytes already synced to disk.
func (r *Runner) transferWithRetry(ctx context.Context, obj models.RemoteObject, dest string) (models.Outcome, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.InitialBackoff
	bo.MaxInterval = 30 * time.Second

	var (
		outcome models.Outcome
		lastErr error
	)

	operation := func() error {
		var err error
		outcome, err = r.engine.Transfer(ctx, obj, dest)
		switch outcome {
		case models.OutcomeCompleted:
			return nil
		case models.OutcomeRetry:
			lastErr = err
			r.log.Warn("transfer interrupted, will resume", "key", obj.Key, "error", err)
			return err
		default:
			lastErr = err
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.opts.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if outcome == models.OutcomeRetry {
			return models.OutcomeFailed, fmt.Errorf("gave up after %d attempts: %w", r.opts.MaxAttempts, lastErr)
		}
		return models.OutcomeFailed, lastErr
	}
	return models.OutcomeCompleted, nil
}

func (r *Runner) applyMarker(ctx context.Context, marker models.RemoteObject) error {
	dest, err := destinationPath(r.opts.TargetPath, marker.Bucket, marker.Key)
	if err != nil {
		return err
	}
	if r.opts.DryRun {
		r.log.Info("would create directory", "key", marker.Key, "dest", dest)
		return nil
	}
	return utils.EnsureDir(dest)
}

// Buckets lists every bucket with its filter decision and totals.
func (r *Runner) Buckets(ctx context.Context) ([]models.BucketListing, error) {
	names, err := r.provider.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	listings := make([]models.BucketListing, 0, len(names))
	for _, name := range names {
		listing := models.BucketListing{BucketName: name}
		include, rule := transfer.ShouldInclude(name, r.opts.Rules)
		if !include {
			listing.Ignored = true
			listing.IgnoredBy = rule
			listings = append(listings, listing)
			continue
		}

		objects, err := r.provider.ListObjects(ctx, name)
		if err != nil {
			r.log.Error("listing objects failed", "bucket", name, "error", err)
			listings = append(listings, listing)
			continue
		}
		for _, obj := range objects {
			listing.ObjectCount++
			listing.TotalSizeBytes += obj.Size
		}
		listing.TotalSizeHuman = utils.FormatBytes(listing.TotalSizeBytes)
		listings = append(listings, listing)
	}
	return listings, nil
}

// Status derives each object's resume state purely from the local
// filesystem, without transferring or deleting anything.
func (r *Runner) Status(ctx context.Context) (*models.StatusResult, error) {
	names, err := r.provider.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	result := &models.StatusResult{TargetPath: r.opts.TargetPath}
	for _, name := range names {
		if include, _ := transfer.ShouldInclude(name, r.opts.Rules); !include {
			continue
		}

		objects, err := r.provider.ListObjects(ctx, name)
		if err != nil {
			r.log.Error("listing objects failed", "bucket", name, "error", err)
			continue
		}

		bs := models.BucketStatus{BucketName: name}
		for _, obj := range objects {
			if obj.IsDirMarker() {
				continue
			}
			dest, err := destinationPath(r.opts.TargetPath, obj.Bucket, obj.Key)
			if err != nil {
				continue
			}
			local := localLength(dest)
			status := models.ObjectStatus{
				Key:        obj.Key,
				BytesLocal: local,
				Size:       obj.Size,
			}
			switch {
			case local >= obj.Size:
				status.State = models.StateComplete
				bs.Complete++
			case local > 0:
				status.State = models.StatePartial
				bs.Partial++
			default:
				status.State = models.StateMissing
				bs.Missing++
			}
			bs.Objects = append(bs.Objects, status)
		}
		result.Buckets = append(result.Buckets, bs)
	}
	return result, nil
}

// destinationPath maps bucket+key onto the local tree under target,
// preserving the key hierarchy. Keys that would climb out of the
// bucket's directory are rejected.
func destinationPath(target, bucket, key string) (string, error) {
	base := filepath.Join(filepath.Clean(target), bucket)
	dest := filepath.Join(base, filepath.FromSlash(key))
	if !strings.HasPrefix(dest, base+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the bucket directory", key)
	}
	return dest, nil
}

func splitMarkers(objects []models.RemoteObject) (files, markers []models.RemoteObject) {
	for _, obj := range objects {
		if obj.IsDirMarker() {
			markers = append(markers, obj)
		} else {
			files = append(files, obj)
		}
	}
	return files, markers
}

func localLength(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}
