package flow

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// DefaultCompressQuality is used when no quality source is configured.
const DefaultCompressQuality = 0.7

// progressInterval paces the simulated progress of local operations.
var progressInterval = 200 * time.Millisecond

// Compress re-encodes an image locally. The output size is estimated as
// originalSize*quality when the primitive does not report one.
func (o *Orchestrator) Compress(ctx context.Context, fileID string) (Result, error) {
	r, err := o.begin(ctx, fileID, types.OpCompress)
	if err != nil {
		return Result{}, err
	}
	if !tool.IsImage(r.source.Type) {
		return Result{}, fmt.Errorf("%w: compress on %q", ErrWrongFileType, r.source.Type)
	}
	quality := o.quality()
	if quality <= 0 || quality > 1 {
		quality = DefaultCompressQuality
	}

	failed := r.history(false)
	failed.OriginalSize = r.source.Size

	r.setStatus(types.StatusProcessing)
	r.step(StateProcessing, ProgressStart)
	stop := r.simulateProgress(ctx)
	out, err := o.compressor.Compress(ctx, r.source.Path, quality)
	stop()
	if err != nil {
		return Result{}, r.fail(failed, err)
	}

	size := out.Size
	if size <= 0 {
		size = int64(math.Round(float64(r.source.Size) * quality))
	}
	name := "compressed_" + r.source.Name
	if t := tool.GetFileType(out.Path); t != "" && t != r.source.Type {
		name = "compressed_" + tool.TrimExtension(r.source.Name) + "." + t
	}
	saved, err := o.store.Save(r.derived(name, out.Path, size))
	if err != nil {
		return Result{}, r.fail(failed, err)
	}

	rec := r.history(true)
	rec.OriginalSize = r.source.Size
	rec.CompressedSize = size
	return r.succeed(Result{
		Operation: types.OpCompress,
		Source:    r.source,
		Files:     []types.FileRecord{saved},
		Total:     1,
		History:   rec,
	})
}

// Convert turns a file into targetFormat. Images convert locally to jpg or png; pdf
// and office documents convert to "images" through the remote flows.
func (o *Orchestrator) Convert(ctx context.Context, fileID, targetFormat string) (Result, error) {
	format := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(targetFormat), "."))
	src, err := o.store.Get(fileID)
	if err != nil {
		return Result{}, err
	}
	switch {
	case tool.IsPdf(src.Type) && format == "images":
		return o.PdfToImages(ctx, fileID, ConvertOptions{})
	case tool.IsDocument(src.Type) && format == "images":
		return o.DocToImages(ctx, fileID, ConvertOptions{})
	case tool.IsImage(src.Type) && (format == "jpg" || format == "jpeg" || format == "png"):
		return o.convertImage(ctx, fileID, format)
	}
	return Result{}, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, src.Type, format)
}

func (o *Orchestrator) convertImage(ctx context.Context, fileID, format string) (Result, error) {
	r, err := o.begin(ctx, fileID, types.OpConvert)
	if err != nil {
		return Result{}, err
	}
	failed := r.history(false)
	failed.TargetFormat = format

	r.setStatus(types.StatusProcessing)
	r.step(StateProcessing, ProgressStart)
	stop := r.simulateProgress(ctx)
	out, err := o.converter.Convert(ctx, r.source.Path, format)
	stop()
	if err != nil {
		return Result{}, r.fail(failed, err)
	}

	size := out.Size
	if size <= 0 {
		size = r.source.Size
	}
	saved, err := o.store.Save(r.derived(tool.TrimExtension(r.source.Name)+"."+format, out.Path, size))
	if err != nil {
		return Result{}, r.fail(failed, err)
	}

	rec := r.history(true)
	rec.TargetFormat = format
	return r.succeed(Result{
		Operation: types.OpConvert,
		Source:    r.source,
		Files:     []types.FileRecord{saved},
		Total:     1,
		History:   rec,
	})
}

func (r *run) derived(name, path string, size int64) types.FileRecord {
	return types.FileRecord{
		ID:         tool.GenerateFileID(),
		Name:       name,
		Size:       size,
		Type:       tool.GetFileType(name),
		Path:       path,
		Source:     types.SourceProcessed,
		CreateTime: tool.NowMillis(),
		Status:     types.StatusReady,
		ParentID:   r.source.ID,
	}
}

// simulateProgress advances the reported progress by 10 every tick, capped at 90,
// until stop is called or ctx is done. stop waits for the ticker goroutine to exit.
func (r *run) simulateProgress(ctx context.Context) (stop func()) {
	ticker := time.NewTicker(progressInterval)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		progress := ProgressStart
		for {
			select {
			case <-ticker.C:
				if progress < 90 {
					progress += 10
					r.step(StateProcessing, progress)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
