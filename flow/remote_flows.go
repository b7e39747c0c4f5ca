package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

type ExtractOptions struct {
	Password     string
	OutputSubDir string
}

// ConvertOptions tunes the remote image renderers. Zero values use the service defaults
// (png, quality 85, density 150).
type ConvertOptions struct {
	Format       string
	Quality      int
	Density      int
	OutputSubDir string
	PageRange    string // pdf2images only, e.g. "1-3"
}

func (c ConvertOptions) remote() remote.Options {
	return remote.Options{
		Format:       c.Format,
		Quality:      c.Quality,
		Density:      c.Density,
		OutputSubDir: c.OutputSubDir,
		PageRange:    c.PageRange,
	}
}

// Extract unpacks an archive remotely and registers every extracted file. When the
// archive needs a password and a PasswordPrompter is configured, the user is asked
// and the flow runs again with the answer, up to three attempts in total.
func (o *Orchestrator) Extract(ctx context.Context, fileID string, opts ExtractOptions) (Result, error) {
	ropts := remote.Options{Password: opts.Password, OutputSubDir: opts.OutputSubDir}
	for attempt := 1; ; attempt++ {
		res, err := o.runRemote(ctx, fileID, types.OpExtract, ropts)
		if err == nil || !errors.Is(err, remote.ErrPasswordRequired) ||
			o.prompter == nil || attempt >= maxPasswordAttempts {
			return res, err
		}
		src, getErr := o.store.Get(fileID)
		if getErr != nil {
			return res, err
		}
		password, ok := o.prompter.PromptPassword(ctx, src, attempt)
		if !ok {
			return res, err
		}
		tool.DefaultLogger.Debugf("Retrying extract of %s with a password (attempt %d)", src.Name, attempt+1)
		ropts.Password = password
	}
}

// PdfToImages renders every page (or opts.PageRange) of a PDF remotely.
func (o *Orchestrator) PdfToImages(ctx context.Context, fileID string, opts ConvertOptions) (Result, error) {
	return o.runRemote(ctx, fileID, types.OpPdf2Images, opts.remote())
}

// PdfSinglePage renders one 1-based page of a PDF remotely.
func (o *Orchestrator) PdfSinglePage(ctx context.Context, fileID string, pageNumber int, opts ConvertOptions) (Result, error) {
	ropts := opts.remote()
	ropts.PageRange = ""
	ropts.PageNumber = pageNumber
	return o.runRemote(ctx, fileID, types.OpPdf2Single, ropts)
}

// DocToImages renders an office document to page images remotely.
func (o *Orchestrator) DocToImages(ctx context.Context, fileID string, opts ConvertOptions) (Result, error) {
	ropts := opts.remote()
	ropts.PageRange = ""
	return o.runRemote(ctx, fileID, types.OpDoc2Images, ropts)
}

func acceptsType(op types.Operation, fileType string) bool {
	switch op {
	case types.OpExtract:
		return tool.IsArchive(fileType)
	case types.OpPdf2Images, types.OpPdf2Single:
		return tool.IsPdf(fileType)
	case types.OpDoc2Images:
		return tool.IsDocument(fileType)
	}
	return false
}

func probeKind(op types.Operation, fileType string) remote.InfoKind {
	switch {
	case op == types.OpExtract && fileType == "rar":
		return remote.InfoRar
	case op == types.OpPdf2Images || op == types.OpPdf2Single:
		return remote.InfoPdf
	case op == types.OpDoc2Images:
		return remote.InfoDoc
	}
	return ""
}

// runRemote is the shared upload, dispatch, download and record sequence.
func (o *Orchestrator) runRemote(ctx context.Context, fileID string, op types.Operation, ropts remote.Options) (Result, error) {
	r, err := o.begin(ctx, fileID, op)
	if err != nil {
		return Result{}, err
	}
	if !remote.Supports(op) {
		return Result{}, fmt.Errorf("%w: %s", remote.ErrUnsupportedOperation, op)
	}
	if !acceptsType(op, r.source.Type) {
		return Result{}, fmt.Errorf("%w: %s on %q", ErrWrongFileType, op, r.source.Type)
	}
	if op == types.OpPdf2Single && ropts.PageNumber < 1 {
		return Result{}, fmt.Errorf("%w: pageNumber must be >= 1", remote.ErrInvalidOptions)
	}

	failed := r.history(false)
	failed.PageNumber = ropts.PageNumber

	r.setStatus(types.StatusProcessing)
	r.step(StateUploading, ProgressStart)
	uploaded, err := o.remote.Upload(ctx, r.source)
	if err != nil {
		return Result{}, r.fail(failed, err)
	}

	// the info endpoints address uploaded files, so the probe follows the upload
	r.step(StateProbing, ProgressProbed)
	if kind := probeKind(op, r.source.Type); kind != "" {
		if info, err := o.remote.GetInfo(ctx, uploaded.Filename, kind); err != nil {
			tool.DefaultLogger.Warnf("[flow %s] %s info probe failed, continuing: %v", r.id, kind, err)
		} else if pages := info.PageCount(); pages > 0 {
			tool.DefaultLogger.Debugf("[flow %s] %s has %d page(s)", r.id, r.source.Name, pages)
		}
	}

	r.step(StateDispatching, ProgressUploaded)
	result, err := o.remote.Dispatch(ctx, uploaded.Filename, op, ropts)
	if err != nil {
		return Result{}, r.fail(failed, err)
	}
	artifacts, err := remote.Artifacts(o.remote.BaseURL(), result)
	if err != nil {
		return Result{}, r.fail(failed, err)
	}
	if op == types.OpPdf2Single {
		for i := range artifacts {
			artifacts[i].PageNumber = ropts.PageNumber
		}
	}

	r.step(StateDownloading, ProgressDispatched)
	files := o.downloadAll(ctx, r, artifacts)

	rec := r.history(true)
	rec.PageNumber = ropts.PageNumber
	fillCounts(&rec, op, len(files), len(artifacts), result.TotalPages)
	if len(files) == 0 {
		cause := ErrNoArtifacts
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = fmt.Errorf("%w: %w", ErrNoArtifacts, ctxErr)
		}
		return Result{}, r.fail(rec, cause)
	}

	return r.succeed(Result{
		Operation: op,
		Source:    r.source,
		Files:     files,
		Total:     len(artifacts),
		History:   rec,
	})
}

func fillCounts(rec *types.ProcessHistoryRecord, op types.Operation, done, total, totalPages int) {
	switch op {
	case types.OpExtract:
		rec.ExtractedCount = done
		rec.TotalFiles = total
	case types.OpPdf2Images, types.OpDoc2Images:
		rec.PageCount = done
		rec.TotalPages = total
		if totalPages > 0 {
			rec.TotalPages = totalPages
		}
	case types.OpPdf2Single:
		rec.PageCount = done
	}
}

// downloadAll fetches every artifact, skipping the ones that fail, and registers the
// rest in artifact order. With concurrency 1 the downloads are strictly sequential.
func (o *Orchestrator) downloadAll(ctx context.Context, r *run, artifacts []types.Artifact) []types.FileRecord {
	total := len(artifacts)
	if total == 0 {
		return []types.FileRecord{}
	}
	fetched := make([]*types.FileRecord, total)

	var mu sync.Mutex
	done := 0
	fetch := func(i int) {
		art := artifacts[i]
		rec, err := o.remote.Download(ctx, art.URL, art.Name)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			tool.DefaultLogger.Warnf("[flow %s] skipping artifact %s: %v", r.id, art.Name, err)
		} else {
			fetched[i] = &rec
		}
		done++
		r.step(StateDownloading, ProgressDispatched+(ProgressDone-ProgressDispatched)*done/total)
	}

	if o.concurrency <= 1 || total == 1 {
		for i := range artifacts {
			fetch(i)
		}
	} else {
		sem := make(chan struct{}, o.concurrency)
		var wg sync.WaitGroup
		for i := range artifacts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				fetch(i)
			}(i)
		}
		wg.Wait()
	}

	files := make([]types.FileRecord, 0, total)
	for i, rec := range fetched {
		if rec == nil {
			continue
		}
		saved, err := o.store.Save(withProvenance(*rec, r, artifacts[i]))
		if err != nil {
			tool.DefaultLogger.Warnf("[flow %s] failed to register %s: %v", r.id, rec.Name, err)
			continue
		}
		files = append(files, saved)
	}
	return files
}

func withProvenance(rec types.FileRecord, r *run, art types.Artifact) types.FileRecord {
	rec.ParentID = r.source.ID
	rec.ExternalID = art.ExternalID
	rec.PageNumber = art.PageNumber
	switch r.op {
	case types.OpExtract:
		rec.OriginalArchive = r.source.Name
	case types.OpPdf2Images, types.OpPdf2Single:
		rec.OriginalPdf = r.source.Name
	}
	return rec
}
