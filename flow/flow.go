// Package flow sequences registry and remote client calls into the user-facing
// operations: extract, pdf2images, pdf2single, doc2images, convert and compress.
package flow

import (
	"context"
	"errors"

	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// State is the step a flow run is in.
type State string

const (
	StateIdle        State = "idle"
	StateProbing     State = "probing"
	StateUploading   State = "uploading"
	StateDispatching State = "dispatching"
	StateDownloading State = "downloading"
	StateRecording   State = "recording"
	StateProcessing  State = "processing" // local compress and convert
)

// Progress checkpoints. Downloads advance from ProgressDispatched to ProgressDone.
const (
	ProgressStart      = 0
	ProgressProbed     = 10
	ProgressUploaded   = 30
	ProgressDispatched = 70
	ProgressDone       = 100
)

const maxPasswordAttempts = 3

var (
	ErrNoArtifacts           = errors.New("no artifacts downloaded")
	ErrWrongFileType         = errors.New("operation not available for this file type")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
)

// Remote is the part of remote.Client the flows use.
type Remote interface {
	BaseURL() string
	Upload(ctx context.Context, file types.FileRecord) (types.UploadResult, error)
	Dispatch(ctx context.Context, uploadedFilename string, op types.Operation, opts remote.Options) (types.OperationResult, error)
	GetInfo(ctx context.Context, uploadedFilename string, kind remote.InfoKind) (types.InfoResult, error)
	Download(ctx context.Context, url, fileName string) (types.FileRecord, error)
}

// PasswordPrompter asks the user for an archive password. ok=false means the user gave up.
type PasswordPrompter interface {
	PromptPassword(ctx context.Context, file types.FileRecord, attempt int) (password string, ok bool)
}

// Options configures an Orchestrator. Every field is optional.
type Options struct {
	// DownloadConcurrency > 1 downloads artifacts through a bounded pool.
	DownloadConcurrency int
	// CompressQuality returns the compression ratio in (0,1]. Defaults to DefaultCompressQuality.
	CompressQuality func() float64

	Reporter   Reporter
	Prompter   PasswordPrompter
	Compressor ImageCompressor
	Converter  ImageConverter
}

// Orchestrator runs flows against one registry and one remote client.
type Orchestrator struct {
	store  registry.Store
	remote Remote

	concurrency int
	quality     func() float64
	reporter    Reporter
	prompter    PasswordPrompter
	compressor  ImageCompressor
	converter   ImageConverter
}

func New(store registry.Store, rc Remote, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		remote:      rc,
		concurrency: opts.DownloadConcurrency,
		quality:     opts.CompressQuality,
		reporter:    opts.Reporter,
		prompter:    opts.Prompter,
		compressor:  opts.Compressor,
		converter:   opts.Converter,
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.quality == nil {
		o.quality = func() float64 { return DefaultCompressQuality }
	}
	if o.reporter == nil {
		o.reporter = nopReporter{}
	}
	if o.compressor == nil || o.converter == nil {
		codec := NewStdImageCodec("")
		if o.compressor == nil {
			o.compressor = codec
		}
		if o.converter == nil {
			o.converter = codec
		}
	}
	return o
}

// Result is what a successful flow run produced.
type Result struct {
	Operation types.Operation            `json:"operation"`
	Source    types.FileRecord           `json:"source"`
	Files     []types.FileRecord         `json:"files"`
	Total     int                        `json:"total"`
	History   types.ProcessHistoryRecord `json:"history"`
}

// run is the bookkeeping for one flow execution.
type run struct {
	o      *Orchestrator
	id     string
	source types.FileRecord
	op     types.Operation
}

func (o *Orchestrator) begin(ctx context.Context, fileID string, op types.Operation) (*run, error) {
	src, err := o.store.Get(fileID)
	if err != nil {
		return nil, err
	}
	r := &run{o: o, id: RunIDFrom(ctx), source: src, op: op}
	return r, nil
}

func (r *run) event(state State, progress int) Event {
	return Event{
		RunID:     r.id,
		FileID:    r.source.ID,
		Operation: r.op,
		State:     state,
		Progress:  progress,
	}
}

func (r *run) step(state State, progress int) {
	tool.DefaultLogger.Debugf("[flow %s] %s %s: %s (%d%%)", r.id, r.op, r.source.ID, state, progress)
	r.o.reporter.Report(r.event(state, progress))
}

func (r *run) setStatus(status types.FileStatus) {
	if err := r.o.store.SetStatus(r.source.ID, status); err != nil {
		tool.DefaultLogger.Warnf("[flow %s] failed to mark %s as %s: %v", r.id, r.source.ID, status, err)
	}
}

func (r *run) history(success bool) types.ProcessHistoryRecord {
	rec := types.ProcessHistoryRecord{
		ID:        tool.GenerateRandomUUID(),
		FileID:    r.source.ID,
		Operation: r.op,
		Success:   success,
		Timestamp: tool.NowMillis(),
		Status:    types.HistorySuccess,
	}
	if !success {
		rec.Status = types.HistoryError
	}
	return rec
}

// succeed records the terminal history entry and reports completion.
func (r *run) succeed(res Result) (Result, error) {
	r.step(StateRecording, ProgressDone)
	if err := r.o.store.AppendHistory(res.History); err != nil {
		return res, err
	}
	r.setStatus(types.StatusCompleted)
	tool.DefaultLogger.Infof("[flow %s] %s %s done: %d/%d file(s)", r.id, r.op, r.source.Name, len(res.Files), res.Total)

	ev := r.event(StateIdle, ProgressDone)
	ev.Result = &res
	r.o.reporter.Report(ev)
	return res, nil
}

// fail records a failed history entry (rec carries any partial counts) and reports cause.
func (r *run) fail(rec types.ProcessHistoryRecord, cause error) error {
	rec.Success = false
	rec.Status = types.HistoryError
	rec.Error = cause.Error()
	if err := r.o.store.AppendHistory(rec); err != nil {
		tool.DefaultLogger.Errorf("[flow %s] failed to record history: %v", r.id, err)
	}
	r.setStatus(types.StatusError)
	tool.DefaultLogger.Warnf("[flow %s] %s %s failed: %v", r.id, r.op, r.source.Name, cause)

	ev := r.event(StateIdle, ProgressStart)
	ev.Err = cause
	ev.Message = UserMessage(cause)
	r.o.reporter.Report(ev)
	return cause
}
