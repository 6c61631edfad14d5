// Package batch sequences the import of a bounded set of documents, one at a
// time, and keeps the observable state of the current run.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
	"github.com/adonai404/empresas-imperial-sub001/internal/pipeline"
)

// FileProcessor runs a single document to completion.
type FileProcessor interface {
	ProcessFile(ctx context.Context, f ingest.File, report pipeline.Reporter) (entity.ExtractedFiscalData, error)
}

type Config struct {
	MaxFiles     int
	MaxFileBytes int64
	PacingDelay  time.Duration // wait between consecutive files
}

func DefaultConfig() Config {
	return Config{
		MaxFiles:     constants.MaxBatchFiles,
		MaxFileBytes: constants.MaxFileSizeBytes,
		PacingDelay:  500 * time.Millisecond,
	}
}

// Orchestrator owns one RunState. At most one batch runs at a time.
type Orchestrator struct {
	cfg      Config
	proc     FileProcessor
	notifier Notifier
	logger   *slog.Logger

	// Sleep is used for pacing; tests replace it.
	Sleep pipeline.SleepFunc

	mu     sync.Mutex
	state  RunState
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOrchestrator(cfg Config, proc FileProcessor, notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	def := DefaultConfig()
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = def.MaxFileBytes
	}
	if cfg.PacingDelay < 0 {
		cfg.PacingDelay = 0
	}
	return &Orchestrator{
		cfg:      cfg,
		proc:     proc,
		notifier: notifier,
		logger:   logger,
		Sleep:    common.Sleep,
	}
}

// Validate checks a batch before any state is created. Each rule yields a
// single message for the whole batch.
func (o *Orchestrator) Validate(files []ingest.File) error {
	if len(files) == 0 {
		return common.NewBatchRejectedError(constants.MsgNoFileSelected)
	}
	if len(files) > o.cfg.MaxFiles {
		return common.NewBatchRejectedError(fmt.Sprintf("Máximo de %d arquivos por vez", o.cfg.MaxFiles))
	}
	var oversized []string
	for _, f := range files {
		if f.Size() > o.cfg.MaxFileBytes {
			oversized = append(oversized, f.Name())
		}
	}
	if len(oversized) > 0 {
		limitMB := o.cfg.MaxFileBytes / (1024 * 1024)
		return common.NewBatchRejectedError(fmt.Sprintf("Arquivos excedem o limite de %dMB: %s", limitMB, strings.Join(oversized, ", ")))
	}
	return nil
}

// Start validates files and processes them in the background. The run is
// detached from ctx cancellation; use Reset to abandon it.
func (o *Orchestrator) Start(ctx context.Context, files []ingest.File) error {
	runCtx, gen, done, err := o.begin(context.WithoutCancel(ctx), files)
	if err != nil {
		return err
	}
	go func() {
		defer close(done)
		o.run(runCtx, gen, files)
	}()
	return nil
}

// Run processes files on the calling goroutine and returns the summary.
// Canceling ctx marks the files not yet processed as canceled.
func (o *Orchestrator) Run(ctx context.Context, files []ingest.File) (Summary, error) {
	runCtx, gen, done, err := o.begin(ctx, files)
	if err != nil {
		return Summary{}, err
	}
	defer close(done)
	sum, ok := o.run(runCtx, gen, files)
	if !ok {
		return Summary{}, context.Canceled
	}
	return sum, nil
}

// Wait blocks until the current run, if any, has returned.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Reset abandons the current run and clears files and summary. Calls already
// in flight may still complete, but their updates are discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.logger.Info("batch.reset", "batch_id", o.state.BatchID, "was_processing", o.state.Processing)
	o.state = RunState{}
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

func (o *Orchestrator) begin(ctx context.Context, files []ingest.File) (context.Context, uint64, chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Processing {
		return nil, 0, nil, common.NewBatchRejectedError(constants.MsgBatchInProgress)
	}
	if err := o.Validate(files); err != nil {
		o.logger.Warn("batch.rejected", "files", len(files), "reason", common.UserMessage(err))
		return nil, 0, nil, err
	}

	o.gen++
	batchID := uuid.NewString()
	tracked := make([]File, len(files))
	for i, f := range files {
		tracked[i] = File{
			Name:     f.Name(),
			Size:     f.Size(),
			Status:   constants.FileStatusPending,
			Progress: 0,
		}
	}
	o.state = RunState{BatchID: batchID, Files: tracked, Processing: true}

	runCtx, cancel := context.WithCancel(common.WithBatchID(ctx, batchID))
	o.cancel = cancel
	o.done = make(chan struct{})

	o.logger.Info("batch.start", "batch_id", batchID, "files", len(files))
	return runCtx, o.gen, o.done, nil
}

// run processes files strictly in order. It reports false when the run was
// superseded by Reset before finishing.
func (o *Orchestrator) run(ctx context.Context, gen uint64, files []ingest.File) (Summary, bool) {
	batchID := common.BatchIDFromContext(ctx)
	start := time.Now()

	for i, f := range files {
		if ctx.Err() != nil {
			o.apply(gen, i, pipeline.Update{Status: constants.FileStatusError, Error: constants.MsgCanceled})
			continue
		}

		fileStart := time.Now()
		_, err := o.proc.ProcessFile(ctx, f, func(u pipeline.Update) {
			o.apply(gen, i, u)
		})
		o.settle(gen, i, err)
		o.logger.Info("batch.file.done",
			"batch_id", batchID,
			"index", i,
			"file", f.Name(),
			"ok", err == nil,
			"elapsed_ms", time.Since(fileStart).Milliseconds(),
		)

		if i < len(files)-1 && o.cfg.PacingDelay > 0 {
			_ = o.Sleep(ctx, o.cfg.PacingDelay)
		}
	}

	sum, ok := o.finish(gen)
	if !ok {
		o.logger.Info("batch.abandoned", "batch_id", batchID)
		return Summary{}, false
	}
	o.logger.Info("batch.done",
		"batch_id", batchID,
		"total", sum.Total,
		"success", sum.Success,
		"errors", sum.Errors,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	notifyCtx := context.WithoutCancel(ctx)
	for _, n := range completionNotifications(batchID, sum) {
		o.notifier.Notify(notifyCtx, n)
	}
	return sum, true
}

// apply records an update for file i unless the run has been reset.
func (o *Orchestrator) apply(gen uint64, i int, u pipeline.Update) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen || i >= len(o.state.Files) {
		return
	}
	f := &o.state.Files[i]
	f.Status = u.Status
	f.Progress = u.Progress
	f.Attempt = u.Attempt
	switch u.Status {
	case constants.FileStatusError:
		f.Progress = 0
		f.Error = u.Error
		if f.Error == "" {
			f.Error = constants.MsgUnknownError
		}
		f.ExtractedData = nil
	case constants.FileStatusSuccess:
		f.Error = ""
		f.ExtractedData = u.Data
	default:
		f.Error = ""
	}
}

// settle moves file i to error when the processor returned without
// reporting a terminal status.
func (o *Orchestrator) settle(gen uint64, i int, err error) {
	o.mu.Lock()
	open := gen == o.gen && i < len(o.state.Files) && !o.state.Files[i].Status.Terminal()
	o.mu.Unlock()
	if !open {
		return
	}
	msg := constants.MsgUnknownError
	if err != nil {
		msg = common.UserMessage(err)
	}
	o.apply(gen, i, pipeline.Update{Status: constants.FileStatusError, Error: msg})
}

func (o *Orchestrator) finish(gen uint64) (Summary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return Summary{}, false
	}
	sum := summarize(o.state.Files)
	o.state.Summary = &sum
	o.state.Processing = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	return sum, true
}
