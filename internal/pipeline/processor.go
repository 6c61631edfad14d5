// Package pipeline runs one document through parse, extract and save,
// reporting every state transition.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
)

// Update is one state transition of a file.
type Update struct {
	Status   constants.FileStatus
	Progress int
	Attempt  int
	// RetryIn is set while a rate-limited file waits for its next attempt.
	RetryIn time.Duration
	Error   string
	Data    *entity.ExtractedFiscalData
}

// Reporter receives updates in order, on the processing goroutine.
type Reporter func(Update)

// SleepFunc waits for d unless ctx ends first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Processor coordinates parse, field extraction and persistence of one file.
type Processor struct {
	Logger    *slog.Logger
	Parse     *ParseStage
	Extract   *ExtractStage
	Companies CompanyResolver
	Records   RecordSaver
	Retry     RetryPolicy
	Sleep     SleepFunc
}

func NewProcessor(
	logger *slog.Logger,
	parse *ParseStage,
	extract *ExtractStage,
	companies CompanyResolver,
	records RecordSaver,
	retry RetryPolicy,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:    logger,
		Parse:     parse,
		Extract:   extract,
		Companies: companies,
		Records:   records,
		Retry:     retry,
		Sleep:     common.Sleep,
	}
}

// ProcessFile drives f from parsing to success or error. Only rate-limited
// extraction failures are retried, following p.Retry; everything else ends
// the file at once with progress reset to zero.
func (p *Processor) ProcessFile(ctx context.Context, f ingest.File, report Reporter) (entity.ExtractedFiscalData, error) {
	if report == nil {
		report = func(Update) {}
	}
	name := f.Name()
	start := time.Now()

	var text string
	for attempt := 0; ; attempt++ {
		if attempt == 0 || p.Retry.From == RetryFromParse {
			report(Update{Status: constants.FileStatusParsing, Progress: constants.ProgressParsing, Attempt: attempt})
			var err error
			text, err = p.Parse.Run(ctx, f, attempt)
			if err != nil {
				return p.fail(name, attempt, err, report)
			}
		}

		report(Update{Status: constants.FileStatusExtracting, Progress: constants.ProgressExtracting, Attempt: attempt})
		data, err := p.Extract.Run(ctx, name, text, attempt)
		if err != nil {
			if !common.IsRateLimited(err) || !p.Retry.ShouldRetry(attempt) || ctx.Err() != nil {
				return p.fail(name, attempt, err, report)
			}
			delay := p.Retry.Delay(attempt)
			p.Logger.Warn("pipeline.retry.scheduled",
				"file", name,
				"attempt", attempt,
				"next_attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"from", p.Retry.From.String(),
			)
			report(Update{
				Status:   constants.FileStatusExtracting,
				Progress: constants.ProgressExtracting,
				Attempt:  attempt,
				RetryIn:  delay,
			})
			if err := p.sleep(ctx, delay); err != nil {
				return p.fail(name, attempt, err, report)
			}
			continue
		}

		report(Update{Status: constants.FileStatusSaving, Progress: constants.ProgressSaving, Attempt: attempt})
		companyID, err := p.Companies.ResolveCompany(ctx, data.CNPJ, data.Empresa)
		if err != nil {
			return p.fail(name, attempt, err, report)
		}

		report(Update{Status: constants.FileStatusSaving, Progress: constants.ProgressCompany, Attempt: attempt})
		if err := p.Records.SaveFiscalRecord(ctx, companyID, data); err != nil {
			return p.fail(name, attempt, err, report)
		}

		report(Update{Status: constants.FileStatusSuccess, Progress: constants.ProgressDone, Attempt: attempt, Data: &data})
		p.Logger.Info("pipeline.file.ok",
			"file", name,
			"attempts", attempt+1,
			"company_id", companyID,
			"cnpj", data.CNPJ,
			"periodo", data.Periodo,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return data, nil
	}
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return common.Sleep(ctx, d)
	}
	return p.Sleep(ctx, d)
}

func (p *Processor) fail(name string, attempt int, err error, report Reporter) (entity.ExtractedFiscalData, error) {
	msg := FailureMessage(err)
	p.Logger.Error("pipeline.file.failed", "file", name, "attempt", attempt, "message", msg, "error", err)
	report(Update{Status: constants.FileStatusError, Progress: 0, Attempt: attempt, Error: msg})
	return entity.ExtractedFiscalData{}, err
}

// FailureMessage is the text recorded for a failed file.
func FailureMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return constants.MsgCanceled
	}
	if msg := common.UserMessage(err); msg != "" {
		return msg
	}
	return constants.MsgUnknownError
}
