package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
	"github.com/adonai404/empresas-imperial-sub001/internal/pipeline"
)

// scriptedProcessor fails files whose name is in fail, with that message.
type scriptedProcessor struct {
	mu    sync.Mutex
	fail  map[string]string
	order []string
	block chan struct{} // when set, ProcessFile waits on it
}

func (p *scriptedProcessor) ProcessFile(ctx context.Context, f ingest.File, report pipeline.Reporter) (entity.ExtractedFiscalData, error) {
	p.mu.Lock()
	p.order = append(p.order, f.Name())
	p.mu.Unlock()

	report(pipeline.Update{Status: constants.FileStatusParsing, Progress: 0})
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			report(pipeline.Update{Status: constants.FileStatusError, Error: constants.MsgCanceled})
			return entity.ExtractedFiscalData{}, ctx.Err()
		}
	}
	report(pipeline.Update{Status: constants.FileStatusExtracting, Progress: 25})
	if msg, ok := p.fail[f.Name()]; ok {
		report(pipeline.Update{Status: constants.FileStatusError, Progress: 0, Error: msg})
		return entity.ExtractedFiscalData{}, errors.New(msg)
	}
	data := entity.ExtractedFiscalData{CNPJ: "12345678000190", Periodo: "01/2024"}
	report(pipeline.Update{Status: constants.FileStatusSuccess, Progress: 100, Data: &data})
	return data, nil
}

type recorder struct {
	mu     sync.Mutex
	notes  []Notification
	delays []time.Duration
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func newOrchestrator(t *testing.T, proc FileProcessor) (*Orchestrator, *recorder) {
	t.Helper()
	rec := &recorder{}
	o := NewOrchestrator(DefaultConfig(), proc, rec, nil)
	o.Sleep = func(_ context.Context, d time.Duration) error {
		rec.mu.Lock()
		rec.delays = append(rec.delays, d)
		rec.mu.Unlock()
		return nil
	}
	return o, rec
}

func pdfs(names ...string) []ingest.File {
	out := make([]ingest.File, 0, len(names))
	for _, n := range names {
		out = append(out, &ingest.MemoryFile{FileName: n, Data: []byte("%PDF-1.4")})
	}
	return out
}

type sizedFile struct {
	ingest.MemoryFile
	size int64
}

func (f *sizedFile) Size() int64 { return f.size }

func TestValidate(t *testing.T) {
	o, _ := newOrchestrator(t, &scriptedProcessor{})
	big := func(name string) ingest.File {
		return &sizedFile{MemoryFile: ingest.MemoryFile{FileName: name}, size: constants.MaxFileSizeBytes + 1}
	}
	cases := []struct {
		name  string
		files []ingest.File
		want  string
	}{
		{"empty", nil, "Nenhum arquivo selecionado"},
		{"too many", pdfs("1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"), "Máximo de 10 arquivos por vez"},
		{"oversized", []ingest.File{big("a.pdf"), pdfs("ok.pdf")[0], big("b.pdf")}, "Arquivos excedem o limite de 20MB: a.pdf, b.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.Run(context.Background(), tc.files)
			if !errors.Is(err, common.ErrBatchRejected) {
				t.Fatalf("error = %v, want ErrBatchRejected", err)
			}
			if got := common.UserMessage(err); got != tc.want {
				t.Errorf("message = %q, want %q", got, tc.want)
			}
			// WHAT: A rejected batch leaves no tracked files.
			if snap := o.Snapshot(); len(snap.Files) != 0 || snap.Processing {
				t.Errorf("snapshot after rejection = %+v", snap)
			}
		})
	}
	if err := o.Validate(pdfs("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")); err != nil {
		t.Errorf("ten files should be accepted: %v", err)
	}
}

func TestRun_SequentialWithSummary(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string]string{"b.pdf": "CNPJ inválido retornado pela extração"}}
	o, rec := newOrchestrator(t, proc)

	sum, err := o.Run(context.Background(), pdfs("a.pdf", "b.pdf", "c.pdf"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(proc.order, ",") != "a.pdf,b.pdf,c.pdf" {
		t.Errorf("order = %v", proc.order)
	}
	if sum.Total != 3 || sum.Success != 2 || sum.Errors != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Results[0].Message != constants.MsgImported || sum.Results[1].Message != "CNPJ inválido retornado pela extração" {
		t.Errorf("results = %+v", sum.Results)
	}

	// WHAT: Pacing runs between files, never after the last one.
	if len(rec.delays) != 2 || rec.delays[0] != 500*time.Millisecond {
		t.Errorf("delays = %v", rec.delays)
	}

	if len(rec.notes) != 2 {
		t.Fatalf("notifications = %+v", rec.notes)
	}
	if rec.notes[0].Level != LevelSuccess || rec.notes[0].Message != "2 arquivo(s) importado(s) com sucesso" {
		t.Errorf("success note = %+v", rec.notes[0])
	}
	if rec.notes[1].Level != LevelError || rec.notes[1].Message != "1 arquivo(s) com erro" {
		t.Errorf("error note = %+v", rec.notes[1])
	}

	snap := o.Snapshot()
	if snap.Processing || snap.Summary == nil || snap.Summary.Success != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Files[0].Progress != 100 || snap.Files[0].ExtractedData == nil {
		t.Errorf("file a = %+v", snap.Files[0])
	}
	if snap.Files[1].Status != constants.FileStatusError || snap.Files[1].Progress != 0 || snap.Files[1].ExtractedData != nil {
		t.Errorf("file b = %+v", snap.Files[1])
	}
}

func TestRun_OnlySuccessNotification(t *testing.T) {
	o, rec := newOrchestrator(t, &scriptedProcessor{})
	if _, err := o.Run(context.Background(), pdfs("a.pdf")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.notes) != 1 || rec.notes[0].Level != LevelSuccess {
		t.Errorf("notifications = %+v", rec.notes)
	}
	if len(rec.delays) != 0 {
		t.Errorf("single file batch paced: %v", rec.delays)
	}
}

func TestStart_RejectsWhileProcessing(t *testing.T) {
	proc := &scriptedProcessor{block: make(chan struct{})}
	o, _ := newOrchestrator(t, proc)

	if err := o.Start(context.Background(), pdfs("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := o.Start(context.Background(), pdfs("b.pdf"))
	if common.UserMessage(err) != constants.MsgBatchInProgress {
		t.Errorf("second start error = %v", err)
	}
	if !o.Snapshot().Processing {
		t.Error("expected processing while the first file is blocked")
	}

	close(proc.block)
	o.Wait()
	snap := o.Snapshot()
	if snap.Processing || snap.Summary == nil || snap.Summary.Success != 1 {
		t.Errorf("snapshot after wait = %+v", snap)
	}
}

func TestReset_DiscardsInFlightRun(t *testing.T) {
	// WHAT: Reset clears state at once and late updates from the old run are ignored.
	// WHY: An abandoned run must not repopulate the list the user just cleared.
	proc := &scriptedProcessor{block: make(chan struct{})}
	o, rec := newOrchestrator(t, proc)

	if err := o.Start(context.Background(), pdfs("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.Reset()
	if snap := o.Snapshot(); len(snap.Files) != 0 || snap.Processing || snap.Summary != nil {
		t.Errorf("snapshot after reset = %+v", snap)
	}
	o.Wait()

	if snap := o.Snapshot(); len(snap.Files) != 0 || snap.Summary != nil {
		t.Errorf("abandoned run leaked into state: %+v", snap)
	}
	rec.mu.Lock()
	leaked := append([]Notification(nil), rec.notes...)
	rec.mu.Unlock()
	if len(leaked) != 0 {
		t.Errorf("abandoned run notified: %+v", leaked)
	}

	// A new batch is accepted after reset and notifies normally.
	proc.block = nil
	sum, err := o.Run(context.Background(), pdfs("c.pdf"))
	if err != nil {
		t.Fatalf("run after reset: %v", err)
	}
	if sum.Total != 1 || sum.Success != 1 {
		t.Errorf("summary after reset = %+v", sum)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.notes) != 1 || rec.notes[0].Level != LevelSuccess {
		t.Errorf("notifications after reset = %+v", rec.notes)
	}
}

func TestRun_CanceledContextMarksRemainingFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &scriptedProcessor{}
	o, _ := newOrchestrator(t, proc)
	o.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	sum, err := o.Run(ctx, pdfs("a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Success != 1 || sum.Errors != 1 || sum.Results[1].Message != constants.MsgCanceled {
		t.Errorf("summary = %+v", sum)
	}
	if len(proc.order) != 1 {
		t.Errorf("processed = %v", proc.order)
	}
}

// silentProcessor stops reporting after the parsing stage.
type silentProcessor struct{ err error }

func (p silentProcessor) ProcessFile(_ context.Context, _ ingest.File, report pipeline.Reporter) (entity.ExtractedFiscalData, error) {
	report(pipeline.Update{Status: constants.FileStatusParsing, Progress: 0})
	return entity.ExtractedFiscalData{}, p.err
}

func TestRun_UnreportedOutcomeEndsInError(t *testing.T) {
	// WHAT: a file the processor left mid-flight is recorded as an error.
	// WHY: the summary must not count a file that never reached a final
	// status, and the UI polls until every file is final.
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"with error", errors.New("disco cheio"), "disco cheio"},
		{"without error", nil, constants.MsgUnknownError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, _ := newOrchestrator(t, silentProcessor{err: tc.err})
			sum, err := o.Run(context.Background(), pdfs("a.pdf"))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if sum.Errors != 1 || sum.Results[0].Message != tc.want {
				t.Errorf("summary = %+v", sum)
			}
			f := o.Snapshot().Files[0]
			if !f.Status.Terminal() || f.Status != constants.FileStatusError || f.Progress != 0 {
				t.Errorf("file = %+v", f)
			}
		})
	}
}

func TestErrorReports(t *testing.T) {
	sum := Summary{
		Total: 3, Success: 1, Errors: 2,
		Results: []Result{
			{Filename: "a.pdf", Status: constants.FileStatusSuccess, Message: constants.MsgImported},
			{Filename: "b.pdf", Status: constants.FileStatusError, Message: "Período não identificado no documento"},
			{Filename: "c, d.pdf", Status: constants.FileStatusError, Message: `Erro "429"`},
		},
	}

	var buf bytes.Buffer
	if err := ErrorReportCSV(&buf, sum); err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := "Arquivo,Erro\n" +
		"b.pdf,Período não identificado no documento\n" +
		"\"c, d.pdf\",\"Erro \"\"429\"\"\"\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}

	raw, err := ErrorReportXLSX(sum)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Erros")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Arquivo" || rows[2][0] != "c, d.pdf" {
		t.Errorf("rows = %v", rows)
	}
}
