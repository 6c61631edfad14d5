package batch

import (
	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

// File is the tracked state of one document in a batch.
type File struct {
	Name          string                      `json:"name"`
	Size          int64                       `json:"size"`
	Status        constants.FileStatus        `json:"status"`
	Progress      int                         `json:"progress"`
	Attempt       int                         `json:"attempt"`
	Error         string                      `json:"error,omitempty"`
	ExtractedData *entity.ExtractedFiscalData `json:"extractedData,omitempty"`
}

// Result is the final outcome of one file.
type Result struct {
	Filename string               `json:"filename"`
	Status   constants.FileStatus `json:"status"`
	Message  string               `json:"message"`
}

// Summary is computed once, after the last file of a batch.
type Summary struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Errors  int      `json:"errors"`
	Results []Result `json:"results"`
}

// RunState is everything a caller can observe about the current batch.
type RunState struct {
	BatchID    string   `json:"batchId,omitempty"`
	Files      []File   `json:"files"`
	Processing bool     `json:"processing"`
	Summary    *Summary `json:"summary,omitempty"`
}

func (s RunState) clone() RunState {
	out := s
	out.Files = make([]File, len(s.Files))
	copy(out.Files, s.Files)
	for i := range out.Files {
		if d := out.Files[i].ExtractedData; d != nil {
			cp := *d
			out.Files[i].ExtractedData = &cp
		}
	}
	if s.Summary != nil {
		sum := *s.Summary
		sum.Results = append([]Result(nil), s.Summary.Results...)
		out.Summary = &sum
	}
	return out
}

func summarize(files []File) Summary {
	sum := Summary{Total: len(files), Results: make([]Result, 0, len(files))}
	for _, f := range files {
		msg := f.Error
		if f.Status == constants.FileStatusSuccess {
			sum.Success++
			msg = constants.MsgImported
		} else {
			sum.Errors++
			if msg == "" {
				msg = constants.MsgUnknownError
			}
		}
		sum.Results = append(sum.Results, Result{Filename: f.Name, Status: f.Status, Message: msg})
	}
	return sum
}
