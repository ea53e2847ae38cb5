package engine

import (
	"context"
	"time"

	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/scan"
)

// runState is the bookkeeping shared by the main pass and every retry pass.
// Only the dispatching goroutine touches it.
type runState struct {
	req         *Request
	galleryID   string
	galleryName string
	total       int
	completed   int
}

type imageSuccess struct {
	file scan.FileInfo
	data *imagehost.UploadResult
}

type taskResult struct {
	file    scan.FileInfo
	data    *imagehost.UploadResult
	err     error
	elapsed time.Duration
}

// runPass uploads files with a bounded worker pool. The pool is primed with
// up to Concurrency tasks; each completion submits the next file unless a
// soft stop has been requested. In-flight uploads always run to completion.
// Outcomes are partitioned in submission order, not completion order.
func (e *Engine) runPass(ctx context.Context, st *runState, files []scan.FileInfo) (successes []imageSuccess, failures []FailedImage, stopped bool) {
	if len(files) == 0 {
		return nil, nil, false
	}
	if softStopRequested(st.req) {
		return nil, nil, true
	}

	results := make(chan taskResult)
	inflight := 0
	next := 0

	submit := func() {
		file := files[next]
		next++
		inflight++
		go func() {
			start := time.Now()
			data, err := e.client.UploadImage(ctx, e.uploadRequest(st, file, false))
			results <- taskResult{file: file, data: data, err: err, elapsed: time.Since(start)}
		}()
	}

	for next < len(files) && inflight < st.req.Concurrency {
		submit()
	}

	outcomes := make(map[string]taskResult, len(files))
	for inflight > 0 {
		res := <-results
		inflight--
		outcomes[res.file.Name] = res

		if res.err == nil {
			st.completed++
			e.logger.Debug("uploaded",
				logging.String("file", res.file.Path),
				logging.Duration("elapsed", res.elapsed),
				logging.String("url", res.data.ImageURL))
			e.emitUploaded(st.req, res.file, res.data)
		} else {
			e.logger.Warn("upload failed",
				logging.String("file", res.file.Name),
				logging.Error(res.err))
		}
		e.emitProgress(st, res.file.Name)

		if !stopped && softStopRequested(st.req) {
			stopped = true
			e.logger.Info("soft stop requested; finishing in-flight uploads",
				logging.Int("completed", st.completed),
				logging.Int("total", st.total))
		}
		if !stopped && next < len(files) {
			submit()
		}
	}

	for _, file := range files[:next] {
		res := outcomes[file.Name]
		if res.err == nil {
			successes = append(successes, imageSuccess{file: file, data: res.data})
		} else {
			failures = append(failures, FailedImage{Filename: file.Name, Reason: res.err.Error()})
		}
	}
	return successes, failures, stopped
}
