package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Producer is one independent evidence source: an extraction backend
// that reads a document and emits a raw payload. A failed producer is
// recorded, never fatal — the run degrades instead of aborting.
type Producer interface {
	ID() string
	Produce(ctx context.Context, docID, docText string) (string, error)
}

// ProduceJob runs one producer against one document
type ProduceJob struct {
	DocID    string
	DocText  string
	Producer Producer
	Limiter  *Limiter
}

// Execute executes the job, honoring the producer's rate limit
func (j *ProduceJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Producer.ID()); err != nil {
			return &ProduceResult{ProducerID: j.Producer.ID(), DocID: j.DocID, Error: err}
		}
	}

	payload, err := j.Producer.Produce(ctx, j.DocID, j.DocText)
	if err != nil {
		// Degrade to an empty payload; the error travels with the
		// result so the pipeline can record a producer failure.
		return &ProduceResult{ProducerID: j.Producer.ID(), DocID: j.DocID, Error: err}
	}
	return &ProduceResult{ProducerID: j.Producer.ID(), DocID: j.DocID, Payload: payload}
}

// ProduceResult is one producer's raw output for one document
type ProduceResult struct {
	ProducerID string
	DocID      string
	Payload    string
	Error      error
}

// GetError returns the error from the produce result
func (r *ProduceResult) GetError() error {
	return r.Error
}

// FanOut runs a set of producers concurrently against one document
type FanOut struct {
	limiter     *Limiter
	concurrency int
}

// NewFanOut creates a fan-out runner with the given concurrency and
// per-producer limiter (nil disables rate limiting)
func NewFanOut(concurrency int, limiter *Limiter) *FanOut {
	return &FanOut{
		limiter:     limiter,
		concurrency: concurrency,
	}
}

// Run fans the document out to every producer and joins the results.
// Order is not guaranteed. Cancelling ctx stops the fan-out early, so
// a cancelled run may return fewer results than producers.
func (f *FanOut) Run(ctx context.Context, docID, docText string, producers []Producer) []*ProduceResult {
	if len(producers) == 0 {
		return []*ProduceResult{}
	}

	pool := NewPoolWithContext(ctx, f.concurrency)
	pool.Start()

	for _, p := range producers {
		pool.Submit(&ProduceJob{
			DocID:    docID,
			DocText:  docText,
			Producer: p,
			Limiter:  f.limiter,
		})
	}

	results := pool.Wait()

	produceResults := make([]*ProduceResult, len(results))
	for i, result := range results {
		produceResults[i] = result.(*ProduceResult)
	}

	return produceResults
}

// ReadManifest reads document paths from a manifest file (one per
// line, # comments and duplicates skipped)
func ReadManifest(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return paths, nil
}
