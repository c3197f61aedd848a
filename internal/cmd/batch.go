package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/dryrun"
	"github.com/anglerdiary/flownet/internal/iocontext"
)

// DefaultConcurrency is the default number of concurrent requests
const DefaultConcurrency = 5

// batchSpec is one line of a batch file.
type batchSpec struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Type    string            `json:"type,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
	Body    map[string]any    `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	NoAuth  bool              `json:"no_auth,omitempty"`
}

// BatchResult is the outcome of one batch request.
type BatchResult struct {
	Index      int             `json:"index"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Status     int             `json:"status,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	OK         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
	Code       api.ErrorCode   `json:"code,omitempty"`
	Attempts   int             `json:"attempts"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// batchOptions controls how runBatch sends specs.
type batchOptions struct {
	Token       string
	Concurrency int64
	Retry       api.RetryPolicy
	Progress    io.Writer
}

// parseBatch reads a JSON array of specs or one JSON object per line.
// Blank lines and lines starting with # are skipped.
func parseBatch(data []byte) ([]batchSpec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("batch input is empty")
	}
	if trimmed[0] == '[' {
		var specs []batchSpec
		if err := decodeBatchJSON(trimmed, &specs); err != nil {
			return nil, fmt.Errorf("invalid batch JSON: %w", err)
		}
		return specs, nil
	}

	var specs []batchSpec
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var spec batchSpec
		if err := decodeBatchJSON([]byte(text), &spec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	return specs, nil
}

// decodeBatchJSON decodes one JSON value, keeping numbers as json.Number so
// large integers reach the wire unchanged.
func decodeBatchJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

// descriptor converts a spec to a request descriptor.
func (s batchSpec) descriptor(token string) (api.RawRequest, error) {
	path, query, err := splitPathQuery(s.Path)
	if err != nil {
		return api.RawRequest{}, err
	}
	for _, p := range api.ParamsFromMap(s.Query) {
		query = query.Add(p.Key, p.Value)
	}
	contentType, ok := api.ParseContentType(s.Type)
	if !ok || contentType == api.ContentTypeMultipart {
		return api.RawRequest{}, fmt.Errorf("invalid type %q: must be json or form", s.Type)
	}
	method := api.ParseMethod(s.Method)
	if method == "" {
		method = api.MethodGet
	}
	req := api.RawRequest{
		RequestPath:   path,
		RequestMethod: method,
		Type:          contentType,
		Query:         query,
		Body:          api.ParamsFromMap(s.Body),
		Header:        api.Headers(s.Headers),
	}
	if !s.NoAuth {
		req.Token = token
	}
	return req, nil
}

// runBatch sends every spec with bounded parallelism. Results keep input order.
func runBatch(ctx context.Context, client *api.Client, specs []batchSpec, opts batchOptions) []BatchResult {
	concurrency, progress := opts.Concurrency, opts.Progress
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	sem := semaphore.NewWeighted(concurrency)
	results := make([]BatchResult, len(specs))
	var mu sync.Mutex
	var done int64
	total := len(specs)

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			result := BatchResult{Index: i, Method: strings.ToUpper(spec.Method), Path: spec.Path}
			if result.Method == "" {
				result.Method = string(api.MethodGet)
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				result.Error = err.Error()
				result.Code = api.CodeCanceled
				results[i] = result
				return nil
			}
			defer sem.Release(1)

			results[i] = sendBatchItem(gctx, client, spec, opts, result)

			if progress != nil {
				current := atomic.AddInt64(&done, 1)
				mu.Lock()
				_, _ = fmt.Fprintf(progress, "\rProcessed %d/%d", current, total)
				mu.Unlock()
			}
			// Individual failures never cancel the group.
			return nil
		})
	}
	_ = g.Wait()

	if progress != nil && total > 0 {
		_, _ = fmt.Fprintln(progress)
	}
	return results
}

// sendBatchItem sends one spec, retrying per opts.Retry. Each attempt builds
// and resolves a fresh descriptor.
func sendBatchItem(ctx context.Context, client *api.Client, spec batchSpec, opts batchOptions, result BatchResult) BatchResult {
	start := time.Now()
	finish := func() BatchResult {
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}

	for {
		req, err := spec.descriptor(opts.Token)
		if err != nil {
			result.Error = err.Error()
			result.Code = api.CodeInvalidRequest
			return finish()
		}

		result.Attempts++
		_, resp, err := api.SendWithResponse[[]byte](ctx, client, req)
		result.Status, result.Body = 0, nil
		if resp != nil {
			result.Status = resp.StatusCode
			if json.Valid(resp.Body) {
				result.Body = json.RawMessage(resp.Body)
			}
		}
		if err == nil {
			result.OK = true
			result.Error, result.Code = "", ""
			return finish()
		}
		result.Error = err.Error()
		result.Code = api.CodeOf(err)

		delay, retry := opts.Retry.Delay(result.Attempts, err)
		if !retry || api.SleepContext(ctx, delay) != nil {
			return finish()
		}
	}
}

func countBatchFailures(results []BatchResult) int {
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	return failed
}

func newBatchCmd() *cobra.Command {
	var input string
	var concurrency int64
	var progress bool
	var retries int
	var retryDelay time.Duration

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Send many requests concurrently from a file",
		Long: `Send requests described in a file or on stdin.

Input is a JSON array, or one JSON object per line:

  {"method":"GET","path":"/v1/catches?limit=5"}
  {"method":"POST","path":"/v1/catches","body":{"catch":{"location":"Busan"}}}
  {"method":"POST","path":"/v1/auth/login","type":"form","body":{"email":"a@b.c"},"no_auth":true}

Results are printed in input order. With --retries, transport failures,
5xx and 429 responses are sent again with exponential backoff, honoring
Retry-After.`,
		Example: `  flownet batch -i requests.jsonl --concurrency 10
  flownet batch -i requests.jsonl --retries 3 --retry-delay 500ms
  cat requests.jsonl | flownet batch -o jsonl`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			if retries < 0 {
				return fmt.Errorf("--retries must be zero or more")
			}
			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			specs, err := parseBatch(data)
			if err != nil {
				return err
			}

			client, cfg, err := getClient(cmd)
			if err != nil {
				return err
			}
			ioStreams := iocontext.GetIO(cmd.Context())

			if dryrun.IsEnabled(cmd.Context()) {
				return previewBatch(cmd, client, specs, cfg.Token)
			}

			opts := batchOptions{
				Token:       cfg.Token,
				Concurrency: concurrency,
				Retry:       api.RetryPolicy{MaxRetries: retries, BaseDelay: retryDelay},
			}
			if progress {
				opts.Progress = ioStreams.ErrOut
			}
			results := runBatch(cmdContext(cmd), client, specs, opts)

			if isJSON(cmd) {
				items := make([]any, len(results))
				for i, r := range results {
					items[i] = r
				}
				if err := printJSON(cmd, items); err != nil {
					return err
				}
			} else {
				f := newFormatter(cmd)
				f.StartTable("#", "METHOD", "PATH", "STATUS", "TIME", "ERROR")
				for _, r := range results {
					status := "-"
					if r.Status != 0 {
						status = strconv.Itoa(r.Status)
					}
					f.Row(strconv.Itoa(r.Index+1), r.Method, r.Path, status, fmt.Sprintf("%dms", r.DurationMS), r.Error)
				}
				if err := f.EndTable(); err != nil {
					return err
				}
			}

			if failed := countBatchFailures(results); failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "Batch file (use - for stdin)")
	cmd.Flags().Int64VarP(&concurrency, "concurrency", "c", DefaultConcurrency, "Maximum requests in flight")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print progress to stderr")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retry transport, 5xx and 429 failures up to N times")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", api.DefaultRetryBaseDelay, "Initial backoff between retries")
	flagAlias(cmd.Flags(), "concurrency", "conc")

	return cmd
}

func previewBatch(cmd *cobra.Command, client *api.Client, specs []batchSpec, token string) error {
	previews := make([]any, 0, len(specs))
	out := iocontext.GetIO(cmd.Context()).Out
	for i, spec := range specs {
		req, err := spec.descriptor(token)
		if err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}
		resolved, err := client.Resolve(req)
		if err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}
		preview := dryrun.FromRequest(resolved)
		if isJSON(cmd) {
			previews = append(previews, preview)
			continue
		}
		preview.Write(out)
		_, _ = fmt.Fprintln(out)
	}
	if isJSON(cmd) {
		return printJSON(cmd, previews)
	}
	return nil
}
