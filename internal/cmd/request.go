package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/iocontext"
	"github.com/anglerdiary/flownet/internal/outfmt"
	"github.com/anglerdiary/flownet/internal/validation"
)

// requestOptions are the flags shared by request and curl.
type requestOptions struct {
	method    string
	params    []string
	fields    []string
	rawFields []string
	body      string
	input     string
	bodyType  string
	attach    []string
	headers   []string
	noAuth    bool
}

func (o *requestOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.method, "method", "X", "", "HTTP method (default GET, or POST when a body is given)")
	fs.StringArrayVarP(&o.params, "param", "p", nil, "Query parameter as key=value (repeatable, order kept)")
	fs.StringArrayVarP(&o.fields, "field", "f", nil, "Body field as key=value (string)")
	fs.StringArrayVarP(&o.rawFields, "raw-field", "F", nil, "Body field as key=value (JSON parsed)")
	fs.StringVarP(&o.body, "body", "d", "", "Body as an inline JSON object")
	fs.StringVarP(&o.input, "input", "i", "", "Read the body JSON object from file (use - for stdin)")
	fs.StringVarP(&o.bodyType, "type", "t", "json", "Body encoding: json|form|multipart")
	fs.StringArrayVarP(&o.attach, "attach", "a", nil, "Multipart file as field=@path[;type=mime] (implies --type multipart)")
	fs.StringArrayVarP(&o.headers, "header", "H", nil, "Request header as 'Name: value'")
	fs.BoolVar(&o.noAuth, "no-auth", false, "Do not send the stored token")
	flagAlias(fs, "raw-field", "rf")
	flagAlias(fs, "header", "hdr")
}

func (o *requestOptions) registerCompletions(cmd *cobra.Command) {
	registerStaticCompletions(cmd, "method", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})
	registerStaticCompletions(cmd, "type", []string{"json", "form", "multipart"})
}

// build assembles the descriptor for path. token is sent unless --no-auth.
func (o *requestOptions) build(cmd *cobra.Command, path, token string) (api.RawRequest, error) {
	if o.body != "" && o.input != "" {
		return api.RawRequest{}, fmt.Errorf("cannot use both --body and --input flags")
	}

	contentType, ok := api.ParseContentType(o.bodyType)
	if !ok {
		return api.RawRequest{}, fmt.Errorf("invalid --type %q: must be json, form, or multipart", o.bodyType)
	}
	if len(o.attach) > 0 {
		if cmd.Flags().Changed("type") && contentType != api.ContentTypeMultipart {
			return api.RawRequest{}, fmt.Errorf("--attach requires --type multipart")
		}
		contentType = api.ContentTypeMultipart
	}

	path, query, err := splitPathQuery(path)
	if err != nil {
		return api.RawRequest{}, err
	}
	for _, p := range o.params {
		key, value, err := parseField(p)
		if err != nil {
			return api.RawRequest{}, err
		}
		query = query.Add(key, value)
	}

	body, err := o.bodyParams(cmd)
	if err != nil {
		return api.RawRequest{}, err
	}
	parts, err := parseAttachments(o.attach)
	if err != nil {
		return api.RawRequest{}, err
	}
	headers, err := parseHeaders(o.headers)
	if err != nil {
		return api.RawRequest{}, err
	}

	method := api.ParseMethod(o.method)
	if method == "" {
		method = api.MethodGet
		if len(body) > 0 || len(parts) > 0 {
			method = api.MethodPost
		}
	}
	if (len(body) > 0 || len(parts) > 0) && (method == api.MethodGet || method == api.MethodHead) {
		return api.RawRequest{}, fmt.Errorf("%s requests cannot carry a body; use -p for query parameters", method)
	}

	req := api.RawRequest{
		RequestPath:   path,
		RequestMethod: method,
		Type:          contentType,
		Query:         query,
		Body:          body,
		Header:        headers,
		Parts:         parts,
	}
	if !o.noAuth {
		req.Token = token
	}
	return req, nil
}

// bodyParams merges --body or --input with -f and -F fields. Fields win.
func (o *requestOptions) bodyParams(cmd *cobra.Command) (api.Params, error) {
	var body api.Params

	var raw []byte
	switch {
	case o.body != "":
		raw = []byte(o.body)
	case o.input != "":
		data, err := readInput(cmd, o.input)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := validation.ValidateJSONPayload(string(raw)); err != nil {
			return nil, err
		}
		obj, err := decodeJSONObject(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse body JSON: %w", err)
		}
		body = api.ParamsFromMap(obj)
	}

	for _, field := range o.fields {
		key, value, err := parseField(field)
		if err != nil {
			return nil, err
		}
		body = body.Set(key, value)
	}
	for _, field := range o.rawFields {
		key, value, err := parseRawField(field)
		if err != nil {
			return nil, err
		}
		if nested, ok := value.(map[string]any); ok {
			value = api.ParamsFromMap(nested)
		}
		body = body.Set(key, value)
	}
	return body, nil
}

func decodeJSONObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("body must be a JSON object")
	}
	return obj, nil
}

// splitPathQuery separates an inline "?a=1&b=2" suffix into ordered params.
// Escapes in the path are decoded; a stray % is kept literally.
func splitPathQuery(raw string) (string, api.Params, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("path is required")
	}
	if strings.Contains(raw, "://") {
		return "", nil, fmt.Errorf("path %q must be relative to the base URL; use --base-url to change hosts", raw)
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	path, rawQuery, _ := strings.Cut(raw, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Typed paths may already be escaped; the resolver escapes again.
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	var query api.Params
	for _, item := range strings.Split(rawQuery, "&") {
		if item == "" {
			continue
		}
		k, v, _ := strings.Cut(item, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return "", nil, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return "", nil, fmt.Errorf("invalid query value %q: %w", v, err)
		}
		query = query.Add(key, value)
	}
	return path, query, nil
}

// parseField parses a key=value field where value is a string
func parseField(field string) (string, string, error) {
	key, value, ok := strings.Cut(field, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid field format %q: must be key=value", field)
	}
	return key, value, nil
}

// parseRawField parses a key=value field where value is JSON
func parseRawField(field string) (string, any, error) {
	key, raw, ok := strings.Cut(field, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid raw field format %q: must be key=value", field)
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return "", nil, fmt.Errorf("invalid JSON in raw field %q: %w", key, err)
	}
	return key, value, nil
}

// parseHeaders parses "Name: value" entries.
func parseHeaders(entries []string) (api.Headers, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	headers := make(api.Headers, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: must be 'Name: value'", entry)
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseAttachments reads field=@path[;type=mime] entries.
func parseAttachments(entries []string) ([]api.MultipartPart, error) {
	parts := make([]api.MultipartPart, 0, len(entries))
	for _, entry := range entries {
		field, spec, ok := strings.Cut(entry, "=@")
		if !ok || field == "" || spec == "" {
			return nil, fmt.Errorf("invalid attachment %q: must be field=@path", entry)
		}
		path, mimeType := spec, ""
		if i := strings.LastIndex(spec, ";type="); i >= 0 {
			path, mimeType = spec[:i], spec[i+len(";type="):]
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		name := filepath.Base(path)
		if err := validation.ValidateUploadSize(name, int64(len(data))); err != nil {
			return nil, err
		}
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(path))
		}
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		parts = append(parts, api.MultipartPart{
			FieldName: field,
			FileName:  name,
			MIMEType:  mimeType,
			Data:      data,
		})
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return parts, nil
}

func newRequestCmd() *cobra.Command {
	var opts requestOptions
	var include bool

	cmd := &cobra.Command{
		Use:     "request <path>",
		Aliases: []string{"req", "api"},
		Short:   "Send a request to any API path",
		Long: `Send a request to any API path and print the response.

The path is appended to the resolved base URL. Query parameters may be given
inline ("/v1/catches?limit=5") or with -p; their order is kept on the wire.`,
		Example: `  # GET with query parameters
  flownet request /v1/catches -p species=감성돔 -p limit=5

  # POST a JSON body built from fields
  flownet request /v1/catches -f location=Busan -F 'catch={"method":"루어"}'

  # URL-encoded form
  flownet request /v1/auth/login -X POST -t form -f email=a@b.c -f password=secret

  # Multipart upload
  flownet request /v1/catches/ID/photo -a photo=@fish.jpg -f caption=Nice

  # Show status and headers, filter the body
  flownet request /v1/users/me --include --jq .nickname

  # Preview without sending
  flownet request /v1/catches/ID -X DELETE --dry-run`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationRawOutput: "true"},
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, cfg, err := getClient(cmd)
			if err != nil {
				return err
			}
			req, err := opts.build(cmd, args[0], cfg.Token)
			if err != nil {
				return err
			}
			if dry, err := maybeDryRun(cmd, client, req); dry {
				return err
			}

			_, resp, err := api.SendWithResponse[[]byte](cmdContext(cmd), client, req)
			if err != nil {
				if resp != nil && include && !isJSON(cmd) {
					_ = writeResponse(cmd, resp, true)
				}
				return err
			}
			return writeResponse(cmd, resp, include)
		}),
	}

	opts.register(cmd.Flags())
	opts.registerCompletions(cmd)
	cmd.Flags().BoolVarP(&include, "include", "I", false, "Include status line and response headers")
	flagAlias(cmd.Flags(), "include", "inc")

	return cmd
}

// writeResponse prints a response body, pretty in text mode and as JSON
// otherwise.
func writeResponse(cmd *cobra.Command, resp *api.Response, include bool) error {
	ctx := cmd.Context()
	if isJSON(cmd) {
		payload := responseJSONBody(resp.Body)
		if include {
			payload = map[string]any{
				"status":      resp.StatusCode,
				"headers":     resp.Header,
				"duration_ms": resp.Duration.Milliseconds(),
				"request_id":  resp.RequestID,
				"rate_limit":  resp.RateLimit.Meta(),
				"body":        payload,
			}
		}
		return printJSON(cmd, payload)
	}

	printer := outfmt.NewResponsePrinter(iocontext.GetIO(ctx).Out, outfmt.ColorEnabled(ctx))
	if include {
		printer.PrintStatus(resp.StatusCode, resp.Size, resp.Duration)
		printer.PrintHeader(resp.Header)
	}
	return printer.PrintBody(resp.Header.Get("Content-Type"), resp.Body, outfmt.GetQuery(ctx), outfmt.IsCompact(ctx))
}

func responseJSONBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
