package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure HTTPDownloader implements Downloader interface.
var _ Downloader = (*HTTPDownloader)(nil)

// Downloads objects from `<baseURL>/<path>` with an optional bearer token
type HTTPDownloader struct {
	client  *http.Client
	baseURL *url.URL
	token   string
}

func NewHTTPDownloader(client *http.Client, baseURL, token string) (*HTTPDownloader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}

	if client == nil {
		rc := retryablehttp.NewClient()
		rc.Logger = nil
		client = rc.StandardClient()
	}

	return &HTTPDownloader{
		client:  client,
		baseURL: base,
		token:   token,
	}, nil
}

func (d *HTTPDownloader) objectURL(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	u := *d.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = ""
	return u.String()
}

func (d *HTTPDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	target := d.objectURL(path)
	ctx, span := tracer.Start(ctx, "HTTPDownloader.Download", trace.WithAttributes(
		attribute.String("url", target),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download file")
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		span.RecordError(ErrNotFound)
		span.SetStatus(codes.Error, "object not found")
		return nil, ErrNotFound
	default:
		err = fmt.Errorf("invalid status code: %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid status code")
		return nil, err
	}

	data, err := readAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		return nil, err
	}

	span.SetAttributes(attribute.Int("size", len(data)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "fetched file by http")
	return data, nil
}
