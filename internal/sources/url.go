// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladisov/ctx/internal/ctxcore"
)

// URLHandler ingests a remote document. Content is not fetched at parse
// time, only on Load, so that a pack can reference a URL without paying
// the network cost until render.
type URLHandler struct {
	client *http.Client
}

// NewURLHandler returns the handler for "url:" URIs, using a client with
// a bounded timeout so a single slow host can't hang a render.
func NewURLHandler() *URLHandler {
	return &URLHandler{client: &http.Client{Timeout: 30 * time.Second}}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func (h *URLHandler) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "url:")
}

func (h *URLHandler) Parse(ctx context.Context, uri string, opts Options) (ctxcore.Artifact, error) {
	url, ok := strings.CutPrefix(uri, "url:")
	if !ok {
		return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "expected url: prefix")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return ctxcore.Artifact{}, ctxcore.NewInvalidSourceURI(uri, "url must start with http:// or https://")
	}

	return ctxcore.NewArtifact(ctxcore.URLType(url, nil), uri), nil
}

func (h *URLHandler) Load(ctx context.Context, artifact ctxcore.Artifact) (string, error) {
	if artifact.Type.Kind != ctxcore.KindURL {
		return "", ctxcore.NewInvalidSourceURI(artifact.SourceURI, "expected url artifact type")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.Type.URL, nil)
	if err != nil {
		return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
	}
	req.Header.Set("User-Agent", "ctx/1.0 (context aggregator)")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ctxcore.LoadFailedError{
			SourceURI: artifact.SourceURI,
			Cause:     fmt.Errorf("http error %d fetching %s", resp.StatusCode, artifact.Type.URL),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		var buf strings.Builder
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
		}
		return buf.String(), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &ctxcore.LoadFailedError{SourceURI: artifact.SourceURI, Cause: err}
	}

	doc.Find("script, style").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := whitespaceRun.ReplaceAllString(strings.TrimSpace(doc.Text()), " ")

	if title != "" {
		return fmt.Sprintf("# %s\n\n%s", title, text), nil
	}
	return text, nil
}
