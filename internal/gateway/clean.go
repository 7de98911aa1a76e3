package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/mvdan/xurls"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ironsheep/answer-eraser/internal/failure"
	"github.com/ironsheep/answer-eraser/internal/imaging"
)

// CleanPrompt is the instruction sent with the full-image cleaning request.
const CleanPrompt = "This is a scanned worksheet with handwritten student answers. " +
	"Remove ALL handwritten text (pen, pencil, any handwriting). " +
	"Keep all printed text, tables, borders, lines, and formatting exactly as they are. " +
	"Also clean up the image: even out the paper color, remove shadows and creases. " +
	"The result should look like a clean, high-quality printed worksheet ready to be filled in again."

// CleanWorksheet asks the backend to return the worksheet with all
// handwriting removed. HTTP 429 and 503 responses are retried according to
// the gateway's retry policy. The returned image has the same size as img.
func (g *Gateway) CleanWorksheet(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	const op = "gateway.clean"

	enc, err := imaging.EncodeForTransmission(img, cleanMaxDimension, cleanJPEGQuality)
	if err != nil {
		return nil, failure.Detection(op, err)
	}
	body, err := g.backend.buildBody(g.backend.CleanModel, CleanPrompt, enc, 0)
	if err != nil {
		return nil, failure.Transport(op, err)
	}

	policy := g.retry
	policy.OnRetry = func(state RetryState, err error) {
		g.log.WithFields(logrus.Fields{
			"op":       op,
			"attempt":  state.Attempt,
			"status":   state.LastStatus,
			"delay_ms": state.Delay.Milliseconds(),
		}).Warn("backend busy, retrying")
	}

	msg, err := Retry(ctx, policy, func(ctx context.Context, _ RetryState) (*message, error) {
		return g.post(ctx, op, g.backend.CleanModel, body, g.cleanTimeout)
	})
	if err != nil {
		return nil, err
	}

	ref, err := imageReference(msg)
	if err != nil {
		return nil, failure.Inpainting(op, err)
	}

	cleaned, err := g.resolveImage(ctx, ref)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return imaging.ResizeTo(cleaned, b.Dx(), b.Dy()), nil
}

// imageReference picks the image the backend answered with. String content
// goes straight to extraction. For part lists, image parts win over text
// parts, and text parts are tried in order.
func imageReference(msg *message) (string, error) {
	if !msg.structured {
		if ref, ok := extractImageRef(msg.text); ok {
			return ref, nil
		}
		return "", fmt.Errorf("no image reference in response text")
	}

	for _, p := range msg.parts {
		if p.kind == partImage && p.url != "" {
			return p.url, nil
		}
	}
	for _, p := range msg.parts {
		if p.kind != partText {
			continue
		}
		if ref, ok := extractImageRef(p.text); ok {
			return ref, nil
		}
	}
	return "", fmt.Errorf("no image part or image reference in response")
}

var dataURIPattern = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[^\s"')]+`)

// extractImageRef finds an image in free text. It tries a markdown image
// link, then a bare http(s) URL, then an inline base64 data URI.
func extractImageRef(s string) (string, bool) {
	if u, ok := markdownImage(s); ok {
		return u, true
	}
	for _, u := range xurls.Strict.FindAllString(s, -1) {
		if isHTTP(u) {
			return u, true
		}
	}
	if m := dataURIPattern.FindString(s); m != "" {
		return m, true
	}
	return "", false
}

// markdownImage returns the destination of the first ![alt](http...) image.
func markdownImage(s string) (string, bool) {
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var found string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			if dest := string(img.Destination); isHTTP(dest) {
				found = dest
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found, found != ""
}

func isHTTP(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// resolveImage decodes a data URI in place or downloads an http(s) image.
func (g *Gateway) resolveImage(ctx context.Context, ref string) (*image.NRGBA, error) {
	const op = "gateway.resolve_image"

	if strings.HasPrefix(ref, "data:") {
		raw, err := decodeDataURI(ref)
		if err != nil {
			return nil, failure.Inpainting(op, err)
		}
		img, err := imaging.DecodeUpright(bytes.NewReader(raw))
		if err != nil {
			return nil, failure.Inpainting(op, err)
		}
		return img, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, failure.Inpainting(op, err)
	}
	g.log.WithField("op", op).Debug("downloading cleaned image")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.HTTP(op, resp.StatusCode, 0, fmt.Errorf("downloading %s", ref))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Transport(op, err)
	}
	img, err := imaging.DecodeUpright(bytes.NewReader(data))
	if err != nil {
		return nil, failure.Inpainting(op, err)
	}
	return img, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	i := strings.Index(uri, ";base64,")
	if i < 0 {
		return nil, fmt.Errorf("data URI is not base64 encoded")
	}
	payload := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, uri[i+len(";base64,"):])

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(payload); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("data URI payload is not valid base64")
}
