package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/agentstation/sevexport/internal/transport"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// Downloader fetches raw responses.
type Downloader interface {
	GetBytes(ctx context.Context, url string) (*transport.Response, error)
}

// Resolver downloads the bytes behind a Request.
type Resolver struct {
	client  Downloader
	baseURL string
}

// NewResolver creates a Resolver for the API at baseURL.
func NewResolver(client Downloader, baseURL string) *Resolver {
	return &Resolver{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the download endpoint for a request.
func (r *Resolver) URL(req Request) string {
	id := url.PathEscape(req.EntityID)
	switch req.Kind {
	case KindInvoicePDF:
		return r.baseURL + "/Invoice/" + id + "/getPdf"
	default:
		return r.baseURL + "/Document/" + id + "/download"
	}
}

// envelope is the JSON wrapper of document and PDF downloads.
type envelope struct {
	Objects struct {
		Filename      string `json:"filename"`
		MimeType      string `json:"mimeType"`
		Content       string `json:"content"`
		Base64Encoded *bool  `json:"base64encoded"`
	} `json:"objects"`
}

// Resolve downloads req and returns it with its final file name.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Attachment, error) {
	endpoint := r.URL(req)

	resp, err := r.client.GetBytes(ctx, endpoint)
	if err != nil {
		return nil, errors.WrapResource("download", req.Kind.String(), req.EntityID, err)
	}
	if !resp.IsSuccess() {
		return nil, errors.WrapResource("download", req.Kind.String(), req.EntityID, resp.Err(endpoint))
	}

	var (
		data     []byte
		filename string
	)
	if resp.IsJSON() {
		data, filename, err = decodeEnvelope(resp.Body)
		if err != nil {
			return nil, errors.WrapResource("decode", req.Kind.String(), req.EntityID, err)
		}
	} else {
		data = resp.Body
	}

	if filename == "" {
		filename = resp.FileName()
	}
	if filename == "" {
		filename = defaultFileName(req, data)
	}

	logging.Ctx(ctx).Debug().
		Str("source", req.Source).
		Str("file", filename).
		Int("bytes", len(data)).
		Msg("Attachment downloaded")

	return &Attachment{
		Request:  req,
		FileName: FileName(req.DisplayName, req.EntityID+"_"+filename),
		Data:     data,
	}, nil
}

func decodeEnvelope(body []byte) ([]byte, string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", errors.WrapParse("json", "download", err)
	}
	if env.Objects.Content == "" {
		return nil, "", errors.NewParseError("json", "download", "response carries no content", nil)
	}
	if env.Objects.Base64Encoded != nil && !*env.Objects.Base64Encoded {
		return []byte(env.Objects.Content), env.Objects.Filename, nil
	}

	data, err := decodeBase64(env.Objects.Content)
	if err != nil {
		return nil, "", errors.WrapParse("base64", env.Objects.Filename, err)
	}
	return data, env.Objects.Filename, nil
}

// decodeBase64 accepts padded and unpadded payloads and ignores line breaks.
func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func defaultFileName(req Request, data []byte) string {
	ext := ".bin"
	if req.Kind == KindInvoicePDF || looksLikePDF(data) {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s%s", req.EntityID, ext)
}

// looksLikePDF reports whether data starts with the PDF magic number.
func looksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
