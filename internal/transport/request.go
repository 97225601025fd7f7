package transport

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
)

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err converts an unsuccessful response into an APIError for endpoint.
func (r *Response) Err(endpoint string) error {
	msg := strings.TrimSpace(string(r.Body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = http.StatusText(r.Status)
	}
	return errors.NewAPIError(Scrub(endpoint), r.Status, msg)
}

// IsJSON reports whether the body is a JSON document.
func (r *Response) IsJSON() bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasSuffix(mediaType, "json") {
		return true
	}
	trimmed := strings.TrimSpace(string(r.Body[:min(len(r.Body), 64)]))
	return strings.HasPrefix(trimmed, "{")
}

// JSON decodes the body into target.
func (r *Response) JSON(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// FileName returns the file name announced in Content-Disposition, if any.
func (r *Response) FileName() string {
	disposition := r.Header.Get("Content-Disposition")
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return strings.Trim(params["filename"], `"`)
}

// NormalizeQuery turns "path&a=1&b=2" into "path?a=1&b=2". URLs that already
// carry a '?' are returned unchanged.
func NormalizeQuery(raw string) string {
	if strings.Contains(raw, "?") {
		return raw
	}
	return strings.Replace(raw, "&", "?", 1)
}

// Scrub removes the API token from a URL so it can be logged.
func Scrub(raw string) string {
	u, err := url.Parse(NormalizeQuery(raw))
	if err != nil {
		return "<unparseable url>"
	}
	if u.User != nil {
		u.User = url.User("xxxxx")
	}
	query := u.Query()
	if query.Has(constants.TokenQueryParam) {
		query.Set(constants.TokenQueryParam, "xxxxx")
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// scrubError drops the token from errors that echo the request URL.
func scrubError(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "xxxxx"))
}
