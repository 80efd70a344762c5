package halsdk

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// Reserved keys a HAL-style API uses for hypermedia metadata.
const (
	keyLinks    = "_links"
	keyEmbedded = "_embedded"
)

// Response is the normalized result of a single HTTP exchange. It is derived
// deterministically from one raw response and immutable once constructed.
type Response struct {
	StatusCode int

	resource any
	links    map[string]any
	embedded map[string]any
	raw      bool // resource is a raw body string (text/html)
}

// ResourceOption controls which hypermedia keys Resource retains.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	includeLinks    bool
	includeEmbedded bool
}

// IncludeLinks keeps the _links key in the returned resource.
func IncludeLinks() ResourceOption {
	return func(o *resourceOptions) { o.includeLinks = true }
}

// IncludeEmbedded keeps the _embedded key in the returned resource.
func IncludeEmbedded() ResourceOption {
	return func(o *resourceOptions) { o.includeEmbedded = true }
}

// Resource returns the parsed body. For JSON objects the hypermedia keys are
// stripped unless explicitly requested via IncludeLinks/IncludeEmbedded. For
// text/html responses it returns the raw body string.
func (r *Response) Resource(opts ...ResourceOption) any {
	var o resourceOptions
	for _, opt := range opts {
		opt(&o)
	}

	obj, ok := r.resource.(map[string]any)
	if !ok {
		return r.resource
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == keyLinks && !o.includeLinks {
			continue
		}
		if k == keyEmbedded && !o.includeEmbedded {
			continue
		}
		out[k] = v
	}
	return out
}

// IsRaw reports whether the resource is a raw body string rather than a
// parsed structure.
func (r *Response) IsRaw() bool { return r.raw }

// Links returns the relation->target mapping extracted from _links, or an
// empty map when the response carried none.
func (r *Response) Links() map[string]any {
	if r.links == nil {
		return map[string]any{}
	}
	return r.links
}

// Embedded returns all embedded sub-resources extracted from _embedded.
func (r *Response) Embedded() map[string]any {
	if r.embedded == nil {
		return map[string]any{}
	}
	return r.embedded
}

// EmbeddedResource returns a single embedded sub-resource by name.
func (r *Response) EmbeddedResource(name string) (any, bool) {
	v, ok := r.embedded[name]
	return v, ok
}

// Normalize consumes a raw HTTP response and produces a typed Response, or a
// *Failure for any status >= 400. The response body is always closed.
func Normalize(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", URL: requestURL(resp), Err: err}
	}

	r := &Response{StatusCode: resp.StatusCode}

	switch contentType(resp) {
	case "text/html":
		r.resource = string(body)
		r.raw = true
	default:
		// application/json, or anything that did not declare otherwise
		var parsed any
		if len(body) > 0 {
			if err := json.Unmarshal(body, &parsed); err != nil {
				if resp.StatusCode < http.StatusBadRequest {
					return nil, fmt.Errorf("halsdk: failed to decode response body: %w", err)
				}
				// an error response with an unparseable body still gets a
				// synthesized error resource below
				parsed = nil
			}
		}
		r.resource = parsed
		if obj, ok := parsed.(map[string]any); ok {
			if links, ok := obj[keyLinks].(map[string]any); ok {
				r.links = links
			}
			if embedded, ok := obj[keyEmbedded].(map[string]any); ok {
				r.embedded = embedded
			}
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newFailure(synthesizeError(r))
	}
	return r, nil
}

// synthesizeError builds the normalized error resource for a >=400 response,
// filling in standard fields when the body does not already carry them:
// status from the HTTP status, message from "error" or "Bad Request",
// description from "error_description" or a generic fallback, and property
// from "error_uri" wrapped as {"uri": ...}.
func synthesizeError(r *Response) *ErrorResource {
	raw, _ := r.resource.(map[string]any)

	res := &ErrorResource{
		Status: r.StatusCode,
		Raw:    raw,
	}
	if raw == nil {
		res.Message = "Bad Request"
		res.Description = "An unknown error occurred."
		if r.raw {
			if s, ok := r.resource.(string); ok && s != "" {
				res.Description = s
			}
		}
		return res
	}

	if status, ok := numericValue(raw["status"]); ok {
		res.Status = int(status)
	}
	if code, ok := numericValue(raw["code"]); ok {
		res.Code = int(code)
	}
	if property, ok := raw["property"].(map[string]any); ok {
		res.Property = property
	}

	res.Message, _ = raw["message"].(string)
	if res.Message == "" {
		if errCode, ok := raw["error"].(string); ok && errCode != "" {
			res.Message = errCode
		} else {
			res.Message = "Bad Request"
		}
	}

	res.Description, _ = raw["description"].(string)
	if res.Description == "" {
		if desc, ok := raw["error_description"].(string); ok && desc != "" {
			res.Description = desc
		} else {
			res.Description = "An unknown error occurred."
		}
	}

	if res.Property == nil {
		if uri, ok := raw["error_uri"].(string); ok && uri != "" {
			res.Property = map[string]any{"uri": uri}
		}
	}

	return res
}

// contentType extracts the media type, ignoring parameters such as charset.
func contentType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mediaType
}

func requestURL(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}

// numericValue coerces a decoded JSON number into an int64. JSON decoding
// yields float64, but values written by this package before a session-store
// round trip may still be integers.
func numericValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
