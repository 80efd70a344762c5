package halsdk

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rawResponse(status int, contentType, body string) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNormalizeJSON(t *testing.T) {
	t.Parallel()

	t.Run("plain object", func(t *testing.T) {
		resp, err := Normalize(rawResponse(200, "application/json", `{"name":"alice"}`))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, map[string]any{"name": "alice"}, resp.Resource())
		require.Empty(t, resp.Links())
		require.Empty(t, resp.Embedded())
	})

	t.Run("array body", func(t *testing.T) {
		resp, err := Normalize(rawResponse(200, "application/json", `[1,2,3]`))
		require.NoError(t, err)
		require.Equal(t, []any{float64(1), float64(2), float64(3)}, resp.Resource())
	})

	t.Run("missing content type defaults to json", func(t *testing.T) {
		resp, err := Normalize(rawResponse(200, "", `{"ok":true}`))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"ok": true}, resp.Resource())
	})

	t.Run("json with charset parameter", func(t *testing.T) {
		resp, err := Normalize(rawResponse(200, "application/json; charset=utf-8", `{"ok":true}`))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"ok": true}, resp.Resource())
	})

	t.Run("undecodable success body", func(t *testing.T) {
		_, err := Normalize(rawResponse(200, "application/json", `{broken`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode")
	})

	t.Run("empty body", func(t *testing.T) {
		resp, err := Normalize(rawResponse(200, "application/json", ""))
		require.NoError(t, err)
		require.Nil(t, resp.Resource())
	})
}

func TestNormalizeHypermedia(t *testing.T) {
	t.Parallel()

	body := `{
		"name": "alice",
		"_links": {"self": {"href": "/contacts/1"}},
		"_embedded": {"notes": [{"text": "hi"}]}
	}`

	resp, err := Normalize(rawResponse(200, "application/json", body))
	require.NoError(t, err)

	require.Contains(t, resp.Links(), "self")
	notes, ok := resp.EmbeddedResource("notes")
	require.True(t, ok)
	require.Len(t, notes, 1)

	t.Run("hypermedia keys stripped by default", func(t *testing.T) {
		res := resp.Resource().(map[string]any)
		require.Equal(t, "alice", res["name"])
		require.NotContains(t, res, "_links")
		require.NotContains(t, res, "_embedded")
	})

	t.Run("inclusion flags keep them", func(t *testing.T) {
		res := resp.Resource(IncludeLinks(), IncludeEmbedded()).(map[string]any)
		require.Contains(t, res, "_links")
		require.Contains(t, res, "_embedded")
	})
}

func TestNormalizeHTML(t *testing.T) {
	t.Parallel()

	resp, err := Normalize(rawResponse(200, "text/html", "<h1>hello</h1>"))
	require.NoError(t, err)
	require.True(t, resp.IsRaw())
	require.Equal(t, "<h1>hello</h1>", resp.Resource())
	require.Empty(t, resp.Links())
	require.Empty(t, resp.Embedded())
}

func TestNormalizeErrorSynthesis(t *testing.T) {
	t.Parallel()

	t.Run("oauth error fields", func(t *testing.T) {
		body := `{"error":"invalid_grant","error_description":"bad password","error_uri":"https://errors.example.com/invalid_grant"}`
		_, err := Normalize(rawResponse(400, "application/json", body))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.Equal(t, "invalid_grant", failure.Message)
		require.Equal(t, "bad password", failure.Description)
		require.Equal(t, 400, failure.Status)
		require.Equal(t, map[string]any{"uri": "https://errors.example.com/invalid_grant"}, failure.Resource.Property)
		require.True(t, failure.IsClientError())
		require.False(t, failure.IsServerError())
	})

	t.Run("defaults when body carries nothing", func(t *testing.T) {
		_, err := Normalize(rawResponse(400, "application/json", `{}`))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.Equal(t, "Bad Request", failure.Message)
		require.Equal(t, "An unknown error occurred.", failure.Description)
		require.Equal(t, 400, failure.Status)
		require.Nil(t, failure.Resource.Property)
	})

	t.Run("empty error body", func(t *testing.T) {
		_, err := Normalize(rawResponse(503, "application/json", ""))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.Equal(t, 503, failure.Status)
		require.True(t, failure.IsServerError())
		require.Equal(t, "Bad Request", failure.Message)
	})

	t.Run("structured api error passes through", func(t *testing.T) {
		body := `{"status":422,"message":"Validation Error","description":"one or more fields failed","code":4220,"property":{"email":"not an address"}}`
		_, err := Normalize(rawResponse(422, "application/json", body))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.Equal(t, "Validation Error", failure.Message)
		require.Equal(t, "one or more fields failed", failure.Description)
		require.Equal(t, 422, failure.Status)
		require.Equal(t, 4220, failure.Code)
		require.Equal(t, "not an address", failure.Resource.Property["email"])
	})

	t.Run("html error body", func(t *testing.T) {
		_, err := Normalize(rawResponse(500, "text/html", "<h1>boom</h1>"))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.True(t, failure.IsServerError())
		require.Equal(t, "<h1>boom</h1>", failure.Description)
	})

	t.Run("unparseable error body still synthesizes", func(t *testing.T) {
		_, err := Normalize(rawResponse(502, "application/json", `not json at all`))

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		require.Equal(t, 502, failure.Status)
		require.Equal(t, "Bad Request", failure.Message)
	})
}

func TestFailureDefaults(t *testing.T) {
	t.Parallel()

	f := newFailure(&ErrorResource{})
	require.Equal(t, "Unknown Error", f.Message)
	require.Equal(t, "An unknown error has occurred", f.Description)
	require.Equal(t, DefaultFailureCode, f.Code)
	require.Equal(t, 400, f.Status)
}
