package twitter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
)

func testCookies() *Cookies {
	return &Cookies{header: "auth_token=tok; ct0=csrf1", csrf: "csrf1"}
}

func initClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	c := Client{cookies: testCookies()}
	c.httpclient = server.Client()
	c.spaceURL = server.URL + "/AudioSpaceById"
	c.streamURL = server.URL + "/live_video_stream/status"
	c.bearer = "Bearer test"
	c.backoffF = func() backoff.BackOff { return &backoff.StopBackOff{} }
	return &c, server
}

const spaceResp = `{"data":{"audioSpace":{"metadata":{"rest_id":"1vOGwAbcdEFGH","state":"Ended",
"title":"Space title","media_key":"mk_1","creator_results":{"result":{"rest_id":"creator1"}},
"is_space_available_for_replay":true}}}}`

func TestGetSpace(t *testing.T) {
	var gotAuth, gotCSRF, gotCookie string
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		gotCSRF = req.Header.Get("x-csrf-token")
		gotCookie = req.Header.Get("Cookie")
		assert.Contains(t, req.URL.RawQuery, "variables=")
		assert.Contains(t, req.URL.RawQuery, "features=")
		rw.Write([]byte(spaceResp))
	})
	defer server.Close()

	r, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.Nil(t, err)
	assert.Equal(t, "Space title", r.Title)
	assert.Equal(t, "creator1", r.CreatorID)
	assert.Equal(t, "mk_1", r.MediaKey)
	assert.True(t, r.AvailableForReplay)
	assert.Equal(t, "Bearer test", gotAuth)
	assert.Equal(t, "csrf1", gotCSRF)
	assert.Contains(t, gotCookie, "auth_token=tok")
}

func TestGetSpace_APIErrors(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	})
	defer server.Close()

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, "NOT_AVAILABLE", errs.Code(err))
	assert.True(t, errs.IsTerminal(err))
}

func TestGetSpace_Unauthorized(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, "AUTHENTICATION_ERROR", errs.Code(err))
}

func TestGetSpace_NotFound(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, "NOT_AVAILABLE", errs.Code(err))
}

func TestGetSpace_EmptyResponse(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(`{"data":{"audioSpace":{"metadata":{}}}}`))
	})
	defer server.Close()

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, "NOT_AVAILABLE", errs.Code(err))
}

func TestGetSpace_Retries(t *testing.T) {
	calls := 0
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		calls++
		if calls == 1 {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		rw.Write([]byte(spaceResp))
	})
	defer server.Close()
	c.backoffF = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) }

	r, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.Nil(t, err)
	assert.Equal(t, "mk_1", r.MediaKey)
	assert.Equal(t, 2, calls)
}

func TestGetSpace_NoRetryOnTerminal(t *testing.T) {
	calls := 0
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		calls++
		rw.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()
	c.backoffF = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5) }

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetStreamURL(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		assert.Contains(t, req.URL.Path, "/mk_1")
		assert.Contains(t, req.URL.RawQuery, "client=web")
		rw.Write([]byte(`{"source":{"location":"https://hls/playlist.m3u8"}}`))
	})
	defer server.Close()

	r, err := c.GetStreamURL("mk_1")

	assert.Nil(t, err)
	assert.Equal(t, "https://hls/playlist.m3u8", r)
}

func TestGetStreamURL_NoLocation(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(`{"source":{}}`))
	})
	defer server.Close()

	_, err := c.GetStreamURL("mk_1")

	assert.NotNil(t, err)
	assert.Equal(t, "STREAM_UNAVAILABLE", errs.Code(err))
}

func TestInvoke_NoCSRF(t *testing.T) {
	c, server := initClient(t, func(rw http.ResponseWriter, req *http.Request) {})
	defer server.Close()
	c.cookies = &Cookies{header: "a=b"}

	_, err := c.GetSpace("1vOGwAbcdEFGH")

	assert.NotNil(t, err)
	assert.Equal(t, "AUTHENTICATION_ERROR", errs.Code(err))
}
