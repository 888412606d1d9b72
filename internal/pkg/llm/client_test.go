package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
)

func initTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	c := Client{url: server.URL, key: "testKey", model: "gpt-4o"}
	c.httpclient = retryablehttp.NewClient()
	c.httpclient.RetryMax = 0
	c.httpclient.Logger = nil
	return &c, server
}

func TestComplete(t *testing.T) {
	var gotReq completionRequest
	c, server := initTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer testKey", req.Header.Get("Authorization"))
		assert.Nil(t, json.NewDecoder(req.Body).Decode(&gotReq))
		rw.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"answer"}}],
			"usage":{"total_tokens":42}}`))
	})
	defer server.Close()

	r, err := c.Complete(context.Background(), &Request{System: "sys", User: "usr",
		Temperature: 0.3, MaxTokens: 100, JSON: true})

	assert.Nil(t, err)
	assert.Equal(t, "answer", r.Content)
	assert.Equal(t, 42, r.TokensUsed)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	assert.Equal(t, "sys", gotReq.Messages[0].Content)
	assert.Equal(t, "usr", gotReq.Messages[1].Content)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	assert.InDelta(t, 0.3, gotReq.Temperature, 0.001)
}

func TestComplete_NoJSONFormat(t *testing.T) {
	var gotReq completionRequest
	c, server := initTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		assert.Nil(t, json.NewDecoder(req.Body).Decode(&gotReq))
		rw.Write([]byte(`{"choices":[{"message":{"content":"a"}}]}`))
	})
	defer server.Close()

	_, err := c.Complete(context.Background(), &Request{System: "s", User: "u"})

	assert.Nil(t, err)
	assert.Nil(t, gotReq.ResponseFormat)
}

func TestComplete_WrongCode_Fails(t *testing.T) {
	c, server := initTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusBadRequest)
	})
	defer server.Close()

	r, err := c.Complete(context.Background(), &Request{System: "s", User: "u"})

	assert.NotNil(t, err)
	assert.Nil(t, r)
}

func TestComplete_NoContent_Fails(t *testing.T) {
	c, server := initTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(`{"choices":[]}`))
	})
	defer server.Close()

	r, err := c.Complete(context.Background(), &Request{System: "s", User: "u"})

	assert.NotNil(t, err)
	assert.Nil(t, r)
}

func TestComplete_WrongJSON_Fails(t *testing.T) {
	c, server := initTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(`olia`))
	})
	defer server.Close()

	r, err := c.Complete(context.Background(), &Request{System: "s", User: "u"})

	assert.NotNil(t, err)
	assert.Nil(t, r)
}
