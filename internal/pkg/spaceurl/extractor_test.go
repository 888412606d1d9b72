package spaceurl

import (
	"testing"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/stretchr/testify/assert"
)

func TestExtractID(t *testing.T) {
	id, err := ExtractID("https://twitter.com/i/spaces/1vOGwAbcdEFGH")
	assert.Nil(t, err)
	assert.Equal(t, "1vOGwAbcdEFGH", id)

	id, err = ExtractID("https://x.com/i/spaces/1vOGwAbcdEFGH")
	assert.Nil(t, err)
	assert.Equal(t, "1vOGwAbcdEFGH", id)
}

func TestExtractIDWithQuery(t *testing.T) {
	id, err := ExtractID("https://x.com/i/spaces/1vOGwAbcdEFGH?s=20")
	assert.Nil(t, err)
	assert.Equal(t, "1vOGwAbcdEFGH", id)
}

func TestExtractIDDeterministic(t *testing.T) {
	id1, err := ExtractID("https://twitter.com/i/spaces/1ZkKzbdOXrWxv")
	assert.Nil(t, err)
	id2, err := ExtractID("https://twitter.com/i/spaces/1ZkKzbdOXrWxv")
	assert.Nil(t, err)
	assert.Equal(t, id1, id2)
}

func TestExtractIDFails(t *testing.T) {
	for _, url := range []string{"", "olia", "https://x.com/i/broadcasts/1vOGw",
		"https://example.com/i/spaces/1vOGwAbcdEFGH2"} {
		_, err := ExtractID(url)
		assert.NotNil(t, err, url)
		assert.Equal(t, "INVALID_URL", errs.Code(err), url)
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("1vOGwAbcdEFGH"))
	assert.False(t, IsValidID("1vOGw"))
	assert.False(t, IsValidID("1vOGwAbcdEFGH1vOGw"))
	assert.False(t, IsValidID("1vOGwAbcdEFG!"))
	assert.False(t, IsValidID(""))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://x.com/i/spaces/1vOGwAbcdEFGH"))
	assert.False(t, IsValidURL("https://x.com/olia"))
}
