package format

import (
	"context"
	"testing"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/llm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeCompleter struct {
	resp *llm.Response
	err  error
	req  *llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.req = req
	return f.resp, f.err
}

func TestFormat(t *testing.T) {
	fc := &fakeCompleter{resp: &llm.Response{Content: `{"participants":["Alice","Bob"],
		"speakerProfiles":[{"name":"Alice","background":"Host"},{"name":"Bob"}],
		"formattedText":"Alice: hi\nBob: hello"}`}}
	f, err := NewFormatter(fc)
	assert.Nil(t, err)

	r, err := f.Format(context.Background(), "raw text", "My Space", []string{"Alice"})

	assert.Nil(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, r.Participants)
	assert.Equal(t, 2, len(r.SpeakerProfiles))
	assert.Equal(t, "Host", r.SpeakerProfiles[0].Background)
	assert.Equal(t, "Alice: hi\nBob: hello", r.FormattedText)
	assert.True(t, fc.req.JSON)
	assert.Contains(t, fc.req.User, "My Space")
	assert.Contains(t, fc.req.User, "Known participants")
	assert.Contains(t, fc.req.User, "raw text")
}

func TestFormat_NoProfiles_UsesParticipants(t *testing.T) {
	fc := &fakeCompleter{resp: &llm.Response{Content: `{"participants":["Alice"],
		"formattedText":"Alice: hi"}`}}
	f, _ := NewFormatter(fc)

	r, err := f.Format(context.Background(), "raw", "", nil)

	assert.Nil(t, err)
	assert.Equal(t, 1, len(r.SpeakerProfiles))
	assert.Equal(t, "Alice", r.SpeakerProfiles[0].Name)
}

func TestFormat_LLMFails(t *testing.T) {
	f, _ := NewFormatter(&fakeCompleter{err: errors.New("olia")})

	r, err := f.Format(context.Background(), "raw", "", nil)

	assert.NotNil(t, err)
	assert.Nil(t, r)
	assert.Equal(t, "FORMATTING_ERROR", errs.Code(err))
}

func TestFormat_WrongJSON_Fails(t *testing.T) {
	f, _ := NewFormatter(&fakeCompleter{resp: &llm.Response{Content: "olia"}})

	r, err := f.Format(context.Background(), "raw", "", nil)

	assert.NotNil(t, err)
	assert.Nil(t, r)
	assert.Equal(t, "FORMATTING_ERROR", errs.Code(err))
}

func TestFormat_MissingFields_Fails(t *testing.T) {
	f, _ := NewFormatter(&fakeCompleter{resp: &llm.Response{Content: `{"participants":[]}`}})

	r, err := f.Format(context.Background(), "raw", "", nil)

	assert.NotNil(t, err)
	assert.Nil(t, r)
}

func TestUserPrompt_LimitsHints(t *testing.T) {
	hints := make([]string, 15)
	for i := range hints {
		hints[i] = "p"
	}
	res := userPrompt("raw", "", hints)
	assert.Contains(t, res, "p, p, p, p, p, p, p, p, p, p\n")
}

func TestNewFormatter_Fails(t *testing.T) {
	_, err := NewFormatter(nil)
	assert.NotNil(t, err)
}
