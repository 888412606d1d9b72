package llm

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// Request is one chat completion call
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Response keeps the model answer with usage info
type Response struct {
	Content    string
	TokensUsed int
}

//Client calls a chat completion API
type Client struct {
	httpclient *retryablehttp.Client
	url        string
	key        string
	model      string
}

//NewClient creates a completion client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.url, err = utils.GetURLFromConfig("llm.url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("llm.key")
	if res.key == "" {
		return nil, errors.New("no llm.key provided")
	}
	res.model = cmdapp.Config.GetString("llm.model")
	if res.model == "" {
		res.model = "gpt-4o"
	}
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = 3
	res.httpclient.Logger = nil
	return &res, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string      `json:"model"`
	Messages       []message   `json:"messages"`
	Temperature    float64     `json:"temperature"`
	MaxTokens      int         `json:"max_tokens,omitempty"`
	ResponseFormat *respFormat `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

//Complete invokes the model and returns its answer
func (sp *Client) Complete(ctx context.Context, req *Request) (*Response, error) {
	cReq := completionRequest{Model: sp.model, Temperature: req.Temperature, MaxTokens: req.MaxTokens,
		Messages: []message{{Role: "system", Content: req.System}, {Role: "user", Content: req.User}}}
	if req.JSON {
		cReq.ResponseFormat = &respFormat{Type: "json_object"}
	}
	b, err := json.Marshal(cReq)
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare request")
	}
	hReq, err := retryablehttp.NewRequest("POST", sp.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	hReq = hReq.WithContext(ctx)
	hReq.Header.Set("Content-Type", "application/json")
	hReq.Header.Set("Authorization", "Bearer "+sp.key)

	resp, err := sp.httpclient.Do(hReq)
	if err != nil {
		return nil, errors.Wrap(err, "can't call "+utils.URLToLog(sp.url))
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, errors.Wrap(err, "completion request failed")
	}

	var respData completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, errors.Wrap(err, "can't decode response")
	}
	if len(respData.Choices) == 0 || respData.Choices[0].Message.Content == "" {
		return nil, errors.New("no content in model response")
	}
	return &Response{Content: respData.Choices[0].Message.Content,
		TokensUsed: respData.Usage.TotalTokens}, nil
}
