package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// Data is the result of one transcription request
type Data struct {
	Text        string
	DurationSec float64
}

//Client sends audio to the speech to text service
type Client struct {
	httpclient *retryablehttp.Client
	url        string
	key        string
	model      string
	language   string
}

//NewClient creates a transcription client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.url, err = utils.GetURLFromConfig("transcriber.url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("transcriber.key")
	if res.key == "" {
		return nil, errors.New("no transcriber.key provided")
	}
	res.model = cmdapp.Config.GetString("transcriber.model")
	if res.model == "" {
		res.model = "whisper-1"
	}
	res.language = cmdapp.Config.GetString("transcriber.language")
	if res.language == "" {
		res.language = "en"
	}
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = 3
	res.httpclient.Logger = nil
	return &res, nil
}

type transcribeResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Language string  `json:"language"`
}

//Transcribe uploads one audio file and returns its text with duration
func (sp *Client) Transcribe(ctx context.Context, filePath string) (*Data, error) {
	cmdapp.Log.Infof("Transcribing %s", filePath)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "can't open %s: %v", filePath, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, errors.Wrap(err, "can't add file to request")
	}
	if _, err = io.Copy(part, file); err != nil {
		return nil, errors.Wrap(err, "can't add file to request")
	}
	writer.WriteField("model", sp.model)
	writer.WriteField("language", sp.language)
	writer.WriteField("response_format", "verbose_json")
	writer.Close()

	req, err := retryablehttp.NewRequest("POST", sp.url, body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sp.key)

	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "can't call %s: %v", utils.URLToLog(sp.url), err)
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "transcription request failed: %v", err)
	}

	var respData transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "can't decode response: %v", err)
	}
	if respData.Text == "" {
		return nil, errors.Wrap(errs.ErrTranscription, "empty text in response")
	}
	cmdapp.Log.Infof("Transcribed %s: %d chars, %.1f s", filepath.Base(filePath),
		len(respData.Text), respData.Duration)
	return &Data{Text: respData.Text, DurationSec: respData.Duration}, nil
}
