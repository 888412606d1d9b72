package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeSpaces struct {
	space   *persistence.Space
	getErr  error
	reqInfo []string
	updates []status.Status
	trCount int
}

func (f *fakeSpaces) GetOrCreate(id string, url string, title string) (*persistence.Space, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.space == nil {
		f.space = &persistence.Space{ID: id, URL: url, Title: title, Status: status.Name(status.Pending)}
	}
	return f.space, nil
}

func (f *fakeSpaces) GetBySpaceID(id string) (*persistence.Space, error) {
	return f.space, f.getErr
}

func (f *fakeSpaces) SaveRequestInfo(id string, email string, wallet string, txHash string) error {
	f.reqInfo = append(f.reqInfo, email+"|"+wallet+"|"+txHash)
	return nil
}

func (f *fakeSpaces) UpdateStatus(id string, st status.Status, errMsg string, errCode string) error {
	f.updates = append(f.updates, st)
	return nil
}

func (f *fakeSpaces) IncTranscriptionCount(id string) error {
	f.trCount++
	return nil
}

type fakeJobQueue struct {
	active     *persistence.Job
	enqueued   []string
	priorities []int
	err        error
}

func (f *fakeJobQueue) Enqueue(spaceID string, priority int) (*persistence.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, spaceID)
	f.priorities = append(f.priorities, priority)
	return &persistence.Job{ID: "job1", SpaceID: spaceID}, nil
}

func (f *fakeJobQueue) ActiveJob(spaceID string) (*persistence.Job, error) {
	return f.active, nil
}

func newTestData() (*ServiceData, *fakeSpaces, *fakeJobQueue) {
	s := &fakeSpaces{}
	q := &fakeJobQueue{}
	return &ServiceData{Spaces: s, Queue: q}, s, q
}

const spaceURL = "https://x.com/i/spaces/1vOGwAbcdEFGH"

func TestWrongPath(t *testing.T) {
	data, _, _ := newTestData()
	req := httptest.NewRequest("GET", "/invalid", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestTranscribe(t *testing.T) {
	data, s, q := newTestData()
	req := httptest.NewRequest("POST", "/transcribe",
		strings.NewReader(`{"spaceUrl":"`+spaceURL+`","email":"a@b.lt","wallet":"0xw","txHash":"0xt"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), `"spaceId":"1vOGwAbcdEFGH"`)
	assert.Contains(t, resp.Body.String(), `"status":"pending"`)
	assert.Equal(t, []string{"1vOGwAbcdEFGH"}, q.enqueued)
	assert.Equal(t, []string{"a@b.lt|0xw|0xt"}, s.reqInfo)
	assert.Equal(t, 1, s.trCount)
}

func TestTranscribe_PassesPriority(t *testing.T) {
	data, _, q := newTestData()
	req := httptest.NewRequest("POST", "/transcribe",
		strings.NewReader(`{"spaceUrl":"`+spaceURL+`","priority":5}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, []int{5}, q.priorities)
}

func TestTranscribe_WrongURL(t *testing.T) {
	data, _, q := newTestData()
	req := httptest.NewRequest("POST", "/transcribe",
		strings.NewReader(`{"spaceUrl":"https://x.com/some/url"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
	assert.Empty(t, q.enqueued)
}

func TestTranscribe_WrongEmail(t *testing.T) {
	data, _, _ := newTestData()
	req := httptest.NewRequest("POST", "/transcribe",
		strings.NewReader(`{"spaceUrl":"`+spaceURL+`","email":"olia"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
}

func TestTranscribe_WrongJSON(t *testing.T) {
	data, _, _ := newTestData()
	req := httptest.NewRequest("POST", "/transcribe", strings.NewReader("olia"))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
}

func TestTranscribe_Completed_NoEnqueue(t *testing.T) {
	data, s, q := newTestData()
	s.space = &persistence.Space{ID: "1vOGwAbcdEFGH", Status: status.Name(status.Completed)}
	req := httptest.NewRequest("POST", "/transcribe", strings.NewReader(`{"spaceUrl":"`+spaceURL+`"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), "already transcribed")
	assert.Empty(t, q.enqueued)
	assert.Equal(t, 1, s.trCount)
}

func TestTranscribe_ActiveJob_NoDuplicate(t *testing.T) {
	data, _, q := newTestData()
	q.active = &persistence.Job{ID: "job0", SpaceID: "1vOGwAbcdEFGH", Status: persistence.JobQueued}
	req := httptest.NewRequest("POST", "/transcribe", strings.NewReader(`{"spaceUrl":"`+spaceURL+`"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), "already in the queue")
	assert.Empty(t, q.enqueued)
}

func TestTranscribe_Failed_ResetsAndRequeues(t *testing.T) {
	data, s, q := newTestData()
	s.space = &persistence.Space{ID: "1vOGwAbcdEFGH", Status: status.Name(status.Failed),
		Error: "olia", ErrorCode: "DOWNLOAD_ERROR"}
	req := httptest.NewRequest("POST", "/transcribe", strings.NewReader(`{"spaceUrl":"`+spaceURL+`"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, []status.Status{status.Pending}, s.updates)
	assert.Equal(t, []string{"1vOGwAbcdEFGH"}, q.enqueued)
}

func TestTranscribe_EnqueueFails(t *testing.T) {
	data, _, q := newTestData()
	q.err = errors.New("olia")
	req := httptest.NewRequest("POST", "/transcribe", strings.NewReader(`{"spaceUrl":"`+spaceURL+`"}`))
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 500, resp.Code)
}

func TestStatus(t *testing.T) {
	data, s, _ := newTestData()
	s.space = &persistence.Space{ID: "1vOGwAbcdEFGH", Status: status.Name(status.Completed),
		Title: "Space title", TranscriptFilePath: "/data/1vOGwAbcdEFGH/transcript.md",
		AudioDurationSec: 600}
	req := httptest.NewRequest("GET", "/status/1vOGwAbcdEFGH", nil)
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)
	assert.Contains(t, resp.Body.String(), `"title":"Space title"`)
	assert.Contains(t, resp.Body.String(), "transcript.md")
}

func TestStatus_NotFound(t *testing.T) {
	data, _, _ := newTestData()
	req := httptest.NewRequest("GET", "/status/1vOGwAbcdEFGH", nil)
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 404, resp.Code)
}

func TestStatus_WrongID(t *testing.T) {
	data, _, _ := newTestData()
	req := httptest.NewRequest("GET", "/status/olia", nil)
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
}

func TestStatus_DBFails(t *testing.T) {
	data, s, _ := newTestData()
	s.getErr = errors.New("olia")
	req := httptest.NewRequest("GET", "/status/1vOGwAbcdEFGH", nil)
	resp := httptest.NewRecorder()

	NewRouter(data).ServeHTTP(resp, req)

	assert.Equal(t, 500, resp.Code)
}
