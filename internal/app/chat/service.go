package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/llm"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heptiolabs/healthcheck"
)

const (
	maxSpaces         = 10
	minQuestionLen    = 10
	maxQuestionLen    = 500
	maxContextLen     = 15000
	answerMaxTokens   = 1500
	answerTemperature = 0.7
)

type spaceStore interface {
	GetBySpaceID(id string) (*persistence.Space, error)
	IncChatUnlockCount(id string) error
}

type transcriptLoader interface {
	Load(spaceID string) (string, error)
}

type completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

type serviceMetric struct {
	chatResponseDur prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Spaces      spaceStore
	Transcripts transcriptLoader
	LLM         completer

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
}

// ChatRequest - post method input in JSON
type ChatRequest struct {
	SpaceIDs []string `json:"spaceIds"`
	Question string   `json:"question"`
}

// Source names one space the answer is grounded on
type Source struct {
	SpaceID string `json:"spaceId"`
	Title   string `json:"title,omitempty"`
}

// ChatResult - post method response in JSON
type ChatResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	TokensUsed int      `json:"tokensUsed,omitempty"`
}

type spaceContext struct {
	spaceID string
	title   string
	content string
}

//StartWebServer starts the HTTP service and listens for chat queries
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	data.metrics.init()
	router := mux.NewRouter().StrictSlash(true)
	ch := promhttp.InstrumentHandlerDuration(data.metrics.chatResponseDur, chatHandler{data: data})
	router.Methods("POST").Path("/chat").Handler(ch)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

type chatHandler struct {
	data *ServiceData
}

func (h chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Chat request from %s", r.Host)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Can't parse request", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(err, "Can't parse request"))
		return
	}
	if err := validateRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}

	contexts := h.collectContexts(req.SpaceIDs)
	if len(contexts) == 0 {
		http.Error(w, "No valid transcripts found for the provided Space IDs", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(errs.ErrNoValidContext, "no usable space"))
		return
	}

	resp, err := h.data.LLM.Complete(r.Context(), &llm.Request{System: systemPrompt(contexts),
		User: req.Question, Temperature: answerTemperature, MaxTokens: answerMaxTokens})
	if err != nil {
		http.Error(w, "Can not generate answer", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}

	result := ChatResult{Answer: resp.Content, TokensUsed: resp.TokensUsed}
	for _, c := range contexts {
		result.Sources = append(result.Sources, Source{SpaceID: c.spaceID, Title: c.title})
		cmdapp.LogIf(h.data.Spaces.IncChatUnlockCount(c.spaceID))
	}

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(&result); err != nil {
		http.Error(w, "Can not prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
	}
}

// collectContexts loads transcripts of completed spaces,
// spaces without a usable transcript are skipped with a warning
func (h chatHandler) collectContexts(spaceIDs []string) []spaceContext {
	var res []spaceContext
	for _, id := range spaceIDs {
		space, err := h.data.Spaces.GetBySpaceID(id)
		if err != nil {
			cmdapp.Log.Warnf("Can't get space %s: %v", id, err)
			continue
		}
		if space == nil {
			cmdapp.Log.Warnf("Space %s not found, skipping", id)
			continue
		}
		if space.Status != status.Name(status.Completed) {
			cmdapp.Log.Warnf("Space %s is %s, skipping", id, space.Status)
			continue
		}
		content, err := h.data.Transcripts.Load(id)
		if err != nil {
			cmdapp.Log.Warnf("Can't load transcript for %s: %v", id, err)
			continue
		}
		res = append(res, spaceContext{spaceID: id, title: space.Title, content: content})
	}
	return res
}

func validateRequest(req *ChatRequest) error {
	if len(req.SpaceIDs) == 0 {
		return errors.New("No spaceIds provided")
	}
	if len(req.SpaceIDs) > maxSpaces {
		return errors.Errorf("Too many spaceIds, max %d", maxSpaces)
	}
	q := strings.TrimSpace(req.Question)
	if len(q) < minQuestionLen {
		return errors.Errorf("Question must be at least %d characters", minQuestionLen)
	}
	if len(q) > maxQuestionLen {
		return errors.Errorf("Question must be less than %d characters", maxQuestionLen)
	}
	return nil
}

func systemPrompt(contexts []spaceContext) string {
	sb := strings.Builder{}
	sb.WriteString("You are a helpful AI assistant that answers questions about Twitter Space conversations. " +
		"You have access to the following Space transcript(s):\n\n")
	for i, c := range contexts {
		sb.WriteString("=== SPACE " + strconv.Itoa(i+1) + ": " + c.title + " (ID: " + c.spaceID + ") ===\n")
		sb.WriteString(truncate(c.content, maxContextLen) + "\n\n")
	}
	sb.WriteString(`
Instructions:
1. Answer the user's question based ONLY on the information in the transcript(s) above.
2. If the answer cannot be found in the transcripts, say so clearly.
3. Be concise but comprehensive.
4. If multiple Spaces are provided, synthesize information from all of them.
5. When referencing information, mention which Space it came from if helpful.
6. Use a friendly, conversational tone.`)
	return sb.String()
}

// truncate cuts the string at max bytes, never inside a multi byte rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
