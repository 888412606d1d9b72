package request

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/spaceurl"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/badoux/checkmail"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heptiolabs/healthcheck"
)

type spaceStore interface {
	GetOrCreate(id string, url string, title string) (*persistence.Space, error)
	GetBySpaceID(id string) (*persistence.Space, error)
	SaveRequestInfo(id string, email string, wallet string, txHash string) error
	UpdateStatus(id string, st status.Status, errMsg string, errCode string) error
	IncTranscriptionCount(id string) error
}

type jobQueue interface {
	Enqueue(spaceID string, priority int) (*persistence.Job, error)
	ActiveJob(spaceID string) (*persistence.Job, error)
}

type serviceMetric struct {
	transcribeResponseDur prometheus.ObserverVec
	statusResponseDur     prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Spaces spaceStore
	Queue  jobQueue

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
}

// TranscribeRequest - post method input in JSON
type TranscribeRequest struct {
	SpaceURL string `json:"spaceUrl"`
	Email    string `json:"email,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
	TxHash   string `json:"txHash,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// TranscribeResult - post method response in JSON
type TranscribeResult struct {
	Success bool   `json:"success"`
	SpaceID string `json:"spaceId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResult - status get response in JSON
type StatusResult struct {
	SpaceID            string  `json:"spaceId"`
	Status             string  `json:"status"`
	Title              string  `json:"title,omitempty"`
	Error              string  `json:"error,omitempty"`
	ErrorCode          string  `json:"errorCode,omitempty"`
	TranscriptFilePath string  `json:"transcriptFilePath,omitempty"`
	AudioDurationSec   float64 `json:"audioDurationSec,omitempty"`
}

//StartWebServer starts the HTTP service and listens for transcription requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      15 * time.Second,
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
	th := promhttp.InstrumentHandlerDuration(data.metrics.transcribeResponseDur, transcribeHandler{data: data})
	sh := promhttp.InstrumentHandlerDuration(data.metrics.statusResponseDur, statusHandler{data: data})
	router.Methods("POST").Path("/transcribe").Handler(th)
	router.Methods("GET").Path("/status/{spaceId}").Handler(sh)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

type transcribeHandler struct {
	data *ServiceData
}

func (h transcribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Transcribe request from %s", r.Host)

	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Can't parse request", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(err, "Can't parse request"))
		return
	}
	id, err := spaceurl.ExtractID(req.SpaceURL)
	if err != nil {
		http.Error(w, "Invalid Space URL", http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	if req.Email != "" {
		if err := checkmail.ValidateFormat(req.Email); err != nil {
			http.Error(w, "Wrong email", http.StatusBadRequest)
			cmdapp.Log.Errorf("Wrong email")
			return
		}
	}

	space, err := h.data.Spaces.GetOrCreate(id, req.SpaceURL, "Twitter Space "+id)
	if err != nil {
		http.Error(w, "Can not save request to DB", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if err := h.data.Spaces.SaveRequestInfo(id, req.Email, req.Wallet, req.TxHash); err != nil {
		http.Error(w, "Can not save request to DB", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	cmdapp.LogIf(h.data.Spaces.IncTranscriptionCount(id))

	if space.Status == status.Name(status.Completed) {
		writeResult(w, &TranscribeResult{Success: true, SpaceID: id, Status: space.Status,
			Message: "Space is already transcribed"})
		return
	}

	// a queued or processing job means the work is already on its way,
	// paying again must not create a duplicate
	active, err := h.data.Queue.ActiveJob(id)
	if err != nil {
		http.Error(w, "Can not check queue", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if active != nil {
		writeResult(w, &TranscribeResult{Success: true, SpaceID: id, Status: space.Status,
			Message: "Space is already in the queue"})
		return
	}

	if space.Status == status.Name(status.Failed) {
		if err := h.data.Spaces.UpdateStatus(id, status.Pending, "", ""); err != nil {
			http.Error(w, "Can not update status", http.StatusInternalServerError)
			cmdapp.Log.Error(err)
			return
		}
	}
	if _, err := h.data.Queue.Enqueue(id, req.Priority); err != nil {
		http.Error(w, "Can not queue job", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	writeResult(w, &TranscribeResult{Success: true, SpaceID: id, Status: status.Name(status.Pending),
		Message: "Transcription job queued successfully. Processing will start shortly."})
}

type statusHandler struct {
	data *ServiceData
}

func (h statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["spaceId"]
	if !spaceurl.IsValidID(id) {
		http.Error(w, "Invalid Space ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("Invalid space ID %s", id)
		return
	}
	space, err := h.data.Spaces.GetBySpaceID(id)
	if err != nil {
		http.Error(w, "Can not get space", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if space == nil {
		http.Error(w, "Space not found", http.StatusNotFound)
		return
	}
	writeResult(w, &StatusResult{SpaceID: space.ID, Status: space.Status, Title: space.Title,
		Error: space.Error, ErrorCode: space.ErrorCode,
		TranscriptFilePath: space.TranscriptFilePath, AudioDurationSec: space.AudioDurationSec})
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(result); err != nil {
		http.Error(w, "Can not prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
	}
}
