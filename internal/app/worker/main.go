package worker

import (
	"net/http"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/format"
	"github.com/airenas/spacego/internal/pkg/llm"
	"github.com/airenas/spacego/internal/pkg/messages"
	"github.com/airenas/spacego/internal/pkg/mongo"
	"github.com/airenas/spacego/internal/pkg/rabbit"
	"github.com/airenas/spacego/internal/pkg/saver"
	"github.com/airenas/spacego/internal/pkg/transcription"
	"github.com/airenas/spacego/internal/pkg/twitter"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var appName = "Space Worker Service"

var rootCmd = &cobra.Command{
	Use:   "workerService",
	Short: appName,
	Long:  `Worker service polls the job queue and runs the space transcription pipeline`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/spaces/")
	cmdapp.Config.SetDefault("healthPort", 8022)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	reapChildren()
	cmdapp.CheckOrPanic(registerMetrics(), "Can't register metrics")

	data := ServiceData{}
	health := healthcheck.NewHandler()

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	spaces, err := mongo.NewSpaceStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init space store")
	data.Spaces = spaces

	queue, err := mongo.NewJobQueue(mongoSessionProvider, cmdapp.Config.GetInt("worker.maxRetries"))
	cmdapp.CheckOrPanic(err, "Can't init job queue")
	data.Queue = queue

	data.MessageSender = initSender(health)

	cookies, err := twitter.NewCookies(cmdapp.Config.GetString("twitter.cookiesFile"))
	cmdapp.CheckOrPanic(err, "Can't load twitter cookies")
	defer cookies.Close()

	twClient, err := twitter.NewClient(cookies)
	cmdapp.CheckOrPanic(err, "Can't init twitter client")

	storagePath := cmdapp.Config.GetString("fileStorage.path")
	data.Acquirer, err = twitter.NewAcquirer(twClient, twitter.NewDownloader(), storagePath)
	cmdapp.CheckOrPanic(err, "Can't init acquirer")

	trClient, err := transcription.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init transcription client")
	data.Transcriber, err = transcription.NewChunkedTranscriber(trClient, transcription.NewSplitter())
	cmdapp.CheckOrPanic(err, "Can't init chunked transcriber")

	llmClient, err := llm.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init llm client")
	data.Formatter, err = format.NewFormatter(llmClient)
	cmdapp.CheckOrPanic(err, "Can't init formatter")

	data.Saver, err = saver.NewTranscriptSaver(storagePath)
	cmdapp.CheckOrPanic(err, "Can't init transcript saver")

	data.PollInterval = cmdapp.Config.GetDuration("worker.pollInterval")
	data.Cooldown = cmdapp.Config.GetDuration("worker.cooldown")
	data.JobTimeout = cmdapp.Config.GetDuration("worker.jobTimeout")

	go serveHealth(health)

	fc, err := StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start worker")

	quit := utils.NewSignalChannel()
	<-quit.C
	fc.Close()
	data.Wait()
	cmdapp.Log.Infof("Exiting service")
}

// initSender returns nil if no message broker is configured,
// status events are optional
func initSender(health healthcheck.Handler) messages.Sender {
	if cmdapp.Config.GetString("messageServer.url") == "" {
		cmdapp.Log.Info("No message server configured, status events disabled")
		return nil
	}
	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))
	err = msgChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		_, err := rabbit.DeclareQueue(ch, msgChannelProvider.QueueName(messages.StatusChange))
		return err
	})
	cmdapp.CheckOrPanic(err, "Can't init queues")
	return rabbit.NewSender(msgChannelProvider)
}

func serveHealth(health healthcheck.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	port := cmdapp.Config.GetString("healthPort")
	cmdapp.Log.Infof("Health endpoint at :%s", port)
	cmdapp.LogIf(http.ListenAndServe(":"+port, mux))
}
