package request

import (
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/mongo"
	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
)

var appName = "Space Request Service"

var rootCmd = &cobra.Command{
	Use:   "requestService",
	Short: appName,
	Long:  `HTTP server to accept space transcription requests and to report space status`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8000)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	var data ServiceData
	data.health = healthcheck.NewHandler()

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	spaces, err := mongo.NewSpaceStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init space store")
	data.Spaces = spaces

	queue, err := mongo.NewJobQueue(mongoSessionProvider, cmdapp.Config.GetInt("worker.maxRetries"))
	cmdapp.CheckOrPanic(err, "Can't init job queue")
	data.Queue = queue

	err = initMetrics(&data)
	cmdapp.CheckOrPanic(err, "Can't register metrics")
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}
