package chat

import (
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/llm"
	"github.com/airenas/spacego/internal/pkg/mongo"
	"github.com/airenas/spacego/internal/pkg/saver"
	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
)

var appName = "Space Chat Service"

var rootCmd = &cobra.Command{
	Use:   "chatService",
	Short: appName,
	Long:  `HTTP server to answer questions over completed space transcripts`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8001, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8001)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/spaces/")
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

	data.Transcripts, err = saver.NewTranscriptSaver(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init transcript loader")

	data.LLM, err = llm.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init llm client")

	err = initMetrics(&data)
	cmdapp.CheckOrPanic(err, "Can't register metrics")
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}
