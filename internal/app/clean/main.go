package clean

import (
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/mongo"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/spf13/cobra"
)

var appName = "Space Audio Clean Service"

var rootCmd = &cobra.Command{
	Use:   "cleanService",
	Short: appName,
	Long:  `Service to drop audio files of old completed spaces`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/spaces/")
	cmdapp.Config.SetDefault("clean.runEvery", "12h")
	cmdapp.Config.SetDefault("clean.keepAudioDays", 7)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)

	data := &ServiceData{}

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()

	data.Spaces, err = mongo.NewSpaceStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init space store")

	data.Cleaner, err = newLocalFile(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init cleaner")

	data.RunEvery = cmdapp.Config.GetDuration("clean.runEvery")
	data.KeepAudio = time.Duration(cmdapp.Config.GetInt("clean.keepAudioDays")) * 24 * time.Hour

	err = StartCleanTimer(data)
	cmdapp.CheckOrPanic(err, "Can't start timer")

	fc := utils.NewSignalChannel()
	<-fc.C
	data.Stop()
	cmdapp.Log.Infof("Exiting service")
}
