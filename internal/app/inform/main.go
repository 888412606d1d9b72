package inform

import (
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/messages"
	"github.com/airenas/spacego/internal/pkg/mongo"
	"github.com/airenas/spacego/internal/pkg/rabbit"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var appName = "Space Inform Service"

var rootCmd = &cobra.Command{
	Use:   "informService",
	Short: appName,
	Long:  `Service listens for space status change events and emails the requester`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	data := ServiceData{}

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit provider")
	defer msgChannelProvider.Close()

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(1, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	qName := msgChannelProvider.QueueName(messages.StatusChange)
	_, err = rabbit.DeclareQueue(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't declare queue "+qName)

	data.WorkCh, err = rabbit.NewChannel(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't listen to "+qName+" channel")

	data.EmailMaker, err = newSimpleEmailMaker(cmdapp.Config)
	cmdapp.CheckOrPanic(err, "Can't init email maker")

	location := cmdapp.Config.GetString("mail.location")
	if location != "" {
		data.Location, err = time.LoadLocation(location)
		cmdapp.CheckOrPanic(err, "Can't init location")
	}

	data.EmailSender, err = newSimpleEmailSender()
	cmdapp.CheckOrPanic(err, "Can't init email sender")

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo provider")
	defer mongoSessionProvider.Close()

	data.Locker, err = mongo.NewLocker(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init mongo locker")

	data.Spaces, err = mongo.NewSpaceStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init space store")

	fc, err := StartWorkerService(&data)
	if err != nil {
		panic(errors.Wrap(err, "Can't start service"))
	}
	<-fc.C
	cmdapp.Log.Infof("Exiting service")
}
