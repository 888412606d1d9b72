package inform

import (
	"encoding/json"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/messages"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/airenas/spacego/internal/pkg/utils"

	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

//Sender sends emails
type Sender interface {
	Send(email *email.Email) error
}

//EmailMaker prepares the email
type EmailMaker interface {
	Make(data *Data) (*email.Email, error)
}

type spaceStore interface {
	GetBySpaceID(id string) (*persistence.Space, error)
}

//Locker tracks email sending process
//It is used to guarantee not to send the emails twice
type Locker interface {
	Lock(id string, lockKey string) error
	UnLock(id string, lockKey string, value *int) error
}

//Data keeps mail template values for one space status change
type Data struct {
	SpaceID string
	Email   string
	Title   string
	Status  string
	ErrMsg  string
	MsgTime time.Time
}

// ServiceData keeps data required for service work
type ServiceData struct {
	WorkCh      <-chan amqp.Delivery
	EmailSender Sender
	EmailMaker  EmailMaker
	Spaces      spaceStore
	Locker      Locker
	Location    *time.Location

	fc *utils.MultiCloseChannel
}

//StartWorkerService starts the event queue listener service
// returns channel to track the finish event
func StartWorkerService(data *ServiceData) (*utils.MultiCloseChannel, error) {
	cmdapp.Log.Infof("Starting listen for messages")
	if data.EmailMaker == nil {
		return nil, errors.New("No email maker")
	}
	if data.Spaces == nil {
		return nil, errors.New("No space store")
	}
	if data.EmailSender == nil {
		return nil, errors.New("No sender")
	}
	if data.Locker == nil {
		return nil, errors.New("No locker")
	}
	if data.WorkCh == nil {
		return nil, errors.New("No work channel")
	}
	data.fc = utils.NewMultiCloseChannel()

	go listenQueue(data)
	return data.fc, nil
}

//work is main method to send the email
func work(data *ServiceData, message *messages.StatusMessage) error {
	cmdapp.Log.Infof("Got status %s for space %s", message.Status, message.ID)

	if !informable(message.Status) {
		cmdapp.Log.Infof("Status %s needs no email, skipping", message.Status)
		return nil
	}

	space, err := data.Spaces.GetBySpaceID(message.ID)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't retrieve space")
	}
	if space == nil {
		return errors.New("No space record for " + message.ID)
	}
	if space.Email == "" {
		cmdapp.Log.Infof("No email for %s, skipping", message.ID)
		return nil
	}

	mailData := Data{SpaceID: message.ID, Email: space.Email, Title: space.Title,
		Status: message.Status, ErrMsg: message.Error, MsgTime: toLocalTime(data, message.At)}

	email, err := data.EmailMaker.Make(&mailData)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't prepare email")
	}

	err = data.Locker.Lock(mailData.SpaceID, mailData.Status)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't lock mail table")
	}
	var unlockValue = 0
	defer data.Locker.UnLock(mailData.SpaceID, mailData.Status, &unlockValue)

	err = data.EmailSender.Send(email)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't send email")
	}
	unlockValue = 2
	return nil
}

func informable(st string) bool {
	return st == status.Name(status.Completed) || st == status.Name(status.Failed)
}

func listenQueue(data *ServiceData) {
	for d := range data.WorkCh {
		redeliver, err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Error("Message error. ", err)
			d.Nack(false, redeliver && !d.Redelivered) // try redeliver for the first time
			continue
		}
		d.Ack(false)
	}
	cmdapp.Log.Infof("Stopped listening queue")
	data.fc.Close()
}

func toLocalTime(data *ServiceData, at int64) time.Time {
	t := time.Now()
	if at > 0 {
		t = time.Unix(at, 0)
	}
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}

//processMsg returns true if it needs to retry on error again
func processMsg(d *amqp.Delivery, data *ServiceData) (bool, error) {
	var message messages.StatusMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return false, errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	err := work(data, &message)
	cmdapp.Log.Infof("Msg processed")
	return true, err
}
