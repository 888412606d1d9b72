package rabbit

import (
	"encoding/json"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/messages"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

//Sender performs message sending using rabbit mq broker
type Sender struct {
	ChannelProvider *ChannelProvider
}

//NewSender initializes rabbit sender
func NewSender(provider *ChannelProvider) *Sender {
	return &Sender{ChannelProvider: provider}
}

//Send sends the message
func (sender *Sender) Send(message *messages.StatusMessage, queue string, replyQueue string) error {
	cmdapp.Log.Infof("Sending message %s(%s)", queue, message.ID)

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Can't marshal message")
	}

	ch, err := sender.ChannelProvider.Channel()
	if err != nil {
		return errors.Wrap(err, "Can't init channel")
	}
	err = ch.Publish(
		"", // exchange
		sender.ChannelProvider.QueueName(queue),
		false, // mandatory
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         msgBytes,
			ReplyTo:      replyQueue,
		})

	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't send message")
	}
	return nil
}
