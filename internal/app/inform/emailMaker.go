package inform

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/jordan-wright/email"
)

type SimpleEmailMaker struct {
	url string
	c   *viper.Viper
}

func newSimpleEmailMaker(c *viper.Viper) (*SimpleEmailMaker, error) {
	r := SimpleEmailMaker{c: c}
	var err error
	r.url, err = getStringNonNil(c, "mail.url")
	if err != nil {
		return nil, err
	}
	return &r, nil
}

//Make prepares the email for the space status change
func (maker *SimpleEmailMaker) Make(data *Data) (*email.Email, error) {
	r := email.NewEmail()
	subject, err := getStringNonNil(maker.c, "mail."+data.Status+".subject")
	if err != nil {
		return nil, err
	}
	r.Subject = maker.fill(subject, data)
	text, err := getStringNonNil(maker.c, "mail."+data.Status+".text")
	if err != nil {
		return nil, err
	}
	r.Text = []byte(maker.fill(text, data))
	r.To = []string{data.Email}
	r.From, err = getStringNonNil(maker.c, "smtp.username")
	return r, err
}

func (maker *SimpleEmailMaker) fill(s string, data *Data) string {
	url := strings.Replace(maker.url, "{{ID}}", data.SpaceID, -1)
	s = strings.Replace(s, "{{ID}}", data.SpaceID, -1)
	s = strings.Replace(s, "{{URL}}", url, -1)
	s = strings.Replace(s, "{{TITLE}}", data.Title, -1)
	s = strings.Replace(s, "{{ERROR}}", data.ErrMsg, -1)
	t := data.MsgTime.Format("2006-01-02 15:04:05")
	s = strings.Replace(s, "{{DATE}}", t, -1)
	return s
}

func getStringNonNil(c *viper.Viper, key string) (string, error) {
	r := c.GetString(key)
	if r == "" {
		return "", errors.New("No setting " + key)
	}
	return r, nil
}
