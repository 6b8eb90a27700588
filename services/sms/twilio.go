package smssvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

// messageCreator is the part of the Twilio REST client used to send messages.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioService struct {
	api  messageCreator
	from string
}

var _ notification.SMSSender = (*twilioService)(nil)

func NewTwilioService(conf *core.Config) *twilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.Notifications.TwilioAccountSID,
		Password: conf.Notifications.TwilioAuthToken,
	})
	return &twilioService{api: client.Api, from: conf.Notifications.TwilioFromNumber}
}

// SendSMS sends message to the E.164 number to.
// The Twilio client has no context support: ctx is only checked before the call.
func (svc twilioService) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(svc.from)
	params.SetBody(message)

	resp, err := svc.api.CreateMessage(params)
	if err != nil {
		return errors.Wrap(err, "sending sms")
	}
	if resp.ErrorMessage != nil {
		return errors.Errorf("sending sms: %s", *resp.ErrorMessage)
	}
	return nil
}
