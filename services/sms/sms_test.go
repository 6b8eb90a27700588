package smssvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type creatorStub struct {
	params *twilioApi.CreateMessageParams
	resp   *twilioApi.ApiV2010Message
	err    error
}

func (s *creatorStub) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	s.params = params
	return s.resp, s.err
}

func TestTwilioService_SendSMS(t *testing.T) {
	ctx := context.Background()
	failed := "unreachable"

	tests := []struct {
		name    string
		stub    *creatorStub
		wantErr bool
	}{
		{name: "sent", stub: &creatorStub{resp: &twilioApi.ApiV2010Message{}}},
		{name: "api error", stub: &creatorStub{err: errors.New("401")}, wantErr: true},
		{name: "message error", stub: &creatorStub{resp: &twilioApi.ApiV2010Message{ErrorMessage: &failed}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := twilioService{api: tt.stub, from: "+15005550006"}
			err := svc.SendSMS(ctx, "+243811111111", "Your child Amani was absent on 2025-03-14.")
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, "+243811111111", *tt.stub.params.To)
			assert.Equal(t, "+15005550006", *tt.stub.params.From)
			assert.Equal(t, "Your child Amani was absent on 2025-03-14.", *tt.stub.params.Body)
		})
	}
}

func TestConsoleService(t *testing.T) {
	svc := NewConsoleServiceMock()
	assert.NoError(t, svc.SendSMS(context.Background(), "+243811111111", "hello"))
	assert.Equal(t, []Message{{To: "+243811111111", Body: "hello"}}, svc.SentMessages())
}
