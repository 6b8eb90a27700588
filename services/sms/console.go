package smssvc

import (
	"context"
	"log"
	"sync"

	"github.com/trezcool/shule/core/notification"
)

type Message struct {
	To   string
	Body string
}

type consoleService struct {
	mu            sync.Mutex
	sent          []Message
	disableOutput bool
	std           *log.Logger
}

var _ notification.SMSSender = (*consoleService)(nil)

// NewConsoleService prints text messages instead of sending them (local development).
func NewConsoleService(std *log.Logger) *consoleService {
	return &consoleService{std: std}
}

// NewConsoleServiceMock records text messages without printing them.
func NewConsoleServiceMock() *consoleService {
	return &consoleService{disableOutput: true}
}

func (svc *consoleService) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, Message{To: to, Body: message})
	svc.mu.Unlock()

	if !svc.disableOutput {
		svc.std.Printf("SMS to %s: %s\n", to, message)
	}
	return nil
}

func (svc *consoleService) SentMessages() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}
