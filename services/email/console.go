package emailsvc

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

// Message is an email written by the console service.
type Message struct {
	To      string
	Subject string
	Body    string
}

type consoleService struct {
	mu               sync.Mutex
	sent             []Message
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
	std              *log.Logger
}

var _ notification.EmailSender = (*consoleService)(nil)

// NewConsoleService prints emails instead of sending them (local development).
func NewConsoleService(conf *core.Config, std *log.Logger) *consoleService {
	return &consoleService{
		defaultFromEmail: conf.Notifications.FromAddress(),
		subjPrefix:       "[" + conf.AppName + "] ",
		std:              std,
	}
}

// NewConsoleServiceMock records emails without printing them.
func NewConsoleServiceMock(conf *core.Config) *consoleService {
	svc := NewConsoleService(conf, nil)
	svc.disableOutput = true
	return svc
}

func (svc *consoleService) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{To: to, Subject: svc.subjPrefix + subject, Body: body}

	svc.mu.Lock()
	svc.sent = append(svc.sent, msg)
	svc.mu.Unlock()

	if !svc.disableOutput {
		svc.std.Println(svc.format(msg))
	}
	return nil
}

func (svc *consoleService) format(msg Message) string {
	b := new(strings.Builder)
	_, _ = fmt.Fprintf(b, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(b, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(b, "Subject: %s\r\n", msg.Subject)
	_, _ = fmt.Fprintf(b, "To: %s\r\n", msg.To)
	_, _ = fmt.Fprint(b, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	_, _ = fmt.Fprintf(b, "%s\r\n", msg.Body)
	return b.String()
}

// SentMessages returns every email handled so far.
func (svc *consoleService) SentMessages() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}
