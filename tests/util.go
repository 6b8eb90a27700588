package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/student"
)

func CreateStudent(t *testing.T, repo student.Repository, name, guardianEmail, guardianPhone string, className ...string) student.Student {
	s := student.Student{
		Name:          name,
		GuardianEmail: guardianEmail,
		GuardianPhone: guardianPhone,
		CreatedAt:     time.Now().UTC(),
	}
	if len(className) > 0 {
		s.ClassName = className[0]
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

// Logger records every message instead of printing it.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, arg := range args {
		msg += fmt.Sprintf(" | %v", arg)
	}
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, m := range l.Messages {
		if len(m) > len(level) && m[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

// Message is a message sent through Notifier.
type Message struct {
	Channel notification.Channel
	To      string
	Subject string
	Body    string
}

// Notifier records sent messages. Fail makes every send to that recipient fail;
// Delay blocks each send, honouring ctx.
type Notifier struct {
	mu    sync.Mutex
	sent  []Message
	Fail  map[string]error
	Delay time.Duration
}

var _ notification.Notifier = (*Notifier)(nil)

func NewNotifier() *Notifier {
	return &Notifier{Fail: make(map[string]error)}
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if n.Delay > 0 {
		select {
		case <-time.After(n.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.Fail[msg.To]; err != nil {
		return err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *Notifier) SendSMS(ctx context.Context, to, message string) error {
	return n.send(ctx, Message{Channel: notification.SMS, To: to, Body: message})
}

func (n *Notifier) SendEmail(ctx context.Context, to, subject, body string) error {
	return n.send(ctx, Message{Channel: notification.Email, To: to, Subject: subject, Body: body})
}

func (n *Notifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

// Sink records submitted events without delivering them.
type Sink struct {
	mu     sync.Mutex
	events []notification.Event
}

var _ notification.Sink = (*Sink)(nil)

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Submit(_ context.Context, events ...notification.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *Sink) Events() []notification.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Event(nil), s.events...)
}
