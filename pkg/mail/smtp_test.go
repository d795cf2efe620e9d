package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := BuildMessage("a@x.test", "b@x.test", "Hello\r\nBcc: evil@x.test", "body")
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("subject newline leaked into headers: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody\r\n") {
		t.Fatalf("unexpected body framing: %q", msg)
	}
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender("mailpit", "1025", "")
	var gotAddr, gotFrom string
	var gotTo []string
	s.send = func(addr string, _ smtp.Auth, from string, to []string, _ []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		return nil
	}

	if err := s.Send(context.Background(), " client@x.test ", "subj", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mailpit:1025" || gotFrom != "no-reply@eventservices.local" {
		t.Fatalf("unexpected addr/from %q %q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "client@x.test" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}

	if err := s.Send(context.Background(), "", "subj", "body"); err == nil {
		t.Fatalf("expected missing recipient error")
	}
}
