// Package notify delivers transactional mail. A Dispatcher sends over a
// primary transport and switches, once and for good, to a fallback transport
// when the primary fails with a connection-level error.
package notify

import (
	"fmt"
	"strings"
	"time"
)

// Message is a plain-text mail addressed to one recipient.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome is sent after an identity has been registered.
func Welcome(name, enrollmentNo, to string) Message {
	return Message{
		To:      to,
		Subject: "Fingerprint registration complete",
		Body: fmt.Sprintf("Hello %s,\n\nYour fingerprint has been registered under enrollment number %s.\n"+
			"You can now be marked present in the sessions of the courses you are enrolled in.\n", name, enrollmentNo),
	}
}

// Confirmation is sent after attendance has been marked.
func Confirmation(name, course, session string, at time.Time, to string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Attendance recorded: %s", course),
		Body: fmt.Sprintf("Hello %s,\n\nYour attendance for %s (%s) was recorded at %s.\n",
			name, course, session, at.UTC().Format(time.RFC1123)),
	}
}

// Missed is sent to each absentee when a session is closed.
func Missed(name, course, session string, date time.Time, to string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Missed session: %s", course),
		Body: fmt.Sprintf("Hello %s,\n\nYou were not marked present in %s (%s) on %s.\n"+
			"Contact your instructor if you believe this is a mistake.\n", name, course, session, date.Format("2006-01-02")),
	}
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("message has no recipient")
	}
	if strings.ContainsAny(m.To+m.Subject, "\r\n") {
		return fmt.Errorf("header injection in message")
	}
	return nil
}
