package email

import (
	"context"
)

// Result tells a successful delivery apart from a deliberate no-op.
type Result string

const (
	ResultSent    Result = "sent"
	ResultSkipped Result = "skipped"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Service sends a single email. Callers treat ResultSkipped like ResultSent.
type Service interface {
	Send(ctx context.Context, msg Message) (Result, error)
}
