package workers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/notify"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// CommunicationType is the communication worker's pipeline tag.
const CommunicationType = "communication"

// Mailer delivers an email. The built-in mock only logs.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CommunicationRequest is the task payload: either a prepared message,
// or a proposal to compose one from.
type CommunicationRequest struct {
	Recipient string          `json:"recipient"`
	Subject   string          `json:"subject,omitempty"`
	Body      string          `json:"body,omitempty"`
	Request   *rfp.Data       `json:"request,omitempty"`
	Proposal  *ProposalResult `json:"proposal,omitempty"`
}

// CommunicationResult confirms delivery.
type CommunicationResult struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Delivered bool   `json:"delivered"`
}

// Communication delivers proposals to the client and mirrors them to
// the ops channel.
type Communication struct {
	*agent.Base
	mailer   Mailer
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewCommunication creates the worker. Nil collaborators get inert
// defaults so the pipeline runs without delivery credentials.
func NewCommunication(mailer Mailer, notifier notify.Notifier, logger *zap.Logger) *Communication {
	if mailer == nil {
		mailer = &logMailer{logger: logger}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Communication{
		Base:     agent.NewBase(CommunicationType, logger),
		mailer:   mailer,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute sends the message, composing it from the proposal when no
// prepared body was supplied.
func (w *Communication) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return w.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		var req CommunicationRequest
		if err := decodePayload(tc, &req); err != nil {
			return nil, err
		}
		if req.Recipient == "" {
			return nil, &agent.TaskError{
				Message: "recipient is required",
				Code:    "validation",
				Source:  CommunicationType,
			}
		}

		subject, body := req.Subject, req.Body
		if body == "" && req.Proposal != nil && req.Request != nil {
			subject, body = ComposeProposalEmail(*req.Request, *req.Proposal)
		}
		if body == "" {
			return nil, &agent.TaskError{
				Message: "nothing to send: no body and no proposal to compose from",
				Code:    "validation",
				Source:  CommunicationType,
			}
		}

		if err := w.mailer.Send(ctx, req.Recipient, subject, body); err != nil {
			return nil, err
		}

		// Ops mirror is best effort; delivery already succeeded.
		if err := w.notifier.Send(ctx, &notify.Message{
			Title: "Proposal sent: " + subject,
			Body:  "Delivered to " + req.Recipient,
			Level: "info",
		}); err != nil {
			w.logger.Warn("ops mirror failed", zap.Error(err))
		}

		return CommunicationResult{Recipient: req.Recipient, Subject: subject, Delivered: true}, nil
	})
}

// ComposeProposalEmail renders the ranked shortlist into a plain-text
// client email.
func ComposeProposalEmail(request rfp.Data, proposal ProposalResult) (subject, body string) {
	subject = fmt.Sprintf("Charter options: %s to %s on %s",
		request.Departure, request.Arrival, request.DepartureDate)

	var b strings.Builder
	fmt.Fprintf(&b, "We found %d options for your trip from %s to %s (%d passengers).\n\n",
		len(proposal.Ranked), request.Departure, request.Arrival, request.Passengers)
	for i, r := range proposal.Ranked {
		fmt.Fprintf(&b, "%d. %s, %s, $%.0f", i+1, r.Quote.Aircraft, r.Quote.Operator, r.Quote.Price)
		if r.Notes != "" {
			fmt.Fprintf(&b, " (%s)", r.Notes)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s\n", proposal.Recommendation)
	return subject, b.String()
}

// logMailer records the send instead of delivering it.
type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email delivery (mock)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
