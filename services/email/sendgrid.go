package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/masomo-console/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	// attachment-only messages still need a text part
	attachmentsOnlyBody = "Please find the requested file(s) attached."
	maxAttempts         = 3
)

var (
	sendgridAPI  = sendgrid.API
	retryBackoff = time.Second
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	categories []string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService returns a service sending messages through the SendGrid v3 API.
// Every message is tagged with the application name and its own categories.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		categories: []string{conf.AppName},
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
			continue
		}
		go svc.send(svc.prepare(*msg))
	}
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(append(append([]string{}, svc.categories...), msg.Categories...)...)

	// text/plain must come before text/html
	body := msg.BodyStr
	if body == "" && msg.HTMLContent == "" {
		body = attachmentsOnlyBody
	}
	if body != "" {
		m.AddContent(sgmail.NewContent("text/plain", body))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, at := range msg.Attachments {
		a := sgmail.NewAttachment()
		a.SetContent(at.Content.String())
		a.SetType(at.ContentType)
		a.SetFilename(at.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}
	return m
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, sgmail.NewEmail(addr.Name, addr.Address))
	}
	return emails
}

// retryable reports whether SendGrid may accept the same request later.
func retryable(res *rest.Response) bool {
	return res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError
}

// send posts m, retrying rate limited and server failures with a linear backoff.
func (svc sendgridService) send(m *sgmail.SGMailV3) bool {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	subject := m.Personalizations[0].Subject
	for attempt := 1; ; attempt++ {
		res, err := sendgridAPI(req)
		switch {
		case err != nil:
			svc.logger.Error(fmt.Sprintf("sending email %q: %v", subject, err), err)
			return false
		case res.StatusCode < http.StatusBadRequest:
			return true
		case retryable(res) && attempt < maxAttempts:
			time.Sleep(time.Duration(attempt) * retryBackoff)
		default:
			svc.logger.Error(
				fmt.Sprintf("sending email %q", subject),
				map[string]interface{}{"status": res.StatusCode, "body": res.Body, "attempts": attempt},
			)
			return false
		}
	}
}
