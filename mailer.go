package auth

import (
	"bytes"
	"context"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultActivationTemplate is the template name looked up in the mail
// template directory.
const DefaultActivationTemplate = "activation"

// DefaultActivationSubject is the subject line of the activation mail.
const DefaultActivationSubject = "Activate your account"

// ActivationMailer renders the activation mail and hands it to the Sender
// collaborator. Rendering uses the django template engine; when no engine
// is configured the raw template data is passed through so transactional
// mail providers can render server side.
type ActivationMailer struct {
	sender   Sender
	engine   *django.Engine
	template string
	subject  string
	logger   Logger
}

// NewActivationMailer creates a mailer on the given sender.
func NewActivationMailer(sender Sender) *ActivationMailer {
	return &ActivationMailer{
		sender:   sender,
		template: DefaultActivationTemplate,
		subject:  DefaultActivationSubject,
		logger:   defLogger{},
	}
}

// WithTemplates configures a django template directory for local
// rendering, e.g. WithTemplates("./templates/mail", ".html").
func (m *ActivationMailer) WithTemplates(directory, extension string) (*ActivationMailer, error) {
	engine := django.New(directory, extension)
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}
	m.engine = engine
	return m, nil
}

func (m *ActivationMailer) WithTemplateName(name string) *ActivationMailer {
	m.template = name
	return m
}

func (m *ActivationMailer) WithSubject(subject string) *ActivationMailer {
	m.subject = subject
	return m
}

func (m *ActivationMailer) WithLogger(logger Logger) *ActivationMailer {
	m.logger = logger
	return m
}

// SendActivation delivers the activation code to the candidate address.
func (m *ActivationMailer) SendActivation(ctx context.Context, candidate Candidate, code string) error {
	data := map[string]any{
		"user":            map[string]any{"name": candidate.Name},
		"activation_code": code,
	}

	msg := Message{
		To:       candidate.Email,
		Subject:  m.subject,
		Template: m.template,
		Data:     data,
	}

	if m.engine != nil {
		html, err := m.render(data)
		if err != nil {
			return err
		}
		msg.HTML = html
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	m.logger.Debug("activation mail queued", "to", candidate.Email)

	return nil
}

func (m *ActivationMailer) render(data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := m.engine.Render(&buf, m.template, data); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation mail")
	}
	return buf.String(), nil
}
