package services

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"voicecal/internal/domain"
)

const welcomeSubject = "Welcome to voicecal"

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<html>
  <body>
    <p>Hi {{.FirstName}},</p>
    <p>Your voicecal account is ready. Open your calendar and start talking to it.</p>
  </body>
</html>`))

type emailService struct {
	mailer domain.Mailer
	logger *slog.Logger
}

// NewEmailService returns an EmailService that renders and sends mail through
// the given Mailer.
func NewEmailService(mailer domain.Mailer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, logger: logger}
}

func (s *emailService) SendWelcome(ctx context.Context, data *domain.WelcomeEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome email data is nil")
	}
	var html strings.Builder
	if err := welcomeTemplate.Execute(&html, data); err != nil {
		return fmt.Errorf("render welcome template: %w", err)
	}
	text := fmt.Sprintf("Hi %s, your voicecal account is ready.", data.FirstName)
	if err := s.mailer.Send(data.Email, welcomeSubject, html.String(), text); err != nil {
		s.logger.ErrorContext(ctx, "welcome email failed", "to", data.Email, "err", err)
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}
