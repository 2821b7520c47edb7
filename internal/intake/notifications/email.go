// Пакет отправляет операционные email-уведомления о принятых заявках.
// Отправка выполняется пулом воркеров и никогда не блокирует обработку
// заявки: сбой доставки только логируется.
//
// Основные возможности:
//   - Отправка уведомления о новой заявке по HTML-шаблону.
//   - Текстовая альтернатива письма, полученная очисткой HTML.
//   - Пул воркеров с корректной остановкой.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/gomail.v2"

	"github.com/sobdigital/sob-intake/internal/intake/config"
)

var htmlStripPolicy *bluemonday.Policy = bluemonday.StrictPolicy()

//go:embed templates/*
var defaultTemplates embed.FS

type EmailService struct {
	d   *gomail.Dialer
	cfg *config.Config

	// mu covers disabled and the closing of emailChan: Stop may race
	// with submissions still queueing mail
	mu       sync.RWMutex
	disabled bool

	submissionTmpl *template.Template

	emailChan chan mail
	eg        errgroup.Group
}

type mail struct {
	To          string
	Subject     string
	Content     string
	TextContent string
}

// SubmissionInfo - данные для письма о принятой заявке.
type SubmissionInfo struct {
	CompanyName   string
	ContactName   string
	ContactEmail  string
	RecordID      string
	FileCount     int
	AttachedCount int
	Provider      string
}

func NewEmailService(cfg *config.Config) *EmailService {
	es := &EmailService{
		d:         gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword),
		cfg:       cfg,
		disabled:  cfg.EmailDisabled || cfg.EmailHost == "" || cfg.EmailTo == "",
		emailChan: make(chan mail),
	}

	if es.disabled {
		slog.Warn("Email notifications disabled")
		return es
	}

	es.submissionTmpl = template.Must(
		template.ParseFS(defaultTemplates, "templates/submission.html"))

	for i := 0; i < cfg.EmailWorkers; i++ {
		es.eg.Go(func() error {
			return es.worker(es.emailChan)
		})
	}

	return es
}

func (es *EmailService) Stop() {
	es.mu.Lock()
	if es.disabled {
		es.mu.Unlock()
		return
	}
	slog.Info("Closing email workers")
	es.disabled = true
	close(es.emailChan)
	es.mu.Unlock()

	if err := es.eg.Wait(); err != nil {
		slog.Error("Worker err", "err", err)
	}

	slog.Info("Email workers successfully stopped")
}

func (es *EmailService) sendEmail(e mail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", es.cfg.EmailFrom)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.TextContent)
	m.AddAlternative("text/html", e.Content)

	return es.d.DialAndSend(m)
}

func (es *EmailService) Send(e mail) error {
	es.mu.RLock()
	defer es.mu.RUnlock()
	if es.disabled {
		return fmt.Errorf("email service stop")
	}
	es.emailChan <- e
	return nil
}

func (es *EmailService) worker(emailChan <-chan mail) error {
	for e := range emailChan {
		if err := es.sendEmail(e); err != nil {
			slog.Error("email send err", "to", e.To, "err", err)
		}
	}
	return nil
}

// SubmissionReceived ставит в очередь письмо о новой заявке. Ошибки не
// возвращаются вызывающему: уведомление не должно ронять отправку формы.
func (es *EmailService) SubmissionReceived(info SubmissionInfo) {
	// nil template means the service never started workers
	if es.submissionTmpl == nil {
		return
	}

	var buf bytes.Buffer
	if err := es.submissionTmpl.Execute(&buf, info); err != nil {
		slog.Error("Render submission email", "err", err)
		return
	}

	subject := fmt.Sprintf("New onboarding submission: %s", info.CompanyName)
	if info.CompanyName == "" {
		subject = "New onboarding submission"
	}

	if err := es.Send(mail{
		To:          es.cfg.EmailTo,
		Subject:     subject,
		Content:     buf.String(),
		TextContent: htmlStripPolicy.Sanitize(buf.String()),
	}); err != nil {
		slog.Error("Queue submission email", "err", err)
	}
}
