package notifiers

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/models"
)

//go:embed templates/job_alert.html
var emailTemplates embed.FS

var alertTemplates = template.Must(template.New("emails").ParseFS(emailTemplates, "templates/*.html"))

// How many matches the email lists before collapsing to a "+N more" line.
const maxEmailItems = 10

type Mailer struct {
	smtpHost string
	smtpPort string
	from     string
	password string
	appBase  string
}

func NewMailer(smtpHost, smtpPort, from, password, appBase string) *Mailer {
	return &Mailer{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		from:     from,
		password: password,
		appBase:  strings.TrimRight(appBase, "/"),
	}
}

// JobAlertEmail renders the notification for one alert's delivery set.
func (m *Mailer) JobAlertEmail(email, fullName, alertName string, matches []data.JobAlertMatch, total int) (models.Email, error) {
	type matchItem struct {
		Title    string
		Company  string
		Location string
		JobURL   string
	}

	items := make([]matchItem, 0, maxEmailItems)
	for _, match := range matches {
		if len(items) >= maxEmailItems {
			break
		}
		items = append(items, matchItem{
			Title:    match.JobTitle,
			Company:  match.Company,
			Location: match.Location,
			JobURL:   m.jobURL(match.JobID),
		})
	}

	if len(items) == 0 {
		return models.Email{}, fmt.Errorf("no matches to render")
	}

	remaining := total - len(items)
	if remaining < 0 {
		remaining = 0
	}

	var buf bytes.Buffer
	tmplData := struct {
		FullName       string
		AlertName      string
		Items          []matchItem
		Total          int
		Remaining      int
		AlertConfigURL string
	}{
		FullName:       fullName,
		AlertName:      alertName,
		Items:          items,
		Total:          total,
		Remaining:      remaining,
		AlertConfigURL: m.alertConfigURL(matches[0].AlertID),
	}
	if err := alertTemplates.ExecuteTemplate(&buf, "job_alert.html", tmplData); err != nil {
		return models.Email{}, fmt.Errorf("render job alert template: %w", err)
	}

	subject := fmt.Sprintf("%d new jobs match \"%s\"", total, alertName)
	if total == 1 {
		subject = fmt.Sprintf("1 new job matches \"%s\"", alertName)
	}

	return models.Email{
		To:      email,
		Subject: subject,
		Body:    buf.String(),
	}, nil
}

// SendJobAlertNotification composes and dispatches in one step; the caller
// gates the ledger's was_sent flip on the returned error.
func (m *Mailer) SendJobAlertNotification(owner data.AlertOwner, matches []data.JobAlertMatch, total int) error {
	mail, err := m.JobAlertEmail(owner.Email, owner.DisplayName, owner.AlertName, matches, total)
	if err != nil {
		return err
	}

	return m.Send(mail)
}

func (m *Mailer) Send(mail models.Email) error {
	message := fmt.Sprintf(`From: jobdeck <%s>
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, m.from, mail.To, mail.Subject, mail.Body)

	auth := smtp.PlainAuth("", m.from, m.password, m.smtpHost)
	addr := fmt.Sprintf("%s:%s", m.smtpHost, m.smtpPort)
	err := smtp.SendMail(addr, auth, m.from, []string{mail.To}, []byte(message))
	if err != nil {
		slog.Error("Failed to send email", "error", err)
		return err
	}

	slog.Info("email sent", "recipient", mail.To, "subject", mail.Subject)
	return nil
}

func (m *Mailer) alertConfigURL(alertID int64) string {
	if m.appBase == "" || alertID <= 0 {
		return ""
	}

	return fmt.Sprintf("%s/alerts/%d/edit", m.appBase, alertID)
}

func (m *Mailer) jobURL(jobID int64) string {
	if m.appBase == "" || jobID <= 0 {
		return ""
	}

	return fmt.Sprintf("%s/jobs/%d", m.appBase, jobID)
}
