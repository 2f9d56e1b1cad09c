package notifications

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending notifications via various channels
type Service struct {
	config   *config.Config
	client   *resty.Client
	sendMail func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.sendMail = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a CSI digest via configured notification channels
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	return s.fanOut(ctx, "report", func() (*TeamsMessage, *gomail.Message, error) {
		htmlBody, err := buildReportHTML(report)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build email HTML: %w", err)
		}
		subject := fmt.Sprintf("Feedback Digest - %s (CSI %.0f, %s)", titleCase(report.Period), report.CSIScore, report.Band)
		return buildReportCard(report), s.newMessage(subject, buildReportText(report), htmlBody), nil
	})
}

// SendAlert sends an urgent case alert via configured notification channels
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	return s.fanOut(ctx, "alert", func() (*TeamsMessage, *gomail.Message, error) {
		htmlBody, err := buildAlertHTML(alert)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build email HTML: %w", err)
		}
		subject := fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Type), alert.Title)
		return buildAlertCard(alert), s.newMessage(subject, buildAlertText(alert), htmlBody), nil
	})
}

func (s *Service) fanOut(ctx context.Context, kind string, build func() (*TeamsMessage, *gomail.Message, error)) error {
	if !s.Enabled() {
		logrus.Debugf("No notification channel configured, skipping %s", kind)
		return nil
	}

	card, mail, err := build()
	if err != nil {
		return err
	}

	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, card); err != nil {
			logrus.Errorf("Failed to send Teams %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Successfully sent %s to Teams", kind)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendMail(mail); err != nil {
			logrus.Errorf("Failed to send email %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent %s via email", kind)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) newMessage(subject, textBody, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)
	return m
}

func buildReportCard(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: bandColor(report.Band),
		Title:      fmt.Sprintf("Feedback Digest - %s", titleCase(report.Period)),
		Text:       report.Summary,
	}

	facts := []TeamsFact{
		{Name: "CSI", Value: fmt.Sprintf("%.0f (%s)", report.CSIScore, report.Band)},
		{Name: "Signals", Value: fmt.Sprintf("%d", report.TotalSignals)},
		{Name: "Unresolved Cases", Value: fmt.Sprintf("%d", len(report.Unresolved))},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for _, s := range []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		facts = append(facts, TeamsFact{
			Name:  titleCase(string(s)),
			Value: fmt.Sprintf("%d", report.SentimentBreakdown[s]),
		})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if categories := sortedCounts(report.IssueCounts); len(categories) > 0 {
		var lines []string
		for _, c := range categories {
			lines = append(lines, fmt.Sprintf("**%s**: %d", c.Category, c.Count))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Issue Categories",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if len(report.Highlights) > 0 {
		var lines []string
		for _, h := range report.Highlights {
			text := truncate(h.Post.Text, 160)
			if h.Post.Permalink != "" {
				text = fmt.Sprintf("[%s](%s)", text, h.Post.Permalink)
			}
			lines = append(lines, fmt.Sprintf("%s - %s, %s (%d/5)", text, h.Post.Source, h.Category, h.Rating))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Highlights",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if len(report.Unresolved) > 0 {
		var lines []string
		for i, c := range report.Unresolved {
			if i == 5 {
				lines = append(lines, fmt.Sprintf("...and %d more", len(report.Unresolved)-5))
				break
			}
			lines = append(lines, fmt.Sprintf("**%s** %s - %s (%s)", c.Routing.Priority, c.Intake.Classification, truncate(c.Intake.Summary, 120), c.Routing.Team))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Unresolved Cases",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if len(report.Warnings) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Warnings",
			ActivityText:  strings.Join(report.Warnings, "\n\n"),
		})
	}

	return message
}

func buildAlertCard(alert *models.Alert) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "D13438",
		Title:      alert.Title,
		Text:       alert.Message,
	}

	if c := alert.Case; c != nil {
		facts := []TeamsFact{
			{Name: "Case", Value: c.FeedbackID},
			{Name: "Customer", Value: c.Name},
			{Name: "Category", Value: string(c.Intake.Classification)},
			{Name: "Priority", Value: string(c.Routing.Priority)},
			{Name: "Team", Value: c.Routing.Team},
		}
		if c.Sentiment.Urgency != "" {
			facts = append(facts, TeamsFact{Name: "Urgency", Value: c.Sentiment.Urgency})
		}

		section := TeamsSection{
			ActivityTitle:    "Case Details",
			ActivitySubtitle: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC"),
			ActivityText:     truncate(c.Problem, 300),
			Facts:            facts,
			Markdown:         true,
		}
		message.Sections = append(message.Sections, section)
	}

	return message
}

type categoryCount struct {
	Category models.Category
	Count    int
}

// sortedCounts orders by count, then by taxonomy order
func sortedCounts(counts map[models.Category]int) []categoryCount {
	rank := make(map[models.Category]int, len(models.Categories))
	for i, c := range models.Categories {
		rank[c] = i
	}

	out := make([]categoryCount, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			out = append(out, categoryCount{Category: c, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return rank[out[i].Category] < rank[out[j].Category]
	})
	return out
}

func bandColor(band string) string {
	switch band {
	case "Excellent", "Good":
		return "107C10"
	case "Fair":
		return "F9A825"
	}
	return "D13438"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
