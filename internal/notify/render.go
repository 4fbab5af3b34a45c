// Package notify delivers lifecycle messages by email and to the admin chat.
// Message text lives in templates.yaml; delivery failures are logged and
// reported as false, never returned to the lifecycle.
package notify

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hackgods/mindcare/internal/appointment"
)

//go:embed templates.yaml
var templatesYAML []byte

const timeLayout = "2006-01-02 15:04"

type Message struct {
	Subject string
	Body    string
}

// TemplateData is what every template can reference.
type TemplateData struct {
	RecipientName string
	ClientName    string
	AppointmentID string
	Consultation  string
	Status        string
	Therapist     string
	Price         string
	Time          string
	Room          string
	Reason        string
	Urgency       string
	Concerns      string
	Periods       string
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

type Renderer struct {
	templates map[string]messageTemplate
	loc       *time.Location
}

// NewRenderer parses the embedded catalog. Times are shown in loc.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	return parseRenderer(templatesYAML, loc)
}

func parseRenderer(raw []byte, loc *time.Location) (*Renderer, error) {
	var catalog map[string]struct {
		Subject string `yaml:"subject"`
		Body    string `yaml:"body"`
	}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	r := &Renderer{templates: make(map[string]messageTemplate, len(catalog)), loc: loc}
	for name, entry := range catalog {
		subject, err := template.New(name + ".subject").Parse(entry.Subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Parse(entry.Body)
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", name, err)
		}
		r.templates[name] = messageTemplate{subject: subject, body: body}
	}
	return r, nil
}

// Has reports whether a template exists for name.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

func (r *Renderer) Render(name string, data TemplateData) (Message, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("no template %q", name)
	}

	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", name, err)
	}
	return Message{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimRight(body.String(), "\n") + "\n",
	}, nil
}

// Data flattens a view into template fields. extra carries per-event
// values such as the rejection reason or the confirmed time.
func (r *Renderer) Data(v *appointment.View, recipientName string, extra map[string]string) TemplateData {
	d := TemplateData{
		RecipientName: orDefault(recipientName, "client"),
		AppointmentID: v.ID.String(),
		Consultation:  v.ConsultationType.Display(),
		Status:        v.Status.Display(),
		Therapist:     "to be assigned",
		Price:         v.Price.StringFixed(2),
		Time:          "to be confirmed",
		Room:          "to be assigned",
		Reason:        "not given",
		Periods:       "none given",
	}
	if v.Detail != nil {
		d.ClientName = v.Detail.Name
		d.Urgency = string(v.Detail.Urgency)
		d.Concerns = v.Detail.MainConcerns
	}
	if v.Therapist != nil {
		d.Therapist = v.Therapist.Name
	}
	if at := v.ConfirmedTime(); at != nil {
		d.Time = at.In(r.loc).Format(timeLayout)
	}
	if v.Room != nil {
		d.Room = v.Room.Display()
	}
	if len(v.PreferredPeriods) > 0 {
		parts := make([]string, 0, len(v.PreferredPeriods))
		for _, p := range v.PreferredPeriods {
			parts = append(parts, p.Date.Format("2006-01-02")+" "+p.Period.Display())
		}
		d.Periods = strings.Join(parts, "; ")
	}

	if t := extra["confirmed_datetime"]; t != "" {
		d.Time = t
	}
	for _, key := range []string{"rejection_reason", "reason"} {
		if reason := extra[key]; reason != "" {
			d.Reason = reason
			break
		}
	}
	return d
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
