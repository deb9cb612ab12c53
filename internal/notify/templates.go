package notify

import (
	"bytes"
	"fmt"
	"net/mail"
	"text/template"

	"schoolhub/internal/models"
)

var feeReminderTmpl = template.Must(template.New("fee_reminder").Parse(`Dear {{.ParentName}},

This is a reminder from {{.SchoolName}} that the fee "{{.Title}}" for {{.StudentName}}
of {{printf "%.2f" .Amount}} was due on {{.DueDate.Format "2 Jan 2006"}} and is now overdue.

Please arrange payment at your earliest convenience.
`))

// FeeReminder renders the overdue-fee email for one parent.
func FeeReminder(r *models.OverdueReminder) (Message, error) {
	var buf bytes.Buffer
	if err := feeReminderTmpl.Execute(&buf, r); err != nil {
		return Message{}, fmt.Errorf("render fee reminder: %w", err)
	}
	return Message{
		To:      []mail.Address{{Name: r.ParentName, Address: r.ParentEmail}},
		Subject: fmt.Sprintf("Overdue fee: %s", r.Title),
		Text:    buf.String(),
	}, nil
}
