package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var layout = template.Must(template.New("layout").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">{{.School}}</h2>
		<p>Hello {{.Name}},</p>
		{{range .Paragraphs}}<p>{{.}}</p>
		{{end}}<p>Best regards,<br>The {{.School}} Team</p>
	</div>
</body>
</html>`))

// Composer builds the portal's notification emails
type Composer struct {
	School string
}

func (c Composer) render(toEmail, toName, subject string, paragraphs ...string) (Message, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		School     string
		Name       string
		Paragraphs []string
	}{c.School, toName, paragraphs})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render email %q: %w", subject, err)
	}

	text := fmt.Sprintf("Hello %s,\n\n", toName)
	for _, p := range paragraphs {
		text += p + "\n\n"
	}
	text += "The " + c.School + " Team\n"

	return Message{ToEmail: toEmail, ToName: toName, Subject: subject, HTML: buf.String(), Text: text}, nil
}

// Welcome is sent to a newly enrolled student
func (c Composer) Welcome(toEmail, toName, studentID string) (Message, error) {
	return c.render(toEmail, toName, "Welcome to "+c.School,
		"Your enrollment is complete.",
		"Your student number is "+studentID+". Please keep it for your records.")
}

// ContactReceived acknowledges a contact form message
func (c Composer) ContactReceived(toEmail, toName string) (Message, error) {
	return c.render(toEmail, toName, "We received your message",
		"Thank you for contacting us. Our staff will get back to you shortly.")
}

// TrialRequested acknowledges a trial lesson request
func (c Composer) TrialRequested(toEmail, toName, language string) (Message, error) {
	return c.render(toEmail, toName, "Your trial lesson request",
		fmt.Sprintf("Thank you for requesting a %s trial lesson.", language),
		"We will contact you to confirm a time.")
}

// LessonBooked confirms a reservation
func (c Composer) LessonBooked(toEmail, toName string, start time.Time, minutes int) (Message, error) {
	return c.render(toEmail, toName, "Lesson booked",
		fmt.Sprintf("Your %d minute lesson is booked for %s.", minutes, start.Format("Mon 2 Jan 2006 15:04")))
}

// LessonCancelled notifies about a cancelled reservation
func (c Composer) LessonCancelled(toEmail, toName string, start time.Time) (Message, error) {
	return c.render(toEmail, toName, "Lesson cancelled",
		fmt.Sprintf("Your lesson on %s has been cancelled.", start.Format("Mon 2 Jan 2006 15:04")))
}

// PaymentReceipt confirms a recorded payment
func (c Composer) PaymentReceipt(toEmail, toName string, amount int64, currency string, lessons int) (Message, error) {
	return c.render(toEmail, toName, "Payment receipt",
		fmt.Sprintf("We received your payment of %s.", FormatAmount(amount, currency)),
		fmt.Sprintf("%d lessons have been added to your balance.", lessons))
}

// PaymentRefunded confirms a refund
func (c Composer) PaymentRefunded(toEmail, toName string, amount int64, currency string) (Message, error) {
	return c.render(toEmail, toName, "Payment refunded",
		fmt.Sprintf("Your payment of %s has been refunded.", FormatAmount(amount, currency)),
		"The lessons bought with it were removed from your balance.")
}

// currencies without a minor unit
var zeroDecimal = map[string]bool{"KRW": true, "JPY": true, "VND": true, "CLP": true, "ISK": true}

// FormatAmount prints an amount stored in minor units, e.g. 150000 KRW or 49.90 USD
func FormatAmount(amount int64, currency string) string {
	if zeroDecimal[currency] {
		return fmt.Sprintf("%d %s", amount, currency)
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
