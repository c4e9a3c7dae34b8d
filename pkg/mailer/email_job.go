package mailer

// Message is a fully rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either the rendered Subject/Text/HTML are set, or Template and Data are set
// and the worker renders them.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "verify_code"
	Data     map[string]any `json:"data,omitempty"`
}

// JobFromMessage wraps an already rendered message for the queue.
func JobFromMessage(m Message) EmailJob {
	return EmailJob{To: m.To, Subject: m.Subject, Text: m.Text, HTML: m.HTML}
}
