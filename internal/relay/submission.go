package relay

import (
	"errors"
	"strings"
)

// Submission is a contact form payload keyed by field name. The well-known
// fields are name, email, subject and message; anything else passes through.
type Submission map[string]string

// Relay payload fields
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldSubject   = "subject"
	FieldMessage   = "message"
	FieldAccessKey = "access_key"
	FieldFromName  = "from_name"
	FieldWebsite   = "website"
	FieldBotcheck  = "botcheck"

	DefaultSubject = "New Contact Form Submission"
)

var ErrNameRequired = errors.New("Name is required.")

// Validate checks the fields the relay cannot do without
func (s Submission) Validate() error {
	if strings.TrimSpace(s[FieldName]) == "" {
		return ErrNameRequired
	}
	return nil
}

// Subject returns the submitted subject or DefaultSubject
func (s Submission) Subject() string {
	if subject := s[FieldSubject]; subject != "" {
		return subject
	}
	return DefaultSubject
}

// payload builds the relay body without touching s
func (s Submission) payload(accessKey, website string) map[string]string {
	body := make(map[string]string, len(s)+5)
	for k, v := range s {
		body[k] = v
	}
	body[FieldAccessKey] = accessKey
	body[FieldSubject] = s.Subject()
	body[FieldFromName] = s[FieldName]
	body[FieldWebsite] = website
	body[FieldBotcheck] = ""
	return body
}
