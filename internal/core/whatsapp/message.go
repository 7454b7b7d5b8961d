// internal/core/whatsapp/message.go
package whatsapp

import "strings"

// Inbound is the provider-independent shape of an incoming message. Both the
// webhook path (Cloud API) and the socket path (whatsmeow) normalize into it.
type Inbound struct {
	ID          string // provider message id
	From        string // sender phone number, digits only
	ProfileName string // WhatsApp profile name, may be empty
	Type        string // text, interactive, button
	Text        string // free text body
	ReplyID     string // id of the tapped button or list row
}

// Content returns the token the dialogue engine dispatches on: the tapped
// option id when the message is interactive, the trimmed text otherwise.
func (m *Inbound) Content() string {
	if m.ReplyID != "" {
		return m.ReplyID
	}
	return strings.TrimSpace(m.Text)
}
