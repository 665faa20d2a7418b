package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dripfeed/core"
	"github.com/trezcool/dripfeed/services/logger"
)

func newTestConfig() *core.Config {
	return &core.Config{
		AppName:         "Dripfeed",
		FrontendBaseURL: "http://localhost:3000",
		FromEmail:       "Dripfeed <noreply@test.cd>",
		SendgridApiKey:  "key",
	}
}

func Test_sendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(newTestConfig(), logsvc.NewNopLogger()).(*sendgridService)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Awa", Address: "awa@test.cd"}, {Address: "kofi@test.cd"}},
		Bcc:         []mail.Address{{Address: "audit@test.cd"}},
		Subject:     "Hello",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	}
	m := svc.prepare(msg)

	require.NotNil(t, m.From)
	assert.Equal(t, "noreply@test.cd", m.From.Address)
	assert.Equal(t, "Dripfeed", m.From.Name)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Dripfeed] Hello", p.Subject)
	assert.Len(t, p.To, 2)
	assert.Empty(t, p.CC)
	assert.Len(t, p.BCC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)

	msg.HTMLContent = ""
	assert.Len(t, svc.prepare(msg).Content, 1)
}

func Test_consoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock(newTestConfig(), logsvc.NewNopLogger())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "awa@test.cd"}}, Subject: "sent", BodyStr: "hi"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "awa@test.cd"}}, Subject: "no content"},
		&core.EmailMessage{To: []mail.Address{{Address: "awa@test.cd"}}, Subject: "unknown template", TemplateName: "lol"},
	)

	msgs := GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sent", msgs[0].Subject)
	assert.Equal(t, "hi", msgs[0].TextContent)

	ResetSentMessages()
	assert.Empty(t, GetSentMessages())
}

func Test_joinAddresses(t *testing.T) {
	got := joinAddresses([]mail.Address{{Name: "Awa", Address: "awa@test.cd"}, {Address: "kofi@test.cd"}})
	assert.Equal(t, `"Awa" <awa@test.cd>, <kofi@test.cd>`, got)
	assert.Equal(t, "", joinAddresses(nil))
}
