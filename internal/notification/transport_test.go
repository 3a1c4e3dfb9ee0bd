package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func testMessage() *Message {
	return &Message{
		ID:         "0b6f3c1e-6d0a-4d4e-9a53-3b1f7c1d2e4f",
		Kind:       KindOrder,
		Subject:    "[Acme] ご注文ありがとうございます",
		From:       Address{Email: "shop@acme.test", Name: "Acme"},
		To:         []string{"buyer@example.com"},
		Bcc:        []string{"shop@acme.test"},
		ReplyTo:    "reply@acme.test",
		ReturnPath: "bounce@acme.test",
		Body:       "山田 太郎 様\n<b>not html</b>",
	}
}

func TestBuildMsg(t *testing.T) {
	m, err := buildMsg(testMessage())
	require.NoError(t, err)

	assert.Equal(t, []string{"<buyer@example.com>"}, m.GetToString())
	assert.Equal(t, []string{"<shop@acme.test>"}, m.GetBccString())
	assert.Equal(t, []string{"0b6f3c1e-6d0a-4d4e-9a53-3b1f7c1d2e4f"}, m.GetGenHeader(MessageIDHeader))
}

func TestBuildMsg_InvalidRecipient(t *testing.T) {
	msg := testMessage()
	msg.To = []string{"not an address"}
	_, err := buildMsg(msg)
	assert.Error(t, err)
}

func TestBuildEmailHTML_EscapesBody(t *testing.T) {
	html, err := buildEmailHTML("Acme", "subject", "<b>not html</b>")
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;not html&lt;/b&gt;")
	assert.Contains(t, html, "Acme")
}

func TestTLSSettings(t *testing.T) {
	tests := []struct {
		enc      string
		policy   mail.TLSPolicy
		implicit bool
	}{
		{"ssl_tls", mail.TLSMandatory, true},
		{"starttls", mail.TLSOpportunistic, false},
		{"", mail.NoTLS, false},
	}
	for _, tt := range tests {
		policy, implicit := tlsSettings(tt.enc)
		assert.Equal(t, tt.policy, policy, tt.enc)
		assert.Equal(t, tt.implicit, implicit, tt.enc)
	}
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESTransport_Send(t *testing.T) {
	fake := &fakeSES{}
	tr := &SESTransport{client: fake, configurationSet: "shop"}

	res, err := tr.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)

	in := fake.input
	require.NotNil(t, in)
	assert.Equal(t, "\"Acme\" <shop@acme.test>", aws.ToString(in.Source))
	assert.Equal(t, []string{"buyer@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, []string{"shop@acme.test"}, in.Destination.BccAddresses)
	assert.Equal(t, []string{"reply@acme.test"}, in.ReplyToAddresses)
	assert.Equal(t, "bounce@acme.test", aws.ToString(in.ReturnPath))
	assert.Equal(t, "shop", aws.ToString(in.ConfigurationSetName))
	assert.Equal(t, "[Acme] ご注文ありがとうございます", aws.ToString(in.Message.Subject.Data))
	assert.Equal(t, "UTF-8", aws.ToString(in.Message.Body.Text.Charset))
}

func TestSESTransport_SendError(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	tr := &SESTransport{client: fake}

	res, err := tr.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Zero(t, res.Delivered)
	assert.Len(t, res.Failures, 2)
	assert.Nil(t, fake.input.ConfigurationSetName)
}

func TestNewTransport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tr, err := NewTransport(TransportConfig{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "log", tr.Name())

	res, err := tr.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)

	_, err = NewTransport(TransportConfig{Provider: "smtp"}, logger)
	assert.Error(t, err)

	tr, err = NewTransport(TransportConfig{Provider: "smtp", SMTP: SMTPConfig{Host: "localhost", Port: 25}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "smtp", tr.Name())

	_, err = NewTransport(TransportConfig{Provider: "ses"}, logger)
	assert.Error(t, err)

	tr, err = NewTransport(TransportConfig{Provider: "ses", SES: SESConfig{Region: "ap-northeast-1"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "ses", tr.Name())

	_, err = NewTransport(TransportConfig{Provider: "pigeon"}, logger)
	assert.Error(t, err)
}
