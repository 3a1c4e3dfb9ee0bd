package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
	svcmocks "github.com/knsuzuki/shopmail/internal/service/mocks"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd(&config.AppConfig{Port: 8990})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "send", "history", "templates", "update", "version"})
	assert.NotNil(t, root.PersistentFlags().Lookup("no-color"))
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCmd(&config.AppConfig{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--no-color"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "shopmail dev (commit unknown, built unknown)\n", out.String())
}

func TestReadPayload(t *testing.T) {
	got, err := readPayload("-", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	path := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"order":{}}`), 0o600))
	got, err = readPayload(path, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"order":{}}`, string(got))

	_, err = readPayload(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestRunSend(t *testing.T) {
	svc := new(svcmocks.MockMailService)
	body := []byte(`{"order":{"id":1,"email":"a@example.com"}}`)
	svc.On("Send", mock.Anything, notification.KindAdminOrder, json.RawMessage(body)).
		Return(&service.SendResponse{Kind: notification.KindAdminOrder, MessageID: "m-1"}, nil)

	var out bytes.Buffer
	require.NoError(t, runSend(context.Background(), svc, "admin-order", body, &out))

	var got service.SendResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "m-1", got.MessageID)
	svc.AssertExpectations(t)
}

func TestRunSend_Errors(t *testing.T) {
	svc := new(svcmocks.MockMailService)
	err := runSend(context.Background(), svc, "newsletter", []byte(`{}`), &bytes.Buffer{})
	var ve *notification.ValidationError
	require.ErrorAs(t, err, &ve)
	svc.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	svc.On("Send", mock.Anything, notification.KindOrder, mock.Anything).
		Return(nil, &service.NotFoundError{Resource: "mail template", ID: "1"})
	err = runSend(context.Background(), svc, "order", []byte(`{}`), &bytes.Buffer{})
	var nf *service.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "sending order mail")
}

func TestRunHistory(t *testing.T) {
	svc := new(svcmocks.MockMailService)
	svc.On("ListHistory", mock.Anything, int64(7), 5).Return([]notification.HistoryRecord{
		{ID: 3, OrderID: 7, Subject: "[Acme] 商品出荷のお知らせ", Body: "\n山田 太郎 様\n", SentAt: time.Now()},
	}, nil)
	svc.On("ListHistory", mock.Anything, int64(8), 5).Return([]notification.HistoryRecord{}, nil)
	svc.On("ListHistory", mock.Anything, int64(9), 5).Return(nil, errors.New("db down"))

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), svc, 7, 5, &out))
	assert.Contains(t, out.String(), "ORDER")
	assert.Contains(t, out.String(), "[Acme] 商品出荷のお知らせ")
	assert.Contains(t, out.String(), "山田 太郎 様")

	out.Reset()
	require.NoError(t, runHistory(context.Background(), svc, 8, 5, &out))
	assert.Contains(t, out.String(), "No mail history.")

	assert.EqualError(t, runHistory(context.Background(), svc, 9, 5, &out), "db down")
}

func TestRunTemplates(t *testing.T) {
	svc := new(svcmocks.MockMailService)
	svc.On("ListTemplates", mock.Anything).Return([]*notification.TemplateRef{
		{ID: 1, Name: "注文受付メール", FileName: "order.txt", Subject: "ご注文ありがとうございます"},
		{ID: 8, Name: "出荷お知らせメール", FileName: "shipping_notify.txt", Subject: "商品出荷のお知らせ"},
	}, nil)

	var out bytes.Buffer
	require.NoError(t, runTemplates(context.Background(), svc, &out))
	assert.Contains(t, out.String(), "order.txt")
	assert.Contains(t, out.String(), "shipping_notify.txt")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "hello", firstLine("\n  \n hello \nworld", 10))
	assert.Equal(t, "abc…", firstLine("abcdef", 3))
	assert.Equal(t, "", firstLine("\n\n", 3))
}

func TestCurrentVersion(t *testing.T) {
	for _, v := range []string{"dev", "unknown", "", "not-a-version"} {
		_, err := currentVersion(v)
		assert.Error(t, err, v)
	}

	got, err := currentVersion("v1.4.2")
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", got.String())
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "ok? "))
	assert.Equal(t, "ok? ", out.String())
	assert.True(t, confirm(strings.NewReader("Y"), &out, ""))
	assert.False(t, confirm(strings.NewReader("n\n"), &out, ""))
	assert.False(t, confirm(strings.NewReader(""), &out, ""))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("smtp down")))
	assert.Equal(t, 2, exitCode(fmt.Errorf("sending order mail: %w", &service.NotFoundError{Resource: "mail template", ID: "1"})))
	assert.Equal(t, 2, exitCode(&service.ValidationError{Message: "request body is required"}))
	_, err := notification.ParseKind("newsletter")
	assert.Equal(t, 2, exitCode(err))
}
