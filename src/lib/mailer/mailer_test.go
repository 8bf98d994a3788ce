package mailer

import (
	"context"
	"testing"

	"vpass/src/config"
	"vpass/src/lib"
	"vpass/src/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsTransport(t *testing.T) {
	tr, err := New(context.Background(), &config.Config{Mailer: "log"})
	require.NoError(t, err)
	assert.IsType(t, notify.LogTransport{}, tr)

	tr, err = New(context.Background(), &config.Config{
		Mailer: "smtp",
		SMTP:   config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"},
	})
	require.NoError(t, err)
	assert.IsType(t, &lib.SMTPTransport{}, tr)

	_, err = New(context.Background(), &config.Config{Mailer: "pigeon"})
	assert.Error(t, err)
}
