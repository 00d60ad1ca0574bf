package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/pkg/crypto"
)

func TestRun(t *testing.T) {
	t.Run("share", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"share"}, &out))
		line := strings.TrimSpace(out.String())
		assert.True(t, strings.HasPrefix(line, "SHARE_SECRET="))
		assert.Len(t, strings.TrimPrefix(line, "SHARE_SECRET="), 64)
	})

	t.Run("webhook", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"webhook"}, &out))
		assert.True(t, strings.HasPrefix(out.String(), "WEBHOOK_SECRET=whsec_"))
	})

	t.Run("inbox", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"inbox", "letmein"}, &out))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "DEV_INBOX_PASSWORD=letmein", lines[0])

		hash := strings.Trim(strings.TrimPrefix(lines[1], "DEV_INBOX_PASSWORD_HASH="), "'")
		assert.True(t, crypto.CheckPasswordHash("letmein", hash))
	})

	t.Run("errors", func(t *testing.T) {
		assert.Error(t, run(nil, &bytes.Buffer{}))
		assert.Error(t, run([]string{"inbox"}, &bytes.Buffer{}))
		assert.Error(t, run([]string{"paseto"}, &bytes.Buffer{}))
	})
}
