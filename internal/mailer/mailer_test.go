package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
)

func TestNew_NoopWhenUnconfigured(t *testing.T) {
	s := New(config.MailConfig{}, 0)
	assert.False(t, s.Enabled())
	err := s.Send(context.Background(), ResultMessage("a@example.com", []byte("x")))
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestCompose_WithAttachment(t *testing.T) {
	csv := []byte("Model,Price,Topsis Score,Rank\nM1,250,0.5,1\n")
	raw, err := Compose("topsis@example.com", ResultMessage("user@example.com", csv))
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "TOPSIS Result", decodeHeader(t, m.Header.Get("Subject")))
	assert.Equal(t, "user@example.com", m.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	text, _ := io.ReadAll(body)
	assert.Contains(t, string(text), "TOPSIS result file")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "output.csv", att.FileName())
	// multipart.Reader does not decode base64 bodies.
	encoded, _ := io.ReadAll(att)
	assert.Equal(t, "base64", att.Header.Get("Content-Transfer-Encoding"))
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}

	_, err = mr.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestCompose_PlainText(t *testing.T) {
	raw, err := Compose("topsis@example.com", MashupFailedMessage("user@example.com", "Arijit Singh", "not enough downloads"))
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.Header.Get("Content-Type"), "text/plain"))
	body, _ := io.ReadAll(m.Body)
	assert.Contains(t, string(body), "not enough downloads")
}

func TestMashupMessage(t *testing.T) {
	attached := MashupMessage("a@example.com", "Sharry Maan", 12, 3_500_000, "mashup.zip", []byte("PK"), "")
	assert.Equal(t, "Your Sharry Maan Mashup", attached.Subject)
	require.Len(t, attached.Attachments, 1)
	assert.Equal(t, "application/zip", attached.Attachments[0].ContentType)
	assert.Contains(t, attached.Body, "3.5 MB")

	linked := MashupMessage("a@example.com", "Sharry Maan", 12, 90_000_000, "mashup.zip", nil, "https://cdn.example.com/m.zip")
	assert.Empty(t, linked.Attachments)
	assert.Contains(t, linked.Body, "https://cdn.example.com/m.zip")
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("first.last+tag@mail.example.co"))
	assert.True(t, ValidAddress("  padded@example.com "))
	assert.False(t, ValidAddress("no-at-sign.example.com"))
	assert.False(t, ValidAddress("a@b"))
	assert.False(t, ValidAddress(""))
}

func TestSMTPSender_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go serveOneSMTP(t, ln, received)

	port := ln.Addr().(*net.TCPAddr).Port
	s := New(config.MailConfig{Host: "127.0.0.1", Port: port, From: "topsis@example.com"}, 5*time.Second)
	require.True(t, s.Enabled())

	err = s.Send(context.Background(), ResultMessage("user@example.com", []byte("a,b\n1,2\n")))
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Contains(t, data, "Subject: TOPSIS Result")
		assert.Contains(t, data, "output.csv")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive message")
	}
}

// serveOneSMTP speaks just enough SMTP for a single unauthenticated delivery.
func serveOneSMTP(t *testing.T, ln net.Listener, received chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(code int, text string) {
		_, _ = conn.Write([]byte(strconv.Itoa(code) + " " + text + "\r\n"))
	}
	reply(220, "localhost ready")

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply(250, "localhost")
		case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
			reply(250, "OK")
		case cmd == "DATA":
			reply(354, "go ahead")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			received <- data.String()
			reply(250, "queued")
		case cmd == "QUIT":
			reply(221, "bye")
			return
		default:
			reply(250, "OK")
		}
	}
}

func decodeHeader(t *testing.T, v string) string {
	t.Helper()
	out, err := new(mime.WordDecoder).DecodeHeader(v)
	require.NoError(t, err)
	return out
}
