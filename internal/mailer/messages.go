package mailer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether s looks like a deliverable e-mail address.
func ValidAddress(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ResultMessage carries a scored result table as output.csv.
func ResultMessage(to string, csv []byte) Message {
	return Message{
		To:      []string{to},
		Subject: "TOPSIS Result",
		Body:    "Please find attached the TOPSIS result file.\r\n",
		Attachments: []Attachment{{
			Filename:    "output.csv",
			ContentType: "text/csv",
			Data:        csv,
		}},
	}
}

// MashupMessage delivers a finished mashup. The zip is attached when given;
// otherwise the body links to url.
func MashupMessage(to, singer string, clips int, size int64, zipName string, zip []byte, url string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi,\r\n\r\nYour %s mashup is ready: %d clips, %s.\r\n", singer, clips, humanize.Bytes(uint64(size)))
	if zip == nil && url != "" {
		fmt.Fprintf(&b, "\r\nThe file is too large to attach. Download it here:\r\n%s\r\n", url)
	} else {
		b.WriteString("\r\nThe mashup is attached as a zip file.\r\n")
	}
	b.WriteString("\r\nEnjoy!\r\n")

	msg := Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Your %s Mashup", singer),
		Body:    b.String(),
	}
	if zip != nil {
		msg.Attachments = []Attachment{{Filename: zipName, ContentType: "application/zip", Data: zip}}
	}
	return msg
}

// MashupFailedMessage tells the requester their mashup could not be built.
func MashupFailedMessage(to, singer, reason string) Message {
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Your %s Mashup could not be created", singer),
		Body:    fmt.Sprintf("Hi,\r\n\r\nWe could not create your %s mashup: %s\r\n", singer, reason),
	}
}
