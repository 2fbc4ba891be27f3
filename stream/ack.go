package stream

import (
	"regexp"
	"strconv"
	"strings"
)

// AckKind classifies a line received from the controller.
type AckKind uint8

const (
	// AckNone is any other message: logged only.
	AckNone AckKind = iota
	// AckOK frees one slot of the window.
	AckOK
	// AckResend is a resend request. It frees one slot: the
	// requested line is not sent again.
	AckResend
	// AckBusy extends the acknowledgment deadline.
	AckBusy
	// AckPausedForUser is a busy message of a controller waiting
	// for the operator. It is answered with a break command and
	// frees one slot.
	AckPausedForUser
	// AckLineError is a recoverable line number or checksum
	// mismatch. It frees one slot.
	AckLineError
	// AckError is any other error: logged only.
	AckError
	// AckPrompt is a host action prompt: logged only.
	AckPrompt
)

// Satisfies is true if the acknowledgment frees a slot.
func (k AckKind) Satisfies() bool {
	switch k {
	case AckOK, AckResend, AckPausedForUser, AckLineError:
		return true
	}
	return false
}

var resendRe = regexp.MustCompile(`(?i)resend[:\s]+(\d+)`)

// Classify interprets a line received from the controller.
func Classify(line string) AckKind {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)
	switch {
	case line == "ok" || line == ">" || strings.HasPrefix(line, "ok "):
		return AckOK
	case strings.Contains(lower, "resend"):
		return AckResend
	case strings.Contains(lower, "busy:"):
		if strings.Contains(lower, "paused for user") {
			return AckPausedForUser
		}
		return AckBusy
	case strings.HasPrefix(line, "//action:prompt"):
		return AckPrompt
	case strings.Contains(lower, "error"):
		if strings.Contains(lower, "line number") {
			return AckLineError
		}
		return AckError
	}
	return AckNone
}

// ResendLine returns the line number of a resend request.
func ResendLine(line string) (int, bool) {
	m := resendRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}
