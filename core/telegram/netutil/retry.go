package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Verdict classifies a failed Telegram call.
type Verdict struct {
	Retry bool
	// Wait is the pause Telegram asked for; zero leaves backoff to the caller.
	Wait time.Duration
}

// Classify reports whether err is worth retrying. Flood control replies are
// retried after the interval Telegram sent; transient dial, reset and
// timeout failures are retried with the caller's backoff. Cancellation is
// final.
func Classify(err error) Verdict {
	if err == nil {
		return Verdict{}
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return Verdict{Retry: true, Wait: time.Duration(flood.RetryAfter) * time.Second}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Verdict{}
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return Verdict{Retry: true}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Verdict{Retry: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Verdict{Retry: true}
	}
	return Verdict{}
}

// ShouldRetry reports whether a network error is worth retrying.
func ShouldRetry(err error) bool {
	return Classify(err).Retry
}
