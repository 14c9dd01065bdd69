package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestSplitKey(t *testing.T) {
	cases := map[string][2]string{
		"status_going":         {"status", "going"},
		"skip":                 {"skip", ""},
		"rsvp_abc_def":         {"rsvp", "abc_def"},
		"guestsoff_7f3c-event": {"guestsoff", "7f3c-event"},
	}
	for in, want := range cases {
		key, payload := SplitKey(in)
		if key != want[0] || payload != want[1] {
			t.Fatalf("SplitKey(%q) = %q, %q; want %q, %q", in, key, payload, want[0], want[1])
		}
	}
}

func TestSplitLast(t *testing.T) {
	head, tail, ok := SplitLast("a_b_c", "_")
	if !ok || head != "a_b" || tail != "c" {
		t.Fatalf("unexpected split: %q %q %v", head, tail, ok)
	}
	for _, in := range []string{"", "abc", "_abc", "abc_"} {
		if _, _, ok := SplitLast(in, "_"); ok {
			t.Fatalf("SplitLast(%q) should fail", in)
		}
	}
}

func TestDataFoldsTelebotEnvelope(t *testing.T) {
	if got := Data(&tele.Callback{Data: "\fstatus|going"}); got != "status_going" {
		t.Fatalf("got %q", got)
	}
	if got := Data(&tele.Callback{Data: "\fskip|"}); got != "skip" {
		t.Fatalf("got %q", got)
	}
	if got := Data(&tele.Callback{Data: "max_10"}); got != "max_10" {
		t.Fatalf("got %q", got)
	}
	if got := Data(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"rsvp_12_a1b2c3d4e5f6":        "rsvp_12_***",
		"/start rsvp_12_a1b2c3d4e5f6": "/start rsvp_12_***",
		"status_going":                "status_going",
		"details_3_short":             "details_3_short",
		"bring some pasta":            "bring some pasta",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Errorf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}
