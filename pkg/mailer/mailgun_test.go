package mailer

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	mg "github.com/mailgun/mailgun-go/v4"
)

func TestClassifyMailgun(t *testing.T) {
	rejected := func(status int) error {
		return &mg.UnexpectedResponseError{Expected: []int{http.StatusOK}, Actual: status, Method: http.MethodPost, URL: "https://api.mailgun.net/v3/example.com/messages"}
	}
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"bad request", rejected(http.StatusBadRequest), true},
		{"wrapped bad request", fmt.Errorf("send: %w", rejected(http.StatusBadRequest)), true},
		{"not found domain", rejected(http.StatusNotFound), true},
		{"unauthorized", rejected(http.StatusUnauthorized), false},
		{"forbidden", rejected(http.StatusForbidden), false},
		{"throttled", rejected(http.StatusTooManyRequests), false},
		{"request timeout", rejected(http.StatusRequestTimeout), false},
		{"server error", rejected(http.StatusBadGateway), false},
		{"transport", errors.New("connection reset by peer"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyMailgun(tc.err)
			var perm *PermanentError
			if got := errors.As(err, &perm); got != tc.permanent {
				t.Fatalf("permanent = %v, want %v (%v)", got, tc.permanent, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatal("original error must stay reachable")
			}
		})
	}
}
