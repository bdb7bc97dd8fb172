package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"atomkit/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		usr, pwd, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "AC123", usr)
		require.Equal(t, "token", pwd)

		if r.FormValue("To") == "+10000000000" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`)
			return
		}
		require.Equal(t, "+12345678900", r.FormValue("From"))
		require.Equal(t, "hello", r.FormValue("Body"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"sid":"SM42","status":"queued","to":"%s","from":"+12345678900"}`, r.FormValue("To"))
	}))
	defer server.Close()

	rec := &telemetry.Recorder{}
	client, err := NewTwilio(Options{
		Sid:       "AC123",
		Token:     "token",
		Number:    "+12345678900",
		BaseURL:   server.URL + "/2010-04-01",
		Telemetry: rec,
	})
	require.NoError(t, err)
	require.Equal(t, "+12345678900", client.Number())

	sid, err := client.Send(context.Background(), "+19999999999", "hello")
	require.NoError(t, err)
	require.Equal(t, "SM42", sid)

	_, err = client.Send(context.Background(), "+10000000000", "hello")
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 21211, apiErr.Code)
	require.Equal(t, 400, apiErr.Status)
	require.Len(t, rec.Reports("broken"), 1)
}
