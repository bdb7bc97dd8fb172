package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/sms")

const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

const report_twilio_send = "twilio.send"

type Options struct {
	Sid   string
	Token string
	// Number is the sending phone number, ex. +12345678900.
	Number    string
	BaseURL   string
	Telemetry telemetry.API
}

// Message is the subset of twilio's message resource the client reads.
type Message struct {
	Sid          string `json:"sid"`
	Status       string `json:"status"`
	To           string `json:"to"`
	From         string `json:"from"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// APIError is the error body twilio responds with on 4xx and 5xx.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("twilio %d (%d): %s", e.Status, e.Code, e.Message)
}

type Twilio struct {
	sid    string
	number string
	http   *resty.Client
	tel    telemetry.API
}

func NewTwilio(opts Options) (*Twilio, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	tel := telemetry.NewScopedAPI("sms", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "atomkit/sms/http",
		Telemetry:  tel,
	})
	if err != nil {
		return nil, err
	}
	client.SetBasicAuth(opts.Sid, opts.Token)
	return &Twilio{sid: opts.Sid, number: opts.Number, http: client, tel: tel}, nil
}

func (t *Twilio) Number() string {
	return t.number
}

// Send texts body to the number to and returns the message sid.
func (t *Twilio) Send(ctx context.Context, to, body string) (string, error) {
	ctx, span := tracer.Start(ctx, "twilio:Send")
	defer span.End()

	res, err := t.http.R().
		SetContext(ctx).
		SetPathParam("sid", t.sid).
		SetFormData(map[string]string{
			"To":   to,
			"From": t.number,
			"Body": body,
		}).
		Post("/Accounts/{sid}/Messages.json")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		t.tel.ReportBroken(report_twilio_send, err, to)
		return "", fmt.Errorf("send: %w", err)
	}

	if res.IsError() {
		apiErr := APIError{Status: res.StatusCode()}
		err = json.Unmarshal(res.Body(), &apiErr)
		if err != nil || apiErr.Message == "" {
			apiErr.Message = res.String()
		}
		span.SetStatus(codes.Error, apiErr.Error())
		t.tel.ReportBroken(report_twilio_send, apiErr, to)
		return "", fmt.Errorf("send: %w", apiErr)
	}

	var msg Message
	err = json.Unmarshal(res.Body(), &msg)
	if err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	if msg.Sid == "" {
		return "", fmt.Errorf("send: no sid in response '%s'", res.String())
	}
	t.tel.ReportDebug("sent", msg.Sid, msg.Status)
	return msg.Sid, nil
}
