package otp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/netx"
)

// Deliverer hands a code to an out-of-band channel. Delivery is not assumed
// to be synchronous or guaranteed.
type Deliverer interface {
	Deliver(ctx context.Context, phone, code string) error
}

type DelivererFunc func(ctx context.Context, phone, code string) error

func (f DelivererFunc) Deliver(ctx context.Context, phone, code string) error {
	return f(ctx, phone, code)
}

// LogDeliverer writes codes to the log. Development only.
type LogDeliverer struct {
	logger logging.Logger
}

func NewLogDeliverer(l logging.Logger) *LogDeliverer {
	return &LogDeliverer{logger: l}
}

func (d *LogDeliverer) Deliver(ctx context.Context, phone, code string) error {
	d.logger.Info(ctx, "otp code issued", "phone", phone, "code", code)
	return nil
}

const (
	twilioDefaultBaseURL = "https://api.twilio.com"
	twilioTimeout        = 10 * time.Second
)

// TwilioDeliverer sends the code as an SMS through the Twilio Messages API.
type TwilioDeliverer struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioDeliverer(accountSID, authToken, from, baseURL string) *TwilioDeliverer {
	if baseURL == "" {
		baseURL = twilioDefaultBaseURL
	}
	return &TwilioDeliverer{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: twilioTimeout},
	}
}

func (d *TwilioDeliverer) endpoint() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", d.baseURL, url.PathEscape(d.accountSID))
}

func (d *TwilioDeliverer) Deliver(ctx context.Context, phone, code string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", d.from)
	form.Set("Body", MessageText(code))

	if err := netx.PostForm(ctx, d.client, d.endpoint(), form, d.accountSID, d.authToken); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	return nil
}

func MessageText(code string) string {
	return fmt.Sprintf("Your Tagzilla verification code is %s. It expires in %d minutes.", code, int(DefaultTTL/time.Minute))
}
