package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hospital-booking-server/internal/config"
)

// HTTPSMSClient sends text messages through a Twilio-compatible REST API.
type HTTPSMSClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewHTTPSMSClient creates an SMS client from the provider configuration.
// Callers should check cfg.Enabled() first.
func NewHTTPSMSClient(cfg config.SMSConfig) *HTTPSMSClient {
	return &HTTPSMSClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendSMS posts a message to the provider's Messages endpoint.
func (c *HTTPSMSClient) SendSMS(to, message string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", message)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}
