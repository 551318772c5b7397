// Package translator bridges the caller's speech language and the
// lookup language through the GhanaNLP translation API.
package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/carlmjohnson/requests"

	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// Client calls the GhanaNLP translation endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(cfg *config.TranslateConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  speech.NewHTTPClient(cfg.Timeout),
	}
}

// Pair builds the language pair the API expects, e.g. Pair("tw", "en").
func Pair(from, to string) string {
	return from + "-" + to
}

type translateRequest struct {
	In   string `json:"in"`
	Lang string `json:"lang"`
}

type translateResponse struct {
	Translation string `json:"translation"`
	Text        string `json:"text"`
	Message     string `json:"message"`
}

// Translate renders text into the target half of pair. The endpoint
// answers with either a bare JSON string or an object carrying the
// translation.
func (c *Client) Translate(ctx context.Context, text, pair string) (string, error) {
	if c.apiKey == "" {
		return "", speech.WrapError("ghananlp", speech.ErrNotConfigured)
	}

	payload, err := sonic.Marshal(translateRequest{In: text, Lang: pair})
	if err != nil {
		return "", fmt.Errorf("failed to encode translation request: %w", err)
	}

	var body bytes.Buffer
	err = requests.
		URL(c.baseURL).
		Path("/v1/translate").
		Client(c.client).
		Method(http.MethodPost).
		Header("Ocp-Apim-Subscription-Key", c.apiKey).
		ContentType("application/json").
		BodyBytes(payload).
		ToBytesBuffer(&body).
		AddValidator(speech.StatusValidator("ghananlp")).
		Fetch(ctx)
	if err != nil {
		return "", speech.WrapError("ghananlp", err)
	}

	translated, err := parseTranslateBody(body.Bytes())
	if err != nil {
		return "", speech.WrapError("ghananlp", err)
	}
	if strings.TrimSpace(translated) == "" {
		return "", speech.WrapError("ghananlp", errors.New("translation returned empty text"))
	}
	return strings.TrimSpace(translated), nil
}

func parseTranslateBody(data []byte) (string, error) {
	var plain string
	if err := sonic.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var resp translateResponse
	if err := sonic.Unmarshal(data, &resp); err == nil {
		if resp.Translation != "" {
			return resp.Translation, nil
		}
		if resp.Text != "" {
			return resp.Text, nil
		}
		if resp.Message != "" {
			return "", fmt.Errorf("translation rejected: %s", resp.Message)
		}
		return "", nil
	}

	return strings.TrimSpace(string(data)), nil
}
