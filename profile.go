package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ProfileClient fetches the caller's default profile from the person
// service after a successful credential exchange.
type ProfileClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

func NewProfileClient(baseURL string) *ProfileClient {
	return &ProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  defLogger{},
	}
}

func (c *ProfileClient) WithLogger(logger Logger) *ProfileClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithHTTPClient swaps the underlying client, e.g. for tests
func (c *ProfileClient) WithHTTPClient(client *http.Client) *ProfileClient {
	if client != nil {
		c.client = client
	}
	return c
}

// DefaultProfile loads the default person profile for the bearer of
// accessToken, scoped to the given system via the x-system header.
func (c *ProfileClient) DefaultProfile(ctx context.Context, system, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/person/default", nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build profile request")
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("x-system", system)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "profile request failed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, goerrors.New(
			fmt.Sprintf("profile request returned status %d", res.StatusCode),
			goerrors.CategoryOperation,
		)
	}

	var profile map[string]any
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode profile response")
	}

	return profile, nil
}
