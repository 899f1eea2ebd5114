package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
)

// Client talks to the dispatch backend's GraphQL endpoint. Every request
// carries the caller's token in the Authorization header.
type Client struct {
	gql *graphql.Client
}

func New(endpoint string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient))
	if logger != nil {
		gql.Log = func(s string) { logger.Debug(s, "component", "graphql") }
	}
	return &Client{gql: gql}
}

func (c *Client) run(ctx context.Context, token, op, query string, vars map[string]any, resp any) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("Authorization", token)
	if err := c.gql.Run(ctx, req, resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyOTP exchanges a phone number and one-time code for a session token.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	var resp struct {
		Auth struct {
			VerifyOTP string `json:"verifyOtp"`
		} `json:"auth"`
	}
	err := c.run(ctx, "", "verify otp", verifyOTPMutation, map[string]any{"phone": phone, "code": code}, &resp)
	return resp.Auth.VerifyOTP, err
}
