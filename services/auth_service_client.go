package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"mission-progression-system/utils"
)

// AuthServiceClient validates end-user tokens against the auth service.
// Used where the gateway cannot add identity headers, such as EventSource
// connections.
type AuthServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type ValidateResponse struct {
	UserID   string   `json:"user_id"`
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
}

func NewAuthServiceClient(baseURL, token string) *AuthServiceClient {
	return &AuthServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.NewHTTPClient(10 * time.Second),
	}
}

// ValidateToken calls /auth/validate on the auth service.
func (c *AuthServiceClient) ValidateToken(ctx context.Context, accessToken, deviceID string) (*ValidateResponse, error) {
	url := fmt.Sprintf("%s/auth/validate", c.BaseURL)

	jsonData, err := json.Marshal(map[string]string{
		"access_token": accessToken,
		"device_id":    deviceID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		log.Printf("AuthService /validate returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("auth validation failed: %d", resp.StatusCode)
	}

	var out ValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return nil, fmt.Errorf("auth validation returned no user")
	}
	return &out, nil
}
