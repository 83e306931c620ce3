package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	secureTokenURL     = "https://securetoken.googleapis.com/v1/token"
)

// FirebaseClient talks to the Firebase Auth REST endpoints. It owns none
// of the auth state machine; token refresh and session expiry live on the
// provider side.
type FirebaseClient struct {
	apiKey     string
	signInURL  string
	refreshURL string
	httpClient *http.Client
}

// NewFirebaseClient creates a client for the given Firebase project API key.
func NewFirebaseClient(apiKey string) *FirebaseClient {
	return &FirebaseClient{
		apiKey:     apiKey,
		signInURL:  identityToolkitURL,
		refreshURL: secureTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// firebaseError is the provider's error body.
type firebaseError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // seconds, as a string
}

// SignIn authenticates with email and password.
func (c *FirebaseClient) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp signInResponse
	if err := c.post(ctx, c.signInURL+"/accounts:signInWithPassword", body, &resp); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return credentialsFrom(resp), nil
}

// SignUp creates a new account with email and password.
func (c *FirebaseClient) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp signInResponse
	if err := c.post(ctx, c.signInURL+"/accounts:signUp", body, &resp); err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}
	return credentialsFrom(resp), nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresIn    string `json:"expires_in"`
}

// Refresh exchanges a refresh token for a fresh ID token.
func (c *FirebaseClient) Refresh(ctx context.Context, refreshToken string) (idToken, newRefreshToken string, expiry time.Time, err error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL+"?key="+url.QueryEscape(c.apiKey),
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("refreshing token: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("reading refresh response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", "", time.Time{}, fmt.Errorf("refresh failed: %s", providerMessage(data, httpResp.StatusCode))
	}

	var resp refreshResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "", time.Time{}, fmt.Errorf("parsing refresh response: %w", err)
	}
	return resp.IDToken, resp.RefreshToken, expiryFrom(resp.ExpiresIn), nil
}

// post sends a JSON request to an identitytoolkit endpoint.
func (c *FirebaseClient) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(c.apiKey),
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", providerMessage(data, resp.StatusCode))
	}
	return json.Unmarshal(data, out)
}

// providerMessage extracts the provider error message from a response body.
func providerMessage(data []byte, status int) string {
	var fe firebaseError
	if json.Unmarshal(data, &fe) == nil && fe.Error.Message != "" {
		return fe.Error.Message
	}
	return fmt.Sprintf("auth provider returned status %d", status)
}

func credentialsFrom(resp signInResponse) *Credentials {
	return &Credentials{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoURL,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		TokenExpiry:  expiryFrom(resp.ExpiresIn).Format(time.RFC3339),
	}
}

func expiryFrom(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return time.Now().UTC().Add(time.Duration(seconds) * time.Second)
}
