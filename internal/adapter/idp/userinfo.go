package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UserinfoVerifier validates session tokens by calling the identity
// provider's userinfo endpoint with the token as a bearer credential.
type UserinfoVerifier struct {
	userinfoURL string
	httpClient  *http.Client
}

// NewUserinfoVerifier creates a remote session verifier.
func NewUserinfoVerifier(userinfoURL string) *UserinfoVerifier {
	return &UserinfoVerifier{
		userinfoURL: userinfoURL,
		httpClient:  &http.Client{},
	}
}

// VerifySession asks the identity provider who the token belongs to and
// returns the subject id.
func (v *UserinfoVerifier) VerifySession(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("idp: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("idp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("idp: status %d: %s", resp.StatusCode, string(body))
	}

	var userinfo struct {
		ID  string `json:"id"`
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return "", fmt.Errorf("idp: decode userinfo: %w", err)
	}

	subject := userinfo.ID
	if subject == "" {
		subject = userinfo.Sub
	}
	if subject == "" {
		return "", fmt.Errorf("idp: userinfo has no subject")
	}
	return subject, nil
}
