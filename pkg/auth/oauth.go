package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from
	// the cloud console, stored under the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the obtained OAuth token (access + refresh token).
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server waits for the OAuth redirect.
	LocalhostAuthPort = "6789"

	xdgAppName = "sheetsync"
)

// GetConfig creates an oauth2.Config from the client secrets file and scopes.
func GetConfig(scopes []string) (*oauth2.Config, error) {
	xdgConfigBase, err := GetXdgHome()
	if err != nil {
		return nil, err
	}

	clientSecretsFile := filepath.Join(xdgConfigBase, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = normalizeRedirect(config.RedirectURL)
	return config, nil
}

// normalizeRedirect pins localhost and out-of-band redirect URLs to the
// local callback listener.
func normalizeRedirect(redirect string) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" {
		fixed := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		slog.Info("overriding out-of-band redirect", "redirect_url", fixed)
		return fixed
	}

	parsedURL, err := url.Parse(redirect)
	if err != nil {
		slog.Warn("could not parse redirect url, using it as is", "redirect_url", redirect, "error", err)
		return redirect
	}
	if parsedURL.Hostname() != "localhost" && parsedURL.Hostname() != "127.0.0.1" {
		slog.Warn("redirect url is not a localhost callback", "redirect_url", redirect)
		return redirect
	}
	if port := parsedURL.Port(); port != LocalhostAuthPort {
		if port != "" {
			slog.Warn("forcing localhost redirect port", "configured", port, "expected", LocalhostAuthPort)
		}
		parsedURL.Host = net.JoinHostPort(parsedURL.Hostname(), LocalhostAuthPort)
	}
	return parsedURL.String()
}

// GetClient retrieves an authenticated *http.Client. It loads a stored
// token, or runs the browser authorization flow when there is none.
func GetClient(ctx context.Context, scopes []string) (*http.Client, error) {
	config, err := GetConfig(scopes)
	if err != nil {
		return nil, err
	}

	xdgConfigBase, err := GetXdgHome()
	if err != nil {
		return nil, err
	}

	tokenFile := filepath.Join(xdgConfigBase, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		slog.Info("no stored token, starting web authorization", "token_file", tokenFile)
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	// config.Client refreshes expired access tokens with the refresh token.
	client := config.Client(ctx, tok)

	go func() {
		currentTok, err := config.TokenSource(ctx, tok).Token()
		if err != nil {
			slog.Warn("could not read refreshed token", "error", err)
			return
		}
		if currentTok.AccessToken != tok.AccessToken || currentTok.RefreshToken != tok.RefreshToken {
			slog.Info("token refreshed, saving")
			if err := saveToken(tokenFile, currentTok); err != nil {
				slog.Warn("could not save refreshed token", "error", err)
			}
		}
	}()

	return client, nil
}

// getTokenFromWeb runs the authorization code flow through a local
// redirect listener.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		slog.Info("waiting for oauth redirect", "redirect_url", config.RedirectURL)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()
	defer server.Shutdown(context.Background())

	// AccessTypeOffline is required to get a refresh token back.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Please open the following URL in your browser to authorize sheetsync:\n%s\n", authURL)

	select {
	case authCode := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, authCode)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// saveToken writes tok to path, owner read/write only.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// ResetToken removes the stored token so the next GetClient call runs the
// authorization flow again.
func ResetToken() (string, error) {
	xdgConfigBase, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	tokenFile := filepath.Join(xdgConfigBase, TokenFile)
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		return tokenFile, fmt.Errorf("could not delete token file '%s': %w", tokenFile, err)
	}
	return tokenFile, nil
}

// GetSheetsService creates a Sheets API service. With an API key the
// service is read-only against publicly shared sheets; otherwise the
// OAuth flow above is used.
func GetSheetsService(ctx context.Context, apiKey string) (*sheets.Service, error) {
	if apiKey != "" {
		srv, err := sheets.NewService(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("unable to create Sheets service: %w", err)
		}
		return srv, nil
	}

	client, err := GetClient(ctx, []string{sheets.SpreadsheetsReadonlyScope})
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Sheets API: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets service: %w", err)
	}
	return srv, nil
}

func GetXdgHome() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}
