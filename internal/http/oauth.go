package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ExchangeFunc exchanges the callback request for a token after verifying the
// state parameter. The Spotify authenticator's Token method has exactly this
// shape, variadic options included.
type ExchangeFunc func(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

// OAuthResult is the outcome of one authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler serves the authorization callback. It is mounted before any
// flow starts and armed with the exchange function and state token when a
// flow begins; callbacks arriving outside a flow are rejected.
type OAuthHandler struct {
	logger *zap.Logger

	mu       sync.Mutex
	exchange ExchangeFunc
	state    string
	results  chan OAuthResult
	done     bool
}

func NewOAuthHandler(logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{logger: logger}
}

// Arm prepares the handler for one authorization flow and returns the channel
// that will receive exactly one result.
func (h *OAuthHandler) Arm(exchange ExchangeFunc, state string) <-chan OAuthResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.exchange = exchange
	h.state = state
	h.results = make(chan OAuthResult, 1)
	h.done = false

	return h.results
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.exchange == nil {
		h.mu.Unlock()
		http.Error(w, "No authorization flow in progress", http.StatusServiceUnavailable)
		return
	}
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.done = true
	exchange := h.exchange
	state := h.state
	results := h.results
	h.mu.Unlock()

	if got := r.URL.Query().Get("state"); got != state {
		h.deliver(results, OAuthResult{Err: fmt.Errorf("state mismatch in authorization callback")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("code") == "" {
		errParam := r.URL.Query().Get("error")
		h.deliver(results, OAuthResult{Err: fmt.Errorf("authorization denied: %s", errParam)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := exchange(r.Context(), state, r)
	if err != nil {
		h.deliver(results, OAuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.deliver(results, OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(callbackSuccessPage)); err != nil {
		h.logger.Debug("Failed to write callback response", zap.Error(err))
	}
}

func (h *OAuthHandler) deliver(results chan OAuthResult, result OAuthResult) {
	results <- result
	close(results)
}

const callbackSuccessPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: Arial, sans-serif; display: flex; align-items: center;
               justify-content: center; height: 100vh; margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
