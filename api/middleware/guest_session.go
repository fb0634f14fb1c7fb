package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
)

// GuestSessionHeader lets non-browser clients carry the guest token explicitly.
const GuestSessionHeader = "X-Cart-Session"

// GuestSession resolves the anonymous cart token from the session cookie or
// header. Anonymous callers without one get a fresh token issued as a cookie.
// Authenticated callers keep any presented token so it can be merged, but
// never get a new one minted.
func GuestSession(cfg config.CartConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := guestTokenFromRequest(r, cfg.GuestCookieName)
			if token == "" && UserIDFromContext(r.Context()) == "" {
				token = uuid.NewString()
				http.SetCookie(w, guestCookie(cfg, token, cfg.GuestCookieTTL))
			}
			ctx := r.Context()
			if token != "" {
				ctx = WithGuestToken(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClearGuestSession expires the guest cookie once its cart has been merged.
func ClearGuestSession(w http.ResponseWriter, cfg config.CartConfig) {
	http.SetCookie(w, guestCookie(cfg, "", -1))
}

func guestTokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}
	return strings.TrimSpace(r.Header.Get(GuestSessionHeader))
}

func guestCookie(cfg config.CartConfig, value string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     cfg.GuestCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		return cookie
	}
	cookie.MaxAge = int(ttl.Seconds())
	return cookie
}
