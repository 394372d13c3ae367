package credential

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

// encodedPrefix marks cookie values holding a base64 encoded token. Tokens made of
// cookie-safe bytes that do not start with it are stored as is.
const encodedPrefix = "b64."

func encodeCookieValue(token string) string {
	if cookieSafe(token) && !strings.HasPrefix(token, encodedPrefix) {
		return token
	}
	return encodedPrefix + base64.RawURLEncoding.EncodeToString([]byte(token))
}

func decodeCookieValue(value string) (string, bool) {
	rest, found := strings.CutPrefix(value, encodedPrefix)
	if !found {
		return value, true
	}
	raw, err := base64.RawURLEncoding.DecodeString(rest)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// cookieSafe reports whether net/http sends s unchanged and unquoted.
func cookieSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b <= 0x20 || b >= 0x7f:
			return false
		case b == '"' || b == ';' || b == '\\' || b == ',':
			return false
		}
	}
	return true
}

// CookieMedium keeps the token in the x-auth-token cookie of the browser. Tokens that
// cannot travel in a cookie verbatim are base64 encoded.
type CookieMedium struct {
	opts CookieOptions
}

// NewCookieMedium returns a Medium storing tokens in browser cookies.
func NewCookieMedium(opts CookieOptions) *CookieMedium {
	return &CookieMedium{opts: opts}
}

// Open implements Medium.
func (m *CookieMedium) Open(w http.ResponseWriter, r *http.Request) Store {
	return &cookieStore{opts: m.opts, w: w, r: r}
}

type cookieStore struct {
	opts CookieOptions
	w    http.ResponseWriter
	r    *http.Request

	// overridden holds the value written during this request, so later reads see it
	// before the browser sends the cookie back.
	overridden bool
	value      string
}

func (s *cookieStore) Write(_ context.Context, token string, opts ...WriteOption) error {
	o := newWriteOptions(opts)
	http.SetCookie(s.w, s.opts.cookie(Key, encodeCookieValue(token), o.remember))
	s.overridden, s.value = true, token
	return nil
}

func (s *cookieStore) Read(_ context.Context) (string, bool) {
	if s.overridden {
		return s.value, s.value != ""
	}
	c, err := s.r.Cookie(Key)
	if err != nil {
		return "", false
	}
	token, ok := decodeCookieValue(c.Value)
	return token, ok && token != ""
}

func (s *cookieStore) Clear(_ context.Context) error {
	http.SetCookie(s.w, s.opts.expired(Key))
	s.overridden, s.value = true, ""
	return nil
}
