package delivery

import (
	"encoding/base64"
	"net/http"
	"strings"

	"woorkroom-web/delivery/model"
)

const flashCookie = "x-flash"

// setFlash stores a notice for the next rendered page.
func setFlash(w http.ResponseWriter, notice *model.Notice) {
	value := base64.RawURLEncoding.EncodeToString([]byte(notice.Kind + "\n" + notice.Message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns the pending notice, if any, and clears it.
func takeFlash(w http.ResponseWriter, r *http.Request) *model.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "\n")
	if !ok || message == "" {
		return nil
	}
	switch kind {
	case model.NoticeSuccess, model.NoticeError:
		return &model.Notice{Kind: kind, Message: message}
	}
	return nil
}
