package delivery

import (
	"net/http"

	"go.uber.org/zap"

	"woorkroom-web/delivery/model"
)

func (h *HTTPEndpoint) logoutHandler(w http.ResponseWriter, r *http.Request) {
	store := h.app.GetCredentialMedium().Open(w, r)
	if err := store.Clear(r.Context()); err != nil {
		h.app.GetLogger().Error("failed to clear credential", zap.Error(err))
		setFlash(w, model.Error("Could not sign you out. Please try again."))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	setFlash(w, model.Success("You have been signed out."))
	http.Redirect(w, r, h.app.EntryPoint(), http.StatusSeeOther)
}
