package delivery

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"woorkroom-web/authapi"
	"woorkroom-web/credential"
	"woorkroom-web/delivery/model"
	"woorkroom-web/form"
)

const formIDField = "form_id"

// Notices shown by the submit pipeline.
const (
	msgInFlight     = "A submission is already in progress."
	msgStoreFailed  = "Could not save your session. Please try again."
	msgBadFormInput = "Failed to parse form"
)

// formPage describes one of the auth forms and what follows a successful submission.
type formPage struct {
	title    string
	form     form.Form
	template *template.Template
	file     string

	fallback string
	// succeeded is flashed after a token was stored.
	succeeded string
	// tokenless is shown when the API succeeded without a token.
	tokenless string

	call func(ctx context.Context, auth authapi.Authenticator, values form.Values) (authapi.Success, error)
}

// show renders a fresh, empty form.
func (h *HTTPEndpoint) show(w http.ResponseWriter, r *http.Request, page formPage) {
	h.renderForm(w, http.StatusOK, page, model.FormPage{
		FormID: uuid.NewString(),
		Notice: takeFlash(w, r),
	})
}

// submit validates the posted form, calls the remote API at most once per form instance
// and stores the returned token.
func (h *HTTPEndpoint) submit(w http.ResponseWriter, r *http.Request, page formPage) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, msgBadFormInput, http.StatusBadRequest)
		return
	}
	logger := h.app.GetLogger().With(zap.String("form", page.form.Name))

	values := form.ValuesFrom(r.PostForm)
	// Ids are keyed in canonical form so another spelling of the same uuid is the same
	// instance. Unknown or forged ids get a fresh instance so they can never collide.
	var instance string
	if id, err := uuid.Parse(values[formIDField]); err == nil {
		instance = id.String()
	}
	data := model.FormPage{
		FormID:     instance,
		Values:     echo(values),
		Strength:   string(form.Strength(values[form.FieldPassword])),
		RememberMe: values.Bool(form.FieldRememberMe),
	}
	if data.FormID == "" {
		data.FormID = uuid.NewString()
	}

	var result authapi.Success
	err := h.app.GetSubmitter().Submit(r.Context(), instance, page.form, values, func(ctx context.Context) error {
		var err error
		result, err = page.call(ctx, h.app.GetAuthenticator(), values)
		return err
	})

	var invalid *form.ValidationError
	switch {
	case errors.Is(err, form.ErrInFlight):
		http.Error(w, msgInFlight, http.StatusConflict)
		return
	case errors.Is(err, form.ErrDiscarded):
		return
	case errors.As(err, &invalid):
		data.Errors = invalid.Errors
		h.renderForm(w, http.StatusUnprocessableEntity, page, data)
		return
	case err != nil:
		failure := authapi.AsFailure(err, page.fallback)
		logger.Info("submission failed", zap.String("message", failure.Message),
			zap.Int("status", failure.Status), zap.NamedError("cause", failure.Cause))
		data.Notice = model.Error(failure.Message)
		h.renderForm(w, http.StatusOK, page, data)
		return
	}

	if !result.HasToken() {
		logger.Warn("remote API succeeded without a token")
		data.Notice = model.Success(page.tokenless)
		h.renderForm(w, http.StatusOK, page, data)
		return
	}

	if r.Context().Err() != nil {
		return
	}
	store := h.app.GetCredentialMedium().Open(w, r)
	if err := store.Write(r.Context(), result.Token, credential.Remember(data.RememberMe)); err != nil {
		logger.Error("failed to store credential", zap.Error(err))
		data.Notice = model.Error(msgStoreFailed)
		h.renderForm(w, http.StatusOK, page, data)
		return
	}

	setFlash(w, model.Success(page.succeeded))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *HTTPEndpoint) renderForm(w http.ResponseWriter, status int, page formPage, data model.FormPage) {
	data.Title = page.title
	h.render(w, status, page.template, page.file, data)
}

// echo returns the values safe to send back to the browser.
func echo(values form.Values) map[string]string {
	out := make(map[string]string, 2)
	for _, key := range []string{form.FieldName, form.FieldUsername} {
		if v, ok := values[key]; ok {
			out[key] = v
		}
	}
	return out
}
