package delivery

import (
	"context"
	"net/http"

	"woorkroom-web/authapi"
	"woorkroom-web/form"
)

func registrationPage() formPage {
	return formPage{
		title:     "Sign Up",
		form:      form.Registration,
		template:  registerTemplate,
		file:      "register.html",
		fallback:  authapi.RegisterFallback,
		succeeded: "Registration successful!",
		tokenless: "Registered, but token not received.",
		call: func(ctx context.Context, auth authapi.Authenticator, values form.Values) (authapi.Success, error) {
			return auth.Register(ctx, authapi.RegisterRequest{
				Name:     values[form.FieldName],
				Username: values[form.FieldUsername],
				Password: values[form.FieldPassword],
			})
		},
	}
}

// registrationHandler handles the GET request for the registration page.
func (h *HTTPEndpoint) registrationHandler(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, registrationPage())
}

// registrationSubmitHandler handles the POST request from the registration form.
func (h *HTTPEndpoint) registrationSubmitHandler(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, registrationPage())
}
