package delivery

import (
	"context"
	"net/http"

	"woorkroom-web/authapi"
	"woorkroom-web/form"
)

func loginPage() formPage {
	return formPage{
		title:     "Sign In",
		form:      form.Login,
		template:  loginTemplate,
		file:      "login.html",
		fallback:  authapi.LoginFallback,
		succeeded: "Login successful!",
		tokenless: "Logged in, but token not received.",
		call: func(ctx context.Context, auth authapi.Authenticator, values form.Values) (authapi.Success, error) {
			return auth.Login(ctx, authapi.LoginRequest{
				Username: values[form.FieldUsername],
				Password: values[form.FieldPassword],
			})
		},
	}
}

// loginHandler handles the GET request for the login page.
func (h *HTTPEndpoint) loginHandler(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, loginPage())
}

// loginSubmitHandler handles the POST request from the login form.
func (h *HTTPEndpoint) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, loginPage())
}
