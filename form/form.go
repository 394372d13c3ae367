// Package form validates submitted auth forms and guards their submission.
//
// A Form is a declarative list of fields, each carrying validator tags and the message shown
// next to the field when the tag fails. Submission is only attempted once every field passes.
package form

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rule is a single check on a raw field value.
type Rule struct {
	// Tag is a validator tag applied to the value, for example "min=6".
	Tag string
	// Message is shown to the user when Tag fails.
	Message string
}

// MinLen fails values shorter than n characters.
func MinLen(n int, message string) Rule {
	return Rule{Tag: "min=" + strconv.Itoa(n), Message: message}
}

// Field is one named input of a form.
type Field struct {
	Key      string
	Label    string
	Optional bool
	Rules    []Rule
}

// Form is an ordered set of fields.
type Form struct {
	Name   string
	Fields []Field
}

// Values are the raw submitted inputs keyed by field.
type Values map[string]string

// ValuesFrom takes the first value of each key in v.
func ValuesFrom(v url.Values) Values {
	values := make(Values, len(v))
	for k := range v {
		values[k] = v.Get(k)
	}
	return values
}

// Bool reports whether a checkbox-style field was ticked.
func (v Values) Bool(key string) bool {
	switch v[key] {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Errors maps field keys to the message of their first failing rule.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

// Validate applies every field's rules independently.
func (f Form) Validate(values Values) Errors {
	errs := Errors{}
	for _, field := range f.Fields {
		if field.Optional {
			continue
		}
		value := values[field.Key]
		for _, rule := range field.Rules {
			if err := validate.Var(value, rule.Tag); err != nil {
				errs[field.Key] = rule.Message
				break
			}
		}
	}
	return errs
}

// Field keys shared by the auth forms.
const (
	FieldName       = "name"
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldRememberMe = "rememberMe"
)

// MinLength is the minimum length of the name, username and password fields.
const MinLength = 6

var (
	nameField = Field{Key: FieldName, Label: "Name", Rules: []Rule{
		MinLen(MinLength, "Name must be at least 6 characters"),
	}}
	usernameField = Field{Key: FieldUsername, Label: "Username", Rules: []Rule{
		MinLen(MinLength, "Username must be at least 6 characters"),
	}}
	passwordField = Field{Key: FieldPassword, Label: "Password", Rules: []Rule{
		MinLen(MinLength, "Password must be at least 6 characters"),
	}}
	rememberMeField = Field{Key: FieldRememberMe, Label: "Remember me", Optional: true}
)

// Registration is the sign-up form.
var Registration = Form{
	Name:   "registration",
	Fields: []Field{nameField, passwordField, usernameField, rememberMeField},
}

// Login is the sign-in form.
var Login = Form{
	Name:   "login",
	Fields: []Field{usernameField, passwordField, rememberMeField},
}
