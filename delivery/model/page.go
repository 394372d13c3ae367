package model

// Notice kinds.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a one-line notification shown above the page content.
type Notice struct {
	Kind    string
	Message string
}

// Success builds a success notice.
func Success(message string) *Notice {
	return &Notice{Kind: NoticeSuccess, Message: message}
}

// Error builds an error notice.
func Error(message string) *Notice {
	return &Notice{Kind: NoticeError, Message: message}
}

// FormPage is the data of the register and login pages.
type FormPage struct {
	Title string
	// FormID identifies this rendering of the form. Submissions carrying the same id are
	// never in flight twice.
	FormID string
	// Values echoes the submitted inputs, password excluded.
	Values map[string]string
	Errors map[string]string
	// Strength is the advisory password strength hint, empty until a password is typed.
	Strength   string
	RememberMe bool
	Notice     *Notice
}

type (
	HomePage struct {
		Notice *Notice
	}

	ErrorPage struct {
		ID     string
		Reason string
	}
)
