package session

// Severity tags a user-visible message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notice is the latest status line a component wants shown.
type Notice struct {
	Severity Severity
	Message  string
}

// IsZero reports whether there is nothing to show.
func (n Notice) IsZero() bool { return n.Message == "" }

func info(msg string) Notice    { return Notice{Severity: SeverityInfo, Message: msg} }
func success(msg string) Notice { return Notice{Severity: SeveritySuccess, Message: msg} }
func failure(msg string) Notice { return Notice{Severity: SeverityError, Message: msg} }
