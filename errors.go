package neobyte

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrorKind is the closed set of failure categories the web layer knows how to report.
type ErrorKind int

const (
	KindFailed ErrorKind = iota
	KindInvalidInput
	KindUnsupported
	KindLoginRequired
	KindAuthRequired
	KindPrivate
	KindNotFound
	KindNoMedia
)

var kindNames = map[ErrorKind]string{
	KindFailed:        "failed",
	KindInvalidInput:  "invalid_input",
	KindUnsupported:   "unsupported",
	KindLoginRequired: "login_required",
	KindAuthRequired:  "auth_required",
	KindPrivate:       "private",
	KindNotFound:      "not_found",
	KindNoMedia:       "no_media",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// An Error is a classified failure, usually from a single extractor.
type Error struct {
	Kind ErrorKind
	// Extractor, if set, prefixes the message as "[name] ...".
	Extractor string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Extractor != "" {
		return "[" + e.Extractor + "] " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError classifies err as kind. An err that is already an *Error keeps its own kind unless that is KindFailed.
func NewError(kind ErrorKind, err error) *Error {
	var inner *Error
	if errors.As(err, &inner) && inner.Kind != KindFailed {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf is a shortcut for NewError(kind, fmt.Errorf(format, args...)).
func Errorf(kind ErrorKind, format string, args ...any) error {
	return NewError(kind, fmt.Errorf(format, args...))
}

var messageKinds = []struct {
	pattern *regexp.Regexp
	kind    ErrorKind
}{
	{regexp.MustCompile(`\bunsupported url\b`), KindUnsupported},
	{regexp.MustCompile(`\brequires authentication\b`), KindAuthRequired},
	{regexp.MustCompile(`\blog ?in\b|\blogged in\b`), KindLoginRequired},
	{regexp.MustCompile(`\bprivate\b`), KindPrivate},
	{regexp.MustCompile(`\bnot found\b|\bhttp error 404\b|\b404\b|\bdoes not exist\b|\bnot exist\b`), KindNotFound},
	{regexp.MustCompile(`\bno video formats\b|\bno video could be found\b|\bno media\b`), KindNoMedia},
}

// messagePrefix matches the "ERROR: [extractor] id:" lead-in of a tool's error line. The ID is site data, so it
// is never classified.
var messagePrefix = regexp.MustCompile(`^\s*(?:error:\s*)?(?:\[[^\]]*\]\s*(?:[^\s:]+:\s*)?)?`)

// ClassifyMessage maps free-form tool output onto an ErrorKind. Each line has its "ERROR: [extractor] id:" prefix
// removed, then patterns are tried in order, case-insensitively and on word boundaries. This is the only place
// message text is inspected.
func ClassifyMessage(msg string) ErrorKind {
	var lines []string
	for _, line := range strings.Split(strings.ToLower(msg), "\n") {
		lines = append(lines, messagePrefix.ReplaceAllString(line, ""))
	}
	msg = strings.Join(lines, "\n")
	for _, mk := range messageKinds {
		if mk.pattern.MatchString(msg) {
			return mk.kind
		}
	}
	return KindFailed
}

// LastError returns the final error collected by a failed extractor chain, or err itself if it is not an aggregate.
func LastError(err error) error {
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		return merr.Errors[len(merr.Errors)-1]
	}
	return err
}

// KindOf reports the ErrorKind of err, looking at the last error of an aggregate.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindFailed
	}
	var e *Error
	if errors.As(LastError(err), &e) {
		return e.Kind
	}
	return KindFailed
}

// Cause strips classification and extractor prefixes, giving the underlying error of the last error.
func Cause(err error) error {
	err = LastError(err)
	for {
		var e *Error
		if !errors.As(err, &e) || e.Err == nil {
			return err
		}
		err = e.Err
	}
}
