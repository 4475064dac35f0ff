package domain

import "errors"

// Pipeline stage errors. Stage failures wrap one of these together with the cause.
var (
	ErrAuth    = errors.New("auth error")
	ErrFetch   = errors.New("fetch error")
	ErrPersist = errors.New("persist error")
)

// Stage names the pipeline stage that produced err, or "" if none matches.
func Stage(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrPersist):
		return "persist"
	}
	return ""
}
