package telemetry

import "fmt"

// API receives the reports of every vendor client, store and helper in
// atomkit. Components never log directly, which lets tests swap in a
// Recorder and assert on what a client reported.
type API interface {
	// ReportBroken reports a failure of a component, a vendor call that
	// errored or a file that could not be written.
	//
	// ids name the operation, not the line that failed: `client.solve`
	// rather than `client.solve.poll-http`. Put the detail (the error, the
	// captcha id, the url) in params. ids are lowercase, dots separate the
	// type from the method.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth a look that did not fail the
	// operation, a retried request or an unusable proxy.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible at the debug log level.
	ReportDebug(msg string, params ...any)

	// ReportCount records a gauge such as a balance or a number of alive
	// services. Values are samples over time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with the namespace of the package that
// reports, `captcha: client.balance`.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI scopes inner, a nil inner reports through slog.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if inner == nil {
		inner = SlogAPI{}
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
