package handlers

import "context"

type contextKey int

const subjectKey contextKey = 0

// WithSubject returns a copy of ctx carrying the subject of the token that
// authorized the request.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

// SubjectFromContext returns the subject stored by WithSubject, if any.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}
