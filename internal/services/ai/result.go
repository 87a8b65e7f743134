package ai

import "context"

// Kind tags how an inference call ended
type Kind int

const (
	KindSuccess Kind = iota
	KindRemoteError
	KindTimeout
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRemoteError:
		return "remote_error"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of one inference call. Text holds the
// generated text on success and a human-readable description otherwise.
type Result struct {
	Kind Kind
	Text string
}

// OK reports whether the call produced generated text
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

func Success(text string) Result {
	return Result{Kind: KindSuccess, Text: text}
}

func RemoteError(message string) Result {
	return Result{Kind: KindRemoteError, Text: message}
}

func Timeout() Result {
	return Result{Kind: KindTimeout, Text: "Connection timed out."}
}

func Malformed(description string) Result {
	return Result{Kind: KindMalformed, Text: description}
}

// Client sends a fully templated prompt to a text-generation model.
// Failures are reported through Result, never as a Go error.
type Client interface {
	Generate(ctx context.Context, prompt string) Result
}
