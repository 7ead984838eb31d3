package httpapi

// Result is the response envelope of every endpoint.
//   - code: ResultSuccess on success
//   - type: "success" | "error"
//   - message: human readable status
//   - result: payload
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired goes out with HTTP 401 so the client can re-login.
	ResultTokenExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailWith is Fail carrying a payload, e.g. validation findings.
func FailWith(message string, result any) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: result}
}
