package batch

import "errors"

// ErrStructural marks a response that cannot be attributed safely: a part
// that is not an HTTP response, a missing delimiter, or a part count that
// differs from the request count. Callers treat it as fatal for the run.
var ErrStructural = errors.New("batch: structural protocol failure")

// ErrInvalidRequest marks a request that cannot be encoded.
var ErrInvalidRequest = errors.New("batch: invalid request")
