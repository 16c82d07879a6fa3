package translator

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the outcome of a translation request: either Success with the
// translated text or Failure with an error, never both.
type Result struct {
	data string
	err  error
}

func Success(data string) Result {
	return Result{data: data}
}

func Failure(err error) Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{err: err}
}

func (r Result) OK() bool { return r.err == nil }

func (r Result) Data() string { return r.data }

func (r Result) Err() error { return r.err }

// Get returns the data or the error, for callers that prefer Go's usual
// two-value form.
func (r Result) Get() (string, error) {
	return r.data, r.err
}

type resultJSON struct {
	OK    bool    `json:"ok"`
	Data  *string `json:"data,omitempty"`
	Error string  `json:"error,omitempty"`
}

// MarshalJSON encodes {"ok":true,"data":...} or {"ok":false,"error":...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		return json.Marshal(resultJSON{OK: false, Error: r.err.Error()})
	}
	return json.Marshal(resultJSON{OK: true, Data: &r.data})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.OK {
		if raw.Data == nil {
			return fmt.Errorf("successful result without data")
		}
		*r = Success(*raw.Data)
		return nil
	}
	if raw.Error == "" {
		raw.Error = "unknown failure"
	}
	*r = Failure(errors.New(raw.Error))
	return nil
}
