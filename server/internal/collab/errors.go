package collab

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput 生成结果不是合法 JSON 或结构不符。
var ErrMalformedOutput = errors.New("malformed generation output")

// MalformedOutputError 携带协作者名称与已尝试次数。
type MalformedOutputError struct {
	Collaborator string
	Attempts     int
	Err          error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempt(s): %v", e.Collaborator, ErrMalformedOutput, e.Attempts, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrMalformedOutput) 成立。
func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }
