package reactive

import (
	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
)

// Completion is the terminal signal of a stream: either Finished or a
// Failure carrying the error that ended it.
type Completion struct {
	err error
}

// Finished is the completion of a stream that ended normally.
var Finished = Completion{}

// Failure returns the completion of a stream that ended with err. A nil err
// is a contract violation and panics.
func Failure(err error) Completion {
	if err == nil {
		panic(bferrors.NewContractError("reactive", "Failure", "failure completion requires a non-nil error"))
	}
	return Completion{err: err}
}

// IsFinished reports whether c ended normally.
func (c Completion) IsFinished() bool {
	return c.err == nil
}

// Err returns the failure error, or nil for Finished.
func (c Completion) Err() error {
	return c.err
}

func (c Completion) String() string {
	if c.err == nil {
		return "finished"
	}
	return "failure: " + c.err.Error()
}
