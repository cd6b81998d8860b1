package util

import (
	"errors"
	"fmt"
	"math"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

// Is reports a match against the error code, so errors.Is(err, ErrSearchBudgetExceeded) works on wrapped errors.
func (e *Error) Is(target error) bool {
	return e.code != nil && e.code == target
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

var (
	ErrInternalServerError = errors.New("internal Server Error")
	ErrNotFound            = errors.New("your requested Item is not found")
	ErrConflict            = errors.New("your Item already exist")
	ErrBadParamInput       = errors.New("given Param is not valid")
)

// routing errors
var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	ErrLandmarkUnavailable  = errors.New("landmark unavailable")
	ErrInvalidPreparedState = errors.New("invalid prepared state")
	ErrInvalidPreparation   = errors.New("invalid preparation")
)

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr))
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}
