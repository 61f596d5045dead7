package typesystem

import "fmt"

// UnknownDefError indicates a definition id that no store knows about.
type UnknownDefError struct {
	Def DefID
}

func (e *UnknownDefError) Error() string {
	return fmt.Sprintf("unknown definition: %s", e.Def)
}

func NewUnknownDefError(def DefID) *UnknownDefError {
	return &UnknownDefError{Def: def}
}

// FulfillmentCode classifies why an obligation could not be proven.
type FulfillmentCode int

const (
	CodeUnimplemented FulfillmentCode = iota
	CodeAmbiguous
	CodeProjectionMismatch
	CodeCannotNormalize
	CodeOverflow
)

func (c FulfillmentCode) String() string {
	switch c {
	case CodeUnimplemented:
		return "unimplemented"
	case CodeAmbiguous:
		return "ambiguous"
	case CodeProjectionMismatch:
		return "projection mismatch"
	case CodeCannotNormalize:
		return "cannot normalize"
	case CodeOverflow:
		return "overflow"
	}
	return "unknown"
}

// FulfillmentError is an obligation the solver could not discharge.
type FulfillmentError struct {
	Obligation Obligation
	Code       FulfillmentCode
	Detail     string
}

func (e *FulfillmentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: `%s`", e.Code, e.Obligation.Predicate)
	}
	return fmt.Sprintf("%s: `%s`: %s", e.Code, e.Obligation.Predicate, e.Detail)
}
