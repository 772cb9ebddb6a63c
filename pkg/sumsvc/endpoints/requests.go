package endpoints

type Request interface {
	validate() error
}

// SumRequest collects the request parameters for the Sum method. A nil
// operand was not supplied by the caller.
type SumRequest struct {
	A *string `json:"a,omitempty"`
	B *string `json:"b,omitempty"`
}

// validate accepts absent or malformed operands; whether those are errors is
// the service's decision.
func (r SumRequest) validate() error {
	return nil
}
