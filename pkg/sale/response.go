package sale

import (
	"github.com/openfiscal/go-eet/pkg/types"
)

// Confirmation is the success payload of a reply: the authority registered
// the sale and issued a FIK.
type Confirmation struct {
	FIK  types.FIK
	Test bool
}

// Rejection is the error payload of a reply.
type Rejection struct {
	Code    types.ErrorCode
	Test    bool
	Message string
}

// Warning is a non-fatal notice attached to a reply.
type Warning struct {
	Code    types.WarningCode
	Message string
}

// Response is the parsed reply to one registration message. Exactly one of
// Confirmation and Rejection is present in a well-formed reply; the parser
// rejects documents carrying both.
type Response struct {
	UUID         types.MessageUUID // echo of the request uuid
	BKP          types.BKP         // echo of the request's short code
	Received     types.Timestamp   // dat_prij, set on acceptance
	Rejected     types.Timestamp   // dat_odmit, set on rejection
	Confirmation *Confirmation
	Rejection    *Rejection
	Warnings     []Warning
}

// OK reports whether the authority accepted the registration. It is true
// if and only if the success payload is present.
func (r *Response) OK() bool { return r.Confirmation != nil }

// FIK returns the issued fiscal identification code; zero value when the
// registration was not accepted.
func (r *Response) FIK() types.FIK {
	if r.Confirmation == nil {
		return types.FIK{}
	}
	return r.Confirmation.FIK
}
