//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the user's fault, and they return
// HTTP Status 400, 404 or 409, whatever is most appropriate. Error codes
// 50001-59999 are the server's fault and return HTTP Status 500.
//
// NEVER change any of the current error codes, only append new errors after
// the current last 4XXX or 5XXX. There's no correlation between Code and
// HTTP Status.
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedCommitment   = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed commitment")}
	ErrMalformedNullifier    = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed nullifier")}
	ErrMalformedRoot         = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed merkle root")}
	ErrMalformedRecipient    = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed recipient address")}
	ErrInvalidDepositAmount  = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("transferred amount does not match the deposit size")}
	ErrUnknownRoot           = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown merkle root")}
	ErrNullifierAlreadyUsed  = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already used")}
	ErrTreeFull              = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("mixer pool is full")}
	ErrInsufficientFunds     = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("insufficient funds for withdrawal")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
