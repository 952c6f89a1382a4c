package ocpp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/utils"
)

var (
	Errors = errorx.NewNamespace("ocpp")

	// ParseError is returned for malformed frames
	ParseError = Errors.NewType("parse_error")
	// RoutingError is returned when a destination cannot be reached
	RoutingError = Errors.NewType("routing_error")
	// SignatureError is returned when signing or verification fails
	SignatureError = Errors.NewType("signature_error")
	// TransportError is returned when a frame cannot be written to a connection
	TransportError = Errors.NewType("transport_error")
)

// ResultCode is a machine-readable CALLERROR code (or a transport-local outcome)
type ResultCode string

const (
	CodeOK                           ResultCode = "OK"
	CodeNotImplemented               ResultCode = "NotImplemented"
	CodeNotSupported                 ResultCode = "NotSupported"
	CodeInternalError                ResultCode = "InternalError"
	CodeProtocolError                ResultCode = "ProtocolError"
	CodeSecurityError                ResultCode = "SecurityError"
	CodeFormationViolation           ResultCode = "FormationViolation"
	CodePropertyConstraintViolation  ResultCode = "PropertyConstraintViolation"
	CodeOccurenceConstraintViolation ResultCode = "OccurenceConstraintViolation"
	CodeTypeConstraintViolation      ResultCode = "TypeConstraintViolation"
	CodeGenericError                 ResultCode = "GenericError"

	// Transport-local extensions
	CodeUnknownClient ResultCode = "UnknownClient"
	CodeNetworkError  ResultCode = "NetworkError"
	CodeTimeout       ResultCode = "Timeout"
)

var resultCodeDescriptions = map[ResultCode]string{
	CodeOK:                           "Success",
	CodeNotImplemented:               "Requested action is not known by receiver",
	CodeNotSupported:                 "Requested action is recognized but not supported by the receiver",
	CodeInternalError:                "An internal error occurred and the receiver was not able to process the requested action successfully",
	CodeProtocolError:                "Payload for action is incomplete",
	CodeSecurityError:                "During the processing of action a security issue occurred preventing receiver from completing the action successfully",
	CodeFormationViolation:           "Payload for action is syntactically incorrect or not conform the PDU structure for action",
	CodePropertyConstraintViolation:  "Payload is syntactically correct but at least one field contains an invalid value",
	CodeOccurenceConstraintViolation: "Payload for action is syntactically correct but at least one of the fields violates occurence constraints",
	CodeTypeConstraintViolation:      "Payload for action is syntactically correct but at least one of the fields violates data type constraints",
	CodeGenericError:                 "Any other error not covered by the previous ones",
	CodeUnknownClient:                "The destination networking node is not known",
	CodeNetworkError:                 "The message could not be delivered to the next hop",
	CodeTimeout:                      "No response was received within the request timeout",
}

// ResultCodes returns all known codes
func ResultCodes() []ResultCode {
	codes := make([]ResultCode, 0, len(resultCodeDescriptions))

	for code := range resultCodeDescriptions {
		codes = append(codes, code)
	}

	return codes
}

// Known returns true if the code is a member of the closed taxonomy
func (c ResultCode) Known() bool {
	_, ok := resultCodeDescriptions[c]
	return ok
}

// Description returns the documented meaning of the code
func (c ResultCode) Description() string {
	if desc, ok := resultCodeDescriptions[c]; ok {
		return desc
	}

	return resultCodeDescriptions[CodeGenericError]
}

func (c ResultCode) String() string {
	return string(c)
}

// CallError is an application-level rejection of a request.
// Handlers return it to produce a CALLERROR with the given code.
type CallError struct {
	Code        ResultCode
	Description string
	Details     json.RawMessage
}

var _ error = (*CallError)(nil)

func NewCallError(code ResultCode, description string, details json.RawMessage) *CallError {
	return &CallError{Code: code, Description: description, Details: details}
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// FormationViolation builds a CALLERROR for a frame that could not be parsed.
// The raw frame and the parser's reason are embedded into the error details.
func FormationViolation(id RequestID, raw []byte, reason string, opts ...Option) Envelope {
	details := struct {
		Reason  string      `json:"reason"`
		Request interface{} `json:"request"`
	}{Reason: reason}

	if json.Valid(raw) {
		details.Request = json.RawMessage(raw)
	} else {
		details.Request = string(raw)
	}

	return NewRequestError(id, CodeFormationViolation, "Invalid message: "+reason, utils.ToJSON(details), opts...)
}

// InternalErrorFor builds a CALLERROR for a request whose processing failed unexpectedly.
// The error text and the stack trace (if any) are embedded as diagnostics.
func InternalErrorFor(req Envelope, err error, stack []byte) Envelope {
	details := struct {
		Exception  string   `json:"exception"`
		StackTrace []string `json:"stackTrace,omitempty"`
	}{Exception: err.Error()}

	if len(stack) > 0 {
		details.StackTrace = strings.Split(strings.TrimSpace(string(stack)), "\n")
	}

	return NewRequestError(
		req.RequestID,
		CodeInternalError,
		"Processing request failed: "+err.Error(),
		utils.ToJSON(details),
		req.replyOptions()...,
	)
}

// Reject builds a CALLERROR for an explicit application-level rejection
func Reject(req Envelope, code ResultCode, description string, details json.RawMessage) Envelope {
	return NewRequestError(req.RequestID, code, description, details, req.replyOptions()...)
}

// RequestErrorFor converts a CallError returned by a handler into a CALLERROR
func RequestErrorFor(req Envelope, cerr *CallError) Envelope {
	return Reject(req, cerr.Code, cerr.Description, cerr.Details)
}
