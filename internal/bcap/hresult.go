package bcap

import "fmt"

// HResult is the signed 32-bit result code carried by protocol-level
// failures, matching the ORiN convention (negative values are errors).
type HResult int32

// Known result codes. The set is fixed; anything else maps to a generic
// description that preserves the raw code.
const (
	SOK             HResult = 0
	EFail           HResult = 0x80004005 - 0x100000000
	EAccessDenied   HResult = 0x80070005 - 0x100000000
	EInvalidArg     HResult = 0x80070057 - 0x100000000
	ETimeout        HResult = 0x80000900 - 0x100000000
	ENotConnected   HResult = 0x80010003 - 0x100000000
	EObjectNotFound HResult = 0x80000202 - 0x100000000
	EVariantType    HResult = 0x80000203 - 0x100000000
)

var hresultDescriptions = map[HResult]string{
	ETimeout:        "connection timeout",
	ENotConnected:   "not connected",
	EAccessDenied:   "access denied",
	EInvalidArg:     "invalid argument",
	EObjectNotFound: "object not found",
	EVariantType:    "unsupported variable type",
	EFail:           "operation failed",
}

// Describe returns the short category for a result code. Unknown codes
// keep the raw value visible.
func Describe(code HResult) string {
	if desc, ok := hresultDescriptions[code]; ok {
		return desc
	}
	return fmt.Sprintf("unknown error (0x%08X)", uint32(code))
}

// ProtocolError is a failure reported by the protocol client, carrying
// the controller's numeric result code.
type ProtocolError struct {
	Op   string
	Code HResult
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s (hresult=0x%08X)", e.Op, Describe(e.Code), uint32(e.Code))
}

// NewProtocolError builds a ProtocolError for the named operation.
func NewProtocolError(op string, code HResult) *ProtocolError {
	return &ProtocolError{Op: op, Code: code}
}
