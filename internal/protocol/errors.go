package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request layer.
	ErrNotFound          = "E_NOT_FOUND"
	ErrValidation        = "E_VALIDATION"
	ErrNoPermission      = "E_NO_PERMISSION"
	ErrInvalidState      = "E_INVALID_STATE"
	ErrOracleUnavailable = "E_ORACLE_UNAVAILABLE"
	ErrInternal          = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrNotFound:          {},
	ErrValidation:        {},
	ErrNoPermission:      {},
	ErrInvalidState:      {},
	ErrOracleUnavailable: {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
