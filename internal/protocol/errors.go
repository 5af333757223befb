package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Simulation control.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrRoundNotRecorded = "E_ROUND_NOT_RECORDED"
	ErrNotDriver        = "E_NOT_DRIVER"
	ErrHalted           = "E_HALTED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrRoundNotRecorded: {},
	ErrNotDriver:        {},
	ErrHalted:           {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
