package vault

import "errors"

var (
	ErrNilState             = errors.New("vault: state not configured")
	ErrNilRegistry          = errors.New("vault: registry not configured")
	ErrInvalidAmount        = errors.New("vault: amount must be positive")
	ErrNoActiveProtocol     = errors.New("vault: no active protocol")
	ErrProtocolNotActive    = errors.New("vault: protocol not in active set")
	ErrProtocolActive       = errors.New("vault: protocol already in active set")
	ErrUnknownParticipant   = errors.New("vault: unknown participant")
	ErrInsufficientBalance  = errors.New("vault: insufficient balance")
	ErrUnauthorized         = errors.New("vault: unauthorized")
	ErrConnectorShortfall   = errors.New("vault: connector moved less than requested")
	ErrRemoveActiveProtocol = errors.New("vault: switch routing away from protocol before removal")
	ErrLastProtocolFunded   = errors.New("vault: cannot remove last protocol while it holds funds")
	ErrEpochReportNotFound  = errors.New("vault: epoch report not found")
)
