package services

// Result is the closed outcome set every coordinator operation returns.
// Status and Message mirror what the edge serializes verbatim; Message values
// are stable strings frontends switch on, never free text. Operations return
// a nil Result together with an error only for unexpected conditions (store
// unavailability, cryptographic misconfiguration), which the edge maps to a
// plain 500.
type Result struct {
	Status       int    `json:"status"`
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
}

// Status codes carried to the edge.
const (
	StatusOK           = 200
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusForbidden    = 403
	StatusNotFound     = 404
	StatusConflict     = 409
)

// Stable outcome messages for the account/admin operation families.
const (
	MsgVerificationSent       = "VERIFICATION_SENT"
	MsgReverificationSent     = "REVERIFICATION_SENT"
	MsgEmailTakenVerified     = "EMAIL_TAKEN_VERIFIED"
	MsgEmailTakenFederated    = "EMAIL_TAKEN_FEDERATED"
	MsgInvalidEmail           = "INVALID_EMAIL"
	MsgInvalidOrExpired       = "INVALID_OR_EXPIRED"
	MsgBadCredentials         = "BAD_CREDENTIALS"
	MsgUnverified             = "UNVERIFIED"
	MsgDisabled               = "DISABLED"
	MsgSignedOut              = "SIGNED_OUT"
	MsgNotFound               = "NOT_FOUND"
	MsgResetSent              = "RESET_SENT"
	MsgResetTokenValid        = "RESET_TOKEN_VALID"
	MsgResetOK                = "RESET_OK"
	MsgSameAsOld              = "SAME_AS_OLD"
	MsgFederatedNotResettable = "FEDERATED_NOT_RESETTABLE"
	MsgFederatedNotChangeable = "FEDERATED_NOT_CHANGEABLE"
	MsgPasswordChanged        = "PASSWORD_CHANGED"
	MsgFederatedOK            = "FEDERATED_OK"
	MsgFederatedFailed        = "FEDERATED_FAILED"
	MsgAlreadyVerified        = "ALREADY_VERIFIED"
	MsgResent                 = "RESENT"
)

// Stable rejection reasons for token validation (authenticate/refresh).
const (
	MsgInvalidToken  = "InvalidToken"
	MsgTokenExpired  = "TokenExpired"
	MsgRevoked       = "Revoked"
	MsgAdminRequired = "AdminRequired"
)

func ok(message string) *Result {
	return &Result{Status: StatusOK, Message: message}
}

func fail(status int, message string) *Result {
	return &Result{Status: status, Message: message}
}
