package services

import "errors"

type Code string

// Коды ошибок, на которые опирается клиент.
const (
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeEventNotFound         Code = "EVENT_NOT_FOUND"
	CodeRegistrationClosed    Code = "REGISTRATION_CLOSED"
	CodeDuplicateRegistration Code = "DUPLICATE_REGISTRATION"
	CodeDuplicateTeamName     Code = "DUPLICATE_TEAM_NAME"
	CodeAlreadyRegistered     Code = "ALREADY_REGISTERED"
	CodeTeamFull              Code = "TEAM_FULL"
	CodeInvalidCode           Code = "INVALID_CODE"
	CodeNotATeamMember        Code = "NOT_A_TEAM_MEMBER"
	CodeCannotExitAsLeader    Code = "CANNOT_EXIT_AS_LEADER"
	CodeForbidden             Code = "FORBIDDEN"
	CodeCannotRemoveLeader    Code = "CANNOT_REMOVE_LEADER"
	CodeMemberNotFound        Code = "MEMBER_NOT_FOUND"
	CodeTeamNotFound          Code = "TEAM_NOT_FOUND"
	CodeAccessDenied          Code = "ACCESS_DENIED"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeAccountDeleted        Code = "ACCOUNT_DELETED"
	CodeSportNotFound         Code = "SPORT_NOT_FOUND"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeEventInUse            Code = "EVENT_HAS_REGISTRATIONS"
	CodeDocumentInvalid       Code = "DOCUMENT_INVALID"
	CodeStorageUnavailable    Code = "STORAGE_UNAVAILABLE"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Error is a user-facing failure with a machine-readable code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Регистрация и команды
	ErrEventNotFound         = newError(CodeEventNotFound, "event not found")
	ErrRegistrationClosed    = newError(CodeRegistrationClosed, "event is not accepting registrations")
	ErrDuplicateRegistration = newError(CodeDuplicateRegistration, "you have already registered for this event")
	ErrDuplicateTeamName     = newError(CodeDuplicateTeamName, "team name is already taken for this event")
	ErrAlreadyRegistered     = newError(CodeAlreadyRegistered, "you are already registered for this event")
	ErrTeamFull              = newError(CodeTeamFull, "team is full")
	ErrInvalidInviteCode     = newError(CodeInvalidCode, "invalid or expired invite code")
	ErrNotATeamMember        = newError(CodeNotATeamMember, "you are not a member of this team")
	ErrCannotExitAsLeader    = newError(CodeCannotExitAsLeader, "team leader cannot exit the team, delete the team instead")
	ErrForbidden             = newError(CodeForbidden, "only the team leader can perform this action")
	ErrCannotRemoveLeader    = newError(CodeCannotRemoveLeader, "team leader cannot be removed")
	ErrMemberNotFound        = newError(CodeMemberNotFound, "team member not found")
	ErrTeamNotFound          = newError(CodeTeamNotFound, "team not found")
	ErrAccessDenied          = newError(CodeAccessDenied, "you do not have access to this team")

	// Аутентификация
	ErrUnauthorized   = newError(CodeUnauthorized, "authentication required")
	ErrAccountDeleted = newError(CodeAccountDeleted, "account no longer exists")
	ErrAdminRequired  = newError(CodeForbidden, "admin role required")

	// Каталог и администрирование
	ErrSportNotFound = newError(CodeSportNotFound, "sport not found")
	ErrUserNotFound  = newError(CodeUserNotFound, "user not found")
	ErrEventInUse    = newError(CodeEventInUse, "event has registrations, use force to delete")

	// Документы
	ErrDocumentTooLarge   = newError(CodeDocumentInvalid, "document exceeds the 10MB limit")
	ErrDocumentType       = newError(CodeDocumentInvalid, "document must be a PDF, PNG or JPEG")
	ErrStorageUnavailable = newError(CodeStorageUnavailable, "document storage is not configured")
)
