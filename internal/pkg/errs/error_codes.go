/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat and Conversation Business Logic Errors
const (
	// ErrConversationNotFound indicates that the referenced conversation does not exist.
	ErrConversationNotFound = 2101

	// ErrConversationForbidden indicates the caller is not a participant of the conversation.
	ErrConversationForbidden = 2102

	// ErrConversationPairInvalid indicates a resolve request without both participant ids.
	ErrConversationPairInvalid = 2103

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates an upload exceeding the per-file size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates an upload with a disallowed file type.
	ErrFileTypeInvalid = 2302
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrSignupChallengeRequired indicates the client must complete the signup challenge first.
	ErrSignupChallengeRequired = 3001

	// ErrSignupChallengeInvalid indicates that the proof provided by the client is invalid.
	ErrSignupChallengeInvalid = 3002

	// ErrAlreadyLoggedIn indicates a register/login attempt by an already authenticated user.
	ErrAlreadyLoggedIn = 3003

	// ErrInvalidUsername indicates a username failing format validation.
	ErrInvalidUsername = 3004

	// ErrInvalidPassword indicates a password failing length validation.
	ErrInvalidPassword = 3005

	// ErrUserAlreadyExists indicates the username is already registered.
	ErrUserAlreadyExists = 3006

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = 3007

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3008

	// ErrOldPasswordInvalid indicates a password change with a wrong current password.
	ErrOldPasswordInvalid = 3009

	// ErrUnauthorized indicates a request without a valid identity token.
	ErrUnauthorized = 3010

	// ErrRoleForbidden indicates the authenticated role lacks permission for the operation.
	ErrRoleForbidden = 3011
)

// 4xxx: Campus Content Errors
const (
	// ErrRecordNotFound indicates the referenced campus record (announcement, exam,
	// material, calendar event, timetable entry, attendance row) does not exist.
	ErrRecordNotFound = 4001

	// ErrAttendanceDuplicate indicates attendance was already marked for the
	// (student, course, date) combination.
	ErrAttendanceDuplicate = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates a failure talking to the object storage service.
	ErrFileStorageFailed = 5001
)
