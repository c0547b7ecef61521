/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat and Conversation Business Logic Errors
	ErrConversationNotFound:    {Code: ErrConversationNotFound, Message: "Conversation not found."},
	ErrConversationForbidden:   {Code: ErrConversationForbidden, Message: "You are not part of this conversation.", Status: http.StatusForbidden},
	ErrConversationPairInvalid: {Code: ErrConversationPairInvalid, Message: "Both a student and a teacher are required."},
	ErrMessageContentTooLong:   {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:        {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:         {Code: ErrFileTypeInvalid, Message: "File type is not allowed."},

	// 3xxx: User, Session, and Security Errors
	ErrSignupChallengeRequired: {Code: ErrSignupChallengeRequired, Message: "Verification required. Please try again."},
	ErrSignupChallengeInvalid:  {Code: ErrSignupChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrAlreadyLoggedIn:         {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:         {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:         {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:       {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials:      {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUserNotFound:            {Code: ErrUserNotFound, Message: "Account not found."},
	ErrOldPasswordInvalid:      {Code: ErrOldPasswordInvalid, Message: "Current password is incorrect."},
	ErrUnauthorized:            {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrRoleForbidden:           {Code: ErrRoleForbidden, Message: "You do not have permission to do that.", Status: http.StatusForbidden},

	// 4xxx: Campus Content Errors
	ErrRecordNotFound:      {Code: ErrRecordNotFound, Message: "Record not found."},
	ErrAttendanceDuplicate: {Code: ErrAttendanceDuplicate, Message: "Attendance already recorded for this date."},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
}
