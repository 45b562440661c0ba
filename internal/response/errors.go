package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrPendingApproval    ErrCode = "PENDING_APPROVAL"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrRoleNotAllowed   ErrCode = "ROLE_NOT_ALLOWED"
	ErrNotQuizAuthor    ErrCode = "NOT_QUIZ_AUTHOR"
	ErrNotResultOwner   ErrCode = "NOT_RESULT_OWNER"
	ErrResultsTooEarly  ErrCode = "RESULTS_NOT_YET_AVAILABLE"
	ErrAdminRegDisabled ErrCode = "ADMIN_REGISTRATION_DISABLED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrRollNumberTaken ErrCode = "ROLL_NUMBER_TAKEN"
	ErrPartialFailure  ErrCode = "PARTIAL_FAILURE"

	// ─── Quiz-specific ─────────────────────────────────────────────────
	ErrQuizNotStarted   ErrCode = "QUIZ_NOT_STARTED"
	ErrQuizEnded        ErrCode = "QUIZ_ENDED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid roll number or password."
	case ErrPendingApproval:
		return "Your account is pending approval by an administrator."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrRoleNotAllowed:
		return "Your role cannot access this resource."
	case ErrNotQuizAuthor:
		return "You are not the author of this quiz."
	case ErrNotResultOwner:
		return "This result belongs to another account."
	case ErrResultsTooEarly:
		return "Detailed results are available after the quiz ends."
	case ErrAdminRegDisabled:
		return "Administrator self-registration is disabled."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrRollNumberTaken:
		return "This roll number is already registered."
	case ErrPartialFailure:
		return "Some items could not be processed."

	// ─── Quiz-specific ─────────────────────────────────────────────────
	case ErrQuizNotStarted:
		return "This quiz has not started yet."
	case ErrQuizEnded:
		return "This quiz has already ended."
	case ErrAlreadySubmitted:
		return "You have already submitted this quiz."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
