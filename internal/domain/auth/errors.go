package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/utils"
)

var (
	// ErrMissingCredentials is returned when the username or password is blank
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned is returned by login for a banned account with valid credentials
	ErrAccountBanned = errors.New("account banned")

	// ErrTokenRequired is returned by logout when no token is supplied
	ErrTokenRequired = errors.New("token required")
	// ErrInvalidToken is returned by logout when the token does not fully parse
	ErrInvalidToken = errors.New("invalid token")

	// ErrBanned is returned by the gate when the token's user is banned or gone
	ErrBanned = errors.New("user banned")
	// ErrSessionNotFound is returned by the gate when the user has no session
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned by the gate when the session's expiry has passed
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionSuperseded is returned by the gate when a newer login replaced the token's session
	ErrSessionSuperseded = errors.New("session superseded")
	// ErrTokenExpired is returned by the gate for a well-signed token past its exp claim
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownKey is returned when the active kid is not in the key set
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrNoSigningKeys is returned when no key source yields a key
	ErrNoSigningKeys = errors.New("no signing keys configured")
)

// MinKeyLength is the shortest accepted HS256 secret in bytes
const MinKeyLength = 32

// ErrKeysDirectoryNotAccessible is returned when the keys directory cannot be stat'ed
type ErrKeysDirectoryNotAccessible struct {
	Path string
	Err  error
}

func (e *ErrKeysDirectoryNotAccessible) Error() string {
	return fmt.Sprintf("keys directory %s is not accessible: %v", e.Path, e.Err)
}

func (e *ErrKeysDirectoryNotAccessible) Unwrap() error { return e.Err }

// ErrKeysPathNotDirectory is returned when the keys path is a regular file
type ErrKeysPathNotDirectory struct {
	Path string
}

func (e *ErrKeysPathNotDirectory) Error() string {
	return fmt.Sprintf("keys path %s is not a directory", e.Path)
}

// ErrFailedToReadKeyFile is returned when a key file exists but cannot be read
type ErrFailedToReadKeyFile struct {
	FileName string
	Err      error
}

func (e *ErrFailedToReadKeyFile) Error() string {
	return fmt.Sprintf("failed to read key file %s: %v", e.FileName, e.Err)
}

func (e *ErrFailedToReadKeyFile) Unwrap() error { return e.Err }

// ErrKeyTooShort is returned when a secret is shorter than MinKeyLength
type ErrKeyTooShort struct {
	KID    string
	Length int
}

func (e *ErrKeyTooShort) Error() string {
	return fmt.Sprintf("key %q is %d bytes, at least %d required", e.KID, e.Length, MinKeyLength)
}

// ParseErrorKind names why a token failed to parse
type ParseErrorKind int

const (
	// ParseMalformed means the token is not a well-formed signed claim set
	ParseMalformed ParseErrorKind = iota
	// ParseSignatureInvalid means the signature does not verify against any known key
	ParseSignatureInvalid
	// ParseExpired means the signature verified but the exp claim has passed
	ParseExpired
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseMalformed:
		return "malformed"
	case ParseSignatureInvalid:
		return "signature_invalid"
	case ParseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ParseError is the only error type returned by TokenCodec.Parse
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseErrorKindOf returns the kind of a parse error and whether err is one
func ParseErrorKindOf(err error) (ParseErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

var (
	apiMissingCredentials = utils.NewAPIError("MISSING_CREDENTIALS", "Please enter username and password.", fiber.StatusBadRequest)
	apiInvalidCredentials = utils.NewAPIError("INVALID_CREDENTIALS", "Wrong username or password.", fiber.StatusUnauthorized)
	apiAccountBanned      = utils.NewAPIError("ACCOUNT_BANNED", "Your account has been banned. Please contact support if you believe this is a mistake.", fiber.StatusForbidden)
	apiTokenRequired      = utils.NewAPIError("TOKEN_REQUIRED", "Token required", fiber.StatusBadRequest)
	apiInvalidToken       = utils.NewAPIError("INVALID_TOKEN", "Invalid token", fiber.StatusUnauthorized)
	apiBanned             = utils.NewAPIError("BANNED", "Your account has been banned.", fiber.StatusForbidden)
	apiSessionNotFound    = utils.NewAPIError("SESSION_NOT_FOUND", "Session not found. Please log in again.", fiber.StatusUnauthorized)
	apiSessionExpired     = utils.NewAPIError("SESSION_EXPIRED", "Session expired. Please log in again.", fiber.StatusUnauthorized)
	apiSessionSuperseded  = utils.NewAPIError("SESSION_SUPERSEDED", "You have been logged in elsewhere. Please log in again.", fiber.StatusUnauthorized)
	apiTokenExpired       = utils.NewAPIError("TOKEN_EXPIRED", "Token expired. Please log in again.", fiber.StatusUnauthorized)

	apiUsernameExists = utils.NewAPIError("USERNAME_EXISTS", "Username already exists", fiber.StatusConflict)
	apiEmailExists    = utils.NewAPIError("EMAIL_EXISTS", "Email already exists", fiber.StatusConflict)
	apiUserNotFound   = utils.NewAPIError("USER_NOT_FOUND", "User not found", fiber.StatusNotFound)
)

// ToAPIError maps auth and user errors onto HTTP errors. Unknown errors become a generic 500.
func ToAPIError(err error) *utils.APIError {
	var apiErr *utils.APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrMissingCredentials):
		return apiMissingCredentials
	case errors.Is(err, ErrInvalidCredentials):
		return apiInvalidCredentials
	case errors.Is(err, ErrAccountBanned):
		return apiAccountBanned
	case errors.Is(err, ErrTokenRequired):
		return apiTokenRequired
	case errors.Is(err, ErrInvalidToken):
		return apiInvalidToken
	case errors.Is(err, ErrBanned):
		return apiBanned
	case errors.Is(err, ErrSessionNotFound):
		return apiSessionNotFound
	case errors.Is(err, ErrSessionExpired):
		return apiSessionExpired
	case errors.Is(err, ErrSessionSuperseded):
		return apiSessionSuperseded
	case errors.Is(err, ErrTokenExpired):
		return apiTokenExpired
	case errors.Is(err, user.ErrUsernameExists):
		return apiUsernameExists
	case errors.Is(err, user.ErrEmailExists):
		return apiEmailExists
	case errors.Is(err, user.ErrUserNotFound):
		return apiUserNotFound
	case isValidationError(err):
		return utils.ErrBadRequest.WithMessage(err.Error())
	default:
		return utils.ErrInternalServer
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		user.ErrNameRequired,
		user.ErrUsernameTooShort,
		user.ErrInvalidEmail,
		user.ErrPasswordRequired,
		user.ErrTooYoung,
		user.ErrInvalidRole,
		user.ErrInvalidStatus,
		user.ErrSelfModification,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
