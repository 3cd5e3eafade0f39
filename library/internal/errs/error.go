package errs

import (
	"errors"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrDueDateInPast   = errors.New("return due date must be in the future")
	ErrInvalidQuantity = errors.New("invalid quantity")

	ErrBookNotFound    = errors.New("book not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrOrderNotFound   = errors.New("reservation request not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrBookUnavailable       = errors.New("book is not available")
	ErrAlreadyReturned       = errors.New("book has already been returned")
	ErrDuplicateRequest      = errors.New("a pending request already exists for this book")
	ErrBookHasActiveLoans    = errors.New("Cannot delete book with active loans")
	ErrStudentHasActiveLoans = errors.New("Cannot delete student with active loans")
	ErrDuplicateISBN         = errors.New("a book with this isbn already exists")
	ErrDuplicateEnrollment   = errors.New("a student with this enrollment already exists")
	ErrDuplicateEmail        = errors.New("a user with this email already exists")

	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInventoryInconsistent means available would exceed quantity, which
	// only happens if a loan gave its copy back twice.
	ErrInventoryInconsistent = errors.New("inventory is inconsistent")
)

// Kind groups errors for transport mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalid
	KindNotFound
	KindConflict
	KindUnauthorized
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDueDateInPast),
		errors.Is(err, ErrInvalidQuantity):
		return KindInvalid
	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrStudentNotFound),
		errors.Is(err, ErrLoanNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrClassNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrBookHasActiveLoans),
		errors.Is(err, ErrStudentHasActiveLoans),
		errors.Is(err, ErrDuplicateISBN),
		errors.Is(err, ErrDuplicateEnrollment),
		errors.Is(err, ErrDuplicateEmail):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	}
	return KindInternal
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "error"
}
