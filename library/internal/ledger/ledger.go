// Package ledger keeps a book's available counter consistent with its
// quantity and with the set of active loans.
//
// Every mutation is a single conditional update in the store, so two
// callers racing for the last copy are serialized by the database and
// exactly one of them observes errs.ErrBookUnavailable.
package ledger

import (
	"context"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//go:generate go run github.com/golang/mock/mockgen -source=ledger.go -destination=mocks/mock.go

// Store is the persistence the ledger needs. The bool results report
// whether the guarded update matched a row.
type Store interface {
	GetBook(ctx context.Context, id uuid.UUID) (model.Book, error)
	// DecrementAvailable updates where available > 0.
	DecrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error)
	// IncrementAvailable updates where available < quantity.
	IncrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error)
	// SetQuantity shifts available by the quantity delta where the result stays >= 0.
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (model.Book, bool, error)
	CountActiveLoansByBook(ctx context.Context, id uuid.UUID) (int, error)
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Decrement(ctx context.Context, bookID uuid.UUID) (model.Book, error) {
	book, ok, err := l.store.DecrementAvailable(ctx, bookID)
	if err != nil {
		return model.Book{}, errors.Wrap(err, "DecrementAvailable")
	}
	if ok {
		return book, nil
	}
	if _, err := l.store.GetBook(ctx, bookID); err != nil {
		return model.Book{}, err
	}
	return model.Book{}, errs.ErrBookUnavailable
}

// Increment gives one copy back. Hitting the quantity ceiling is reported
// as errs.ErrInventoryInconsistent and never clamped.
func (l *Ledger) Increment(ctx context.Context, bookID uuid.UUID) (model.Book, error) {
	book, ok, err := l.store.IncrementAvailable(ctx, bookID)
	if err != nil {
		return model.Book{}, errors.Wrap(err, "IncrementAvailable")
	}
	if ok {
		return book, nil
	}
	current, err := l.store.GetBook(ctx, bookID)
	if err != nil {
		return model.Book{}, err
	}
	return model.Book{}, errors.Wrapf(errs.ErrInventoryInconsistent,
		"book %s: available=%d quantity=%d", bookID, current.Available, current.Quantity)
}

// SetQuantity keeps the number of copies on loan unchanged:
// available' = available + (quantity' - quantity).
func (l *Ledger) SetQuantity(ctx context.Context, bookID uuid.UUID, quantity int) (model.Book, error) {
	if quantity < 1 {
		return model.Book{}, errors.Wrap(errs.ErrInvalidQuantity, "quantity must be at least 1")
	}
	book, ok, err := l.store.SetQuantity(ctx, bookID, quantity)
	if err != nil {
		return model.Book{}, errors.Wrap(err, "SetQuantity")
	}
	if ok {
		return book, nil
	}
	current, err := l.store.GetBook(ctx, bookID)
	if err != nil {
		return model.Book{}, err
	}
	return model.Book{}, errors.Wrapf(errs.ErrInvalidQuantity,
		"%d copies are on loan", current.OnLoan())
}

func (l *Ledger) CanDelete(ctx context.Context, bookID uuid.UUID) (bool, error) {
	n, err := l.store.CountActiveLoansByBook(ctx, bookID)
	if err != nil {
		return false, errors.Wrap(err, "CountActiveLoansByBook")
	}
	return n == 0, nil
}
