package service

import (
	"context"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/ledger"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const searchLimit = 20

func (s *Service) ListBooks(ctx context.Context, query string, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, repository.BookFilter{Query: query, Page: page, Size: size})
}

// Catalog is the public view of the collection.
func (s *Service) Catalog(ctx context.Context, query string, page, size int) (model.ListBooks, error) {
	return s.ListBooks(ctx, query, page, size)
}

func (s *Service) SearchAvailableBooks(ctx context.Context, query string) ([]model.Book, error) {
	list, err := s.repo.ListBooks(ctx, repository.BookFilter{
		Query:         query,
		AvailableOnly: true,
		Page:          1,
		Size:          searchLimit,
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *Service) GetBook(ctx context.Context, id uuid.UUID) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	return s.repo.GetBookByISBN(ctx, isbn)
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (book model.Book, err error) {
	start := time.Now()
	defer func() { s.observe("create_book", start, err) }()

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return model.Book{}, errors.Wrap(errs.ErrInvalidQuantity, "quantity must be at least 1")
	}
	return s.repo.CreateBook(ctx, model.Book{
		ID:        uuid.New(),
		ISBN:      req.ISBN,
		Title:     req.Title,
		Author:    req.Author,
		Year:      req.Year,
		Quantity:  quantity,
		Available: quantity,
	})
}

// UpdateBook edits the descriptive fields and, when a quantity is given,
// resizes the inventory without losing track of copies on loan.
func (s *Service) UpdateBook(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (book model.Book, err error) {
	start := time.Now()
	defer func() { s.observe("update_book", start, err) }()

	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		var err error
		if book, err = repo.UpdateBook(ctx, id, req); err != nil {
			return err
		}
		if req.Quantity == nil {
			return nil
		}
		book, err = ledger.New(repo).SetQuantity(ctx, id, *req.Quantity)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id uuid.UUID) (err error) {
	start := time.Now()
	defer func() { s.observe("delete_book", start, err) }()

	return s.tx.InTx(ctx, func(repo repository.Repository) error {
		if err := repo.LockBook(ctx, id); err != nil {
			return err
		}
		ok, err := ledger.New(repo).CanDelete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrBookHasActiveLoans
		}
		return repo.DeleteBook(ctx, id)
	})
}
