package service

import (
	"context"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/events"
	"github.com/Astemirdum/school-library/library/internal/ledger"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreateLoan takes one copy out of inventory and opens a loan for the student.
func (s *Service) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (loan model.Loan, err error) {
	start := time.Now()
	defer func() { s.observe("create_loan", start, err) }()
	now := s.now()
	if err = s.checkDueDate(req.ReturnDueDate.Time); err != nil {
		return model.Loan{}, err
	}

	var book model.Book
	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		var err error
		if book, err = ledger.New(repo).Decrement(ctx, req.BookID); err != nil {
			return err
		}
		if _, err = repo.GetStudent(ctx, req.StudentID); err != nil {
			return err
		}
		id := uuid.New()
		if err = repo.CreateLoan(ctx, model.Loan{
			ID:            id,
			BookID:        req.BookID,
			StudentID:     req.StudentID,
			LoanDate:      now,
			ReturnDueDate: req.ReturnDueDate.Time,
		}); err != nil {
			return err
		}
		loan, err = repo.GetLoan(ctx, id)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.publishLoan(ctx, events.LoanCreated, loan, book.Available)
	loan.Late = loan.IsLate(now)
	return loan, nil
}

// ReturnLoan closes an active loan and gives its copy back.
func (s *Service) ReturnLoan(ctx context.Context, id uuid.UUID) (loan model.Loan, err error) {
	start := time.Now()
	defer func() { s.observe("return_loan", start, err) }()
	now := s.now()

	var book model.Book
	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		returned, ok, err := repo.MarkReturned(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := repo.GetLoan(ctx, id); err != nil {
				return err
			}
			return errs.ErrAlreadyReturned
		}
		if book, err = ledger.New(repo).Increment(ctx, returned.BookID); err != nil {
			return err
		}
		loan, err = repo.GetLoan(ctx, id)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.publishLoan(ctx, events.LoanReturned, loan, book.Available)
	return loan, nil
}

// CancelLoan deletes the loan. Its copy goes back to inventory only if the
// loan was still active.
func (s *Service) CancelLoan(ctx context.Context, id uuid.UUID) (err error) {
	start := time.Now()
	defer func() { s.observe("cancel_loan", start, err) }()

	var (
		loan model.Loan
		book model.Book
	)
	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		var err error
		if loan, err = repo.DeleteLoan(ctx, id); err != nil {
			return err
		}
		if loan.Returned {
			book, err = repo.GetBook(ctx, loan.BookID)
			return err
		}
		book, err = ledger.New(repo).Increment(ctx, loan.BookID)
		return err
	})
	if err != nil {
		return err
	}

	s.publishLoan(ctx, events.LoanCancelled, loan, book.Available)
	return nil
}

func (s *Service) ListLoans(ctx context.Context, activeOnly bool) ([]model.Loan, error) {
	loans, err := s.repo.ListLoans(ctx, repository.LoanFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, errors.Wrap(err, "ListLoans")
	}
	now := s.now()
	for i := range loans {
		loans[i].Late = loans[i].IsLate(now)
	}
	return loans, nil
}

func (s *Service) publishLoan(ctx context.Context, typ events.Type, loan model.Loan, available int) {
	id := loan.ID
	s.events.Publish(ctx, events.Event{
		Type:      typ,
		LoanID:    &id,
		BookID:    loan.BookID,
		StudentID: loan.StudentID,
		Available: available,
		At:        s.now(),
	})
}
