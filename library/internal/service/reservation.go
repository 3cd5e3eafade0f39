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

// CreateReservation records a patron's request for a book. Inventory is not
// touched until an admin approves it.
func (s *Service) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (order model.ReservationOrder, err error) {
	start := time.Now()
	defer func() { s.observe("create_reservation", start, err) }()

	if err = s.checkDueDate(req.ReturnDueDate.Time); err != nil {
		return model.ReservationOrder{}, err
	}
	book, err := s.repo.GetBook(ctx, req.BookID)
	if err != nil {
		return model.ReservationOrder{}, err
	}
	if book.Available <= 0 {
		return model.ReservationOrder{}, errs.ErrBookUnavailable
	}
	student, err := s.repo.GetStudentByEnrollment(ctx, req.StudentEnrollment)
	if err != nil {
		return model.ReservationOrder{}, err
	}
	pending, err := s.repo.HasPendingOrder(ctx, book.ID, student.ID)
	if err != nil {
		return model.ReservationOrder{}, errors.Wrap(err, "HasPendingOrder")
	}
	if pending {
		return model.ReservationOrder{}, errs.ErrDuplicateRequest
	}

	id := uuid.New()
	if err = s.repo.CreateOrder(ctx, model.ReservationOrder{
		ID:            id,
		BookID:        book.ID,
		StudentID:     student.ID,
		ReturnDueDate: req.ReturnDueDate.Time,
		OrderDate:     s.now(),
	}); err != nil {
		return model.ReservationOrder{}, err
	}
	if order, err = s.repo.GetOrder(ctx, id); err != nil {
		return model.ReservationOrder{}, err
	}

	s.publishOrder(ctx, events.ReservationCreated, order, nil, book.Available)
	return order, nil
}

// ApproveReservation turns a pending order into a loan. Of two approvals
// racing for the last copy exactly one wins, the other gets
// errs.ErrBookUnavailable and the order stays pending.
func (s *Service) ApproveReservation(ctx context.Context, id uuid.UUID) (loan model.Loan, err error) {
	start := time.Now()
	defer func() { s.observe("approve_reservation", start, err) }()
	now := s.now()

	var (
		order model.ReservationOrder
		book  model.Book
	)
	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		var err error
		if order, err = repo.LockOrder(ctx, id); err != nil {
			return err
		}
		if book, err = ledger.New(repo).Decrement(ctx, order.BookID); err != nil {
			return err
		}
		loanID := uuid.New()
		if err = repo.CreateLoan(ctx, model.Loan{
			ID:            loanID,
			BookID:        order.BookID,
			StudentID:     order.StudentID,
			LoanDate:      now,
			ReturnDueDate: order.ReturnDueDate,
		}); err != nil {
			return err
		}
		if err = repo.DeleteOrder(ctx, order.ID); err != nil {
			return err
		}
		loan, err = repo.GetLoan(ctx, loanID)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.publishOrder(ctx, events.ReservationApproved, order, &loan.ID, book.Available)
	loan.Late = loan.IsLate(now)
	return loan, nil
}

func (s *Service) RejectReservation(ctx context.Context, id uuid.UUID) (err error) {
	start := time.Now()
	defer func() { s.observe("reject_reservation", start, err) }()

	var (
		order model.ReservationOrder
		book  model.Book
	)
	err = s.tx.InTx(ctx, func(repo repository.Repository) error {
		var err error
		if order, err = repo.LockOrder(ctx, id); err != nil {
			return err
		}
		if book, err = repo.GetBook(ctx, order.BookID); err != nil {
			return err
		}
		return repo.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publishOrder(ctx, events.ReservationRejected, order, nil, book.Available)
	return nil
}

func (s *Service) ListPendingReservations(ctx context.Context) ([]model.ReservationOrder, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "ListOrders")
	}
	return orders, nil
}

func (s *Service) publishOrder(ctx context.Context, typ events.Type, order model.ReservationOrder, loanID *uuid.UUID, available int) {
	orderID := order.ID
	s.events.Publish(ctx, events.Event{
		Type:      typ,
		LoanID:    loanID,
		OrderID:   &orderID,
		BookID:    order.BookID,
		StudentID: order.StudentID,
		Available: available,
		At:        s.now(),
	})
}
