package handler

import (
	"context"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/google/uuid"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	ListBooks(ctx context.Context, query string, page, size int) (model.ListBooks, error)
	Catalog(ctx context.Context, query string, page, size int) (model.ListBooks, error)
	SearchAvailableBooks(ctx context.Context, query string) ([]model.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error

	ListStudents(ctx context.Context, query string, page, size int) (model.ListStudents, error)
	SearchStudents(ctx context.Context, query string) ([]model.Student, error)
	GetStudentByEnrollment(ctx context.Context, enrollment string) (model.Student, error)
	CreateStudent(ctx context.Context, req model.CreateStudentRequest) (model.Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, req model.UpdateStudentRequest) (model.Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) error
	ListClasses(ctx context.Context) ([]model.Class, error)

	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, id uuid.UUID) (model.Loan, error)
	CancelLoan(ctx context.Context, id uuid.UUID) error
	ListLoans(ctx context.Context, activeOnly bool) ([]model.Loan, error)

	CreateReservation(ctx context.Context, req model.CreateReservationRequest) (model.ReservationOrder, error)
	ApproveReservation(ctx context.Context, id uuid.UUID) (model.Loan, error)
	RejectReservation(ctx context.Context, id uuid.UUID) error
	ListPendingReservations(ctx context.Context) ([]model.ReservationOrder, error)

	Stats(ctx context.Context) (model.DashboardStats, error)
	SignIn(ctx context.Context, req model.SignInRequest) (model.SignInResponse, error)
}
