package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

func NewPaging(page, size, total int) Paging {
	p := Paging{Page: page, PageSize: size, TotalElements: total}
	if size > 0 {
		p.TotalPages = (total + size - 1) / size
	}
	return p
}

type Book struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ISBN      string    `json:"isbn" db:"isbn"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Year      string    `json:"year" db:"year"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Available int       `json:"available" db:"available"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OnLoan is the number of copies currently lent out.
func (b Book) OnLoan() int {
	return b.Quantity - b.Available
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type PopularBook struct {
	Book
	LoanCount int `json:"loanCount" db:"loan_count"`
}

type Class struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Year string    `json:"year" db:"year"`
}

type Student struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Enrollment string     `json:"enrollment" db:"enrollment"`
	Name       string     `json:"name" db:"name"`
	Phone      *string    `json:"phone,omitempty" db:"phone"`
	ClassID    *uuid.UUID `json:"classId,omitempty" db:"class_id"`
	ClassName  *string    `json:"className,omitempty" db:"class_name"`
}

type ListStudents struct {
	Paging `json:",inline"`
	Items  []Student `json:"items"`
}

type Loan struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	BookID           uuid.UUID  `json:"bookId" db:"book_id"`
	StudentID        uuid.UUID  `json:"studentId" db:"student_id"`
	LoanDate         time.Time  `json:"loanDate" db:"loan_date"`
	ReturnDueDate    time.Time  `json:"returnDueDate" db:"return_due_date"`
	Returned         bool       `json:"returned" db:"returned"`
	ActualReturnDate *time.Time `json:"actualReturnDate,omitempty" db:"actual_return_date"`
	Late             bool       `json:"late" db:"-"`

	Book    *Book    `json:"book,omitempty" db:"book"`
	Student *Student `json:"student,omitempty" db:"student"`
}

// IsLate reports whether the loan is still out past its due date.
func (l Loan) IsLate(now time.Time) bool {
	return !l.Returned && l.ReturnDueDate.Before(now)
}

type ReservationOrder struct {
	ID            uuid.UUID `json:"id" db:"id"`
	BookID        uuid.UUID `json:"bookId" db:"book_id"`
	StudentID     uuid.UUID `json:"studentId" db:"student_id"`
	ReturnDueDate time.Time `json:"returnDueDate" db:"return_due_date"`
	OrderDate     time.Time `json:"orderDate" db:"order_date"`

	Book    *Book    `json:"book,omitempty" db:"book"`
	Student *Student `json:"student,omitempty" db:"student"`
}

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type DashboardStats struct {
	TotalBooks              int           `json:"totalBooks"`
	AvailableBooks          int           `json:"availableBooks"`
	LoanedBooks             int           `json:"loanedBooks"`
	TotalStudents           int           `json:"totalStudents"`
	StudentsWithActiveLoans int           `json:"studentsWithActiveLoans"`
	ActiveLoans             int           `json:"activeLoans"`
	LateLoans               int           `json:"lateLoans"`
	TotalLoans              int           `json:"totalLoans"`
	LoansThisMonth          int           `json:"loansThisMonth"`
	RecentLoans             []Loan        `json:"recentLoans"`
	PopularBooks            []PopularBook `json:"popularBooks"`
}

// Date accepts either a calendar date (YYYY-MM-DD), meaning the end of that
// day in UTC, or a full RFC 3339 timestamp.
type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(b []byte) (err error) {
	s := strings.Trim(string(b), "\"")
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if date, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = date.Add(24*time.Hour - time.Second).UTC()
		return nil
	}
	date, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = date.UTC()
	return nil
}

type CreateBookRequest struct {
	ISBN     string `json:"isbn" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Year     string `json:"year"`
	Quantity *int   `json:"quantity"`
}

type UpdateBookRequest struct {
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Year     string `json:"year"`
	Quantity *int   `json:"quantity"`
}

type CreateStudentRequest struct {
	Enrollment string     `json:"enrollment" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	Phone      *string    `json:"phone"`
	ClassID    *uuid.UUID `json:"classId"`
}

type UpdateStudentRequest struct {
	Name    string     `json:"name" validate:"required"`
	Phone   *string    `json:"phone"`
	ClassID *uuid.UUID `json:"classId"`
}

type CreateLoanRequest struct {
	BookID        uuid.UUID `json:"bookId" validate:"required"`
	StudentID     uuid.UUID `json:"studentId" validate:"required"`
	ReturnDueDate Date      `json:"returnDueDate"`
}

type CreateReservationRequest struct {
	BookID            uuid.UUID `json:"bookId" validate:"required"`
	StudentEnrollment string    `json:"studentEnrollment" validate:"required"`
	ReturnDueDate     Date      `json:"returnDueDate"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignInResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type CreateUserRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=5"`
}

// Result is the envelope every API response is wrapped in.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}
