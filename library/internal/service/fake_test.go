package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/google/uuid"
)

// memStore is an in-memory Repository and Transactor. Transactions are
// serialized and work on a copy that replaces the live data on success.
type memStore struct {
	mu sync.Mutex
	d  *memData
}

type memData struct {
	books    map[uuid.UUID]model.Book
	students map[uuid.UUID]model.Student
	classes  []model.Class
	loans    map[uuid.UUID]model.Loan
	orders   map[uuid.UUID]model.ReservationOrder
	users    map[uuid.UUID]model.User
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		books:    map[uuid.UUID]model.Book{},
		students: map[uuid.UUID]model.Student{},
		loans:    map[uuid.UUID]model.Loan{},
		orders:   map[uuid.UUID]model.ReservationOrder{},
		users:    map[uuid.UUID]model.User{},
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		books:    make(map[uuid.UUID]model.Book, len(d.books)),
		students: make(map[uuid.UUID]model.Student, len(d.students)),
		classes:  append([]model.Class(nil), d.classes...),
		loans:    make(map[uuid.UUID]model.Loan, len(d.loans)),
		orders:   make(map[uuid.UUID]model.ReservationOrder, len(d.orders)),
		users:    make(map[uuid.UUID]model.User, len(d.users)),
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.loans {
		c.loans[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

func (s *memStore) repo() *memRepo {
	return &memRepo{store: s}
}

func (s *memStore) InTx(_ context.Context, fn func(repo repository.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.d.clone()
	if err := fn(&memRepo{store: s, tx: tx}); err != nil {
		return err
	}
	s.d = tx
	return nil
}

func (s *memStore) book(id uuid.UUID) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.books[id]
}

func (s *memStore) activeLoans(bookID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.d.loans {
		if l.BookID == bookID && !l.Returned {
			n++
		}
	}
	return n
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.orders)
}

type memRepo struct {
	store *memStore
	tx    *memData
}

var _ repository.Repository = (*memRepo)(nil)

func (r *memRepo) with(fn func(d *memData) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.d)
}

func matches(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func page[T any](items []T, p, size int) []T {
	if p == 0 || size == 0 {
		return items
	}
	from := (p - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

func (r *memRepo) GetBook(_ context.Context, id uuid.UUID) (book model.Book, err error) {
	err = r.with(func(d *memData) error {
		b, ok := d.books[id]
		if !ok {
			return errs.ErrBookNotFound
		}
		book = b
		return nil
	})
	return book, err
}

func (r *memRepo) LockBook(ctx context.Context, id uuid.UUID) error {
	_, err := r.GetBook(ctx, id)
	return err
}

func (r *memRepo) GetBookByISBN(_ context.Context, isbn string) (book model.Book, err error) {
	err = r.with(func(d *memData) error {
		for _, b := range d.books {
			if b.ISBN == isbn {
				book = b
				return nil
			}
		}
		return errs.ErrBookNotFound
	})
	return book, err
}

func (r *memRepo) ListBooks(_ context.Context, f repository.BookFilter) (list model.ListBooks, err error) {
	err = r.with(func(d *memData) error {
		items := make([]model.Book, 0)
		for _, b := range d.books {
			if f.AvailableOnly && b.Available <= 0 {
				continue
			}
			if matches(f.Query, b.Title, b.Author, b.ISBN) {
				items = append(items, b)
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
		list = model.ListBooks{Paging: model.NewPaging(f.Page, f.Size, len(items)), Items: page(items, f.Page, f.Size)}
		return nil
	})
	return list, err
}

func (r *memRepo) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	err := r.with(func(d *memData) error {
		for _, b := range d.books {
			if b.ISBN == book.ISBN {
				return errs.ErrDuplicateISBN
			}
		}
		d.books[book.ID] = book
		return nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (r *memRepo) UpdateBook(_ context.Context, id uuid.UUID, req model.UpdateBookRequest) (book model.Book, err error) {
	err = r.with(func(d *memData) error {
		b, ok := d.books[id]
		if !ok {
			return errs.ErrBookNotFound
		}
		b.Title, b.Author, b.Year = req.Title, req.Author, req.Year
		d.books[id] = b
		book = b
		return nil
	})
	return book, err
}

func (r *memRepo) DeleteBook(_ context.Context, id uuid.UUID) error {
	return r.with(func(d *memData) error {
		if _, ok := d.books[id]; !ok {
			return errs.ErrBookNotFound
		}
		delete(d.books, id)
		for k, l := range d.loans {
			if l.BookID == id {
				delete(d.loans, k)
			}
		}
		for k, o := range d.orders {
			if o.BookID == id {
				delete(d.orders, k)
			}
		}
		return nil
	})
}

func (r *memRepo) guardedBook(id uuid.UUID, apply func(b *model.Book) bool) (book model.Book, ok bool, err error) {
	err = r.with(func(d *memData) error {
		b, found := d.books[id]
		if !found || !apply(&b) {
			return nil
		}
		d.books[id] = b
		book, ok = b, true
		return nil
	})
	return book, ok, err
}

func (r *memRepo) DecrementAvailable(_ context.Context, id uuid.UUID) (model.Book, bool, error) {
	return r.guardedBook(id, func(b *model.Book) bool {
		if b.Available <= 0 {
			return false
		}
		b.Available--
		return true
	})
}

func (r *memRepo) IncrementAvailable(_ context.Context, id uuid.UUID) (model.Book, bool, error) {
	return r.guardedBook(id, func(b *model.Book) bool {
		if b.Available >= b.Quantity {
			return false
		}
		b.Available++
		return true
	})
}

func (r *memRepo) SetQuantity(_ context.Context, id uuid.UUID, quantity int) (model.Book, bool, error) {
	return r.guardedBook(id, func(b *model.Book) bool {
		available := b.Available + (quantity - b.Quantity)
		if available < 0 {
			return false
		}
		b.Available, b.Quantity = available, quantity
		return true
	})
}

func (r *memRepo) CountActiveLoansByBook(_ context.Context, id uuid.UUID) (n int, err error) {
	err = r.with(func(d *memData) error {
		for _, l := range d.loans {
			if l.BookID == id && !l.Returned {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memRepo) GetStudent(_ context.Context, id uuid.UUID) (st model.Student, err error) {
	err = r.with(func(d *memData) error {
		s, ok := d.students[id]
		if !ok {
			return errs.ErrStudentNotFound
		}
		st = s
		return nil
	})
	return st, err
}

func (r *memRepo) LockStudent(ctx context.Context, id uuid.UUID) error {
	_, err := r.GetStudent(ctx, id)
	return err
}

func (r *memRepo) GetStudentByEnrollment(_ context.Context, enrollment string) (st model.Student, err error) {
	err = r.with(func(d *memData) error {
		for _, s := range d.students {
			if s.Enrollment == enrollment {
				st = s
				return nil
			}
		}
		return errs.ErrStudentNotFound
	})
	return st, err
}

func (r *memRepo) ListStudents(_ context.Context, f repository.StudentFilter) (list model.ListStudents, err error) {
	err = r.with(func(d *memData) error {
		items := make([]model.Student, 0)
		for _, s := range d.students {
			if matches(f.Query, s.Name, s.Enrollment) {
				items = append(items, s)
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		list = model.ListStudents{Paging: model.NewPaging(f.Page, f.Size, len(items)), Items: page(items, f.Page, f.Size)}
		return nil
	})
	return list, err
}

func (r *memRepo) CreateStudent(_ context.Context, student model.Student) (model.Student, error) {
	err := r.with(func(d *memData) error {
		for _, s := range d.students {
			if s.Enrollment == student.Enrollment {
				return errs.ErrDuplicateEnrollment
			}
		}
		d.students[student.ID] = student
		return nil
	})
	if err != nil {
		return model.Student{}, err
	}
	return student, nil
}

func (r *memRepo) UpdateStudent(_ context.Context, id uuid.UUID, req model.UpdateStudentRequest) (st model.Student, err error) {
	err = r.with(func(d *memData) error {
		s, ok := d.students[id]
		if !ok {
			return errs.ErrStudentNotFound
		}
		s.Name, s.Phone, s.ClassID = req.Name, req.Phone, req.ClassID
		d.students[id] = s
		st = s
		return nil
	})
	return st, err
}

func (r *memRepo) DeleteStudent(_ context.Context, id uuid.UUID) error {
	return r.with(func(d *memData) error {
		if _, ok := d.students[id]; !ok {
			return errs.ErrStudentNotFound
		}
		delete(d.students, id)
		for k, l := range d.loans {
			if l.StudentID == id {
				delete(d.loans, k)
			}
		}
		return nil
	})
}

func (r *memRepo) CountActiveLoansByStudent(_ context.Context, id uuid.UUID) (n int, err error) {
	err = r.with(func(d *memData) error {
		for _, l := range d.loans {
			if l.StudentID == id && !l.Returned {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memRepo) ListClasses(context.Context) ([]model.Class, error) {
	var classes []model.Class
	err := r.with(func(d *memData) error {
		classes = append(classes, d.classes...)
		return nil
	})
	return classes, err
}

func joinLoan(d *memData, l model.Loan) model.Loan {
	b, st := d.books[l.BookID], d.students[l.StudentID]
	l.Book, l.Student = &b, &st
	return l
}

func (r *memRepo) CreateLoan(_ context.Context, loan model.Loan) error {
	return r.with(func(d *memData) error {
		d.loans[loan.ID] = loan
		return nil
	})
}

func (r *memRepo) GetLoan(_ context.Context, id uuid.UUID) (loan model.Loan, err error) {
	err = r.with(func(d *memData) error {
		l, ok := d.loans[id]
		if !ok {
			return errs.ErrLoanNotFound
		}
		loan = joinLoan(d, l)
		return nil
	})
	return loan, err
}

func (r *memRepo) ListLoans(_ context.Context, f repository.LoanFilter) ([]model.Loan, error) {
	loans := make([]model.Loan, 0)
	err := r.with(func(d *memData) error {
		for _, l := range d.loans {
			if f.ActiveOnly && l.Returned {
				continue
			}
			loans = append(loans, joinLoan(d, l))
		}
		return nil
	})
	sort.Slice(loans, func(i, j int) bool { return loans[i].LoanDate.After(loans[j].LoanDate) })
	if f.Limit > 0 && len(loans) > f.Limit {
		loans = loans[:f.Limit]
	}
	return loans, err
}

func (r *memRepo) MarkReturned(_ context.Context, id uuid.UUID, at time.Time) (loan model.Loan, ok bool, err error) {
	err = r.with(func(d *memData) error {
		l, found := d.loans[id]
		if !found || l.Returned {
			return nil
		}
		l.Returned = true
		l.ActualReturnDate = &at
		d.loans[id] = l
		loan, ok = l, true
		return nil
	})
	return loan, ok, err
}

func (r *memRepo) DeleteLoan(_ context.Context, id uuid.UUID) (loan model.Loan, err error) {
	err = r.with(func(d *memData) error {
		l, ok := d.loans[id]
		if !ok {
			return errs.ErrLoanNotFound
		}
		delete(d.loans, id)
		loan = l
		return nil
	})
	return loan, err
}

func (r *memRepo) CreateOrder(_ context.Context, order model.ReservationOrder) error {
	return r.with(func(d *memData) error {
		for _, o := range d.orders {
			if o.BookID == order.BookID && o.StudentID == order.StudentID {
				return errs.ErrDuplicateRequest
			}
		}
		d.orders[order.ID] = order
		return nil
	})
}

func (r *memRepo) HasPendingOrder(_ context.Context, bookID, studentID uuid.UUID) (found bool, err error) {
	err = r.with(func(d *memData) error {
		for _, o := range d.orders {
			if o.BookID == bookID && o.StudentID == studentID {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r *memRepo) GetOrder(_ context.Context, id uuid.UUID) (order model.ReservationOrder, err error) {
	err = r.with(func(d *memData) error {
		o, ok := d.orders[id]
		if !ok {
			return errs.ErrOrderNotFound
		}
		b, st := d.books[o.BookID], d.students[o.StudentID]
		o.Book, o.Student = &b, &st
		order = o
		return nil
	})
	return order, err
}

func (r *memRepo) LockOrder(ctx context.Context, id uuid.UUID) (model.ReservationOrder, error) {
	return r.GetOrder(ctx, id)
}

func (r *memRepo) ListOrders(context.Context) ([]model.ReservationOrder, error) {
	orders := make([]model.ReservationOrder, 0)
	err := r.with(func(d *memData) error {
		for _, o := range d.orders {
			orders = append(orders, o)
		}
		return nil
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderDate.After(orders[j].OrderDate) })
	return orders, err
}

func (r *memRepo) DeleteOrder(_ context.Context, id uuid.UUID) error {
	return r.with(func(d *memData) error {
		if _, ok := d.orders[id]; !ok {
			return errs.ErrOrderNotFound
		}
		delete(d.orders, id)
		return nil
	})
}

func (r *memRepo) SumQuantity(context.Context) (n int, err error) {
	err = r.with(func(d *memData) error {
		for _, b := range d.books {
			n += b.Quantity
		}
		return nil
	})
	return n, err
}

func (r *memRepo) CountAvailableBooks(context.Context) (n int, err error) {
	err = r.with(func(d *memData) error {
		for _, b := range d.books {
			if b.Available > 0 {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memRepo) CountStudents(context.Context) (n int, err error) {
	err = r.with(func(d *memData) error {
		n = len(d.students)
		return nil
	})
	return n, err
}

func (r *memRepo) CountStudentsWithActiveLoans(context.Context) (n int, err error) {
	err = r.with(func(d *memData) error {
		seen := map[uuid.UUID]struct{}{}
		for _, l := range d.loans {
			if !l.Returned {
				seen[l.StudentID] = struct{}{}
			}
		}
		n = len(seen)
		return nil
	})
	return n, err
}

func (r *memRepo) CountLoans(_ context.Context, f repository.LoanCountFilter) (n int, err error) {
	err = r.with(func(d *memData) error {
		for _, l := range d.loans {
			switch {
			case f.ActiveOnly && l.Returned:
			case f.DueBefore != nil && !l.ReturnDueDate.Before(*f.DueBefore):
			case f.From != nil && l.LoanDate.Before(*f.From):
			case f.To != nil && !l.LoanDate.Before(*f.To):
			default:
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memRepo) PopularBooks(_ context.Context, limit int) ([]model.PopularBook, error) {
	books := make([]model.PopularBook, 0)
	err := r.with(func(d *memData) error {
		counts := map[uuid.UUID]int{}
		for _, l := range d.loans {
			counts[l.BookID]++
		}
		for id, b := range d.books {
			books = append(books, model.PopularBook{Book: b, LoanCount: counts[id]})
		}
		return nil
	})
	sort.Slice(books, func(i, j int) bool {
		if books[i].LoanCount != books[j].LoanCount {
			return books[i].LoanCount > books[j].LoanCount
		}
		return books[i].Title < books[j].Title
	})
	if len(books) > limit {
		books = books[:limit]
	}
	return books, err
}

func (r *memRepo) CreateUser(_ context.Context, user model.User) (model.User, error) {
	err := r.with(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == user.Email {
				return errs.ErrDuplicateEmail
			}
		}
		d.users[user.ID] = user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (user model.User, err error) {
	err = r.with(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == email {
				user = u
				return nil
			}
		}
		return errs.ErrUserNotFound
	})
	return user, err
}
