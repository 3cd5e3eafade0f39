package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/Astemirdum/school-library/library/migrations"
	"github.com/Astemirdum/school-library/pkg/postgres"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newRepo connects to the database named by LIBRARY_TEST_DSN and applies
// migrations. Tests are skipped when it is not set.
func newRepo(t *testing.T) repository.Repository {
	t.Helper()
	dsn := os.Getenv("LIBRARY_TEST_DSN")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_DSN is not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.Migrate(db, migrations.MigrationFiles))

	repo, err := repository.NewRepository(db, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func createBook(t *testing.T, repo repository.Repository, quantity int) model.Book {
	t.Helper()
	book, err := repo.CreateBook(context.Background(), model.Book{
		ID:        uuid.New(),
		ISBN:      uuid.NewString(),
		Title:     "O Cortiço",
		Author:    "Aluísio Azevedo",
		Year:      "1890",
		Quantity:  quantity,
		Available: quantity,
	})
	require.NoError(t, err)
	return book
}

func createStudent(t *testing.T, repo repository.Repository) model.Student {
	t.Helper()
	st, err := repo.CreateStudent(context.Background(), model.Student{
		ID:         uuid.New(),
		Enrollment: uuid.NewString(),
		Name:       "Bruno",
	})
	require.NoError(t, err)
	return st
}

func TestRepository_ConditionalDecrement(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 3)

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.DecrementAvailable(ctx, book.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, wins)
	got, err := repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Available)

	for i := 0; i < 3; i++ {
		_, ok, err := repo.IncrementAvailable(ctx, book.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, err := repo.IncrementAvailable(ctx, book.ID)
	require.NoError(t, err)
	require.False(t, ok, "available never exceeds quantity")
}

func TestRepository_SetQuantity(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 2)

	_, ok, err := repo.DecrementAvailable(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := repo.SetQuantity(ctx, book.ID, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, got.Quantity)
	require.Equal(t, 4, got.Available)

	_, ok, err = repo.SetQuantity(ctx, book.ID, 0)
	require.NoError(t, err)
	require.False(t, ok, "the copy on loan cannot be removed")

	got, ok, err = repo.SetQuantity(ctx, book.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, got.Available)
}

func TestRepository_LoanLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 1)
	st := createStudent(t, repo)
	now := time.Now().UTC().Truncate(time.Second)

	loan := model.Loan{
		ID:            uuid.New(),
		BookID:        book.ID,
		StudentID:     st.ID,
		LoanDate:      now,
		ReturnDueDate: now.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repo.CreateLoan(ctx, loan))

	got, err := repo.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Book)
	require.Equal(t, book.ISBN, got.Book.ISBN)
	require.NotNil(t, got.Student)
	require.Equal(t, st.Enrollment, got.Student.Enrollment)

	n, err := repo.CountActiveLoansByBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.ErrorIs(t, deleteGuarded(ctx, repo, book.ID), errs.ErrBookHasActiveLoans)

	returned, ok, err := repo.MarkReturned(ctx, loan.ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, returned.Returned)
	_, ok, err = repo.MarkReturned(ctx, loan.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := repo.DeleteLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.True(t, deleted.Returned)
	_, err = repo.DeleteLoan(ctx, loan.ID)
	require.ErrorIs(t, err, errs.ErrLoanNotFound)
}

func deleteGuarded(ctx context.Context, repo repository.Repository, id uuid.UUID) error {
	n, err := repo.CountActiveLoansByBook(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrBookHasActiveLoans
	}
	return repo.DeleteBook(ctx, id)
}

func TestRepository_OrderUnique(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 1)
	st := createStudent(t, repo)

	order := model.ReservationOrder{
		ID:            uuid.New(),
		BookID:        book.ID,
		StudentID:     st.ID,
		ReturnDueDate: time.Now().Add(48 * time.Hour),
		OrderDate:     time.Now(),
	}
	require.NoError(t, repo.CreateOrder(ctx, order))
	order.ID = uuid.New()
	require.ErrorIs(t, repo.CreateOrder(ctx, order), errs.ErrDuplicateRequest)

	pending, err := repo.HasPendingOrder(ctx, book.ID, st.ID)
	require.NoError(t, err)
	require.True(t, pending)
}

func TestRepository_InTxRollback(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 1)
	tx, ok := repo.(repository.Transactor)
	require.True(t, ok)

	failure := errors.New("abort")
	err := tx.InTx(ctx, func(r repository.Repository) error {
		_, ok, err := r.DecrementAvailable(ctx, book.ID)
		require.NoError(t, err)
		require.True(t, ok)
		return failure
	})
	require.ErrorIs(t, err, failure)

	got, err := repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Available)
}

func TestRepository_LockStudentHoldsOffLoanInsert(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 1)
	st := createStudent(t, repo)
	tx, ok := repo.(repository.Transactor)
	require.True(t, ok)

	locked := make(chan struct{})
	deleted := make(chan error, 1)
	go func() {
		deleted <- tx.InTx(ctx, func(r repository.Repository) error {
			err := r.LockStudent(ctx, st.ID)
			close(locked)
			if err != nil {
				return err
			}
			n, err := r.CountActiveLoansByStudent(ctx, st.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errs.ErrStudentHasActiveLoans
			}
			time.Sleep(200 * time.Millisecond)
			return r.DeleteStudent(ctx, st.ID)
		})
	}()
	<-locked

	now := time.Now().UTC()
	err := tx.InTx(ctx, func(r repository.Repository) error {
		_, ok, err := r.DecrementAvailable(ctx, book.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrBookUnavailable
		}
		return r.CreateLoan(ctx, model.Loan{
			ID:            uuid.New(),
			BookID:        book.ID,
			StudentID:     st.ID,
			LoanDate:      now,
			ReturnDueDate: now.Add(24 * time.Hour),
		})
	})
	require.ErrorIs(t, err, errs.ErrStudentNotFound)
	require.NoError(t, <-deleted)

	got, err := repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Available)
	n, err := repo.CountActiveLoansByBook(ctx, book.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRepository_LockMissingRows(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.ErrorIs(t, repo.LockBook(ctx, uuid.New()), errs.ErrBookNotFound)
	require.ErrorIs(t, repo.LockStudent(ctx, uuid.New()), errs.ErrStudentNotFound)
}

func TestRepository_PopularBooksIncludesUnlent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	book := createBook(t, repo, 1)

	books, err := repo.PopularBooks(ctx, 1_000_000)
	require.NoError(t, err)
	var found bool
	for _, b := range books {
		if b.ID == book.ID {
			found = true
			require.Zero(t, b.LoanCount)
		}
	}
	require.True(t, found)
}
