package service

import (
	"context"
	"time"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	recentLoansLimit  = 5
	popularBooksLimit = 5
)

func (s *Service) Stats(ctx context.Context) (model.DashboardStats, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var st model.DashboardStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalBooks, err = s.repo.SumQuantity(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.AvailableBooks, err = s.repo.CountAvailableBooks(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalStudents, err = s.repo.CountStudents(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.StudentsWithActiveLoans, err = s.repo.CountStudentsWithActiveLoans(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.ActiveLoans, err = s.repo.CountLoans(ctx, repository.LoanCountFilter{ActiveOnly: true})
		return err
	})
	g.Go(func() (err error) {
		st.LateLoans, err = s.repo.CountLoans(ctx, repository.LoanCountFilter{ActiveOnly: true, DueBefore: &now})
		return err
	})
	g.Go(func() (err error) {
		st.TotalLoans, err = s.repo.CountLoans(ctx, repository.LoanCountFilter{})
		return err
	})
	g.Go(func() (err error) {
		st.LoansThisMonth, err = s.repo.CountLoans(ctx, repository.LoanCountFilter{From: &monthStart, To: &monthEnd})
		return err
	})
	g.Go(func() (err error) {
		st.RecentLoans, err = s.repo.ListLoans(ctx, repository.LoanFilter{Limit: recentLoansLimit})
		return err
	})
	g.Go(func() (err error) {
		st.PopularBooks, err = s.repo.PopularBooks(ctx, popularBooksLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Stats", zap.Error(err))
		return model.DashboardStats{}, err
	}

	// copies minus titles with a copy on the shelf
	st.LoanedBooks = st.TotalBooks - st.AvailableBooks
	for i := range st.RecentLoans {
		st.RecentLoans[i].Late = st.RecentLoans[i].IsLate(now)
	}
	return st, nil
}
