package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrapped not found", errors.Wrap(ErrLoanNotFound, "ReturnLoan"), KindNotFound},
		{"fmt wrapped conflict", fmt.Errorf("approve: %w", ErrBookUnavailable), KindConflict},
		{"active loans", ErrBookHasActiveLoans, KindConflict},
		{"quantity", ErrInvalidQuantity, KindInvalid},
		{"credentials", ErrInvalidCredentials, KindUnauthorized},
		{"inconsistent is internal", ErrInventoryInconsistent, KindInternal},
		{"unknown", errors.New("connection refused"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
