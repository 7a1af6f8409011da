package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type flakyBackendError struct{}

func (flakyBackendError) Error() string { return "backend flaked" }

type exchangeRejectedError struct{}

func (exchangeRejectedError) Error() string { return "exchange rejected" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "deadline collapses through wrapping",
			err:  fmt.Errorf("load: %w", context.DeadlineExceeded),
			want: "deadline_exceeded",
		},
		{
			name: "cancellation",
			err:  context.Canceled,
			want: "canceled",
		},
		{
			name: "single wrap reaches the concrete type",
			err:  fmt.Errorf("outer: %w", flakyBackendError{}),
			want: "errors_flakybackenderror",
		},
		{
			name: "sentinel-first double wrap classifies the cause",
			err:  fmt.Errorf("exchange: %w: %w", exchangeRejectedError{}, flakyBackendError{}),
			want: "errors_flakybackenderror",
		},
		{
			name: "pointer types report the element type",
			err:  &pgconn.PgError{Code: "23505"},
			want: "pgconn_pgerror",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
