package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkItem_Finish(t *testing.T) {
	workErr := errors.New("work failed")

	tests := []struct {
		name      string
		cancel    error
		err       error
		want      outcome
		wantErrIs []error
	}{
		{
			name: "success",
			want: outcomeCompleted,
		},
		{
			name:      "failure keeps the work error",
			err:       workErr,
			want:      outcomeFailed,
			wantErrIs: []error{workErr},
		},
		{
			name:      "failure caused by cancellation",
			cancel:    ErrEngineStopping,
			err:       fmt.Errorf("query: %w", context.Canceled),
			want:      outcomeCanceled,
			wantErrIs: []error{ErrCanceled, ErrEngineStopping},
		},
		{
			name:      "unrelated failure after cancellation",
			cancel:    ErrEngineStopping,
			err:       workErr,
			want:      outcomeFailed,
			wantErrIs: []error{workErr},
		},
		{
			name: "superseded",
			err:  errSuperseded,
			want: outcomeSuperseded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, future := newTestItem(nil)
			if tt.cancel != nil {
				item.cancel(tt.cancel)
			}
			if tt.err == nil {
				future.resolve(struct{}{}, nil)
			}

			assert.Equal(t, tt.want, item.finish(tt.err))

			if len(tt.wantErrIs) > 0 {
				_, err := future.Result()
				for _, target := range tt.wantErrIs {
					assert.ErrorIs(t, err, target)
				}
			}
		})
	}
}

func TestWorkItem_AbortAndRelease(t *testing.T) {
	item, future := newTestItem(nil)
	var released int
	item.onRelease = func(*WorkItem) { released++ }

	assert.True(t, item.begin())
	assert.True(t, item.abort(ErrShutdownAborted))
	assert.False(t, item.abort(ErrShutdownAborted), "only the first resolution counts")
	assert.ErrorIs(t, context.Cause(item.Context()), ErrShutdownAborted)
	assert.False(t, item.begin())
	assert.True(t, item.Resolved())

	_, err := future.Result()
	assert.ErrorIs(t, err, ErrShutdownAborted)

	item.release()
	item.release()
	assert.Equal(t, 1, released)
}

func TestWorkItem_CancelWhileQueued(t *testing.T) {
	item, future := newTestItem(nil)

	assert.True(t, item.cancelWhileQueued())
	assert.True(t, item.canceledQueued.Load())
	assert.False(t, item.cancelWhileQueued())

	_, err := future.Result()
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "completed", outcomeCompleted.String())
	assert.Equal(t, "failed", outcomeFailed.String())
	assert.Equal(t, "canceled", outcomeCanceled.String())
	assert.Equal(t, "superseded", outcomeSuperseded.String())
}
