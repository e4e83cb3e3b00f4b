package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestHeaderRetryCount_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int64
	}{
		{"nil headers", nil, 0},
		{"absent header", amqp.Table{"other": "x"}, 0},
		{"int64 value", amqp.Table{retryCountHeader: int64(2)}, 2},
		{"int32 value", amqp.Table{retryCountHeader: int32(1)}, 1},
		{"int value", amqp.Table{retryCountHeader: 3}, 3},
		{"float64 value", amqp.Table{retryCountHeader: float64(2)}, 2},
		{"garbage value", amqp.Table{retryCountHeader: "two"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := headerRetryCount(tc.headers); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestWithRetryCount_PreservesHeaders(t *testing.T) {
	in := amqp.Table{"x-origin-queue": "email", retryCountHeader: int64(1)}
	out := withRetryCount(in, 2)

	if out[retryCountHeader] != int64(2) {
		t.Fatalf("expected count 2, got %v", out[retryCountHeader])
	}
	if out["x-origin-queue"] != "email" {
		t.Fatalf("expected origin header preserved, got %v", out["x-origin-queue"])
	}
	// Input table must not be mutated: the original delivery is acked or
	// requeued with its own headers intact.
	if in[retryCountHeader] != int64(1) {
		t.Fatalf("input table was mutated: %v", in[retryCountHeader])
	}
}

// The retry policy increments before comparing, so a message that has
// already burned retryLimit-1 attempts dead-letters on its next failure.
func TestNextAttempt_Boundary(t *testing.T) {
	tests := []struct {
		name       string
		priorCount int64
		wantCount  int64
		exhausted  bool
	}{
		{"first failure retries", 0, 1, false},
		{"second failure retries", 1, 2, false},
		{"third failure dead-letters", 2, 3, true},
		{"already past limit dead-letters", 5, 6, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			count, exhausted := nextAttempt(tc.priorCount)
			if count != tc.wantCount || exhausted != tc.exhausted {
				t.Fatalf("prior=%d: expected (%d, %v), got (%d, %v)",
					tc.priorCount, tc.wantCount, tc.exhausted, count, exhausted)
			}
		})
	}
}
