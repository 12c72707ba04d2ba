package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/testutil"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func otpStores(t *testing.T) map[string]func() OTPStore {
	return map[string]func() OTPStore{
		"memory":   func() OTPStore { return NewMemoryOTPStore() },
		"database": func() OTPStore { return NewGormOTPStore(testutil.NewDB(t)) },
	}
}

func newOTPService(store OTPStore, clock *fakeClock) *OTPService {
	svc := NewOTPService(store)
	svc.now = clock.Now
	return svc
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOTPGenerateProducesSixDigits(t *testing.T) {
	svc := newOTPService(NewMemoryOTPStore(), newClock())

	for i := 0; i < 20; i++ {
		code, err := svc.Generate(context.Background(), "a@example.com", models.OTPPurposeSignup)
		require.NoError(t, err)
		require.Len(t, code, OTPLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', code)
		}
	}
}

func TestOTPGenerateRejectsBadInput(t *testing.T) {
	svc := newOTPService(NewMemoryOTPStore(), newClock())

	_, err := svc.Generate(context.Background(), "  ", models.OTPPurposeSignup)
	assert.Error(t, err)

	_, err = svc.Generate(context.Background(), "a@example.com", models.OTPPurpose("login"))
	assert.Error(t, err)
}

func TestOTPVerifySucceedsOnceThenNotFound(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newOTPService(newStore(), newClock())

			code, err := svc.Generate(ctx, "Buyer@Example.com", models.OTPPurposeSignup)
			require.NoError(t, err)

			res := svc.Verify(ctx, "buyer@example.com", code)
			assert.True(t, res.Success)
			assert.Equal(t, VerifyOK, res.Reason)
			assert.Equal(t, models.OTPPurposeSignup, res.Purpose)

			res = svc.Verify(ctx, "buyer@example.com", code)
			assert.False(t, res.Success)
			assert.Equal(t, VerifyNotFound, res.Reason)
		})
	}
}

func TestOTPWrongCodeCostsOneAttempt(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			svc := newOTPService(store, newClock())

			code, err := svc.Generate(ctx, "a@example.com", models.OTPPurposeReset)
			require.NoError(t, err)

			for attempt := 1; attempt <= OTPMaxAttempts; attempt++ {
				res := svc.Verify(ctx, "a@example.com", wrongCode(code))
				assert.Equal(t, VerifyInvalidCode, res.Reason)
				assert.Equal(t, OTPMaxAttempts-attempt, res.Remaining)

				rec, err := store.Get(ctx, "a@example.com")
				require.NoError(t, err, "record must survive wrong attempt %d", attempt)
				assert.Equal(t, attempt, rec.Attempts)
			}

			res := svc.Verify(ctx, "a@example.com", code)
			assert.False(t, res.Success)
			assert.Equal(t, VerifyAttemptsExceeded, res.Reason)

			_, err = store.Get(ctx, "a@example.com")
			assert.ErrorIs(t, err, ErrOTPNotFound)
		})
	}
}

func TestOTPConcurrentWrongGuessesRespectCeiling(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newOTPService(newStore(), newClock())

			code, err := svc.Generate(ctx, "race@example.com", models.OTPPurposeSignup)
			require.NoError(t, err)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				evaluated int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res := svc.Verify(ctx, "race@example.com", wrongCode(code))
					if res.Reason == VerifyInvalidCode {
						mu.Lock()
						evaluated++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.LessOrEqual(t, evaluated, OTPMaxAttempts)
			assert.False(t, svc.Verify(ctx, "race@example.com", code).Success)
		})
	}
}

func TestOTPStoreAddAttemptStopsAtCeiling(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			require.NoError(t, store.Put(ctx, &models.OTPRecord{
				Email:     "a@example.com",
				Code:      "123456",
				Purpose:   models.OTPPurposeSignup,
				ExpiresAt: time.Now().Add(OTPTTL),
			}))

			for want := 1; want <= OTPMaxAttempts; want++ {
				got, err := store.AddAttempt(ctx, "a@example.com", "123456", OTPMaxAttempts)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			got, err := store.AddAttempt(ctx, "a@example.com", "123456", OTPMaxAttempts)
			assert.ErrorIs(t, err, ErrOTPExhausted)
			assert.Equal(t, OTPMaxAttempts, got)

			_, err = store.AddAttempt(ctx, "a@example.com", "654321", OTPMaxAttempts)
			assert.ErrorIs(t, err, ErrOTPNotFound)
			_, err = store.AddAttempt(ctx, "b@example.com", "123456", OTPMaxAttempts)
			assert.ErrorIs(t, err, ErrOTPNotFound)
		})
	}
}

func TestOTPTwoWrongAttemptsThenCorrect(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()
	svc := newOTPService(store, newClock())

	code, err := svc.Generate(ctx, "shopper@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	assert.False(t, svc.Verify(ctx, "shopper@example.com", wrongCode(code)).Success)
	assert.False(t, svc.Verify(ctx, "shopper@example.com", wrongCode(code)).Success)

	rec, err := store.Get(ctx, "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Attempts)

	res := svc.Verify(ctx, "shopper@example.com", code)
	assert.True(t, res.Success)
}

func TestOTPExpiry(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			store := newStore()
			svc := newOTPService(store, clock)

			code, err := svc.Generate(ctx, "late@example.com", models.OTPPurposeSignup)
			require.NoError(t, err)

			clock.Advance(OTPTTL + time.Second)
			res := svc.Verify(ctx, "late@example.com", code)
			assert.Equal(t, VerifyExpired, res.Reason)

			_, err = store.Get(ctx, "late@example.com")
			assert.ErrorIs(t, err, ErrOTPNotFound)
		})
	}
}

func TestOTPGenerateOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()
	svc := newOTPService(store, newClock())

	first, err := svc.Generate(ctx, "a@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	svc.Verify(ctx, "a@example.com", wrongCode(first))

	second, err := svc.Generate(ctx, "a@example.com", models.OTPPurposeReset)
	require.NoError(t, err)

	rec, err := store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, second, rec.Code)
	assert.Equal(t, 0, rec.Attempts)
	assert.Equal(t, models.OTPPurposeReset, rec.Purpose)
}

func TestOTPRemainingSecondsIsMonotonic(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	svc := newOTPService(NewMemoryOTPStore(), clock)

	assert.Equal(t, 0, svc.RemainingSeconds(ctx, "nobody@example.com"))

	_, err := svc.Generate(ctx, "a@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, 600, svc.RemainingSeconds(ctx, "a@example.com"))

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 599, svc.RemainingSeconds(ctx, "a@example.com"))

	prev := svc.RemainingSeconds(ctx, "a@example.com")
	for i := 0; i < 50; i++ {
		clock.Advance(17 * time.Second)
		cur := svc.RemainingSeconds(ctx, "a@example.com")
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0)
		prev = cur
	}
	assert.Equal(t, 0, prev)
}

func TestOTPSweepRemovesOnlyExpired(t *testing.T) {
	for name, newStore := range otpStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			store := newStore()
			svc := newOTPService(store, clock)

			_, err := svc.Generate(ctx, "old@example.com", models.OTPPurposeSignup)
			require.NoError(t, err)
			clock.Advance(8 * time.Minute)
			_, err = svc.Generate(ctx, "new@example.com", models.OTPPurposeSignup)
			require.NoError(t, err)
			clock.Advance(3 * time.Minute)

			assert.Equal(t, int64(1), svc.Sweep(ctx))

			_, err = store.Get(ctx, "old@example.com")
			assert.ErrorIs(t, err, ErrOTPNotFound)
			_, err = store.Get(ctx, "new@example.com")
			assert.NoError(t, err)
		})
	}
}

func TestOTPSweeperStopsWithContext(t *testing.T) {
	store := NewMemoryOTPStore()
	clock := newClock()
	svc := newOTPService(store, clock)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Generate(ctx, "a@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	svc.StartSweeper(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "a@example.com")
		return err != nil
	}, time.Second, 10*time.Millisecond)
	cancel()
}
