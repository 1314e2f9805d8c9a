package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/wizard"
	"mortgage-funnel/internal/wizard/store"
)

type fixture struct {
	mem     *store.Memory
	tracker *wizard.Tracker
	sid     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	tr := wizard.NewTracker(mem, logger.NewTestLogger(t))
	sid, err := tr.Create(context.Background())
	require.NoError(t, err)
	return &fixture{mem: mem, tracker: tr, sid: sid}
}

func refinanceAnswers(t *testing.T) *wizard.Answers {
	t.Helper()
	a := &wizard.Answers{}
	for _, kv := range [][2]string{
		{wizard.KeyLoanType, "refinance"},
		{wizard.KeyIsUAEResident, "true"},
		{wizard.KeyResidencyStatus, "uae-resident"},
		{wizard.KeyRefinanceReason, "lower-rate"},
		{wizard.KeyCurrentRate, "3-to-3-5"},
		{wizard.KeyRemainingBalance, "500k-1m"},
		{wizard.KeyPropertyValue, "2m-5m"},
		{wizard.KeyMonthlyIncomeRefinance, "15k-30k"},
		{wizard.KeyFullName, "Jane Doe"},
		{wizard.KeyEmail, "jane@example.com"},
		{wizard.KeyPhoneNumber, "+971501234567"},
	} {
		require.NoError(t, a.Set(kv[0], kv[1]))
	}
	return a
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	var got map[string]interface{}
	var gotSession string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, CreatePath, r.URL.Path)
		gotSession = r.Header.Get(SessionHeader)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"app-42","status":"New Lead","submittedAt":"2024-03-01T09:00:00Z","trackingNumber":"NM-LT6Y-AP42"}}`))
	}))
	defer srv.Close()

	gw := New(Config{BaseURL: srv.URL + "/"}, f.tracker, nil, logger.NewTestLogger(t))
	res, err := gw.Submit(context.Background(), refinanceAnswers(t))
	require.NoError(t, err)

	assert.Equal(t, "app-42", res.ID)
	assert.Equal(t, "NM-LT6Y-AP42", res.TrackingNumber)
	assert.False(t, res.Degraded)
	assert.Equal(t, f.sid, gotSession)

	assert.Equal(t, "15k-30k", got["monthlyIncome"])
	assert.Equal(t, true, got["isUAEResident"])
	assert.NotContains(t, got, wizard.KeyMonthlyIncomeRefinance)

	id, ok, _ := f.mem.Get(context.Background(), wizard.KeyApplicationID)
	assert.True(t, ok)
	assert.Equal(t, "app-42", id)
}

func TestSubmit_MissingFieldsSendsNothing(t *testing.T) {
	f := newFixture(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	a := refinanceAnswers(t)
	a.Contact.Email = ""

	gw := New(Config{BaseURL: srv.URL}, f.tracker, nil, logger.NewTestLogger(t))
	res, err := gw.Submit(context.Background(), a)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Contains(t, err.Error(), "Missing required information: email")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name           string
		policy         FailurePolicy
		handler        http.HandlerFunc
		closeServer    bool
		wantErr        bool
		validateResult func(t *testing.T, res *Result)
	}{
		{
			name:        "network error pretends success",
			policy:      PolicyPretendSuccess,
			closeServer: true,
			validateResult: func(t *testing.T, res *Result) {
				assert.True(t, res.Degraded)
				assert.NotEmpty(t, res.PendingID)
				assert.Empty(t, res.ID)
			},
		},
		{
			name:   "server error pretends success",
			policy: PolicyPretendSuccess,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"success":false,"message":"Failed to submit application","errorCode":"SLA_001"}`))
			},
			validateResult: func(t *testing.T, res *Result) {
				assert.True(t, res.Degraded)
				assert.Contains(t, res.Cause, "Failed to submit application")
			},
		},
		{
			name:   "rate limit surfaces error",
			policy: PolicySurfaceError,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success":false,"message":"Daily submission limit reached."}`))
			},
			wantErr: true,
		},
		{
			name:   "unconfirmed 200 is a failure",
			policy: PolicySurfaceError,
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"message":"nope"}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			handler := tt.handler
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {}
			}
			srv := httptest.NewServer(handler)
			if tt.closeServer {
				srv.Close()
			} else {
				defer srv.Close()
			}

			ledger := NewMemoryLedger()
			gw := New(Config{BaseURL: srv.URL, Policy: tt.policy, Timeout: 2 * time.Second}, f.tracker, ledger, logger.NewTestLogger(t))
			res, err := gw.Submit(context.Background(), refinanceAnswers(t))

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSubmissionFailed)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				tt.validateResult(t, res)
			}

			// contact details stay in the store either way
			email, ok, _ := f.mem.Get(context.Background(), wizard.KeyEmail)
			assert.True(t, ok)
			assert.Equal(t, "jane@example.com", email)

			pending, err := ledger.List(context.Background())
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, f.sid, pending[0].SessionID)
			assert.Equal(t, "15k-30k", pending[0].Payload["monthlyIncome"])
		})
	}
}

func TestSubmit_DegradedFlowStillCompletes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	w := wizard.New(mem, logger.NewTestLogger(t))
	_, err := w.Start(ctx)
	require.NoError(t, err)

	for _, kv := range [][2]string{
		{wizard.KeyLoanType, "refinance"},
		{wizard.KeyResidencyStatus, "uae-resident"},
		{wizard.KeyRefinanceReason, "lower-rate"},
		{wizard.KeyCurrentRate, "3-to-3-5"},
		{wizard.KeyRemainingBalance, "500k-1m"},
		{wizard.KeyPropertyValue, "2m-5m"},
		{wizard.KeyMonthlyIncomeRefinance, "15k-30k"},
	} {
		_, err := w.Answer(ctx, kv[0], kv[1])
		require.NoError(t, err)
	}
	_, err = w.CaptureContact(ctx, wizard.ContactDetails{FullName: "Jane Doe", Email: "jane@example.com", PhoneNumber: "+971501234567"})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	answers, err := wizard.LoadAnswers(ctx, mem)
	require.NoError(t, err)
	gw := New(Config{BaseURL: srv.URL}, w.Tracker(), nil, logger.NewTestLogger(t))
	res, err := gw.Submit(ctx, answers)
	require.NoError(t, err)
	require.True(t, res.Degraded)

	state, err := w.Complete(ctx, res.Degraded)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateComplete, state)

	for _, key := range []string{wizard.KeyFullName, wizard.KeyEmail, wizard.KeyPhoneNumber} {
		_, ok, _ := mem.Get(ctx, key)
		assert.True(t, ok, key)
	}
}

func TestResend(t *testing.T) {
	f := newFixture(t)
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"app-7","status":"New Lead","trackingNumber":"NM-X-AP7"}}`))
	}))
	defer srv.Close()

	ledger := NewMemoryLedger()
	gw := New(Config{BaseURL: srv.URL}, f.tracker, ledger, logger.NewTestLogger(t))
	res, err := gw.Submit(context.Background(), refinanceAnswers(t))
	require.NoError(t, err)
	require.True(t, res.Degraded)

	sent, err := gw.Resend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	up.Store(true)
	sent, err = gw.Resend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	pending, _ := ledger.List(context.Background())
	assert.Empty(t, pending)
}

func TestRedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	l := NewRedisLedger(client, logger.NewTestLogger(t))
	require.NoError(t, l.Append(ctx, PendingSubmission{ID: "p1", Payload: map[string]interface{}{"loanType": "refinance"}, Error: "timeout"}))
	require.NoError(t, l.Append(ctx, PendingSubmission{ID: "p2", Error: "status 502"}))

	items, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "refinance", items[0].Payload["loanType"])

	require.NoError(t, l.Remove(ctx, "p1"))
	require.NoError(t, l.Remove(ctx, "unknown"))

	items, err = l.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)

	n, err := client.LLen(ctx, LedgerKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisLedger_UndecodableEntriesAreReported(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := context.Background()
	l := NewRedisLedger(client, logger.NewZapAdapter(zap.New(core)))

	require.NoError(t, client.RPush(ctx, LedgerKey, "{not json").Err())
	require.NoError(t, l.Append(ctx, PendingSubmission{ID: "p1", Error: "timeout"}))

	items, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)

	entries := logs.FilterMessage("skipping undecodable pending submission").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].ContextMap()["index"])

	n, err := client.LLen(ctx, LedgerKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStoreLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := NewStoreLedger(f.mem)

	items, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, l.Append(ctx, PendingSubmission{ID: "p1", Error: "timeout"}))
	require.NoError(t, l.Append(ctx, PendingSubmission{ID: "p2", Error: "status 502"}))

	require.NoError(t, f.tracker.Clear(ctx))
	items, err = l.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2, "clearing the session keeps the ledger")

	require.NoError(t, l.Remove(ctx, "p1"))
	require.NoError(t, l.Remove(ctx, "p2"))
	_, ok, err := f.mem.Get(ctx, LedgerKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPretendSuccess, p)

	p, err = ParsePolicy("surface-error")
	require.NoError(t, err)
	assert.Equal(t, PolicySurfaceError, p)

	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}
