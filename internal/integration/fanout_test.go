package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"aftersales/internal/warranty"
)

type fakeIntegration struct {
	name        string
	pushed      []warranty.Event
	ref         string
	pushErr     error
	pingErr     error
	hadDeadline bool
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) Push(ctx context.Context, ev warranty.Event) (string, error) {
	_, f.hadDeadline = ctx.Deadline()
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, ev)
	return f.ref, nil
}

func (f *fakeIntegration) Ping(context.Context) error { return f.pingErr }

func testEvent(eventType string) warranty.Event {
	return warranty.Event{
		WarrantyID: uuid.New(),
		Type:       eventType,
		OccurredAt: time.Date(2026, time.February, 13, 12, 0, 0, 0, time.UTC),
		DaysBefore: 7,
		Record: warranty.Record{
			ProductID:    "prod-1",
			UserID:       "user-1",
			OrderID:      "order-9",
			SerialNumber: "SN-1",
			WarrantyType: "standard",
			StartDate:    time.Date(2026, time.February, 13, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2027, time.February, 13, 0, 0, 0, 0, time.UTC),
			Status:       warranty.StatusActive,
			CreatedAt:    time.Date(2026, time.February, 13, 12, 0, 0, 0, time.UTC),
		},
	}
}

type FanoutSuite struct {
	suite.Suite

	refs   *MemoryRefStore
	logger *slog.Logger
}

func TestFanoutSuite(t *testing.T) {
	suite.Run(t, new(FanoutSuite))
}

func (s *FanoutSuite) SetupTest() {
	s.refs = NewMemoryRefStore()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *FanoutSuite) TestFailureDoesNotStopOtherIntegrations() {
	broken := &fakeIntegration{name: "crm", pushErr: errors.New("boom")}
	healthy := &fakeIntegration{name: "ticketing", ref: "T-1"}
	fanout := NewFanout([]Integration{broken, healthy}, s.refs, s.logger)

	ev := testEvent(warranty.EventCreated)
	fanout.Handle(context.Background(), ev)

	s.Len(healthy.pushed, 1, "healthy integration must still receive the event")

	ref, err := s.refs.Get(context.Background(), "ticketing", ev.WarrantyID)
	s.Require().NoError(err)
	s.Equal("T-1", ref)
}

func (s *FanoutSuite) TestEmptyExternalIDIsNotRecorded() {
	in := &fakeIntegration{name: "accounting"}
	fanout := NewFanout([]Integration{in}, s.refs, s.logger)

	ev := testEvent(warranty.EventExpiring)
	fanout.Handle(context.Background(), ev)

	ref, err := s.refs.Get(context.Background(), "accounting", ev.WarrantyID)
	s.Require().NoError(err)
	s.Empty(ref)
}

func (s *FanoutSuite) TestEveryPushIsBoundedByADeadline() {
	in := &fakeIntegration{name: "crm", ref: "C-1"}
	fanout := NewFanout([]Integration{in}, s.refs, s.logger, WithPushTimeout(time.Second))

	// Events arrive on a detached context with no deadline of its own.
	fanout.Handle(context.Background(), testEvent(warranty.EventCreated))

	s.Require().Len(in.pushed, 1)
	s.True(in.hadDeadline, "push must run under a per-call deadline")
}

func (s *FanoutSuite) TestCheckConnections() {
	up := &fakeIntegration{name: "crm"}
	down := &fakeIntegration{name: "ticketing", pingErr: errors.New("refused")}
	fanout := NewFanout([]Integration{up, down}, s.refs, s.logger)

	status := fanout.CheckConnections(context.Background())

	s.Equal(map[string]bool{"crm": true, "ticketing": false}, status)
}

func TestCRMCreateThenUpdate(t *testing.T) {
	var gotCreate, gotUpdate crmWarrantyPayload
	var updatePath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCreate))
			json.NewEncoder(w).Encode(map[string]string{"id": "CRM-77"})
		case http.MethodPut:
			updatePath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotUpdate))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	refs := NewMemoryRefStore()
	crm, err := NewCRM(server.Client(), server.URL, "secret", refs)
	require.NoError(t, err)

	ev := testEvent(warranty.EventCreated)
	id, err := crm.Push(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "CRM-77", id)
	require.Equal(t, ev.WarrantyID.String(), gotCreate.WarrantyID)
	require.Equal(t, "SN-1", gotCreate.Product.SerialNumber)
	require.Equal(t, "2027-02-13", gotCreate.Warranty.EndDate)

	require.NoError(t, refs.Set(context.Background(), crm.Name(), ev.WarrantyID, id))

	ev.Type = warranty.EventStatusChanged
	ev.Record.Status = warranty.StatusRevoked
	id, err = crm.Push(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "CRM-77", id)
	require.Equal(t, "/warranties/CRM-77", updatePath)
	require.Equal(t, "revoked", gotUpdate.Warranty.Status)
}

func TestCRMUpdateWithoutSyncedRecordIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	crm, err := NewCRM(server.Client(), server.URL, "secret", NewMemoryRefStore())
	require.NoError(t, err)

	id, err := crm.Push(context.Background(), testEvent(warranty.EventStatusChanged))
	require.NoError(t, err)
	require.Empty(t, id)
}

func TestTicketingOnlyReactsToExpiry(t *testing.T) {
	var tickets int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tickets++
		json.NewEncoder(w).Encode(map[string]string{"id": "T-5"})
	}))
	defer server.Close()

	ticketing, err := NewTicketing(server.Client(), server.URL, "secret", "high", true)
	require.NoError(t, err)

	id, err := ticketing.Push(context.Background(), testEvent(warranty.EventCreated))
	require.NoError(t, err)
	require.Empty(t, id)
	require.Zero(t, tickets)

	id, err = ticketing.Push(context.Background(), testEvent(warranty.EventExpiring))
	require.NoError(t, err)
	require.Equal(t, "T-5", id)
	require.Equal(t, 1, tickets)
}

func TestAccountingSkipsRecordsWithoutOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "INV-3"})
	}))
	defer server.Close()

	accounting, err := NewAccounting(server.Client(), server.URL, "secret")
	require.NoError(t, err)

	ev := testEvent(warranty.EventCreated)
	ev.Record.OrderID = ""
	id, err := accounting.Push(context.Background(), ev)
	require.NoError(t, err)
	require.Empty(t, id)

	ev.Record.OrderID = "order-9"
	id, err = accounting.Push(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "INV-3", id)
}
