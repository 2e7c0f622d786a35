package integrity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"campaignmerch_backend/platform/httpkit"
)

type fakeSweepScheduler struct {
	requestedBy []string
	err         error
}

func (f *fakeSweepScheduler) EnqueueSweep(_ context.Context, requestedBy string) error {
	if f.err != nil {
		return f.err
	}
	f.requestedBy = append(f.requestedBy, requestedBy)
	return nil
}

func newSweepRequest(userID string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/integrity/sweep", nil)
	if userID != "" {
		c.Set(httpkit.ContextUserIDKey, userID)
	}
	return w, c
}

func TestSweepEndpointEnqueuesWhenSchedulerSet(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	handler := NewHandler(fx.sweeper)
	sched := &fakeSweepScheduler{}
	handler.SetSweepScheduler(sched)

	w, c := newSweepRequest("admin-1")
	handler.Sweep(c)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if len(sched.requestedBy) != 1 || sched.requestedBy[0] != "admin-1" {
		t.Fatalf("enqueued = %+v, want one request by admin-1", sched.requestedBy)
	}
	if fx.sweeper.GetLastReport() != nil {
		t.Fatalf("sweep must not run in-request when a scheduler is set")
	}
}

func TestSweepEndpointRunsSynchronouslyWithoutScheduler(t *testing.T) {
	fx := newSweeperFixture(t, DefaultOptions())

	handler := NewHandler(fx.sweeper)

	w, c := newSweepRequest("")
	handler.Sweep(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if fx.sweeper.GetLastReport() == nil {
		t.Fatalf("synchronous sweep should record a report")
	}
}
