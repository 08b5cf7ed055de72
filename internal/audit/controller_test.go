package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/testutil"
	"carequeue/pkg/clock"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditRouter(rec *audit.Recorder, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	actor := func(c *gin.Context) {
		middleware.SetActor(c, uuid.New(), role)
		c.Next()
	}
	audit.SetupAuditRoutes(engine.Group("/api/v1"), audit.NewController(rec), actor)
	return engine
}

func TestListLogs(t *testing.T) {
	store := testutil.NewStore()
	rec := audit.NewRecorder(store.Repos().Audit, clock.NewMock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	daycare := uuid.New()
	for _, action := range []domain.AuditAction{domain.AuditCapacityUpdated, domain.AuditOfferSent, domain.AuditOfferSent} {
		require.NoError(t, rec.Record(context.Background(), audit.Event{
			Action: action, EntityType: domain.EntityEntry, EntityID: uuid.New(), DaycareID: daycare,
		}))
	}

	t.Run("filters by action", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/provider/audit?daycare_id="+daycare.String()+"&action=OFFER_SENT", nil)
		newAuditRouter(rec, middleware.RoleProvider).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []domain.AuditLog `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Data, 2)
	})

	t.Run("requires a filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/provider/audit", nil)
		newAuditRouter(rec, middleware.RoleProvider).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("parents are forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/provider/audit?daycare_id="+daycare.String(), nil)
		newAuditRouter(rec, middleware.RoleParent).ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
