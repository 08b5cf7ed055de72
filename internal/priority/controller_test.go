package priority_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"carequeue/internal/priority"
	"carequeue/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(svc priority.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	actor := func(c *gin.Context) {
		middleware.SetActor(c, uuid.New(), middleware.RoleProvider)
		c.Next()
	}
	priority.SetupRuleRoutes(engine.Group("/api/v1"), priority.NewController(svc), actor)
	return engine
}

func TestRuleRoutes(t *testing.T) {
	f := newFixture(t)
	engine := newRouter(f.svc)
	daycare := uuid.New()

	body, _ := json.Marshal(map[string]interface{}{
		"daycare_id": daycare,
		"name":       "Siblings",
		"rule_type":  "SIBLING_ENROLLED",
		"points":     20,
	})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/provider/priority-rules", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/provider/priority-rules?daycare_id="+daycare.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Siblings")

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/provider/priority-rules/"+created.Data.ID,
		bytes.NewReader([]byte(`{"rule_type":"LOTTERY"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/provider/priority-rules/"+uuid.NewString(),
		bytes.NewReader([]byte(`{"points":1}`))))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/provider/priority-rules", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
