package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/repository/memory"
	"github.com/lalith-99/chatelio/internal/service"
	"github.com/lalith-99/chatelio/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// knowledgeRouter mounts KnowledgeHandler with a fixed principal and no
// scope middleware.
func knowledgeRouter(kb *service.KnowledgeService, p auth.Principal) *gin.Engine {
	r := gin.New()
	h := NewKnowledgeHandler(kb, zap.NewNop())
	g := r.Group("/v1/companies/:company_id/knowledge-base", func(c *gin.Context) {
		c.Set(middleware.ContextKeyPrincipal, p)
		c.Next()
	})
	g.GET("/documents", h.List)
	g.POST("/documents/text", h.UploadText)
	g.DELETE("/documents", h.Clear)
	return r
}

func TestKnowledgeHandler_TenantFromPrincipal(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	vectors := vectorstore.NewMemory()
	kb := service.NewKnowledgeService(memory.NewKnowledgeBaseStore(db), vectors, nil, 1024, 3, zap.NewNop())

	own, foreign := uuid.New(), uuid.New()
	_, err := kb.UploadText(ctx, foreign, "theirs.txt", "foreign refund policy")
	require.NoError(t, err)

	r := knowledgeRouter(kb, auth.CompanyPrincipal(own))
	path := "/v1/companies/" + foreign.String() + "/knowledge-base/documents"

	w := do(t, r, http.MethodPost, path+"/text", "", gin.H{"filename": "ours.txt", "content": "our shipping policy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ours, err := kb.List(ctx, own)
	require.NoError(t, err)
	require.Len(t, ours, 1)
	assert.Equal(t, "ours.txt", ours[0].Filename)

	w = do(t, r, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	theirs, err := kb.List(ctx, foreign)
	require.NoError(t, err)
	assert.Len(t, theirs, 1, "foreign documents must survive")
	snippets, err := kb.Retrieve(ctx, foreign, "refund policy", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, snippets, "foreign namespace must survive")
}

func TestKnowledgeHandler_RejectsNonCompanyPrincipal(t *testing.T) {
	kb := service.NewKnowledgeService(memory.NewKnowledgeBaseStore(memory.NewDB()), vectorstore.NewMemory(), nil, 1024, 3, zap.NewNop())
	companyID := uuid.New()
	r := knowledgeRouter(kb, auth.UserPrincipal(companyID, uuid.New()))

	w := do(t, r, http.MethodGet, "/v1/companies/"+companyID.String()+"/knowledge-base/documents", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
