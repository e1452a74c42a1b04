package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// multipartSlack covers form boundaries and headers around the file part.
const multipartSlack = 1 << 20

// KnowledgeHandler serves /v1/companies/:company_id/knowledge-base. The
// tenant always comes from the authenticated principal; the path id is only
// checked against it by RequireCompanyScope.
type KnowledgeHandler struct {
	kb     *service.KnowledgeService
	logger *zap.Logger
}

func NewKnowledgeHandler(kb *service.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{kb: kb, logger: logger}
}

type uploadTextRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content" binding:"required"`
}

// Setup handles POST /knowledge-base/setup
func (h *KnowledgeHandler) Setup(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	kb, err := h.kb.Setup(c.Request.Context(), companyID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}

// Status handles GET /knowledge-base
func (h *KnowledgeHandler) Status(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	st, err := h.kb.Status(c.Request.Context(), companyID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// List handles GET /knowledge-base/documents
func (h *KnowledgeHandler) List(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	docs, err := h.kb.List(c.Request.Context(), companyID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}

// UploadText handles POST /knowledge-base/documents/text
func (h *KnowledgeHandler) UploadText(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.kb.MaxUploadBytes()+multipartSlack)
	var req uploadTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(c, h.logger, apperr.PayloadTooLarge("File too large"))
			return
		}
		writeBindError(c, err)
		return
	}
	doc, err := h.kb.UploadText(c.Request.Context(), companyID, req.Filename, req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UploadFile handles POST /knowledge-base/documents/file (multipart "file").
func (h *KnowledgeHandler) UploadFile(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	limit := h.kb.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(c, h.logger, apperr.PayloadTooLarge("File too large"))
			return
		}
		writeError(c, h.logger, apperr.Validation("file is required"))
		return
	}
	if fh.Size > limit {
		writeError(c, h.logger, apperr.PayloadTooLarge("File too large"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, h.logger, apperr.Internal("open upload", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		writeError(c, h.logger, apperr.Internal("read upload", err))
		return
	}

	doc, err := h.kb.UploadFile(c.Request.Context(), companyID, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// Delete handles DELETE /knowledge-base/documents/:doc_id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	docID, err := uuid.Parse(c.Param("doc_id"))
	if err != nil {
		writeError(c, h.logger, apperr.NotFound("Document not found"))
		return
	}
	if err := h.kb.Delete(c.Request.Context(), companyID, docID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

// Clear handles DELETE /knowledge-base/documents
func (h *KnowledgeHandler) Clear(c *gin.Context) {
	companyID, ok := h.tenant(c)
	if !ok {
		return
	}
	n, err := h.kb.Clear(c.Request.Context(), companyID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Knowledge base cleared", "deleted": n})
}

// tenant returns the company of the authenticated principal. Non-company
// callers get 403 and the handler stops.
func (h *KnowledgeHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	p := middleware.GetPrincipal(c)
	if err := service.RequireCompany(p); err != nil {
		writeError(c, h.logger, err)
		return uuid.Nil, false
	}
	return p.CompanyID, true
}
