package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wiyata.com/edurecords/internal/dto"
	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/service"
	"wiyata.com/edurecords/pkg/apperror"
	"wiyata.com/edurecords/pkg/response"
	"wiyata.com/edurecords/pkg/validator"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

func (h *DocumentHandler) GetDocuments(c *gin.Context) {
	var query dto.DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	page, err := h.documentService.GetDocuments(c.Request.Context(), query.Page, query.Limit, query.Search, query.Category)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedResponse[*model.Document]{
		Data: page.Items,
		Meta: dto.PaginationMeta{
			CurrentPage: page.PageNumber,
			TotalPages:  page.TotalPages(),
			TotalItems:  page.TotalCount,
			Limit:       page.PageSize,
		},
	})
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := h.documentService.GetDocumentByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if doc == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req dto.DocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read document file"})
		return
	}
	defer file.Close()

	doc, err := h.documentService.CreateDocument(c.Request.Context(), req.ToModel(), service.DocumentUpload{
		Reader:   file,
		FileName: fileHeader.Filename,
		FileType: fileHeader.Header.Get("Content-Type"),
		FileSize: fileHeader.Size,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	var req dto.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	doc, err := h.documentService.UpdateDocument(c.Request.Context(), id, req.ToModel())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if doc == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	deleted, err := h.documentService.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !deleted {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}
