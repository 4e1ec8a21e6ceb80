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

type AnnouncementHandler struct {
	announcementService service.AnnouncementService
	searchService       service.SearchService
}

func NewAnnouncementHandler(announcementService service.AnnouncementService, searchService service.SearchService) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcementService: announcementService,
		searchService:       searchService,
	}
}

func (h *AnnouncementHandler) GetAnnouncements(c *gin.Context) {
	var query dto.AnnouncementListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	page, err := h.announcementService.GetAnnouncements(c.Request.Context(), query.Page, query.Limit, query.Search, query.Category, query.Pinned)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedResponse[*model.Announcement]{
		Data: page.Items,
		Meta: dto.PaginationMeta{
			CurrentPage: page.PageNumber,
			TotalPages:  page.TotalPages(),
			TotalItems:  page.TotalCount,
			Limit:       page.PageSize,
		},
	})
}

func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	announcement, err := h.announcementService.GetAnnouncementByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if announcement == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	announcement, err := h.announcementService.CreateAnnouncement(c.Request.Context(), req.ToModel())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

func (h *AnnouncementHandler) UpdateAnnouncement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	announcement, err := h.announcementService.UpdateAnnouncement(c.Request.Context(), id, req.ToModel())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if announcement == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	deleted, err := h.announcementService.DeleteAnnouncement(c.Request.Context(), id)
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

func (h *AnnouncementHandler) UploadAttachment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attachment file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read attachment file"})
		return
	}
	defer file.Close()

	attachment, err := h.announcementService.AddAttachment(c.Request.Context(), id, service.AttachmentUpload{
		Reader:   file,
		FileName: fileHeader.Filename,
		FileType: fileHeader.Header.Get("Content-Type"),
		FileSize: fileHeader.Size,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

func (h *AnnouncementHandler) RemoveAttachment(c *gin.Context) {
	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment id"})
		return
	}

	removed, err := h.announcementService.RemoveAttachment(c.Request.Context(), attachmentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !removed {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSearchToken hands out a scoped Meilisearch tenant token so the front
// end can query the announcement index directly.
func (h *AnnouncementHandler) GetSearchToken(c *gin.Context) {
	if h.searchService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	token, err := h.searchService.GenerateSearchToken()
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
