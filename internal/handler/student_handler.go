package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wiyata.com/edurecords/internal/dto"
	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/service"
	"wiyata.com/edurecords/pkg/apperror"
	"wiyata.com/edurecords/pkg/response"
	"wiyata.com/edurecords/pkg/storage"
	"wiyata.com/edurecords/pkg/validator"
)

const exportRateLimit = 30 * time.Second

type StudentHandler struct {
	studentService service.StudentService
	files          storage.FileStorage
	rdb            *redis.Client
}

func NewStudentHandler(studentService service.StudentService, files storage.FileStorage, rdb *redis.Client) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
		files:          files,
		rdb:            rdb,
	}
}

func (h *StudentHandler) GetStudents(c *gin.Context) {
	var query dto.StudentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	page, err := h.studentService.GetStudents(c.Request.Context(), query.Page, query.Limit, query.Search, query.Grade, model.StudentStatus(query.Status))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedResponse[*model.Student]{
		Data: page.Items,
		Meta: dto.PaginationMeta{
			CurrentPage: page.PageNumber,
			TotalPages:  page.TotalPages(),
			TotalItems:  page.TotalCount,
			Limit:       page.PageSize,
		},
	})
}

func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}

	student, err := h.studentService.GetStudentByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if student == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) GetStudentByStudentID(c *gin.Context) {
	student, err := h.studentService.GetStudentByStudentID(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if student == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req dto.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	student, err := h.studentService.CreateStudent(c.Request.Context(), req.ToModel())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}

	var req dto.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	student, err := h.studentService.UpdateStudent(c.Request.Context(), id, req.ToModel())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if student == nil {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}

	deleted, err := h.studentService.DeleteStudent(c.Request.Context(), id)
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

func (h *StudentHandler) UploadAvatar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read avatar file"})
		return
	}
	defer file.Close()

	url, err := h.files.UploadFile(c.Request.Context(), file, "avatars", fileHeader.Filename)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := h.studentService.UpdateStudentAvatar(c.Request.Context(), id, url)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !updated {
		response.ResponseError(c, apperror.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

func (h *StudentHandler) GetStatistics(c *gin.Context) {
	stats, err := h.studentService.GetStudentStatistics(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StudentHandler) ExportStudents(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), h.rdb, userID, "export_students", exportRateLimit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !allowed {
		response.ResponseError(c, apperror.ErrRateLimitExceeded)
		return
	}

	var query dto.StudentExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	data, err := h.studentService.ExportStudentsToCSV(c.Request.Context(), query.Search, query.Grade, model.StudentStatus(query.Status))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="students.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
