package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

const (
	questionImagesField = "question_images"
	maxQuestionImages   = 200
	// Form fields other than files are small; larger parts spill to temp files.
	multipartMemory = 8 << 20
)

// QuizHandler handles quiz authoring and quiz reads.
type QuizHandler struct {
	cfg         *config.Config
	quizService *service.QuizService
	log         zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(cfg *config.Config, quizService *service.QuizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		cfg:         cfg,
		quizService: quizService,
		log:         log.With().Str("component", "quiz_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/quizzes
// Multipart form: quiz fields, a JSON "questions" array and "question_images" files.
func (h *QuizHandler) Create(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"detail": "expected multipart/form-data"})
		return
	}
	defer func() {
		if err := c.Request.MultipartForm.RemoveAll(); err != nil {
			h.log.Warn().Err(err).Msg("Failed to remove multipart temp files")
		}
	}()

	var form model.CreateQuizForm
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := service.ParseQuestions(form.Questions)
	if err != nil {
		fail(c, err)
		return
	}

	files := c.Request.MultipartForm.File[questionImagesField]
	if len(files) > maxQuestionImages {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{questionImagesField: fmt.Sprintf("at most %d images are allowed", maxQuestionImages)})
		return
	}
	images, err := h.readImages(files)
	if err != nil {
		fail(c, err)
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), who, &model.NewQuiz{
		Title:           form.Title,
		Description:     form.Description,
		StartTime:       form.StartTime,
		EndTime:         form.EndTime,
		DurationMinutes: form.Duration,
		Department:      form.Department,
		Batch:           form.Batch,
		Questions:       questions,
		Images:          images,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, quiz)
}

// readImages buffers each attachment, refusing oversized ones before reading them whole.
func (h *QuizHandler) readImages(files []*multipart.FileHeader) ([]model.UploadedImage, error) {
	images := make([]model.UploadedImage, 0, len(files))
	for _, fh := range files {
		if fh.Size > h.cfg.MaxUploadBytes {
			return nil, fmt.Errorf("%w: %s", service.ErrFileTooLarge, fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		images = append(images, model.UploadedImage{Filename: fh.Filename, Size: fh.Size, Data: data})
	}
	return images, nil
}

// List godoc
// GET /api/v1/quizzes
// Admins see every quiz, staff their own.
func (h *QuizHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	quizzes, err := h.quizService.List(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, quizzes)
}

// ListAvailable godoc
// GET /api/v1/quizzes/available
// Quizzes the student can take right now, with the server clock.
func (h *QuizHandler) ListAvailable(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	avail, err := h.quizService.ListAvailable(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, avail)
}

// Get godoc
// GET /api/v1/quizzes/:id
// Students receive the payload without answers; authors receive the full quiz.
func (h *QuizHandler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var (
		data interface{}
		err  error
	)
	switch who.Role {
	case model.RoleStudent:
		data, err = h.quizService.GetForStudent(c.Request.Context(), id, who)
	case model.RoleStaff, model.RoleAdmin:
		data, err = h.quizService.GetFull(c.Request.Context(), id, who)
	default:
		err = service.ErrForbidden
	}
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}

// QuestionImage godoc
// GET /api/v1/quizzes/:id/questions/:question_id/image
// Streams the stored image bytes.
func (h *QuizHandler) QuestionImage(c *gin.Context) {
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}
	questionID, ok := paramID(c, "question_id")
	if !ok {
		return
	}

	data, contentType, err := h.quizService.QuestionImage(c.Request.Context(), quizID, questionID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// Delete godoc
// DELETE /api/v1/quizzes/:id
func (h *QuizHandler) Delete(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, who); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
