package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type questionService interface {
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	ListPublic(ctx context.Context, surahID string) ([]models.PublicQuestion, error)
	Get(ctx context.Context, id string) (*models.Question, error)
	Create(ctx context.Context, req models.QuestionRequest, actor *models.JWTClaims) (*models.Question, error)
	Update(ctx context.Context, id string, req models.QuestionRequest, actor *models.JWTClaims) (*models.Question, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

type answerService interface {
	Submit(ctx context.Context, authUserID, questionID string, req models.SubmitAnswerRequest) (*models.Answer, error)
	Submissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error)
	Grade(ctx context.Context, id string, req models.GradeRequest, actor *models.JWTClaims) (*models.Answer, error)
}

// QuestionHandler exposes the MCQ bank and learner answers.
type QuestionHandler struct {
	questions questionService
	answers   answerService
}

// NewQuestionHandler constructs a QuestionHandler.
func NewQuestionHandler(questions questionService, answers answerService) *QuestionHandler {
	return &QuestionHandler{questions: questions, answers: answers}
}

// PublicList godoc
// @Summary Questions of a surah without the answer key
// @Tags Questions
// @Produce json
// @Param surah_id query string true "Surah ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /questions [get]
func (h *QuestionHandler) PublicList(c *gin.Context) {
	surahID := c.Query("surah_id")
	if surahID == "" {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "surah_id is required", map[string]string{"surah_id": "required"}))
		return
	}
	questions, err := h.questions.ListPublic(c.Request.Context(), surahID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// Submit godoc
// @Summary Answer a question
// @Description Each learner may answer a question once
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body models.SubmitAnswerRequest true "Answer"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /questions/{id}/answers [post]
func (h *QuestionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid answer payload"))
		return
	}
	answer, err := h.answers.Submit(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, answer)
}

// List godoc
// @Summary List questions
// @Tags Admin Questions
// @Produce json
// @Param surah_id query string false "Surah ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.questions.List(c.Request.Context(), models.QuestionFilter{SurahID: c.Query("surah_id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// Get godoc
// @Summary Get a question
// @Tags Admin Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/questions/{id} [get]
func (h *QuestionHandler) Get(c *gin.Context) {
	q, err := h.questions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// Create godoc
// @Summary Create a question
// @Tags Admin Questions
// @Accept json
// @Produce json
// @Param payload body models.QuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid question payload"))
		return
	}
	q, err := h.questions.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// Update godoc
// @Summary Update a question
// @Tags Admin Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body models.QuestionRequest true "Question payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/questions/{id} [put]
func (h *QuestionHandler) Update(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid question payload"))
		return
	}
	q, err := h.questions.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// Delete godoc
// @Summary Delete a question
// @Tags Admin Questions
// @Param id path string true "Question ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/questions/{id} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	if err := h.questions.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submissions godoc
// @Summary List learner answers
// @Tags Admin Submissions
// @Produce json
// @Param surah_id query string false "Surah ID"
// @Param ungraded query bool false "Only answers without marks"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions [get]
func (h *QuestionHandler) Submissions(c *gin.Context) {
	page, size := pageQuery(c)
	ungraded, _ := strconv.ParseBool(c.Query("ungraded"))
	rows, pagination, err := h.answers.Submissions(c.Request.Context(), models.SubmissionFilter{
		SurahID:  c.Query("surah_id"),
		Ungraded: ungraded,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Grade godoc
// @Summary Grade an answer
// @Tags Admin Submissions
// @Accept json
// @Produce json
// @Param id path string true "Answer ID"
// @Param payload body models.GradeRequest true "Marks and feedback"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions/{id}/grade [put]
func (h *QuestionHandler) Grade(c *gin.Context) {
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid grade payload"))
		return
	}
	answer, err := h.answers.Grade(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, answer, nil)
}
