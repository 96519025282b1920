// Package handlers maps the core's external operations onto fiber HTTP
// routes: next-drill, stats, lesson start/next, and themes.
// Handlers are thin -- body decoding, user-id extraction, and JSON
// marshaling only; every decision lives in internal/services.
package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/services"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
)

// Handler wires the drill and lesson services to fiber routes.
type Handler struct {
	Drills  *services.DrillService
	Lessons *services.LessonService
}

// NewHandler builds a Handler.
func NewHandler(drills *services.DrillService, lessons *services.LessonService) *Handler {
	return &Handler{Drills: drills, Lessons: lessons}
}

// getUserID extracts the user id from the X-User-Id header.
func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr := c.Get("X-User-Id")
	if userIDStr == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "X-User-Id header required")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id format")
	}

	return userID, nil
}

func parseFamily(raw string) (wordindex.Family, error) {
	switch wordindex.Family(raw) {
	case wordindex.FamilyTone:
		return wordindex.FamilyTone, nil
	case wordindex.FamilyVowel:
		return wordindex.FamilyVowel, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "unknown drill family: "+raw)
	}
}

// nextDrillRequest is the next-drill operation's request body: a
// previous answer is optional.
type nextDrillRequest struct {
	PreviousAnswer *models.PreviousAnswer `json:"previous_answer"`
}

// NextDrill serves the next adaptive drill for a family.
// POST /drills/:family/next
func (h *Handler) NextDrill(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	family, err := parseFamily(c.Params("family"))
	if err != nil {
		return err
	}

	var req nextDrillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	result, err := h.Drills.NextDrill(c.Context(), userID, family, req.PreviousAnswer)
	if err != nil {
		return drillError(c, userID, err)
	}

	return c.JSON(result)
}

// Stats reports difficulty level plus pair and four-choice statistics.
// GET /drills/:problem_type/stats
func (h *Handler) Stats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	problemTypeID := c.Params("problem_type")
	result, err := h.Drills.Stats(c.Context(), userID, problemTypeID)
	if err != nil {
		return drillError(c, userID, err)
	}

	return c.JSON(result)
}

func drillError(c *fiber.Ctx, userID uuid.UUID, err error) error {
	var unknown taxonomy.ErrUnknownProblemType
	if errors.As(err, &unknown) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var invalid confusion.ErrInvalidAnswer
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("handlers: drill operation failed for user %s: %v", userID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute drill"})
}

// startLessonRequest is the lesson start operation's request body: an
// explicit theme is optional.
type startLessonRequest struct {
	ThemeID *int `json:"theme_id"`
}

// StartLesson begins a new themed lesson session.
// POST /lessons/:family/start
func (h *Handler) StartLesson(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	family, err := parseFamily(c.Params("family"))
	if err != nil {
		return err
	}

	var req startLessonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	result, err := h.Lessons.Start(c.Context(), userID, family, req.ThemeID)
	if err != nil {
		log.Printf("handlers: starting lesson failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start lesson"})
	}

	return c.JSON(fiber.Map{
		"session_id":   result.SessionID,
		"lesson_id":    result.LessonID,
		"theme_pairs":  result.ThemePairs,
		"total_drills": result.TotalDrills,
	})
}

// nextLessonRequest is the lesson next operation's request body: a
// previous answer is optional.
type nextLessonRequest struct {
	PreviousAnswer *models.Answer `json:"previous_answer"`
}

// NextLesson records the previous answer (if any) and returns the next
// lesson drill or the completed-lesson summary.
// POST /lessons/session/:session_id/next
func (h *Handler) NextLesson(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	var req nextLessonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	result, err := h.Lessons.Next(c.Context(), sessionID, req.PreviousAnswer)
	if err != nil {
		log.Printf("handlers: advancing lesson %s failed: %v", sessionID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if result.Complete {
		return c.JSON(fiber.Map{"complete": true, "summary": result.Summary})
	}
	return c.JSON(fiber.Map{"complete": false, "drill": result.Drill})
}

// Themes returns the fixed theme table for a drill family.
// GET /lessons/:family/themes
func (h *Handler) Themes(c *fiber.Ctx) error {
	family, err := parseFamily(c.Params("family"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"themes": h.Lessons.Themes(family)})
}

// Health reports service liveness.
// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "drill-engine",
	})
}

// Info describes the service.
// GET /
func (h *Handler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "Tonal Drill Engine",
		"description": "Adaptive confusion-model drill sampler and themed lesson sequencer",
	})
}
