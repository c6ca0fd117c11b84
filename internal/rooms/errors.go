package rooms

import (
	"errors"
	"log"
	"net/http"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/gin-gonic/gin"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorKinds = []errorKind{
	{models.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{models.ErrParticipantNotFound, http.StatusNotFound, "participant_not_found"},
	{models.ErrExclusionNotFound, http.StatusNotFound, "exclusion_not_found"},
	{models.ErrPhaseViolation, http.StatusConflict, "phase_violation"},
	{models.ErrDuplicateName, http.StatusConflict, "duplicate_name"},
	{models.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{models.ErrInsufficientParticipants, http.StatusUnprocessableEntity, "insufficient_participants"},
	{models.ErrConstraintUnsatisfiable, http.StatusUnprocessableEntity, "constraint_unsatisfiable"},
	{models.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{models.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{models.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
}

func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, models.ErrorResponse{
				Error:   k.code,
				Message: err.Error(),
			})
			return
		}
	}

	log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)

	if errors.Is(err, models.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "collaborator_unavailable",
			Message: "Storage is unavailable, try again",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
