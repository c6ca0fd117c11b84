package rooms

import (
	"net/http"

	"github.com/bananalabs-oss/stocking/internal/device"
	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/bananalabs-oss/stocking/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	coord     *session.Coordinator
	publicURL string
}

func NewHandler(coord *session.Coordinator, publicURL string) *Handler {
	return &Handler{coord: coord, publicURL: publicURL}
}

// participantView never exposes which device holds a slot, only whether
// one does and whether it is the caller's.
type participantView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IsAdmin bool      `json:"is_admin"`
	Claimed bool      `json:"claimed"`
	Mine    bool      `json:"mine"`
}

type roomView struct {
	Code            string             `json:"code"`
	Phase           models.Phase       `json:"phase"`
	MinParticipants int                `json:"min_participants"`
	Participants    []participantView  `json:"participants"`
	Exclusions      []models.Exclusion `json:"exclusions"`
}

func viewParticipant(p *models.Participant, deviceID string) participantView {
	return participantView{
		ID:      p.ID,
		Name:    p.Name,
		IsAdmin: p.IsAdmin,
		Claimed: p.Claimed(),
		Mine:    p.HeldBy(deviceID),
	}
}

func viewParticipants(ps []models.Participant, deviceID string) []participantView {
	out := make([]participantView, 0, len(ps))
	for i := range ps {
		out = append(out, viewParticipant(&ps[i], deviceID))
	}
	return out
}

// RequireDevice rejects requests without a well-formed X-Device-ID.
func RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := device.Parse(c.GetHeader(device.Header))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_device",
				Message: device.Header + " header must carry a UUID",
			})
			return
		}
		c.Set("device_id", id)
		c.Next()
	}
}

func getDeviceID(c *gin.Context) string {
	return c.GetString("device_id")
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid ID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// --- Device and session ---

func (h *Handler) NewDevice(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"device_id": device.New()})
}

func (h *Handler) GetSession(c *gin.Context) {
	deviceID := getDeviceID(c)

	s, err := h.coord.ResolveSession(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "no_session",
			Message: "This device has not claimed a participant",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":        s.Room,
		"participant": viewParticipant(&s.Participant, deviceID),
	})
}

// --- Rooms ---

func (h *Handler) CreateRoom(c *gin.Context) {
	deviceID := getDeviceID(c)

	var req struct {
		AdminName string `json:"admin_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "admin_name is required")
		return
	}

	s, err := h.coord.CreateRoom(c.Request.Context(), deviceID, req.AdminName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"room":        s.Room,
		"participant": viewParticipant(&s.Participant, deviceID),
	})
}

func (h *Handler) GetRoom(c *gin.Context) {
	state, err := h.coord.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	exclusions := state.Exclusions
	if exclusions == nil {
		exclusions = []models.Exclusion{}
	}
	c.JSON(http.StatusOK, roomView{
		Code:            state.Room.Code,
		Phase:           state.Room.Phase,
		MinParticipants: h.coord.MinParticipants(),
		Participants:    viewParticipants(state.Participants, getDeviceID(c)),
		Exclusions:      exclusions,
	})
}

func (h *Handler) GetPhase(c *gin.Context) {
	code := c.Param("code")
	phase, err := h.coord.RoomPhase(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": phase})
}

func (h *Handler) ListParticipants(c *gin.Context) {
	ps, err := h.coord.ListParticipants(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewParticipants(ps, getDeviceID(c)))
}

func (h *Handler) AddParticipant(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	deviceID := getDeviceID(c)
	p, err := h.coord.AddParticipant(c.Request.Context(), deviceID, c.Param("code"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewParticipant(p, deviceID))
}

func (h *Handler) ListExclusions(c *gin.Context) {
	xs, err := h.coord.ListExclusions(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if xs == nil {
		xs = []models.Exclusion{}
	}
	c.JSON(http.StatusOK, xs)
}

func (h *Handler) AddExclusion(c *gin.Context) {
	var req struct {
		GiverID    uuid.UUID `json:"giver_id" binding:"required"`
		ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "giver_id and receiver_id are required")
		return
	}

	x, err := h.coord.AddExclusion(c.Request.Context(), getDeviceID(c), c.Param("code"), req.GiverID, req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, x)
}

func (h *Handler) StartDraw(c *gin.Context) {
	if err := h.coord.StartDraw(c.Request.Context(), getDeviceID(c), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": models.PhaseReveal})
}

func (h *Handler) Reset(c *gin.Context) {
	if err := h.coord.Reset(c.Request.Context(), getDeviceID(c), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": models.PhaseLobby})
}

// GetReceiver answers with a null receiver until the room has been drawn.
func (h *Handler) GetReceiver(c *gin.Context) {
	participantID, err := uuid.Parse(c.Query("participant_id"))
	if err != nil {
		badRequest(c, "participant_id must be a UUID")
		return
	}

	receiver, err := h.coord.MyReceiver(c.Request.Context(), getDeviceID(c), c.Param("code"), participantID)
	if err != nil {
		respondError(c, err)
		return
	}
	if receiver == nil {
		c.JSON(http.StatusOK, gin.H{"receiver": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receiver": gin.H{"id": receiver.ID, "name": receiver.Name},
	})
}

// --- Participants and exclusions by id ---

func (h *Handler) ClaimParticipant(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	deviceID := getDeviceID(c)
	p, err := h.coord.Claim(c.Request.Context(), deviceID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewParticipant(p, deviceID))
}

func (h *Handler) ReleaseParticipant(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.coord.Release(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant released"})
}

func (h *Handler) RemoveParticipant(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.coord.RemoveParticipant(c.Request.Context(), getDeviceID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant removed"})
}

func (h *Handler) RemoveExclusion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.coord.RemoveExclusion(c.Request.Context(), getDeviceID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exclusion removed"})
}

// --- Internal endpoints ---

// GetRoomInternal returns the full room including the assignment batch.
func (h *Handler) GetRoomInternal(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := h.coord.Snapshot(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	assignments, err := h.coord.Assignments(ctx, state.Room.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":         state.Room,
		"participants": state.Participants,
		"exclusions":   state.Exclusions,
		"assignments":  assignments,
	})
}
