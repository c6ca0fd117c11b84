// Package client talks to a stocking server on behalf of one device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bananalabs-oss/stocking/internal/device"
	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/google/uuid"
)

// ErrAmbiguous is returned when a name matches no participant or several.
var ErrAmbiguous = errors.New("participant name does not identify exactly one slot")

type Participant struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IsAdmin bool      `json:"is_admin"`
	Claimed bool      `json:"claimed"`
	Mine    bool      `json:"mine"`
}

type Room struct {
	Code            string             `json:"code"`
	Phase           models.Phase       `json:"phase"`
	MinParticipants int                `json:"min_participants"`
	Participants    []Participant      `json:"participants"`
	Exclusions      []models.Exclusion `json:"exclusions"`
}

// NameOf returns the participant's name, or the id if it is not in the room.
func (r *Room) NameOf(id uuid.UUID) string {
	for _, p := range r.Participants {
		if p.ID == id {
			return p.Name
		}
	}
	return id.String()
}

type Session struct {
	Room        models.Room `json:"room"`
	Participant Participant `json:"participant"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return e.Message
}

// IsCode reports whether err is an APIError with the given error code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Client struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

func New(baseURL, deviceID string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(device.Header, c.deviceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Error, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) CreateRoom(ctx context.Context, adminName string) (*Session, error) {
	out := new(Session)
	err := c.do(ctx, http.MethodPost, "/rooms", map[string]string{"admin_name": adminName}, out)
	return out, err
}

func (c *Client) Room(ctx context.Context, code string) (*Room, error) {
	out := new(Room)
	err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(code), nil, out)
	return out, err
}

// Session returns the slot this device last claimed, or nil.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	out := new(Session)
	err := c.do(ctx, http.MethodGet, "/session", nil, out)
	if IsCode(err, "no_session") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddParticipant(ctx context.Context, code, name string) (*Participant, error) {
	out := new(Participant)
	err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(code)+"/participants", map[string]string{"name": name}, out)
	return out, err
}

func (c *Client) Claim(ctx context.Context, id uuid.UUID) (*Participant, error) {
	out := new(Participant)
	err := c.do(ctx, http.MethodPost, "/participants/"+id.String()+"/claim", nil, out)
	return out, err
}

func (c *Client) Release(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/participants/"+id.String()+"/release", nil, nil)
}

func (c *Client) RemoveParticipant(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/participants/"+id.String(), nil, nil)
}

func (c *Client) AddExclusion(ctx context.Context, code string, giver, receiver uuid.UUID) (*models.Exclusion, error) {
	out := new(models.Exclusion)
	body := map[string]uuid.UUID{"giver_id": giver, "receiver_id": receiver}
	err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(code)+"/exclusions", body, out)
	return out, err
}

func (c *Client) RemoveExclusion(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/exclusions/"+id.String(), nil, nil)
}

func (c *Client) Draw(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(code)+"/draw", nil, nil)
}

func (c *Client) Reset(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(code)+"/reset", nil, nil)
}

// Receiver returns who participantID gives to, or nil before the draw.
func (c *Client) Receiver(ctx context.Context, code string, participantID uuid.UUID) (*Participant, error) {
	var out struct {
		Receiver *Participant `json:"receiver"`
	}
	path := "/rooms/" + url.PathEscape(code) + "/receiver?participant_id=" + participantID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Receiver, nil
}

// ResolveParticipant accepts an id or a case-insensitive name in room code.
func (c *Client) ResolveParticipant(ctx context.Context, code, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	if code == "" {
		return uuid.Nil, fmt.Errorf("%q is not an id and no room is known; pass --room", arg)
	}

	room, err := c.Room(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}

	want := strings.ToLower(strings.Join(strings.Fields(arg), " "))
	var found []uuid.UUID
	for _, p := range room.Participants {
		if strings.ToLower(p.Name) == want {
			found = append(found, p.ID)
		}
	}
	if len(found) != 1 {
		return uuid.Nil, fmt.Errorf("%w: %q in room %s", ErrAmbiguous, arg, room.Code)
	}
	return found[0], nil
}
