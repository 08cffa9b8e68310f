package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VideoRoom is the external room created for one consultation.
type VideoRoom struct {
	Name string
	URL  string
}

// RoomToken is a short-lived access credential scoped to a single room. The
// expiry is hard: tokens are never refreshed, callers re-join to get a fresh
// one.
type RoomToken struct {
	Token     string
	ExpiresAt time.Time
}

// VideoRoomProvider is the interface to the external video system. Every
// method is a single synchronous network-style call with no retry or backoff;
// a failure is surfaced to the caller as-is.
type VideoRoomProvider interface {
	// Name identifies the provider ("daily-http", "inmemory", ...), stored on
	// the VideoSession row.
	Name() string
	// CreateRoom provisions a room under the given globally unique name.
	CreateRoom(ctx context.Context, roomName string) (*VideoRoom, error)
	// DeleteRoom removes a room. Deleting a room that no longer exists is not
	// an error, so compensating deletions can be retried safely.
	DeleteRoom(ctx context.Context, roomName string) error
	// MintRoomToken issues an access token for the room. Owner tokens carry
	// the privilege to terminate the call.
	MintRoomToken(ctx context.Context, roomName, identity string, owner bool) (*RoomToken, error)
}

// RoomTokenClaims is the claim set embedded in room access tokens. Subject
// carries the participant identity.
type RoomTokenClaims struct {
	Room  string `json:"room"`
	Owner bool   `json:"owner"`
	jwt.RegisteredClaims
}

// signRoomToken mints an HS256 room token. The jti claim makes every mint
// distinct even when two tokens for the same room and identity are issued
// within the same second.
func signRoomToken(secret []byte, roomName, identity string, owner bool, ttl time.Duration, now time.Time) (*RoomToken, error) {
	expiresAt := now.Add(ttl)
	claims := RoomTokenClaims{
		Room:  roomName,
		Owner: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("signing room token: %w", err)
	}
	return &RoomToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// HTTPVideoProvider talks to a Daily-style room API over REST. Rooms are
// created and deleted through the provider's HTTP endpoints; access tokens
// are self-signed with the shared token secret, so minting needs no network
// round trip.
type HTTPVideoProvider struct {
	baseURL     string
	apiKey      string
	tokenSecret []byte
	tokenTTL    time.Duration
	client      *http.Client
	logger      *zap.Logger
}

var _ VideoRoomProvider = (*HTTPVideoProvider)(nil)

// NewHTTPVideoProvider creates a provider client for the given API base URL.
func NewHTTPVideoProvider(baseURL, apiKey string, tokenSecret []byte, tokenTTL time.Duration, logger *zap.Logger) *HTTPVideoProvider {
	return &HTTPVideoProvider{
		baseURL:     baseURL,
		apiKey:      apiKey,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

func (p *HTTPVideoProvider) Name() string { return "daily-http" }

func (p *HTTPVideoProvider) CreateRoom(ctx context.Context, roomName string) (*VideoRoom, error) {
	payload, err := json.Marshal(map[string]any{"name": roomName, "privacy": "private"})
	if err != nil {
		return nil, fmt.Errorf("encoding room request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/rooms", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building room request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating room %s: %w", roomName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating room %s: provider returned %d: %s", roomName, resp.StatusCode, readErrorBody(resp.Body))
	}

	var body struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding room response: %w", err)
	}
	if body.Name == "" {
		body.Name = roomName
	}
	return &VideoRoom{Name: body.Name, URL: body.URL}, nil
}

func (p *HTTPVideoProvider) DeleteRoom(ctx context.Context, roomName string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/rooms/"+roomName, nil)
	if err != nil {
		return fmt.Errorf("building room deletion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", roomName, err)
	}
	defer resp.Body.Close()
	// 404 means the room is already gone, which is what deletion wanted.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting room %s: provider returned %d: %s", roomName, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

func (p *HTTPVideoProvider) MintRoomToken(_ context.Context, roomName, identity string, owner bool) (*RoomToken, error) {
	return signRoomToken(p.tokenSecret, roomName, identity, owner, p.tokenTTL, time.Now().UTC())
}

// readErrorBody returns a short snippet of a provider error response for
// diagnostics.
func readErrorBody(r io.Reader) string {
	snippet, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(snippet)
}

// InMemoryVideoProvider implements VideoRoomProvider on mutex-guarded maps.
// It mints real signed tokens so claim contents can be verified, and it keeps
// a record of deleted rooms so compensation behavior is observable. Used by
// the test suite and by local runs without a video provider configured.
type InMemoryVideoProvider struct {
	// CreateRoomErr, DeleteRoomErr and MintErr, when set, are returned by the
	// corresponding method to simulate provider failures.
	CreateRoomErr error
	DeleteRoomErr error
	MintErr       error

	tokenSecret []byte
	tokenTTL    time.Duration

	mu      sync.Mutex
	rooms   map[string]string // name -> url
	deleted []string
}

var _ VideoRoomProvider = (*InMemoryVideoProvider)(nil)

// NewInMemoryVideoProvider creates an empty in-memory provider.
func NewInMemoryVideoProvider(tokenSecret []byte, tokenTTL time.Duration) *InMemoryVideoProvider {
	return &InMemoryVideoProvider{
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
		rooms:       make(map[string]string),
	}
}

func (p *InMemoryVideoProvider) Name() string { return "inmemory" }

func (p *InMemoryVideoProvider) CreateRoom(_ context.Context, roomName string) (*VideoRoom, error) {
	if p.CreateRoomErr != nil {
		return nil, p.CreateRoomErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.rooms[roomName]; exists {
		return nil, fmt.Errorf("room %s already exists", roomName)
	}
	url := "https://rooms.video.local/" + roomName
	p.rooms[roomName] = url
	return &VideoRoom{Name: roomName, URL: url}, nil
}

func (p *InMemoryVideoProvider) DeleteRoom(_ context.Context, roomName string) error {
	if p.DeleteRoomErr != nil {
		return p.DeleteRoomErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.rooms[roomName]; !exists {
		return nil
	}
	delete(p.rooms, roomName)
	p.deleted = append(p.deleted, roomName)
	return nil
}

func (p *InMemoryVideoProvider) MintRoomToken(_ context.Context, roomName, identity string, owner bool) (*RoomToken, error) {
	if p.MintErr != nil {
		return nil, p.MintErr
	}
	return signRoomToken(p.tokenSecret, roomName, identity, owner, p.tokenTTL, time.Now().UTC())
}

// HasRoom reports whether the named room currently exists.
func (p *InMemoryVideoProvider) HasRoom(roomName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.rooms[roomName]
	return ok
}

// LiveRoomCount returns the number of rooms that exist right now.
func (p *InMemoryVideoProvider) LiveRoomCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rooms)
}

// DeletedRooms returns the names of all rooms deleted so far.
func (p *InMemoryVideoProvider) DeletedRooms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.deleted))
	copy(out, p.deleted)
	return out
}
