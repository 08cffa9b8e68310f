package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/lifecycle"
	"telehealth-consultation-service/internal/domain/repositories"
)

// JoinServiceImpl implements JoinServiceContract.
type JoinServiceImpl struct {
	store  repositories.ConsultationStoreContract
	video  adapters.VideoRoomProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewJoinService creates a new JoinServiceImpl.
func NewJoinService(
	store repositories.ConsultationStoreContract,
	video adapters.VideoRoomProvider,
	logger *zap.Logger,
) JoinServiceContract {
	return &JoinServiceImpl{
		store:  store,
		video:  video,
		logger: logger,
		now:    time.Now,
	}
}

func (s *JoinServiceImpl) Join(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.JoinResponse, error) {
	c, err := loadConsultation(ctx, s.store, s.logger, consultationID)
	if err != nil {
		return nil, err
	}
	if !canAccessConsultation(caller, c) {
		return nil, apperrors.New(apperrors.CodeForbidden, "no access to this consultation")
	}
	if c.Status != entities.StatusPaid && c.Status != entities.StatusInCall {
		return nil, apperrors.Newf(apperrors.CodeValidation, "consultation cannot be joined in status %s", c.Status).
			WithDetails(map[string]any{"status": string(c.Status)})
	}

	now := s.now().UTC()
	if !lifecycle.Joinable(c.ScheduledStartAt, now) {
		opensAt, closesAt := lifecycle.JoinWindow(*c.ScheduledStartAt)
		return nil, apperrors.New(apperrors.CodeValidation, "outside the join window").
			WithDetails(map[string]any{
				"opens_at":  opensAt.Format(time.RFC3339),
				"closes_at": closesAt.Format(time.RFC3339),
				"now":       now.Format(time.RFC3339),
			})
	}

	session, err := s.store.GetVideoSession(ctx, consultationID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		session, err = s.provisionRoom(ctx, caller, c, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		s.logger.Error("loading video session failed",
			zap.String("consultation_id", consultationID.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load video session", err)
	}

	// Rooms are expensive and stateful, tokens are cheap: every join mints a
	// fresh token against the one persistent room.
	owner := caller.IsDoctor() || caller.IsAdmin()
	token, err := s.video.MintRoomToken(ctx, session.RoomName, caller.UserID.String(), owner)
	if err != nil {
		s.logger.Error("minting room token failed",
			zap.String("consultation_id", consultationID.String()),
			zap.String("room_name", session.RoomName),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not mint video access token", err)
	}

	mintAudit := entities.NewAuditEvent(caller.UserID, consultationID, entities.AuditJoinTokenMinted, map[string]any{
		"role":      string(caller.Role),
		"owner":     owner,
		"room_name": session.RoomName,
	})
	if err := s.store.AppendAuditEvent(ctx, mintAudit); err != nil {
		s.logger.Error("recording token mint failed",
			zap.String("consultation_id", consultationID.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not record join", err)
	}

	s.logger.Info("join token minted",
		zap.String("consultation_id", consultationID.String()),
		zap.String("room_name", session.RoomName),
		zap.String("role", string(caller.Role)),
		zap.Bool("owner", owner))

	return &dtos.JoinResponse{
		JoinURL:   session.RoomURL + "?t=" + token.Token,
		RoomURL:   session.RoomURL,
		RoomName:  session.RoomName,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// provisionRoom runs the first-join path: create the external room, then
// commit one atomic unit inserting the VideoSession, transitioning
// PAID -> IN_CALL with its startedAt stamp, and appending the status-change
// audit row. Any commit failure compensates the just-created room before the
// error propagates. A unique-constraint conflict means a concurrent caller
// won the race: the speculative room is compensated and the winner's session
// adopted. The store's uniqueness constraint is the sole arbiter of who
// created the room.
func (s *JoinServiceImpl) provisionRoom(ctx context.Context, caller entities.Caller, c *entities.Consultation, now time.Time) (*entities.VideoSession, error) {
	roomName := videoRoomName(c.ID, now)
	room, err := s.video.CreateRoom(ctx, roomName)
	if err != nil {
		s.logger.Error("creating video room failed",
			zap.String("consultation_id", c.ID.String()),
			zap.String("room_name", roomName),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not provision video room", err)
	}

	session := &entities.VideoSession{
		ID:             uuid.New(),
		ConsultationID: c.ID,
		Provider:       s.video.Name(),
		RoomName:       room.Name,
		RoomURL:        room.URL,
		CreatedAt:      now,
	}

	updated := *c
	from := updated.Status
	if err := lifecycle.ApplyTransition(&updated, entities.StatusInCall, now); err != nil {
		s.compensateRoom(ctx, c.ID, room.Name)
		return nil, err
	}
	audit := entities.NewAuditEvent(caller.UserID, c.ID, entities.AuditConsultStatusChanged,
		map[string]any{"from": string(from), "to": string(entities.StatusInCall)})

	err = s.store.ActivateVideoSession(ctx, session, &updated, audit)
	switch {
	case errors.Is(err, repositories.ErrVideoSessionExists):
		s.compensateRoom(ctx, c.ID, room.Name)
		existing, readErr := s.store.GetVideoSession(ctx, c.ID)
		if readErr != nil {
			s.logger.Error("reading winning video session failed",
				zap.String("consultation_id", c.ID.String()),
				zap.Error(readErr))
			return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load video session", readErr)
		}
		s.logger.Info("lost first-join race, adopting existing room",
			zap.String("consultation_id", c.ID.String()),
			zap.String("room_name", existing.RoomName))
		return existing, nil
	case errors.Is(err, repositories.ErrStaleConsultation):
		s.compensateRoom(ctx, c.ID, room.Name)
		return nil, apperrors.New(apperrors.CodeConflict, "consultation changed while provisioning the room, retry the join")
	case err != nil:
		s.compensateRoom(ctx, c.ID, room.Name)
		s.logger.Error("first-join transaction failed",
			zap.String("consultation_id", c.ID.String()),
			zap.String("room_name", room.Name),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not activate video session", err)
	}

	*c = updated
	s.logger.Info("video session provisioned",
		zap.String("consultation_id", c.ID.String()),
		zap.String("room_name", room.Name))
	return session, nil
}

// compensateRoom deletes an external room whose durable binding never
// committed. Failures are logged and swallowed: an orphaned room is an
// accepted leak, there is no reconciliation job to sweep it up later.
func (s *JoinServiceImpl) compensateRoom(ctx context.Context, consultationID uuid.UUID, roomName string) {
	if err := s.video.DeleteRoom(ctx, roomName); err != nil {
		s.logger.Error("compensating room deletion failed, external room leaked",
			zap.String("consultation_id", consultationID.String()),
			zap.String("room_name", roomName),
			zap.Error(err))
	}
}

// videoRoomName derives a globally unique room name from the consultation id
// and the join instant.
func videoRoomName(consultationID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("consult-%s-%d", consultationID, now.UnixNano())
}
