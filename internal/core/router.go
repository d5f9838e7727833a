package core

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/moderation"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
	"github.com/vovakirdan/chatrelay/internal/validate"
)

// Router validates inbound frames and dispatches them to the registries and the broadcaster.
// It runs on the hub loop only.
type Router struct {
	users   *UserRegistry
	rooms   *RoomRegistry
	out     *Broadcaster
	limiter ratelimit.Window
	rules   validate.Rules
	censor  *moderation.Censor
	now     func() time.Time
	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// Handle processes one raw frame from origin. Every rejection produces exactly one ERROR
// envelope to the sender and no other effect.
func (r *Router) Handle(origin *Session, raw []byte) {
	r.metrics.FramesIn.Add(1)

	in, err := proto.Decode(raw)
	if err != nil {
		r.reject(origin, clientError(MsgInvalidJSON))
		return
	}

	sender, ok := r.users.FindByConnection(origin.conn)
	if !ok {
		r.reject(origin, clientError(MsgUserNotFound))
		return
	}

	if err := in.Validate(); err != nil {
		r.reject(sender, clientError(MsgMissingEnvelope))
		return
	}

	now := r.now()
	if r.limiter.Limited(&sender.history, now) {
		r.metrics.RateLimited.Add(1)
		r.log.Debug().
			Int64("session_id", int64(sender.ID)).
			Str("conn_id", sender.ConnID).
			Str("type", in.Type).
			Msg("rate limited")
		r.reject(sender, clientError(MsgRateLimited))
		return
	}

	msg, err := proto.Parse(in)
	if err != nil {
		var unknown *proto.UnknownTypeError
		if errors.As(err, &unknown) {
			r.reject(sender, clientError(unknown.Error()))
			return
		}
		r.reject(sender, clientError(MsgMissingEnvelope))
		return
	}

	if err := r.dispatch(sender, msg, proto.Timestamp(now)); err != nil {
		var ce *ClientError
		if errors.As(err, &ce) {
			r.reject(sender, ce)
			return
		}
		r.log.Error().Err(err).Int64("session_id", int64(sender.ID)).Str("type", in.Type).Msg("dispatch")
	}
}

func (r *Router) dispatch(s *Session, msg proto.Message, ts string) error {
	switch m := msg.(type) {
	case proto.Chat:
		return r.chat(s, m, ts)
	case proto.SetUsername:
		return r.setUsername(s, m, ts)
	case proto.PrivateChat:
		return r.privateChat(s, m, ts)
	case proto.RoomJoin:
		name, err := r.roomName(m.Room)
		if err != nil {
			return err
		}
		r.rooms.Join(s, name)
		r.log.Debug().Int64("session_id", int64(s.ID)).Str("room", name).Msg("room joined")
		return nil
	case proto.RoomLeave:
		r.rooms.Leave(s)
		return nil
	case proto.RoomChat:
		return r.roomChat(s, m, ts)
	case proto.GetUsers:
		users := lo.Map(r.users.ListAll(), func(u *Session, _ int) proto.UserInfo { return u.Info() })
		r.out.ToSession(s, proto.Outbound{
			Type:    proto.TypeUserList,
			Payload: proto.UserListPayload{Users: users, Timestamp: ts},
		})
		return nil
	case proto.RoomMembers:
		name, err := r.roomName(m.Room)
		if err != nil {
			return err
		}
		r.out.ToSession(s, proto.Outbound{
			Type:    proto.TypeRoomMembers,
			Payload: proto.RoomMembersPayload{Room: name, Members: r.rooms.Members(name), Timestamp: ts},
		})
		return nil
	case proto.Typing:
		return r.typing(s, m, ts)
	default:
		return clientError((&proto.UnknownTypeError{Type: msg.MessageType()}).Error())
	}
}

func (r *Router) chat(s *Session, m proto.Chat, ts string) error {
	text, ok := r.rules.Text(m.Text)
	if !ok {
		return errInvalidMessage(r.rules.MaxMessageLength)
	}
	r.out.ToAll(proto.Outbound{
		Type: proto.TypeChat,
		Payload: proto.ChatPayload{
			ID:        int64(s.ID),
			Username:  s.Username,
			Text:      r.censor.Apply(text),
			Timestamp: ts,
		},
	})
	return nil
}

func (r *Router) setUsername(s *Session, m proto.SetUsername, ts string) error {
	name, ok := r.rules.Username(m.Username)
	if !ok {
		return errInvalidUsername(r.rules.MaxUsernameLength)
	}
	previous := s.Username
	r.users.Rename(s, name)
	r.out.ToAll(proto.Outbound{
		Type: proto.TypeUsernameChanged,
		Payload: proto.UsernameChangedPayload{
			ID:        int64(s.ID),
			Username:  name,
			Previous:  previous,
			Timestamp: ts,
		},
	})
	return nil
}

func (r *Router) privateChat(s *Session, m proto.PrivateChat, ts string) error {
	text, ok := r.rules.Text(m.Text)
	if !m.HasTo || !ok {
		return clientError(MsgPrivateInvalid)
	}
	receiver, found := r.users.FindByID(SessionID(m.To))
	if !found {
		return clientError(MsgReceiverMissing)
	}
	r.out.ToPair(s, receiver, proto.Outbound{
		Type: proto.TypePrivateChat,
		Payload: proto.PrivateChatPayload{
			From:      int64(s.ID),
			To:        int64(receiver.ID),
			Username:  s.Username,
			Text:      r.censor.Apply(text),
			Timestamp: ts,
		},
	})
	return nil
}

func (r *Router) roomChat(s *Session, m proto.RoomChat, ts string) error {
	text, ok := r.rules.Text(m.Text)
	if !ok {
		return clientError(MsgRoomTextInvalid)
	}
	if s.Room == "" {
		return clientError(MsgJoinRoomFirst)
	}
	r.out.ToRoom(s.Room, proto.Outbound{
		Type: proto.TypeRoomChat,
		Payload: proto.RoomChatPayload{
			ID:        int64(s.ID),
			Username:  s.Username,
			Room:      s.Room,
			Text:      r.censor.Apply(text),
			Timestamp: ts,
		},
	})
	return nil
}

// typing targets the named room, falling back to the sender's room when none is named.
// Membership of a named room is not required.
func (r *Router) typing(s *Session, m proto.Typing, ts string) error {
	target := s.Room
	if strings.TrimSpace(m.Room) != "" {
		name, err := r.roomName(m.Room)
		if err != nil {
			return err
		}
		target = name
	}
	if target == "" {
		return clientError(MsgTypingNoRoom)
	}
	r.out.ToRoom(target, proto.Outbound{
		Type: m.MessageType(),
		Payload: proto.TypingPayload{
			ID:        int64(s.ID),
			Username:  s.Username,
			Room:      target,
			Timestamp: ts,
		},
	})
	return nil
}

func (r *Router) roomName(raw string) (string, error) {
	name, ok, tooLong := r.rules.RoomName(raw)
	switch {
	case ok:
		return name, nil
	case tooLong:
		return "", errInvalidRoomName(r.rules.MaxRoomNameLength)
	default:
		return "", clientError(MsgRoomRequired)
	}
}

func (r *Router) reject(s *Session, ce *ClientError) {
	r.out.ToSession(s, proto.Outbound{
		Type:    proto.TypeError,
		Payload: proto.ErrorPayload{Message: ce.Message},
	})
}
