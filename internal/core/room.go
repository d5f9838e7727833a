package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// Room groups the sessions sharing a broadcast scope.
type Room struct {
	Name    string
	members map[SessionID]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[SessionID]struct{}),
	}
}

// Add inserts a member. Returns true if newly added.
func (r *Room) Add(id SessionID) bool {
	if _, exists := r.members[id]; exists {
		return false
	}
	r.members[id] = struct{}{}
	return true
}

// Remove deletes a member. Returns true if removed.
func (r *Room) Remove(id SessionID) bool {
	if _, exists := r.members[id]; !exists {
		return false
	}
	delete(r.members, id)
	return true
}

// Has reports membership.
func (r *Room) Has(id SessionID) bool {
	_, ok := r.members[id]
	return ok
}

// Empty returns true if nobody is in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// IDs returns the member ids in ascending order.
func (r *Room) IDs() []SessionID {
	ids := lo.Keys(r.members)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RoomRegistry maps room names to members. Rooms exist only while they have members.
// Like UserRegistry it is owned by the hub loop.
type RoomRegistry struct {
	rooms   map[string]*Room
	users   *UserRegistry
	fanout  *Fanout
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewRoomRegistry creates an empty room table resolving members through users.
func NewRoomRegistry(users *UserRegistry, fanout *Fanout, now func() time.Time, m *metrics.Metrics) *RoomRegistry {
	if now == nil {
		now = time.Now
	}
	if m == nil {
		m = metrics.New()
	}
	return &RoomRegistry{
		rooms:   make(map[string]*Room),
		users:   users,
		fanout:  fanout,
		now:     now,
		metrics: m,
	}
}

// Join moves s into roomName, leaving its current room first. Joining the current room is a
// no-op. The join notice goes to the membership including s.
func (r *RoomRegistry) Join(s *Session, roomName string) {
	if s.Room == roomName {
		return
	}
	if s.Room != "" {
		r.Leave(s)
	}

	room, ok := r.rooms[roomName]
	if !ok {
		room = NewRoom(roomName)
		r.rooms[roomName] = room
		r.metrics.RoomsCreated.Add(1)
	}
	room.Add(s.ID)
	s.Room = roomName

	r.notify(roomName, fmt.Sprintf("%s joined %s", s.Username, roomName))
}

// Leave removes s from its room and tells the remaining members. The last one out deletes the
// room.
func (r *RoomRegistry) Leave(s *Session) {
	if s.Room == "" {
		return
	}
	roomName := s.Room

	if room, ok := r.rooms[roomName]; ok {
		room.Remove(s.ID)
		r.notify(roomName, fmt.Sprintf("%s left %s", s.Username, roomName))
		if room.Empty() {
			delete(r.rooms, roomName)
			r.metrics.RoomsDeleted.Add(1)
		}
	}
	s.Room = ""
}

// Members lists the members of roomName, empty when the room does not exist.
func (r *RoomRegistry) Members(roomName string) []proto.UserInfo {
	return lo.Map(r.sessions(roomName), func(s *Session, _ int) proto.UserInfo {
		return s.Info()
	})
}

// BroadcastToRoom delivers out to every current member. Unknown rooms are ignored.
func (r *RoomRegistry) BroadcastToRoom(roomName string, out proto.Outbound) {
	members := r.sessions(roomName)
	if len(members) == 0 {
		return
	}
	r.fanout.Deliver(members, out)
}

// List summarizes every room, ordered by name.
func (r *RoomRegistry) List() []proto.RoomInfo {
	infos := lo.MapToSlice(r.rooms, func(name string, room *Room) proto.RoomInfo {
		return proto.RoomInfo{Name: name, Members: len(room.members)}
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len reports the number of rooms.
func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}

// clear drops every room without notifications. Used on shutdown.
func (r *RoomRegistry) clear() {
	r.rooms = make(map[string]*Room)
}

func (r *RoomRegistry) sessions(roomName string) []*Session {
	room, ok := r.rooms[roomName]
	if !ok {
		return nil
	}
	members := make([]*Session, 0, len(room.members))
	for _, id := range room.IDs() {
		if s, ok := r.users.FindByID(id); ok {
			members = append(members, s)
		}
	}
	return members
}

func (r *RoomRegistry) notify(roomName, message string) {
	r.BroadcastToRoom(roomName, proto.Outbound{
		Type: proto.TypeRoomNotification,
		Payload: proto.RoomNotificationPayload{
			Room:      roomName,
			Message:   message,
			Timestamp: proto.Timestamp(r.now()),
		},
	})
}
