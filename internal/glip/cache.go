package glip

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/keepmind9/glipbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Lookup kinds, used in LookupError and log fields
const (
	kindUser     = "user"
	kindGroup    = "group"
	kindOccupant = "person"
)

// occupantKey scopes an occupant entry to the room it was observed in. The
// same person in two rooms is two distinct entries; each must carry its own
// Room value.
type occupantKey struct {
	PersonID string
	RoomID   string
}

// IdentifierCache memoizes lookups of remote entities by id. Chat events
// reference the same small set of senders and rooms over and over within a
// session, so each kind is held in a bounded LRU and a hit never issues a
// network call. Fetch failures are not cached; the next lookup of the same
// id retries the network.
type IdentifierCache struct {
	platform  Platform
	users     *lru.Cache[string, Person]
	groups    *lru.Cache[string, Room]
	occupants *lru.Cache[occupantKey, RoomOccupant]
}

// NewIdentifierCache creates a cache with the given per-kind capacity.
// Capacity <= 0 selects the default (128 entries per kind).
func NewIdentifierCache(platform Platform, capacity int) (*IdentifierCache, error) {
	if capacity <= 0 {
		capacity = constants.CacheCapacity
	}
	users, err := lru.New[string, Person](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}
	groups, err := lru.New[string, Room](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create group cache: %w", err)
	}
	occupants, err := lru.New[occupantKey, RoomOccupant](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create occupant cache: %w", err)
	}
	return &IdentifierCache{
		platform:  platform,
		users:     users,
		groups:    groups,
		occupants: occupants,
	}, nil
}

// entityID tolerates the platform's mixed id encoding: entity payloads carry
// numeric ids, notification bodies carry the same ids as strings.
type entityID string

func (id *entityID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = entityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = entityID(n.String())
	return nil
}

// extension/person payloads share the same flat field layout
type personInfo struct {
	ID        entityID `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Location  string   `json:"location"`
}

type groupInfo struct {
	ID   entityID `json:"id"`
	Name string   `json:"name"`
}

// User resolves an account user by id. The bot's own identity uses the
// SelfID sentinel through this same path.
func (c *IdentifierCache) User(ctx context.Context, id string) (Person, error) {
	if cached, ok := c.users.Get(id); ok {
		return cached, nil
	}
	person, err := c.fetchPerson(ctx, kindUser, ExtensionPathPrefix, id)
	if err != nil {
		return Person{}, err
	}
	c.users.Add(id, person)
	return person, nil
}

// Group resolves a chat group by id
func (c *IdentifierCache) Group(ctx context.Context, id string) (Room, error) {
	if cached, ok := c.groups.Get(id); ok {
		return cached, nil
	}
	raw, err := c.platform.Get(ctx, GroupPathPrefix+id)
	if err != nil {
		return Room{}, &LookupError{Kind: kindGroup, ID: id, Err: err}
	}
	var info groupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return Room{}, &LookupError{Kind: kindGroup, ID: id, Err: err}
	}
	room := Room{ID: string(info.ID), Topic: info.Name}
	c.groups.Add(id, room)
	logger.WithFields(logrus.Fields{
		"group_id": room.ID,
		"topic":    room.Topic,
	}).Debug("group-loaded")
	return room, nil
}

// Occupant resolves a chat person by id, scoped to the room the triggering
// event was observed in
func (c *IdentifierCache) Occupant(ctx context.Context, id string, room Room) (RoomOccupant, error) {
	key := occupantKey{PersonID: id, RoomID: room.ID}
	if cached, ok := c.occupants.Get(key); ok {
		return cached, nil
	}
	person, err := c.fetchPerson(ctx, kindOccupant, PersonPathPrefix, id)
	if err != nil {
		return RoomOccupant{}, err
	}
	occupant := RoomOccupant{Person: person, Room: room}
	c.occupants.Add(key, occupant)
	return occupant, nil
}

func (c *IdentifierCache) fetchPerson(ctx context.Context, kind, pathPrefix, id string) (Person, error) {
	raw, err := c.platform.Get(ctx, pathPrefix+id)
	if err != nil {
		return Person{}, &LookupError{Kind: kind, ID: id, Err: err}
	}
	var info personInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return Person{}, &LookupError{Kind: kind, ID: id, Err: err}
	}
	person := Person{
		ID:        string(info.ID),
		FirstName: info.FirstName,
		LastName:  info.LastName,
		Email:     info.Email,
		Location:  info.Location,
	}
	logger.WithFields(logrus.Fields{
		"kind":    kind,
		"user_id": person.ID,
	}).Debug("person-loaded")
	return person, nil
}
