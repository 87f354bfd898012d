// Package glip binds the Glip team-messaging platform to a chat-bot runtime.
//
// The package owns the platform side of the integration: an authenticated
// REST client, a push subscription for new-post notifications, an identifier
// cache for the entities referenced by events, an event bridge that converts
// notifications into normalized messages, and a rate-limited outbound sender.
//
// Identity values (Person, Room, RoomOccupant) are immutable and compare by
// id only: two values with the same id refer to the same remote entity even
// when their other fields differ (e.g. one was built from a bare textual id
// and the other from a full API payload).
package glip

// SelfID is the reserved sentinel id for the bot's own account. Looking it
// up goes through the same cache path as any other user id.
const SelfID = "~"

// Person is an immutable platform user
type Person struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Location  string
}

// Equal reports whether both values identify the same remote user
func (p Person) Equal(other Person) bool {
	return p.ID == other.ID
}

// FullName returns the user's display name. The last name is optional on the
// platform and is omitted when empty.
func (p Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p Person) String() string {
	return p.ID
}

// Room is an immutable platform group (the platform's term for a
// room/conversation). Room management is permanently unsupported by this
// binding: every mutation or introspection method returns
// ErrRoomsNotSupported without touching the network.
type Room struct {
	ID    string
	Topic string
}

// Equal reports whether both values identify the same remote group
func (r Room) Equal(other Room) bool {
	return r.ID == other.ID
}

func (r Room) String() string {
	return r.ID
}

// Join always returns ErrRoomsNotSupported
func (r Room) Join(username, password string) error {
	return ErrRoomsNotSupported
}

// Create always returns ErrRoomsNotSupported
func (r Room) Create() error {
	return ErrRoomsNotSupported
}

// Leave always returns ErrRoomsNotSupported
func (r Room) Leave(reason string) error {
	return ErrRoomsNotSupported
}

// Destroy always returns ErrRoomsNotSupported
func (r Room) Destroy() error {
	return ErrRoomsNotSupported
}

// Invite always returns ErrRoomsNotSupported
func (r Room) Invite(personIDs ...string) error {
	return ErrRoomsNotSupported
}

// Joined always returns ErrRoomsNotSupported
func (r Room) Joined() (bool, error) {
	return false, ErrRoomsNotSupported
}

// Exists always returns ErrRoomsNotSupported
func (r Room) Exists() (bool, error) {
	return false, ErrRoomsNotSupported
}

// Occupants always returns ErrRoomsNotSupported
func (r Room) Occupants() ([]RoomOccupant, error) {
	return nil, ErrRoomsNotSupported
}

// RoomOccupant is a Person scoped to the Room an event was observed in.
// The occupant holds a reference to its room; the room does not own its
// occupants.
type RoomOccupant struct {
	Person
	Room Room
}

// Equal reports whether both values identify the same user in the same room
func (o RoomOccupant) Equal(other RoomOccupant) bool {
	return o.Person.Equal(other.Person) && o.Room.Equal(other.Room)
}

// Message is a normalized inbound or outbound chat message
type Message struct {
	Body   string
	Sender RoomOccupant
	Room   Room
}

// ParseIdentifier builds an identifier from its textual representation. The
// result carries only the id; the cache fills in the remaining fields when
// the entity is actually looked up.
func ParseIdentifier(text string) Person {
	return Person{ID: text}
}
