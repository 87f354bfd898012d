package glip

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, platform *fakePlatform, capacity int) *IdentifierCache {
	t.Helper()
	cache, err := NewIdentifierCache(platform, capacity)
	require.NoError(t, err)
	return cache
}

func TestIdentifierCache_UserHitSkipsNetwork(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[ExtensionPathPrefix+"7"] = `{"id": 7, "firstName": "Ada", "lastName": "Lovelace"}`
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	first, err := cache.User(ctx, "7")
	require.NoError(t, err)
	second, err := cache.User(ctx, "7")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, platform.getCallCount(ExtensionPathPrefix+"7"),
		"cache hit must never issue a network call")
}

func TestIdentifierCache_GroupHitSkipsNetwork(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[GroupPathPrefix+"G1"] = `{"id": "G1", "name": "General"}`
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	first, err := cache.Group(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, "General", first.Topic)

	second, err := cache.Group(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, platform.getCallCount(GroupPathPrefix+"G1"))
}

func TestIdentifierCache_LRUEviction(t *testing.T) {
	platform := newFakePlatform()
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("%d", i)
		platform.entities[ExtensionPathPrefix+id] = fmt.Sprintf(`{"id": %s, "firstName": "User%s"}`, id, id)
	}
	cache := newTestCache(t, platform, 2)
	ctx := context.Background()

	_, err := cache.User(ctx, "0")
	require.NoError(t, err)
	_, err = cache.User(ctx, "1")
	require.NoError(t, err)
	_, err = cache.User(ctx, "2") // evicts "0"
	require.NoError(t, err)

	_, err = cache.User(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, 2, platform.getCallCount(ExtensionPathPrefix+"0"),
		"evicted id must be re-fetched")
	assert.Equal(t, 1, platform.getCallCount(ExtensionPathPrefix+"2"))
}

func TestIdentifierCache_FailureIsNotCached(t *testing.T) {
	platform := newFakePlatform()
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	_, err := cache.User(ctx, "7")
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "user", lookupErr.Kind)
	assert.Equal(t, "7", lookupErr.ID)

	// The entity appears later; the next lookup retries the network.
	platform.entities[ExtensionPathPrefix+"7"] = `{"id": 7, "firstName": "Ada"}`
	person, err := cache.User(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "7", person.ID)
	assert.Equal(t, 2, platform.getCallCount(ExtensionPathPrefix+"7"))
}

func TestIdentifierCache_MalformedEntityIsLookupError(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[GroupPathPrefix+"G1"] = `not json`
	cache := newTestCache(t, platform, 0)

	_, err := cache.Group(context.Background(), "G1")
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "group", lookupErr.Kind)
}

func TestIdentifierCache_OccupantScopedToRoom(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[PersonPathPrefix+"U1"] = `{"id": "U1", "firstName": "Ada"}`
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	room1 := Room{ID: "G1", Topic: "General"}
	room2 := Room{ID: "G2", Topic: "Random"}

	inRoom1, err := cache.Occupant(ctx, "U1", room1)
	require.NoError(t, err)
	inRoom2, err := cache.Occupant(ctx, "U1", room2)
	require.NoError(t, err)

	assert.Equal(t, "G1", inRoom1.Room.ID)
	assert.Equal(t, "G2", inRoom2.Room.ID)
	assert.True(t, inRoom1.Person.Equal(inRoom2.Person))

	// Each (person, room) pair is its own entry; repeats hit the cache.
	again, err := cache.Occupant(ctx, "U1", room1)
	require.NoError(t, err)
	assert.Equal(t, inRoom1, again)
	assert.Equal(t, 2, platform.getCallCount(PersonPathPrefix+"U1"))
}

func TestIdentifierCache_SelfSentinel(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[ExtensionPathPrefix+SelfID] = `{"id": 999, "firstName": "Glip", "lastName": "Bot"}`
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	self, err := cache.User(ctx, SelfID)
	require.NoError(t, err)
	assert.Equal(t, "999", self.ID)

	_, err = cache.User(ctx, SelfID)
	require.NoError(t, err)
	assert.Equal(t, 1, platform.getCallCount(ExtensionPathPrefix+SelfID))
}

func TestIdentifierCache_NumericAndStringIDs(t *testing.T) {
	platform := newFakePlatform()
	platform.entities[GroupPathPrefix+"123"] = `{"id": 123, "name": "Numeric"}`
	platform.entities[GroupPathPrefix+"abc"] = `{"id": "abc", "name": "Textual"}`
	cache := newTestCache(t, platform, 0)
	ctx := context.Background()

	numeric, err := cache.Group(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "123", numeric.ID)

	textual, err := cache.Group(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", textual.ID)
}
