package glip

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send_PostsToGroup(t *testing.T) {
	platform := newFakePlatform()
	sender := NewSender(platform, time.Millisecond, 0)

	err := sender.Send(context.Background(), Room{ID: "G1"}, "hello")
	require.NoError(t, err)

	posts := platform.recordedPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, PostsPath, posts[0].Path)

	var body postRequest
	require.NoError(t, json.Unmarshal([]byte(posts[0].Body), &body))
	assert.Equal(t, "G1", body.GroupID)
	assert.Equal(t, "hello", body.Text)
}

func TestSender_Send_SpacesCallsByInterval(t *testing.T) {
	platform := newFakePlatform()
	interval := 50 * time.Millisecond
	sender := NewSender(platform, interval, 0)
	ctx := context.Background()
	room := Room{ID: "G1"}

	require.NoError(t, sender.Send(ctx, room, "one"))
	require.NoError(t, sender.Send(ctx, room, "two"))
	require.NoError(t, sender.Send(ctx, room, "three"))

	posts := platform.recordedPosts()
	require.Len(t, posts, 3)
	assert.GreaterOrEqual(t, posts[1].At.Sub(posts[0].At), interval-5*time.Millisecond)
	assert.GreaterOrEqual(t, posts[2].At.Sub(posts[1].At), interval-5*time.Millisecond)
}

func TestSender_Send_TruncatesOversizedBody(t *testing.T) {
	platform := newFakePlatform()
	sender := NewSender(platform, time.Millisecond, 10)

	err := sender.Send(context.Background(), Room{ID: "G1"}, strings.Repeat("x", 25))
	require.NoError(t, err)

	posts := platform.recordedPosts()
	require.Len(t, posts, 1)

	var body postRequest
	require.NoError(t, json.Unmarshal([]byte(posts[0].Body), &body))
	assert.Len(t, body.Text, 10)
}

func TestSender_Send_TruncatesOnRuneBoundary(t *testing.T) {
	platform := newFakePlatform()
	sender := NewSender(platform, time.Millisecond, 10)

	// Multi-byte runes: a byte-indexed cut at the limit would split one.
	err := sender.Send(context.Background(), Room{ID: "G1"}, strings.Repeat("é", 25))
	require.NoError(t, err)

	posts := platform.recordedPosts()
	require.Len(t, posts, 1)

	var body postRequest
	require.NoError(t, json.Unmarshal([]byte(posts[0].Body), &body))
	assert.True(t, utf8.ValidString(body.Text))
	assert.Equal(t, 10, utf8.RuneCountInString(body.Text))
	assert.Equal(t, strings.Repeat("é", 10), body.Text)
}

func TestSender_Send_CancelledWhileRateLimited(t *testing.T) {
	platform := newFakePlatform()
	sender := NewSender(platform, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sender.Send(ctx, Room{ID: "G1"}, "first"))

	cancel()
	err := sender.Send(ctx, Room{ID: "G1"}, "second")
	assert.Error(t, err)
	assert.Len(t, platform.recordedPosts(), 1, "cancelled send must not reach the network")
}

func TestSender_Reply_TargetsMessageRoom(t *testing.T) {
	platform := newFakePlatform()
	sender := NewSender(platform, time.Millisecond, 0)

	msg := Message{
		Body:   "ping",
		Sender: RoomOccupant{Person: Person{ID: "U1"}, Room: Room{ID: "G7"}},
		Room:   Room{ID: "G7"},
	}
	require.NoError(t, sender.Reply(context.Background(), msg, "pong"))

	posts := platform.recordedPosts()
	require.Len(t, posts, 1)

	var body postRequest
	require.NoError(t, json.Unmarshal([]byte(posts[0].Body), &body))
	assert.Equal(t, "G7", body.GroupID)
	assert.Equal(t, "pong", body.Text)
}

func TestSender_Defaults(t *testing.T) {
	sender := NewSender(newFakePlatform(), 0, 0)
	assert.Equal(t, 50000, sender.sizeLimit)
}
