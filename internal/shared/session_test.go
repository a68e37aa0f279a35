package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerIssuesCookie(t *testing.T) {
	sm := NewSessionManager(nil, "fanmetrics_session", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	_, err = uuid.Parse(sess.ID)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fanmetrics_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionManagerReusesValidCookie(t *testing.T) {
	sm := NewSessionManager(nil, "fanmetrics_session", time.Hour, false)
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fanmetrics_session", Value: id})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.False(t, sess.IsNew())

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: "fanmetrics_session", Value: "not-a-uuid"})
	sess, err = sm.Load(context.Background(), bad)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", sess.ID)
	assert.True(t, sess.IsNew())
}

func TestSessionFlashRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sm := NewSessionManager(client, "fanmetrics_session", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Panel refreshed"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fanmetrics_session", Value: sess.ID})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Panel refreshed", flash.Message)
	assert.Nil(t, loaded.PopFlash())
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))
	assert.False(t, mr.Exists("flash:"+sess.ID))
}

func TestSessionFlashesKeepOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sm := NewSessionManager(client, "fanmetrics_session", time.Hour, true)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "first"})
	sess.AddFlash(FlashMessage{Kind: "info", Message: "second"})
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	assert.True(t, rr.Result().Cookies()[0].Secure)

	items, err := mr.List("flash:" + sess.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Greater(t, mr.TTL("flash:"+sess.ID), time.Duration(0))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fanmetrics_session", Value: sess.ID})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.PopFlash().Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	items, err = mr.List("flash:" + sess.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSessionIDFromContext(t *testing.T) {
	assert.Empty(t, SessionID(context.Background()))
	ctx := ContextWithSession(context.Background(), &Session{ID: "abc"})
	assert.Equal(t, "abc", SessionID(ctx))
}
