package downloadlink_test

import (
	"testing"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/downloadlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const key = "download-link-key-at-least-32-bytes!!"

func TestSignVerify(t *testing.T) {
	s, err := downloadlink.New(key, time.Minute)
	require.NoError(t, err)

	fid, uid := primitive.NewObjectID(), primitive.NewObjectID()
	tok, err := s.Sign(fid, uid)
	require.NoError(t, err)

	gotF, gotU, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, fid, gotF)
	assert.Equal(t, uid, gotU)
}

func TestVerify_RejectsOtherKey(t *testing.T) {
	a, _ := downloadlink.New(key, time.Minute)
	b, _ := downloadlink.New("a-completely-different-32-byte-key!!", time.Minute)

	tok, err := a.Sign(primitive.NewObjectID(), primitive.NewObjectID())
	require.NoError(t, err)
	_, _, err = b.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_RejectsTampered(t *testing.T) {
	s, _ := downloadlink.New(key, time.Minute)
	tok, _ := s.Sign(primitive.NewObjectID(), primitive.NewObjectID())
	_, _, err := s.Verify(tok + "x")
	assert.Error(t, err)
}

func TestNew_ShortKey(t *testing.T) {
	_, err := downloadlink.New("short", time.Minute)
	assert.Error(t, err)
}
