package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"teamtrack/internal/models"
	"teamtrack/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newAvatarService(t *testing.T, maxBytes int64) (*AvatarService, string) {
	t.Helper()
	root := t.TempDir()
	repo := noopUserRepo()
	repo.existsFn = func(_ context.Context, id string) (bool, error) { return id == "alice" || id == "bob", nil }
	return NewAvatarService(root, maxBytes, repo), root
}

func TestAvatarService_UploadAndResolve(t *testing.T) {
	svc, root := newAvatarService(t, 0)
	ctx := context.Background()
	alice := policy.Actor{ID: "alice", Role: models.RoleMember}
	now := time.UnixMilli(1741600000123)

	url, err := svc.Upload(ctx, alice, AvatarUploadInput{
		UserID:      "alice",
		Filename:    "me.png",
		ContentType: "image/png",
		Content:     pngBytes(t),
		Now:         now,
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/files/alice_1741600000123.png", url)

	_, err = os.Stat(filepath.Join(root, "alice_1741600000123.png"))
	require.NoError(t, err)

	f, err := svc.Resolve("alice_1741600000123.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)
}

func TestAvatarService_UploadRejections(t *testing.T) {
	svc, _ := newAvatarService(t, 1024)
	ctx := context.Background()
	alice := policy.Actor{ID: "alice", Role: models.RoleMember}
	small := pngBytes(t)

	cases := []struct {
		name  string
		actor policy.Actor
		in    AvatarUploadInput
		code  string
	}{
		{"other user", alice, AvatarUploadInput{UserID: "bob", Content: small}, models.CodeForbidden},
		{"unknown user", adminActor(), AvatarUploadInput{UserID: "ghost", Content: small}, models.CodeNotFound},
		{"empty", alice, AvatarUploadInput{}, models.CodeValidation},
		{"too large", alice, AvatarUploadInput{Content: bytes.Repeat([]byte{0x89}, 1025)}, models.CodeValidation},
		{"not an image", alice, AvatarUploadInput{Content: []byte("hello, world")}, models.CodeValidation},
		{"type mismatch", alice, AvatarUploadInput{Content: small, ContentType: "image/gif"}, models.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.actor, tc.in)
			assertAppCode(t, err, tc.code)
		})
	}
}

func TestAvatarService_ResolveRejectsTraversal(t *testing.T) {
	svc, root := newAvatarService(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("x"), 0o600))

	_, err := svc.Resolve("..", "..", "etc", "passwd")
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.Resolve("../secret.txt")
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.Resolve(".")
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.Resolve("missing.png")
	assertAppCode(t, err, models.CodeNotFound)
}

func TestAvatarService_ResolveDirectoryIsNotFound(t *testing.T) {
	svc, root := newAvatarService(t, 0)
	require.NoError(t, os.Mkdir(filepath.Join(root, "nested"), 0o750))

	_, err := svc.Resolve("nested")
	assertAppCode(t, err, models.CodeNotFound)
}
