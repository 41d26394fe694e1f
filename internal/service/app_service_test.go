package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/inventory"
	"lexadoc/internal/session"
	"lexadoc/internal/transport"
	"lexadoc/internal/transport/transporttest"
)

func newBackendService(t *testing.T, serverLogout bool) (*AppService, *transporttest.Backend) {
	t.Helper()
	b := transporttest.NewBackend()
	t.Cleanup(b.Close)
	client, err := transport.NewClient(transport.Config{BaseURL: b.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return NewAppService(client, Options{ServerLogout: serverLogout}), b
}

func TestRoundTrip(t *testing.T) {
	svc, b := newBackendService(t, true)
	b.AddUser("alice", "alice@gmail.com", "secret")
	b.Answer = func(domain.Document, string) string { return "Summary" }
	ctx := context.Background()

	status, res := svc.Start(ctx)
	require.Equal(t, session.Unauthenticated, status)
	assert.Equal(t, inventory.NotLoaded, res.State)
	assert.Equal(t, session.ProbeUnauthorized, svc.Snapshot().Session.Probe)

	res, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, inventory.Loaded, res.State)
	assert.Empty(t, res.Documents)

	doc, err := svc.Upload(ctx, domain.NewFile("a.pdf", []byte("%PDF-1.4 body")))
	require.NoError(t, err)

	snap := svc.Snapshot()
	require.Len(t, snap.Inventory.Documents, 1)
	assert.Equal(t, int64(1), snap.Inventory.Documents[0].ID)
	assert.Equal(t, "a.pdf", snap.Inventory.Documents[0].FileName)
	require.NotNil(t, snap.Inventory.Selected)
	assert.Equal(t, doc.ID, snap.Inventory.Selected.ID)

	require.NoError(t, svc.Ask(ctx, "What is this?"))
	q := svc.Snapshot().Query
	assert.Equal(t, "Summary", q.Answer)
	assert.False(t, q.Loading)
	assert.Equal(t, "", q.Error)
}

func TestStartWithLiveSessionLoadsOnce(t *testing.T) {
	fake := &transporttest.Fake{
		MeFunc:   func(context.Context) (*domain.Profile, error) { return &domain.Profile{Username: "bob"}, nil },
		ListFunc: func(context.Context) ([]domain.Document, error) { return []domain.Document{{ID: 4}, {ID: 5}}, nil },
	}
	svc := NewAppService(fake, Options{})
	ctx := context.Background()

	status, res := svc.Start(ctx)
	assert.Equal(t, session.Authenticated, status)
	assert.True(t, res.OK())
	assert.Len(t, svc.Snapshot().Inventory.Documents, 2)
	assert.Equal(t, "bob", svc.Snapshot().Session.Profile.Username)
	assert.Equal(t, session.ProbeOK, svc.Snapshot().Session.Probe)

	svc.Start(ctx)
	assert.Equal(t, 1, fake.Calls("me"))
}

func TestStartWhenBackendUnreachable(t *testing.T) {
	b := transporttest.NewBackend()
	client, err := transport.NewClient(transport.Config{BaseURL: b.URL, Timeout: time.Second})
	require.NoError(t, err)
	b.Close()

	svc := NewAppService(client, Options{})
	status, res := svc.Start(context.Background())
	assert.Equal(t, session.Unauthenticated, status)
	assert.Equal(t, inventory.NotLoaded, res.State)
	assert.Equal(t, session.ProbeUnreachable, svc.Snapshot().Session.Probe)
}

func TestLogoutLocalOnlyMakesNoCalls(t *testing.T) {
	fake := &transporttest.Fake{
		ListFunc: func(context.Context) ([]domain.Document, error) { return []domain.Document{{ID: 1}}, nil },
	}
	svc := NewAppService(fake, Options{ServerLogout: false})
	ctx := context.Background()
	svc.Start(ctx)
	require.NoError(t, svc.Select(&domain.Document{ID: 1}))
	before := fake.TotalCalls()

	require.NoError(t, svc.Logout(ctx))

	snap := svc.Snapshot()
	assert.Equal(t, session.Unauthenticated, snap.Session.Status)
	assert.Nil(t, snap.Inventory.Selected)
	assert.Equal(t, before, fake.TotalCalls())
}

func TestLogoutInvalidatesServerSession(t *testing.T) {
	svc, b := newBackendService(t, true)
	b.AddUser("alice", "alice@gmail.com", "secret")
	ctx := context.Background()
	svc.Start(ctx)
	_, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	_, err = svc.Upload(ctx, domain.NewFile("a.pdf", []byte("x")))
	require.NoError(t, err)
	require.NoError(t, svc.Ask(ctx, "q"))
	require.Equal(t, 1, b.SessionCount())

	require.NoError(t, svc.Logout(ctx))

	snap := svc.Snapshot()
	assert.Equal(t, session.Unauthenticated, snap.Session.Status)
	assert.Nil(t, snap.Inventory.Selected)
	assert.Empty(t, snap.Inventory.Documents)
	assert.Empty(t, snap.Query.Answer)
	assert.Equal(t, 0, b.SessionCount())
	assert.Equal(t, 1, b.Calls("POST /logout"))
}

func TestLogoutSurvivesServerFailure(t *testing.T) {
	svc, b := newBackendService(t, true)
	b.AddUser("alice", "alice@gmail.com", "secret")
	ctx := context.Background()
	svc.Start(ctx)
	_, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	b.SetFail("POST /logout", http.StatusInternalServerError)

	err = svc.Logout(ctx)
	require.Error(t, err)
	assert.Equal(t, errx.LogoutFailedMessage, errx.Message(err, ""))
	assert.Equal(t, session.Unauthenticated, svc.Snapshot().Session.Status)
}

func TestCommandsGatedOnSession(t *testing.T) {
	fake := &transporttest.Fake{
		MeFunc: func(context.Context) (*domain.Profile, error) {
			return nil, &transport.StatusError{Op: "me", StatusCode: http.StatusUnauthorized, Status: "401"}
		},
	}
	svc := NewAppService(fake, Options{})
	ctx := context.Background()
	svc.Start(ctx)
	before := fake.TotalCalls()

	_, err := svc.Upload(ctx, domain.NewFile("a.pdf", []byte("x")))
	assert.ErrorIs(t, err, errx.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Ask(ctx, "q"), errx.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, 1), errx.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Remove(1), errx.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Select(&domain.Document{ID: 1}), errx.ErrNotAuthenticated)
	_, err = svc.Reload(ctx)
	assert.ErrorIs(t, err, errx.ErrNotAuthenticated)

	assert.Equal(t, before, fake.TotalCalls())
}

func TestLoginWithFailedLoad(t *testing.T) {
	fake := &transporttest.Fake{
		MeFunc: func(context.Context) (*domain.Profile, error) {
			return nil, &transport.StatusError{Op: "me", StatusCode: http.StatusUnauthorized, Status: "401"}
		},
		ListFunc: func(context.Context) ([]domain.Document, error) { return nil, transporttest.ErrFake },
	}
	svc := NewAppService(fake, Options{})
	ctx := context.Background()
	svc.Start(ctx)

	res, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, inventory.LoadFailed, res.State)
	assert.Equal(t, session.Authenticated, svc.Snapshot().Session.Status)
	assert.Equal(t, inventory.LoadFailed, svc.Snapshot().Inventory.Load.State)
}

func TestUploadStaged(t *testing.T) {
	fake := &transporttest.Fake{
		UploadFunc: func(_ context.Context, f *domain.File) (*domain.Document, error) {
			return &domain.Document{ID: 8, FileName: f.Name}, nil
		},
	}
	svc := NewAppService(fake, Options{})
	ctx := context.Background()
	svc.Start(ctx)

	_, err := svc.UploadStaged(ctx)
	assert.ErrorIs(t, err, inventory.ErrNoFile)
	assert.Equal(t, 0, fake.Calls("upload"))

	require.NoError(t, svc.Stage(domain.NewFile("b.txt", []byte("b"))))
	doc, err := svc.UploadStaged(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), doc.ID)
	assert.Nil(t, svc.Snapshot().Inventory.Pending)
}

func TestDeleteThroughBackend(t *testing.T) {
	svc, b := newBackendService(t, true)
	b.AddUser("alice", "alice@gmail.com", "secret")
	ctx := context.Background()
	svc.Start(ctx)
	_, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	doc, err := svc.Upload(ctx, domain.NewFile("a.pdf", []byte("x")))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.ID))
	assert.Empty(t, svc.Snapshot().Inventory.Documents)
	assert.Nil(t, svc.Snapshot().Inventory.Selected)

	res, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, 1, b.Calls("DELETE /documents/{id}"))
}

func TestRemoveIsLocalOnly(t *testing.T) {
	svc, b := newBackendService(t, true)
	b.AddUser("alice", "alice@gmail.com", "secret")
	ctx := context.Background()
	svc.Start(ctx)
	_, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	doc, err := svc.Upload(ctx, domain.NewFile("a.pdf", []byte("x")))
	require.NoError(t, err)
	calls := b.TotalCalls()

	require.NoError(t, svc.Remove(doc.ID))
	assert.Empty(t, svc.Snapshot().Inventory.Documents)
	assert.Equal(t, calls, b.TotalCalls())

	// The backend still has it.
	res, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
}

func TestLoginLoadFencedByInvalidation(t *testing.T) {
	var svc *AppService
	fake := &transporttest.Fake{
		MeFunc: func(context.Context) (*domain.Profile, error) {
			return nil, &transport.StatusError{Op: "me", StatusCode: http.StatusUnauthorized, Status: "401"}
		},
		LoginFunc: func(context.Context, domain.LoginRequest) error {
			// The logout hook runs while the login response is on its way back.
			svc.inventory.Invalidate()
			return nil
		},
		ListFunc: func(context.Context) ([]domain.Document, error) { return []domain.Document{{ID: 1}}, nil },
	}
	svc = NewAppService(fake, Options{})
	ctx := context.Background()
	svc.Start(ctx)

	res, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, errx.ErrStale)
	assert.Equal(t, 0, fake.Calls("list"))
	assert.Empty(t, svc.Snapshot().Inventory.Documents)
}
