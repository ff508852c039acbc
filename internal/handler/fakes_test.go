package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/internal/supabase"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const (
	aliceID   = "11111111-1111-4111-8111-111111111111"
	bobID     = "22222222-2222-4222-8222-222222222222"
	listingID = "33333333-3333-4333-8333-333333333333"
	convID    = "44444444-4444-4444-8444-444444444444"
)

// newRequest builds a request carrying an optional session user and chi URL params.
func newRequest(method, target, body string, user *middleware.User, params map[string]string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := req.Context()
	if user != nil {
		ctx = context.WithValue(ctx, middleware.UserKey, user)
		ctx = context.WithValue(ctx, middleware.AccessTokenKey, "token-"+user.ID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type fakeListings struct {
	listings  map[string]*model.Listing
	lastQuery model.ListingFilter
	created   *model.NewListing
	deleted   []string
	statusErr error
	err       error
}

func newFakeListings(ls ...*model.Listing) *fakeListings {
	f := &fakeListings{listings: map[string]*model.Listing{}}
	for _, l := range ls {
		f.listings[l.ID] = l
	}
	return f
}

func (f *fakeListings) List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error) {
	f.lastQuery = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	out := []model.Listing{}
	for _, l := range f.listings {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeListings) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) Create(ctx context.Context, nl *model.NewListing) (*model.Listing, error) {
	f.created = nl
	return &model.Listing{
		ID:         listingID,
		UserID:     nl.UserID,
		CategoryID: nl.CategoryID,
		Title:      nl.Title,
		Price:      nl.Price,
		Currency:   nl.Currency,
		Images:     nl.Images,
		Status:     nl.Status,
		CreatedAt:  time.Now(),
	}, nil
}

func (f *fakeListings) Delete(ctx context.Context, id, ownerID string) error {
	l, ok := f.listings[id]
	if !ok || l.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.listings, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeListings) SetStatus(ctx context.Context, id, from, to string, reason *string) (*model.Listing, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	l, ok := f.listings[id]
	if !ok || l.Status != from {
		return nil, repository.ErrNotFound
	}
	l.Status = to
	l.RejectReason = reason
	cp := *l
	return &cp, nil
}

func (f *fakeListings) IncrementViews(ctx context.Context, id string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	l, ok := f.listings[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	l.Views++
	return l.Views, nil
}

func (f *fakeListings) ExpireListings(ctx context.Context) (int64, error) { return 0, nil }

type fakeSocial struct {
	follows   map[string]bool
	likes     map[string]bool
	followers int64
	err       error
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{follows: map[string]bool{}, likes: map[string]bool{}}
}

func (f *fakeSocial) Follow(ctx context.Context, followerID, followingID string) error {
	if f.err != nil {
		return f.err
	}
	f.follows[followerID+">"+followingID] = true
	return nil
}

func (f *fakeSocial) Unfollow(ctx context.Context, followerID, followingID string) error {
	delete(f.follows, followerID+">"+followingID)
	return nil
}

func (f *fakeSocial) FollowerCount(ctx context.Context, userID string) (int64, error) {
	return f.followers, f.err
}

func (f *fakeSocial) LikeListing(ctx context.Context, userID, id string) error {
	if f.err != nil {
		return f.err
	}
	f.likes[userID+">"+id] = true
	return nil
}

func (f *fakeSocial) UnlikeListing(ctx context.Context, userID, id string) error {
	delete(f.likes, userID+">"+id)
	return nil
}

type fakeConversations struct {
	convs    map[string]*model.Conversation
	messages []model.Message
	created  bool
}

func (f *fakeConversations) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	out := []model.Conversation{}
	for _, c := range f.convs {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversations) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeConversations) FindOrCreate(ctx context.Context, lid, buyerID, sellerID string) (*model.Conversation, bool, error) {
	for _, c := range f.convs {
		if c.ListingID == lid && c.BuyerID == buyerID {
			return c, false, nil
		}
	}
	c := &model.Conversation{ID: convID, ListingID: lid, BuyerID: buyerID, SellerID: sellerID}
	f.convs[c.ID] = c
	f.created = true
	return c, true, nil
}

func (f *fakeConversations) ListMessages(ctx context.Context, id string, limit int) ([]model.Message, error) {
	if len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeConversations) SendMessage(ctx context.Context, id, senderID, content string) (*model.Message, error) {
	m := model.Message{ID: "m1", ConversationID: id, SenderID: senderID, Content: content}
	f.messages = append(f.messages, m)
	return &m, nil
}

type fakeProfiles struct {
	profiles map[string]*model.Profile
	searched string
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.AvatarURL = &avatarURL
	return p, nil
}

func (f *fakeProfiles) Search(ctx context.Context, q string, limit int) ([]model.Profile, error) {
	f.searched = q
	return []model.Profile{{ID: bobID, Username: "bob"}}, nil
}

func (f *fakeProfiles) IsAdmin(ctx context.Context, id string) (bool, error) {
	p, ok := f.profiles[id]
	return ok && p.IsAdmin(), nil
}

type fakeAudit struct {
	entries []model.AuditLogEntry
	err     error
}

func (f *fakeAudit) Insert(ctx context.Context, e *model.AuditLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, limit, offset int) ([]model.AuditLogEntry, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	if offset > end {
		offset = end
	}
	return f.entries[offset:end], int64(len(f.entries)), nil
}

func (f *fakeAudit) Close() error { return nil }

type fakeRemover struct {
	bucket string
	paths  []string
	err    error
}

func (f *fakeRemover) Remove(ctx context.Context, bucket string, paths []string) error {
	f.bucket, f.paths = bucket, paths
	return f.err
}

type fakeSessions struct {
	session  *supabase.Session
	err      error
	verifier string
	signOut  string
	refresh  string
}

func (f *fakeSessions) ExchangeCodeForSession(ctx context.Context, code, verifier string) (*supabase.Session, error) {
	f.verifier = verifier
	return f.session, f.err
}

func (f *fakeSessions) RefreshSession(ctx context.Context, token string) (*supabase.Session, error) {
	f.refresh = token
	return f.session, f.err
}

func (f *fakeSessions) SignOut(ctx context.Context, token string) error {
	f.signOut = token
	return f.err
}

type fakeMFA struct {
	factorID   string
	verifyErr  error
	challenged string
	unenrolled string
}

func (f *fakeMFA) Enroll(ctx context.Context, token, name, issuer string) (*supabase.Enrollment, error) {
	e := &supabase.Enrollment{ID: f.factorID, Type: "totp"}
	e.TOTP.QRCode = "data:image/svg+xml;base64,xx"
	e.TOTP.Secret = "SECRET"
	e.TOTP.URI = "otpauth://totp/x"
	return e, nil
}

func (f *fakeMFA) Challenge(ctx context.Context, token, factorID string) (*supabase.Challenge, error) {
	f.challenged = factorID
	return &supabase.Challenge{ID: "ch1"}, nil
}

func (f *fakeMFA) Verify(ctx context.Context, token, factorID, challengeID, code string) (*supabase.Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &supabase.Session{AccessToken: "aal2-token", RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (f *fakeMFA) Unenroll(ctx context.Context, token, factorID string) error {
	f.unenrolled = factorID
	return nil
}

func (f *fakeMFA) ListFactors(ctx context.Context, token string) ([]supabase.Factor, error) {
	return []supabase.Factor{{ID: f.factorID, FactorType: "totp", Status: "verified"}}, nil
}

var (
	_ repository.ListingRepository      = (*fakeListings)(nil)
	_ repository.SocialRepository       = (*fakeSocial)(nil)
	_ repository.ConversationRepository = (*fakeConversations)(nil)
	_ repository.ProfileRepository      = (*fakeProfiles)(nil)
	_ repository.AuditRepository        = (*fakeAudit)(nil)
)
