package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/i18n"
	"github.com/AlexTLDR/giftregistry/internal/ledger"
	"github.com/AlexTLDR/giftregistry/internal/notify"
	"github.com/AlexTLDR/giftregistry/internal/server/handlers"
)

const hostEmail = "host@example.com"

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Enqueue(msg notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return true
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type harness struct {
	srv    *Server
	db     *database.DB
	ledger *ledger.Ledger
	notes  *recordingNotifier
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                8080,
		BaseURL:             "http://localhost:8080",
		ShutdownTimeout:     time.Second,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
		SessionSecret:       "test-session-secret-0123456789",
		AdminEmails:         []string{hostEmail},
		GiftDefaultCapacity: 1,
		LedgerTimeout:       5 * time.Second,
		RequireApproval:     true,
		DefaultPhoneRegion:  "BR",
	}
}

func newHarness(t *testing.T, cfg *config.Config, bus interface {
	events.Publisher
	events.Subscriber
}) *harness {
	t.Helper()
	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	if bus == nil {
		bus = events.Nop{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notes := &recordingNotifier{}
	l := ledger.New(logger, db, notes, bus, ledger.Options{
		DefaultCapacity: cfg.GiftDefaultCapacity,
		Timeout:         cfg.LedgerTimeout,
	})

	s := New(cfg, logger, db, l, bus, notes)
	s.fetchProfile = func(_ context.Context, code string) (domain.Profile, error) {
		return domain.Profile{ID: code, Email: strings.ReplaceAll(code, "_", "@"), DisplayName: strings.ToUpper(code)}, nil
	}
	return &harness{srv: s, db: db, ledger: l, notes: notes}
}

// login walks the OAuth redirect and callback. code doubles as the guest id;
// "host_example.com" signs in as the admin.
func (h *harness) login(t *testing.T, code string) []*http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	q := url.Values{"state": {state}, "code": {code}}
	rec = h.do(t, http.MethodGet, "/auth/google/callback?"+q.Encode(), "", rec.Result().Cookies())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func (h *harness) approve(t *testing.T, guestID string) {
	t.Helper()
	_, err := h.db.SetApprovalStatus(context.Background(), guestID, domain.StatusApproved, hostEmail)
	require.NoError(t, err)
}

func (h *harness) do(t *testing.T, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func (h *harness) createGift(t *testing.T, admin []*http.Cookie, body string) domain.Gift {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/admin/gifts", body, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g domain.Gift
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	return g
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var e handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func listGifts(t *testing.T, h *harness) []domain.Gift {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/gifts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gifts []domain.Gift
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gifts))
	return gifts
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListGifts_EmptyIsArray(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	rec := h.do(t, http.MethodGet, "/gifts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLogin_SetsPendingGuest(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	guest := h.login(t, "u1")

	rec := h.do(t, http.MethodGet, "/me", "", guest)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID             string   `json:"id"`
		ApprovalStatus string   `json:"approvalStatus"`
		Reserved       []string `json:"reservedGiftIds"`
		IsAdmin        bool     `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "u1", me.ID)
	assert.Equal(t, "pending", me.ApprovalStatus)
	assert.Empty(t, me.Reserved)
	assert.False(t, me.IsAdmin)
}

func TestLogin_AdminIsApproved(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.login(t, "host_example.com")

	status, err := h.db.GetApprovalStatus(context.Background(), "host_example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, status)
}

func TestLogin_RejectsBadState(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	rec := h.do(t, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	rec = h.do(t, http.MethodGet, "/auth/google/callback?state=forged&code=u1", "", rec.Result().Cookies())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	guest := h.login(t, "u1")

	rec := h.do(t, http.MethodPost, "/auth/logout", "", guest)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(t, http.MethodGet, "/me", "", rec.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	rec := h.do(t, http.MethodPost, "/admin/gifts", `{"name":"Kettle"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	guest := h.login(t, "u1")
	h.approve(t, "u1")
	rec = h.do(t, http.MethodPost, "/admin/gifts", `{"name":"Kettle"}`, guest)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Error)
}

func TestCreateGift_Validation(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")

	rec := h.do(t, http.MethodPost, "/admin/gifts", `{"name":"  ","link":"ftp://x"}`, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "validation_failed", e.Error)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "name", e.Fields[0].Field)
	assert.Equal(t, "link", e.Fields[1].Field)

	rec = h.do(t, http.MethodPost, "/admin/gifts", `{"name":"Kettle","takenBy":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, listGifts(t, h))
}

func TestReserve_RequiresSession(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	rec := h.do(t, http.MethodPost, "/gifts/g1/reserve", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserve_ConcurrentCapacityOne(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle","capacity":1}`)

	sessions := map[string][]*http.Cookie{}
	for _, id := range []string{"u1", "u2"} {
		sessions[id] = h.login(t, id)
		h.approve(t, id)
	}

	var wg sync.WaitGroup
	codes := make(map[string]int)
	var mu sync.Mutex
	start := make(chan struct{})
	for id, cookies := range sessions {
		wg.Add(1)
		go func(id string, cookies []*http.Cookie) {
			defer wg.Done()
			<-start
			rec := h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", cookies)
			mu.Lock()
			codes[id] = rec.Code
			mu.Unlock()
		}(id, cookies)
	}
	close(start)
	wg.Wait()

	var winner string
	conflicts := 0
	for id, code := range codes {
		switch code {
		case http.StatusOK:
			winner = id
		case http.StatusConflict:
			conflicts++
		default:
			t.Fatalf("unexpected status %d for %s", code, id)
		}
	}
	require.NotEmpty(t, winner)
	assert.Equal(t, 1, conflicts)

	gifts := listGifts(t, h)
	require.Len(t, gifts, 1)
	assert.Equal(t, []string{winner}, gifts[0].Claimants)
}

func TestReserve_AtCapacityMessageIsLocalised(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle"}`)

	u1 := h.login(t, "u1")
	u2 := h.login(t, "u2")
	h.approve(t, "u1")
	h.approve(t, "u2")

	rec := h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve?lang=en", "", u2)
	require.Equal(t, http.StatusConflict, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "gift_at_capacity", e.Error)
	assert.Equal(t, i18n.T(i18n.English, "gift_at_capacity"), e.Message)

	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_reserved", decodeError(t, rec).Error)

	rec = h.do(t, http.MethodPost, "/gifts/missing/reserve", "", u1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "gift_not_found", decodeError(t, rec).Error)
}

func TestReleaseThenOtherGuestReserves(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle"}`)

	u1 := h.login(t, "u1")
	u2 := h.login(t, "u2")
	h.approve(t, "u1")
	h.approve(t, "u2")

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1).Code)

	rec := h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/release", "", u2)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_reserved", decodeError(t, rec).Error)

	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/release", "", u1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+gift.ID+`","capacity":1,"claimants":[]}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u2)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+gift.ID+`","capacity":1,"claimants":["u2"]}`, rec.Body.String())

	assert.Equal(t, []notify.Kind{notify.KindGiftReserved, notify.KindGiftReleased, notify.KindGiftReserved}, h.notes.kinds())
}

func TestReserve_UnapprovedGuestIsHeld(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle"}`)
	pending := h.login(t, "u1")

	rec := h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", pending)
	require.Equal(t, http.StatusForbidden, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "guest_not_approved", e.Error)
	assert.Equal(t, "pending", e.Status)

	_, err := h.db.SetApprovalStatus(context.Background(), "u1", domain.StatusRejected, hostEmail)
	require.NoError(t, err)
	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", pending)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "rejected", decodeError(t, rec).Status)

	assert.Empty(t, listGifts(t, h)[0].Claimants)
	assert.Empty(t, h.notes.kinds())
}

func TestDeleteGift_WithClaimantConflicts(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle"}`)
	u1 := h.login(t, "u1")
	h.approve(t, "u1")
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1).Code)

	rec := h.do(t, http.MethodDelete, "/admin/gifts/"+gift.ID, "", admin)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "gift_claimed", decodeError(t, rec).Error)

	gifts := listGifts(t, h)
	require.Len(t, gifts, 1)
	assert.Equal(t, []string{"u1"}, gifts[0].Claimants)

	rec = h.do(t, http.MethodDelete, "/admin/gifts/"+gift.ID+"/claimants/u1", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodDelete, "/admin/gifts/"+gift.ID, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listGifts(t, h))
}

func TestUpdateGift_CapacityBelowClaims(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Plates","capacity":3}`)
	for _, id := range []string{"u1", "u2"} {
		c := h.login(t, id)
		h.approve(t, id)
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", c).Code)
	}

	rec := h.do(t, http.MethodPut, "/admin/gifts/"+gift.ID, `{"name":"Plates","capacity":1}`, admin)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "capacity_below_claims", decodeError(t, rec).Error)

	rec = h.do(t, http.MethodPut, "/admin/gifts/"+gift.ID, `{"name":"Dinner plates","capacity":2}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Gift
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Dinner plates", updated.Name)
	assert.Equal(t, 2, updated.Capacity)
	assert.ElementsMatch(t, []string{"u1", "u2"}, updated.Claimants)
}

func TestInviteFlow(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")

	rec := h.do(t, http.MethodPost, "/admin/invites", "", admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Token string `json:"token"`
		Link  string `json:"link"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Token, 12)
	assert.Equal(t, "http://localhost:8080/invite?t="+created.Token, created.Link)

	rec = h.do(t, http.MethodGet, "/invites/"+created.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"`+created.Token+`","used":false,"confirmed":false}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/invites/not-a-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	guest := h.login(t, "u1")
	rec = h.do(t, http.MethodPost, "/invites/"+created.Token+"/confirm", "", guest)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invite_not_redeemed", decodeError(t, rec).Error)

	rec = h.do(t, http.MethodPost, "/invites/"+created.Token+"/use", "", guest)
	require.Equal(t, http.StatusOK, rec.Code)
	var redeemed struct {
		ApprovalStatus string `json:"approvalStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &redeemed))
	assert.Equal(t, "approved", redeemed.ApprovalStatus)

	other := h.login(t, "u2")
	rec = h.do(t, http.MethodPost, "/invites/"+created.Token+"/use", "", other)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invite_used", decodeError(t, rec).Error)

	for i := 0; i < 2; i++ {
		rec = h.do(t, http.MethodPost, "/invites/"+created.Token+"/confirm", "", guest)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, []notify.Kind{notify.KindInvite, notify.KindConfirm}, h.notes.kinds())

	rec = h.do(t, http.MethodDelete, "/admin/invites/"+created.Token, "", admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmPresence_ConcurrentNotifiesOnce(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")

	rec := h.do(t, http.MethodPost, "/admin/invites", "", admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	guest := h.login(t, "u1")
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/invites/"+created.Token+"/use", "", guest).Code)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			rec := h.do(t, http.MethodPost, "/invites/"+created.Token+"/confirm", "", guest)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, []notify.Kind{notify.KindInvite, notify.KindConfirm}, h.notes.kinds())
}

func TestEventSettings(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	guest := h.login(t, "u1")

	rec := h.do(t, http.MethodPut, "/admin/event-settings", `{"address":""}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, "/admin/event-settings",
		`{"address":"Rua das Flores 10","eventDate":"2026-12-05","eventTime":"18:30","requireApproval":false}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/event-settings", "", guest)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.EventSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Rua das Flores 10", got.Address)
	assert.Equal(t, hostEmail, got.UpdatedBy)

	// approval no longer required: new guests start approved
	h.login(t, "u3")
	status, err := h.db.GetApprovalStatus(context.Background(), "u3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, status)
}

func TestUpdatePhone(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	guest := h.login(t, "u1")

	rec := h.do(t, http.MethodPut, "/me/phone", `{"phone":"(11) 96123-4567"}`, guest)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.Guest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "+5511961234567", me.Phone)

	rec = h.do(t, http.MethodPut, "/me/phone", `{"phone":"abc"}`, guest)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminGuestsAndApproval(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	h.login(t, "u1")

	rec := h.do(t, http.MethodPut, "/admin/guests/u1/approve", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var g domain.Guest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, domain.StatusApproved, g.ApprovalStatus)
	assert.Equal(t, hostEmail, g.ReviewedBy)

	rec = h.do(t, http.MethodPut, "/admin/guests/nobody/reject", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/admin/guests", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var guests []domain.Guest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &guests))
	assert.Len(t, guests, 2)
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle"}`)
	u1 := h.login(t, "u1")
	h.approve(t, "u1")
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1).Code)

	rec := h.do(t, http.MethodGet, "/admin/gifts/export.csv?lang=en", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Kettle")
	assert.Contains(t, rec.Body.String(), "U1")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	h := newHarness(t, cfg, nil)
	admin := h.login(t, "host_example.com")
	gift := h.createGift(t, admin, `{"name":"Kettle","capacity":2}`)
	u1 := h.login(t, "u1")
	h.approve(t, "u1")

	rec := h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u1)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/release", "", u1)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec).Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other guests have their own bucket
	u2 := h.login(t, "u2")
	h.approve(t, "u2")
	rec = h.do(t, http.MethodPost, "/gifts/"+gift.ID+"/reserve", "", u2)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGiftEvents_UnavailableWithoutBroker(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	rec := h.do(t, http.MethodGet, "/gifts/events", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decodeError(t, rec).Error)
}

func TestGiftEvents_StreamsReservations(t *testing.T) {
	mr := miniredis.RunT(t)
	bus, err := events.NewRedisBus(&redis.Options{Addr: mr.Addr()}, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	h := newHarness(t, testConfig(), bus)
	gift, err := h.ledger.CreateGift(context.Background(), domain.GiftInput{Name: "Kettle"})
	require.NoError(t, err)
	h.login(t, "u1")
	h.approve(t, "u1")

	ts := httptest.NewServer(h.srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/gifts/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, ": connected", lines.Text())

	_, err = h.ledger.Reserve(context.Background(), gift.ID, "u1")
	require.NoError(t, err)

	var eventLine, dataLine string
	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
			require.True(t, lines.Scan())
			dataLine = lines.Text()
			break
		}
	}
	assert.Equal(t, "event: "+events.GiftReserved, eventLine)
	require.True(t, strings.HasPrefix(dataLine, "data: "))

	var ev events.GiftEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &ev))
	assert.Equal(t, gift.ID, ev.GiftID)
	assert.Equal(t, "u1", ev.GuestID)
	require.NotNil(t, ev.Gift)
	assert.Equal(t, []string{"u1"}, ev.Gift.Claimants)
}
