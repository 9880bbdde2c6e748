package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/opensocial-be/internal/auth"
	"github.com/isdelr/opensocial-be/internal/database"
	"github.com/isdelr/opensocial-be/internal/media"
	"github.com/isdelr/opensocial-be/internal/media/mediatest"
	"github.com/isdelr/opensocial-be/internal/metrics"
	"github.com/isdelr/opensocial-be/internal/services"
	"github.com/isdelr/opensocial-be/internal/store/sqlite"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	*httptest.Server
	storage *mediatest.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := sqlite.New(db)

	storage := mediatest.New()
	pipeline := media.NewPipeline(storage, media.WithRetries(0))
	tokens := auth.NewTokenService("test-secret", time.Hour)
	events := services.NewEventService(st)

	router := NewRouter(Services{
		Users:  services.NewUserService(st, tokens, pipeline, nil, events),
		Social: services.NewSocialService(st, nil, events),
		Posts:  services.NewPostService(st, st, pipeline, events),
		Events: events,
		Tokens: tokens,
	}, Options{MaxUploadBytes: 1 << 20, Metrics: metrics.New()})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		st.Close(ctx)
	})
	return &testServer{Server: srv, storage: storage}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, s.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (int, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	var out map[string]any
	raw := new(bytes.Buffer)
	raw.ReadFrom(res.Body)
	if strings.HasPrefix(strings.TrimSpace(raw.String()), "{") {
		json.Unmarshal(raw.Bytes(), &out)
	}
	return res.StatusCode, out
}

func (s *testServer) register(t *testing.T, name string) (string, string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name, "email": name + "@x.com", "password": "pw123456",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: %d %v", name, status, body)
	}
	return body["_id"].(string), body["token"].(string)
}

func multipartRequest(t *testing.T, method, url string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.png"`)
		h.Set("Content-Type", "image/png")
		part, _ := mw.CreatePart(h)
		part.Write(data)
	}
	mw.Close()
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestLiveness(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/")
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("liveness: %v %v", res, err)
	}
	res.Body.Close()
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	id, token := srv.register(t, "alice")

	status, body := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})
	if status != http.StatusBadRequest || body["message"] != "User already exists" {
		t.Fatalf("duplicate register: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bob"})
	if status != http.StatusBadRequest || body["message"] != "Please add all fields" {
		t.Fatalf("missing fields: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "pw123456"})
	if status != http.StatusOK || body["_id"] != id || body["token"] == "" {
		t.Fatalf("login: %d %v", status, body)
	}
	if _, leaked := body["passwordHash"]; leaked {
		t.Fatal("digest in login response")
	}

	status, body = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "nope"})
	if status != http.StatusUnauthorized || body["message"] != "Invalid credentials" {
		t.Fatalf("bad login: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if status != http.StatusOK || body["username"] != "alice" {
		t.Fatalf("me: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/auth/me", "", nil)
	if status != http.StatusUnauthorized || body["message"] != "Not authorized, no token" {
		t.Fatalf("me without token: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	if status != http.StatusUnauthorized || body["message"] != "Not authorized" {
		t.Fatalf("me with bad token: %d %v", status, body)
	}
}

func TestPostLifecycle(t *testing.T) {
	srv := newTestServer(t)
	_, alice := srv.register(t, "alice")
	bobID, bob := srv.register(t, "bob")

	status, body := srv.do(t, http.MethodPost, "/api/posts", alice, map[string]string{})
	if status != http.StatusBadRequest {
		t.Fatalf("empty post: %d %v", status, body)
	}

	status, post := srv.do(t, http.MethodPost, "/api/posts", alice, map[string]string{"text": "hello"})
	if status != http.StatusOK || post["text"] != "hello" {
		t.Fatalf("create: %d %v", status, post)
	}
	postID := post["_id"].(string)
	if owner := post["user"].(map[string]any); owner["username"] != "alice" {
		t.Fatalf("owner not hydrated: %v", owner)
	}

	status, body = srv.do(t, http.MethodPut, "/api/posts/like/"+postID, bob, nil)
	if status != http.StatusOK || body["message"] != "Post liked" || body["liked"] != true {
		t.Fatalf("like: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodPut, "/api/posts/like/"+postID, bob, nil)
	if status != http.StatusOK || body["message"] != "Post unliked" {
		t.Fatalf("unlike: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/posts/comment/"+postID, bob, map[string]string{"text": "hi"})
	if status != http.StatusOK {
		t.Fatalf("comment: %d %v", status, body)
	}
	comments := body["comments"].([]any)
	comment := comments[0].(map[string]any)
	if comment["user"].(map[string]any)["_id"] != bobID {
		t.Fatalf("comment owner: %v", comment)
	}
	commentID := comment["_id"].(string)

	status, _ = srv.do(t, http.MethodPut, "/api/posts/comment/"+postID+"/"+commentID, alice, map[string]string{"text": "x"})
	if status != http.StatusForbidden {
		t.Fatalf("edit other's comment: %d", status)
	}
	status, body = srv.do(t, http.MethodPut, "/api/posts/comment/"+postID+"/"+commentID, bob, map[string]string{"text": "edited"})
	if status != http.StatusOK || body["comments"].([]any)[0].(map[string]any)["text"] != "edited" {
		t.Fatalf("edit comment: %d %v", status, body)
	}

	status, _ = srv.do(t, http.MethodPut, "/api/posts/"+postID, bob, map[string]string{"text": "mine"})
	if status != http.StatusForbidden {
		t.Fatalf("edit other's post: %d", status)
	}
	status, _ = srv.do(t, http.MethodDelete, "/api/posts/"+postID, bob, nil)
	if status != http.StatusForbidden {
		t.Fatalf("delete other's post: %d", status)
	}
	status, _ = srv.do(t, http.MethodDelete, "/api/posts/"+postID, alice, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	status, _ = srv.do(t, http.MethodPut, "/api/posts/like/"+postID, bob, nil)
	if status != http.StatusNotFound {
		t.Fatalf("like deleted post: %d", status)
	}
}

func TestMultipartPostWithImage(t *testing.T) {
	srv := newTestServer(t)
	_, alice := srv.register(t, "alice")

	req := multipartRequest(t, http.MethodPost, srv.URL+"/api/posts", nil, map[string][]byte{"image": pngBytes})
	status, post := srv.send(t, req, alice)
	if status != http.StatusOK || !strings.HasPrefix(post["image"].(string), "mem://image/") {
		t.Fatalf("create with image: %d %v", status, post)
	}
	postID := post["_id"].(string)

	req = multipartRequest(t, http.MethodPut, srv.URL+"/api/posts/"+postID, map[string]string{"image": "", "text": "now text"}, nil)
	status, post = srv.send(t, req, alice)
	if status != http.StatusOK || post["image"] != nil || post["text"] != "now text" {
		t.Fatalf("clear image: %d %v", status, post)
	}

	status, body := srv.do(t, http.MethodPost, "/api/posts", alice, map[string]string{"image": "http://elsewhere/x.png"})
	if status != http.StatusBadRequest || body["message"] != "Media must be uploaded as a file" {
		t.Fatalf("url as media: %d %v", status, body)
	}
}

func TestNonOwnerEditsAreForbidden(t *testing.T) {
	srv := newTestServer(t)
	_, alice := srv.register(t, "alice")
	_, bob := srv.register(t, "bob")

	status, post := srv.do(t, http.MethodPost, "/api/posts", alice, map[string]string{"text": "hello"})
	if status != http.StatusOK {
		t.Fatalf("create: %d %v", status, post)
	}
	postID := post["_id"].(string)
	status, post = srv.do(t, http.MethodPost, "/api/posts/comment/"+postID, alice, map[string]string{"text": "first"})
	if status != http.StatusOK {
		t.Fatalf("comment: %d %v", status, post)
	}
	commentID := post["comments"].([]any)[0].(map[string]any)["_id"].(string)

	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{"media url", func() *http.Request {
			return jsonRequest(t, http.MethodPut, srv.URL+"/api/posts/"+postID, map[string]string{"image": "http://evil/x.png"})
		}},
		{"wrong kind file", func() *http.Request {
			return multipartRequest(t, http.MethodPut, srv.URL+"/api/posts/"+postID, nil, map[string][]byte{"video": pngBytes})
		}},
		{"empty comment text", func() *http.Request {
			return jsonRequest(t, http.MethodPut, srv.URL+"/api/posts/comment/"+postID+"/"+commentID, map[string]string{"text": ""})
		}},
		{"delete", func() *http.Request {
			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/posts/"+postID, nil)
			return req
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := srv.send(t, tc.req(), bob)
			if status != http.StatusForbidden || body["message"] != "User not authorized" {
				t.Fatalf("got %d %v, want 403", status, body)
			}
		})
	}

	status, body := srv.send(t, jsonRequest(t, http.MethodPut, srv.URL+"/api/posts/"+postID, map[string]string{"image": "http://evil/x.png"}), alice)
	if status != http.StatusBadRequest || body["message"] != "Media must be uploaded as a file" {
		t.Fatalf("owner url as media: %d %v", status, body)
	}
	if srv.storage.Len() != 0 {
		t.Fatalf("rejected requests stored %d objects", srv.storage.Len())
	}
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode: %v", err)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProfileAndFollow(t *testing.T) {
	srv := newTestServer(t)
	aliceID, alice := srv.register(t, "alice")
	bobID, _ := srv.register(t, "bob")

	req := multipartRequest(t, http.MethodPut, srv.URL+"/api/users/update", map[string]string{"bio": "hi there"}, map[string][]byte{"profileImg": pngBytes})
	status, body := srv.send(t, req, alice)
	if status != http.StatusOK || body["bio"] != "hi there" || body["profileImg"] == "" {
		t.Fatalf("update profile: %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/users/follow/"+bobID, alice, nil)
	if status != http.StatusOK {
		t.Fatalf("follow: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodPost, "/api/users/follow/"+bobID, alice, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("second follow: %d %v", status, body)
	}
	status, _ = srv.do(t, http.MethodPost, "/api/users/follow/"+aliceID, alice, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("self follow: %d", status)
	}
	status, _ = srv.do(t, http.MethodPost, "/api/users/follow/nobody", alice, nil)
	if status != http.StatusNotFound {
		t.Fatalf("follow unknown: %d", status)
	}

	status, body = srv.do(t, http.MethodGet, "/api/users/profile/bob", "", nil)
	followers := body["followers"].([]any)
	if status != http.StatusOK || len(followers) != 1 || followers[0] != aliceID {
		t.Fatalf("bob profile: %d %v", status, body)
	}

	status, _ = srv.do(t, http.MethodPost, "/api/users/unfollow/"+bobID, alice, nil)
	if status != http.StatusOK {
		t.Fatalf("unfollow: %d", status)
	}
	status, _ = srv.do(t, http.MethodGet, "/api/users/profile/nobody", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown profile: %d", status)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/users/activity?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	defer res.Body.Close()
	var events []map[string]any
	json.NewDecoder(res.Body).Decode(&events)
	if res.StatusCode != http.StatusOK || len(events) == 0 || events[0]["type"] != services.EventUserUnfollow {
		t.Fatalf("activity: %d %v", res.StatusCode, events)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/api/posts", "", nil)

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer res.Body.Close()
	raw := new(bytes.Buffer)
	raw.ReadFrom(res.Body)
	if !strings.Contains(raw.String(), `http_requests_total{method="GET",route="/api/posts`) {
		t.Fatalf("request counter missing:\n%s", raw.String())
	}
}
