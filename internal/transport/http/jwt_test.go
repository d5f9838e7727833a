package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/validate"
)

func jwtAuthenticator(cfg config.Config) (*auth.JWTConfig, auth.Authenticator) {
	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Minute,
	}
	rules := validate.Rules{MaxUsernameLength: cfg.MaxUsernameLength}
	return jwtCfg, &auth.JWTAuthenticator{Config: jwtCfg, Accept: rules.Username}
}

func authConfig() config.Config {
	cfg := config.Default()
	cfg.AuthEnabled = true
	cfg.JWTSecret = "testsecret"
	return cfg
}

func TestWebSocketJWTSuccess(t *testing.T) {
	cfg := authConfig()
	jwtCfg, authn := jwtAuthenticator(cfg)
	ts, _ := startTestServer(t, cfg, authn)

	token, err := auth.GenerateToken(jwtCfg, "alice")
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "/ws?token="+token))
	var joined proto.PresencePayload
	readUntil(ctx, t, conn, proto.TypeUserJoined, &joined)
	if joined.Username != "alice" {
		t.Fatalf("expected alice, got %+v", joined)
	}

	bearer, _, err := websocket.Dial(ctx, wsURL(ts, "/ws"), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("dial with bearer header: %v", err)
	}
	defer bearer.CloseNow()
	readUntil(ctx, t, bearer, proto.TypeUserJoined, &joined)
	if joined.Username != "alice" {
		t.Fatalf("expected alice, got %+v", joined)
	}
}

func TestWebSocketJWTRejected(t *testing.T) {
	cfg := authConfig()
	jwtCfg, authn := jwtAuthenticator(cfg)
	ts, hub := startTestServer(t, cfg, authn)

	badName, err := auth.GenerateToken(jwtCfg, "not a valid name!")
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}
	other := *jwtCfg
	other.Secret = []byte("wrong")
	wrongSecret, err := auth.GenerateToken(&other, "alice")
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, query := range map[string]string{
		"missing":      "",
		"bad username": "?token=" + badName,
		"wrong secret": "?token=" + wrongSecret,
	} {
		conn, resp, err := websocket.Dial(ctx, wsURL(ts, "/ws"+query), nil)
		if err == nil {
			conn.CloseNow()
			t.Fatalf("%s: expected dial failure", name)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %+v", name, resp)
		}
	}

	users, err := hub.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("rejected upgrades created sessions: %+v", users)
	}
	if got := hub.Metrics().RejectedUpgrades.Load(); got != 3 {
		t.Fatalf("rejected upgrades = %d", got)
	}
}
