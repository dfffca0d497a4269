package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/core/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testSecret = []byte(strings.Repeat("k", 32))

type fixture struct {
	auth  *Authenticator
	keys  *db.APIKeyStore
	q     *db.Queries
	key   string
	keyID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	q, err := db.LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}

	keys := db.NewAPIKeyStore(q)
	key, hash, err := GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	id, err := keys.Insert("ci", testSecretID, hash)
	if err != nil {
		t.Fatal(err)
	}

	a := NewAuthenticator(map[string][]byte{testSecretID: testSecret}, q, logging.Discard())
	return &fixture{auth: a, keys: keys, q: q, key: key, keyID: id}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.auth.Authenticate(ctx, f.key)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.Name != "ci" || p.KeyID != f.keyID {
		t.Errorf("principal = %+v", p)
	}

	stored, err := f.keys.List()
	if err != nil {
		t.Fatal(err)
	}
	if !stored[0].LastUsedAt.Valid {
		t.Error("last_used_at not recorded")
	}

	// valid format, unknown secret id
	foreign := FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("0", 64))
	if _, err := f.auth.Authenticate(ctx, foreign); err != ErrUnknownKey {
		t.Errorf("foreign key error = %v, want ErrUnknownKey", err)
	}

	// right secret id, never issued
	forged := FormatAPIKey(testSecretID, strings.Repeat("0", 64))
	if _, err := f.auth.Authenticate(ctx, forged); err != ErrInvalidKey {
		t.Errorf("forged key error = %v, want ErrInvalidKey", err)
	}

	if _, err := f.auth.Authenticate(ctx, "garbage"); err != ErrInvalidKeyFormat {
		t.Errorf("garbage key error = %v, want ErrInvalidKeyFormat", err)
	}

	if err := f.keys.Revoke(f.keyID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.auth.Authenticate(ctx, f.key); err != ErrKeyRevoked {
		t.Errorf("revoked key error = %v, want ErrKeyRevoked", err)
	}
}

func TestAuthenticate_StoreDown(t *testing.T) {
	f := newFixture(t)
	f.q.DB().Close()

	_, err := f.auth.Authenticate(context.Background(), f.key)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestUnaryInterceptor(t *testing.T) {
	f := newFixture(t)
	interceptor := f.auth.UnaryInterceptor()

	var seen Principal
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen, _ = PrincipalFromContext(ctx)
		return "ok", nil
	}
	call := func(ctx context.Context, method string) error {
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
		return err
	}
	withKey := func(key string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", key))
	}

	if err := call(withKey(f.key), "/rulebuilder.v1.BuilderAPI/Collect"); err != nil {
		t.Fatalf("valid key error = %v", err)
	}
	if seen.Name != "ci" {
		t.Errorf("handler saw principal %+v", seen)
	}

	if code := status.Code(call(context.Background(), "/rulebuilder.v1.BuilderAPI/Collect")); code != codes.Unauthenticated {
		t.Errorf("no metadata code = %v", code)
	}
	noKey := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	if code := status.Code(call(noKey, "/rulebuilder.v1.BuilderAPI/Collect")); code != codes.Unauthenticated {
		t.Errorf("no key code = %v", code)
	}
	if code := status.Code(call(withKey("rb-v1-bad"), "/rulebuilder.v1.BuilderAPI/Collect")); code != codes.Unauthenticated {
		t.Errorf("bad key code = %v", code)
	}
	if err := call(context.Background(), "/grpc.health.v1.Health/Check"); err != nil {
		t.Errorf("health check error = %v", err)
	}

	f.keys.Revoke(f.keyID)
	if code := status.Code(call(withKey(f.key), "/rulebuilder.v1.BuilderAPI/Collect")); code != codes.PermissionDenied {
		t.Errorf("revoked key code = %v", code)
	}
}
