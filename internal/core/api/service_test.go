package api

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/auth"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/logging"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testCatalog = `
operatorSets:
  numeric:
    - {name: equals, fieldType: TEXT}
    - {name: between, fieldType: RANGE}
fields:
  - name: age
    label: Age
    operatorSet: numeric
  - name: active
    operators:
      - {name: is, fieldType: BOOLEAN}
  - name: birth
    operators:
      - {name: on, fieldType: DATE}
`

func newTestService(t *testing.T, mutate func(*config.BuilderAPIConfig)) *BuilderAPIService {
	t.Helper()
	doc, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	cat, err := doc.Resolve()
	require.NoError(t, err)

	cfg := config.DefaultBuilderAPIConfig()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := NewBuilderAPIService(cfg, StaticCatalog{Catalog: cat}, logging.Discard())
	require.NoError(t, err)
	return svc
}

func dial(t *testing.T, svc *BuilderAPIService) *BuilderAPIClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterBuilderAPIServer(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewBuilderAPIClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

// childID returns the id of the element at path (child indexes) below the view root.
func childID(t *testing.T, view any, path ...int) int {
	t.Helper()
	cur := view.(map[string]any)
	for _, i := range path {
		children := cur["children"].([]any)
		require.Greater(t, len(children), i)
		cur = children[i].(map[string]any)
	}
	return int(cur["id"].(float64))
}

func TestBuilderAPI_EditCycle(t *testing.T) {
	client := dial(t, newTestService(t, nil))
	ctx := context.Background()

	opened, err := client.Call(ctx, "OpenSession", mustStruct(t, map[string]any{
		"tree": []any{map[string]any{
			"groupOperator": "AND",
			"groups":        []any{map[string]any{"name": "age", "operator": "equals", "value": "21"}},
		}},
		"errorIndicator": "age is required",
	}))
	require.NoError(t, err)
	m := opened.AsMap()
	sessionID := m["sessionId"].(string)
	require.NotEmpty(t, sessionID)
	ruleID := childID(t, m["view"], 0, 0)
	groupID := childID(t, m["view"], 0)

	collected, err := client.Call(ctx, "Collect", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	c := collected.AsMap()
	require.Equal(t, "age is required", c["errorIndicator"])
	require.Empty(t, c["issues"])
	data := c["data"].([]any)
	require.Len(t, data, 1)
	group := data[0].(map[string]any)
	require.Equal(t, "AND", group["groupOperator"])
	rule := group["groups"].([]any)[0].(map[string]any)
	require.Equal(t, "21", rule["value"])

	edit := func(fields map[string]any) (map[string]any, error) {
		fields["sessionId"] = sessionID
		out, err := client.Call(ctx, "Edit", mustStruct(t, fields))
		if err != nil {
			return nil, err
		}
		return out.AsMap(), nil
	}

	_, err = edit(map[string]any{"op": OpChangeOperator, "element": ruleID, "operator": "between"})
	require.NoError(t, err)

	// range without bounds is collected but flagged
	collected, err = client.Call(ctx, "Collect", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	issues := collected.AsMap()["issues"].([]any)
	require.Len(t, issues, 1)
	require.Equal(t, "rule has no value", issues[0].(map[string]any)["error"])

	// element ids arrive as strings from some clients
	_, err = edit(map[string]any{"op": OpSetRange, "element": strconv.Itoa(ruleID), "start": "18", "end": "65"})
	require.NoError(t, err)

	added, err := edit(map[string]any{"op": OpAddAlternativeRule, "element": groupID})
	require.NoError(t, err)
	require.NotEqual(t, float64(-1), added["element"])

	_, err = edit(map[string]any{"op": OpSetMatch, "element": groupID, "match": "any"})
	require.NoError(t, err)

	collected, err = client.Call(ctx, "Collect", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	group = collected.AsMap()["data"].([]any)[0].(map[string]any)
	require.Equal(t, "OR", group["groupOperator"])
	children := group["groups"].([]any)
	require.Len(t, children, 2)
	first := children[0].(map[string]any)
	require.Equal(t, "18", first["start"])
	require.Equal(t, "65", first["end"])

	_, err = client.Call(ctx, "CloseSession", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)

	_, err = client.Call(ctx, "Collect", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestBuilderAPI_ResetAndLabels(t *testing.T) {
	client := dial(t, newTestService(t, nil))
	ctx := context.Background()

	opened, err := client.Call(ctx, "OpenSession", mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	sessionID := opened.AsMap()["sessionId"].(string)

	out, err := client.Call(ctx, "Edit", mustStruct(t, map[string]any{
		"sessionId": sessionID,
		"op":        OpReset,
		"tree": []any{map[string]any{
			"groupOperator": "AND",
			"groups":        []any{map[string]any{"name": "active", "operator": "is", "value": "true"}},
		}},
	}))
	require.NoError(t, err)

	frame := out.AsMap()["view"].(map[string]any)["children"].([]any)[0].(map[string]any)
	require.Equal(t, "Add Sub-Condition", frame["frame"].(map[string]any)["subCondition"])
	row := frame["children"].([]any)[0].(map[string]any)["row"].(map[string]any)
	require.Len(t, row["fields"].([]any), 3)
	boolean := row["boolean"].(map[string]any)
	require.Equal(t, true, boolean["checked"])
	require.Equal(t, "True", boolean["trueLabel"])
	require.Equal(t, "False", boolean["falseLabel"])

	collected, err := client.Call(ctx, "Collect", mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	group := collected.AsMap()["data"].([]any)[0].(map[string]any)
	rule := group["groups"].([]any)[0].(map[string]any)
	require.Equal(t, "active", rule["name"])
	require.Equal(t, "true", rule["value"])

	_, err = client.Call(ctx, "Edit", mustStruct(t, map[string]any{"sessionId": sessionID, "op": OpReset, "tree": "not a tree"}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBuilderAPI_EditErrors(t *testing.T) {
	client := dial(t, newTestService(t, nil))
	ctx := context.Background()

	opened, err := client.Call(ctx, "OpenSession", mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	sessionID := opened.AsMap()["sessionId"].(string)
	ruleID := childID(t, opened.AsMap()["view"], 0)

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"unknown element", map[string]any{"op": OpSetText, "element": 9999, "text": "x"}, codes.NotFound},
		{"unknown op", map[string]any{"op": "explode", "element": ruleID}, codes.InvalidArgument},
		{"unknown field", map[string]any{"op": OpChangeField, "element": ruleID, "field": "height"}, codes.InvalidArgument},
		{"simple tree", map[string]any{"op": OpAddTopLevelGroup}, codes.FailedPrecondition},
		{"rule is not a group", map[string]any{"op": OpAddNestedCondition, "element": ruleID}, codes.InvalidArgument},
		{"malformed element", map[string]any{"op": OpSetText, "element": "abc"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req["sessionId"] = sessionID
			_, err := client.Call(ctx, "Edit", mustStruct(t, tt.req))
			require.Equal(t, tt.code, status.Code(err), "error: %v", err)
		})
	}

	_, err = client.Call(ctx, "Edit", mustStruct(t, map[string]any{"sessionId": "not-a-uuid", "op": OpSetText}))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestBuilderAPI_Catalog(t *testing.T) {
	client := dial(t, newTestService(t, nil))

	out, err := client.Call(context.Background(), "Catalog", mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	fields := out.AsMap()["fields"].([]any)
	require.Len(t, fields, 3)
	age := fields[0].(map[string]any)
	require.Equal(t, "age", age["name"])
	require.Len(t, age["operators"].([]any), 2)
}

func TestBuilderAPI_SessionLimit(t *testing.T) {
	svc := newTestService(t, func(cfg *config.BuilderAPIConfig) { cfg.MaxSessions = 1 })
	client := dial(t, svc)
	ctx := context.Background()

	_, err := client.Call(ctx, "OpenSession", mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	_, err = client.Call(ctx, "OpenSession", mustStruct(t, map[string]any{}))
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestBuilderAPI_IdleExpiry(t *testing.T) {
	svc := newTestService(t, func(cfg *config.BuilderAPIConfig) {
		cfg.MaxSessions = 1
		cfg.SessionIdleTimeout = time.Minute
	})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	opened, err := svc.OpenSession(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	sessionID := opened.AsMap()["sessionId"].(string)

	now = now.Add(30 * time.Second)
	_, err = svc.Collect(ctx, mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	require.Equal(t, 0, svc.Sweep(ctx))

	// use refreshed the idle clock
	now = now.Add(45 * time.Second)
	require.Equal(t, 0, svc.Sweep(ctx))

	now = now.Add(2 * time.Minute)
	_, err = svc.Collect(ctx, mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.Equal(t, codes.NotFound, status.Code(err))
	require.Equal(t, 0, svc.SessionCount())

	// a full service makes room by expiring idle sessions
	_, err = svc.OpenSession(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = svc.OpenSession(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	require.Equal(t, 1, svc.SessionCount())
}

func TestBuilderAPI_SessionsAreScopedToKey(t *testing.T) {
	svc := newTestService(t, nil)
	alice := auth.WithPrincipal(context.Background(), auth.Principal{KeyID: "k1", Name: "alice"})
	bob := auth.WithPrincipal(context.Background(), auth.Principal{KeyID: "k2", Name: "bob"})

	opened, err := svc.OpenSession(alice, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	req := mustStruct(t, map[string]any{"sessionId": opened.AsMap()["sessionId"]})

	_, err = svc.Collect(bob, req)
	require.Equal(t, codes.NotFound, status.Code(err))
	_, err = svc.CloseSession(bob, req)
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = svc.Collect(alice, req)
	require.NoError(t, err)
}

func TestBuilderAPI_Normalize(t *testing.T) {
	svc := newTestService(t, func(cfg *config.BuilderAPIConfig) { cfg.DateFormat = "02.01.2006" })
	ctx := context.Background()

	opened, err := svc.OpenSession(ctx, mustStruct(t, map[string]any{
		"tree": []any{map[string]any{"name": "birth", "operator": "on", "value": "31.12.1990"}},
	}))
	require.NoError(t, err)
	sessionID := opened.AsMap()["sessionId"]

	out, err := svc.Collect(ctx, mustStruct(t, map[string]any{"sessionId": sessionID}))
	require.NoError(t, err)
	rule := out.AsMap()["data"].([]any)[0].(map[string]any)
	require.Equal(t, "31.12.1990", rule["value"])
	require.Empty(t, out.AsMap()["issues"])

	out, err = svc.Collect(ctx, mustStruct(t, map[string]any{"sessionId": sessionID, "normalize": "true"}))
	require.NoError(t, err)
	rule = out.AsMap()["data"].([]any)[0].(map[string]any)
	require.Equal(t, "1990-12-31", rule["value"])
}
