package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/solatis/rulebuilder/internal/builder"
	"github.com/solatis/rulebuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Edit operation names accepted in the "op" field of an Edit request.
const (
	OpAddNestedCondition = "add_nested_condition"
	OpAddAlternativeRule = "add_alternative_rule"
	OpAddTopLevelGroup   = "add_top_level_group"
	OpRemoveRule         = "remove_rule"
	OpRemoveCondition    = "remove_condition"
	OpChangeField        = "change_field"
	OpChangeOperator     = "change_operator"
	OpSetMatch           = "set_match"
	OpSetQuantity        = "set_quantity"
	OpSetText            = "set_text"
	OpSetRange           = "set_range"
	OpSetBoolean         = "set_boolean"
	OpReset              = "reset"
)

type openRequest struct {
	Tree           any    `mapstructure:"tree"`
	ErrorIndicator string `mapstructure:"errorIndicator"`
}

type sessionRequest struct {
	SessionID string `mapstructure:"sessionId"`
	Normalize bool   `mapstructure:"normalize"`
}

type editRequest struct {
	SessionID string `mapstructure:"sessionId"`
	Op        string `mapstructure:"op"`
	Element   int    `mapstructure:"element"`
	Field     string `mapstructure:"field"`
	Operator  string `mapstructure:"operator"`
	Match     string `mapstructure:"match"`
	Text      string `mapstructure:"text"`
	Start     string `mapstructure:"start"`
	End       string `mapstructure:"end"`
	Value     bool   `mapstructure:"value"`
	Tree      any    `mapstructure:"tree"`
}

type issueView struct {
	Path     string `json:"path"`
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Error    string `json:"error"`
}

// OpenSession materializes the request's tree against the current catalog.
// Request: {"tree": <nodes>, "errorIndicator": "..."}.
// Response: {"sessionId": "...", "view": <tree view>}.
func (s *BuilderAPIService) OpenSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req openRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	nodes, err := types.DecodeNodes(req.Tree)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to load catalog", "error", err)
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("failed to load catalog: %v", err))
	}

	sess, err := s.open(ctx, cat, nodes, req.ErrorIndicator)
	if err != nil {
		s.log.WarnContext(ctx, "session rejected", "error", err)
		return nil, toStatus(err)
	}
	s.log.InfoContext(ctx, "session opened", "session", sess.id, "nodes", len(nodes), "quantitative", sess.builder.Tree().Quantitative())

	return toStruct(map[string]any{
		"sessionId": string(sess.id),
		"view":      builder.Snapshot(sess.builder.Tree(), s.labels),
	})
}

// Edit applies one edit operation.
// Response: {"element": <inserted id or -1>, "view": <tree view>}.
func (s *BuilderAPIService) Edit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req editRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	sess, err := s.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	defer s.release(sess)

	inserted, err := applyEdit(sess.builder, req)
	if err != nil {
		s.log.DebugContext(ctx, "edit rejected", "session", sess.id, "op", req.Op, "element", req.Element, "error", err)
		return nil, toStatus(err)
	}

	return toStruct(map[string]any{
		"element": inserted,
		"view":    builder.Snapshot(sess.builder.Tree(), s.labels),
	})
}

func applyEdit(b *builder.Builder, req editRequest) (builder.ElementID, error) {
	id := builder.ElementID(req.Element)
	switch req.Op {
	case OpAddNestedCondition:
		return b.AddNestedCondition(id)
	case OpAddAlternativeRule:
		return b.AddAlternativeRule(id)
	case OpAddTopLevelGroup:
		return b.AddTopLevelGroup()
	case OpRemoveRule:
		return builder.NoElement, b.RemoveRule(id)
	case OpRemoveCondition:
		return builder.NoElement, b.RemoveCondition(id)
	case OpChangeField:
		return builder.NoElement, b.ChangeField(id, req.Field)
	case OpChangeOperator:
		return builder.NoElement, b.ChangeOperator(id, req.Operator)
	case OpSetMatch:
		return builder.NoElement, b.SetMatch(id, req.Match)
	case OpSetQuantity:
		return builder.NoElement, b.SetQuantity(id, req.Text)
	case OpSetText:
		return builder.NoElement, b.SetText(id, req.Text)
	case OpSetRange:
		return builder.NoElement, b.SetRange(id, req.Start, req.End)
	case OpSetBoolean:
		return builder.NoElement, b.SetBoolean(id, req.Value)
	case OpReset:
		nodes, err := types.DecodeNodes(req.Tree)
		if err != nil {
			return builder.NoElement, err
		}
		b.Reset(nodes)
		return builder.NoElement, nil
	default:
		return builder.NoElement, fmt.Errorf("unknown edit operation %q", req.Op)
	}
}

// Collect serializes the session's tree and validates it against the catalog.
// Issues never block collection. With "normalize" set, values are coerced to
// their declared types first.
// Response: {"data": [...], "issues": [...], "errorIndicator": "..."}.
func (s *BuilderAPIService) Collect(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	sess, err := s.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	defer s.release(sess)

	data := sess.builder.Collect().Data
	if req.Normalize {
		data = sess.validator.Normalize(data)
	}

	issues := []issueView{}
	for _, issue := range sess.validator.Validate(data) {
		issues = append(issues, issueView{
			Path:     issue.Path,
			Field:    issue.Field,
			Operator: issue.Operator,
			Error:    issue.Err.Error(),
		})
	}

	return toStruct(map[string]any{
		"data":           data,
		"issues":         issues,
		"errorIndicator": sess.builder.ErrorIndicator(),
	})
}

// CloseSession drops the session.
func (s *BuilderAPIService) CloseSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.close(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	s.log.InfoContext(ctx, "session closed", "session", req.SessionID)
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// Catalog returns the current catalog.
// Response: {"fields": [...]}.
func (s *BuilderAPIService) Catalog(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("failed to load catalog: %v", err))
	}
	fields := cat.Fields()
	if fields == nil {
		fields = []types.Field{}
	}
	return toStruct(map[string]any{"fields": fields})
}

// decodeRequest decodes a request struct leniently, as browsers send numbers
// and booleans as strings.
func decodeRequest(in *structpb.Struct, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := dec.Decode(in.AsMap()); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("malformed request: %v", err))
	}
	return nil
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}
